package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/pkg/response"
	"github.com/qs3c/trademint_server/internal/service"
)

// writeServiceError 按错误类别映射响应码
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		response.SignatureError(c, "支付签名校验失败")
	case errors.Is(err, service.ErrAlreadyProcessed):
		response.DuplicateError(c, "支付已处理")
	case errors.Is(err, service.ErrPaymentVerificationFailed):
		// 原因可能包含数据库错误，只写日志
		log.Printf("payment verification failed: path=%s err=%v", c.FullPath(), err)
		msg := "支付校验失败，已记录待人工处理"
		if errors.Is(err, service.ErrAlreadySubscribed) {
			msg = "已存在有效订阅，支付已记录待人工处理"
		}
		response.VerifyFailedError(c, msg)
	case errors.Is(err, service.ErrNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrGatewayUnavailable):
		response.GatewayError(c, err.Error())
	case errors.Is(err, service.ErrExternalServiceDegraded):
		response.DegradedError(c, err.Error())
	default:
		log.Printf("request failed: path=%s err=%v", c.FullPath(), err)
		response.ServerError(c, "")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}
