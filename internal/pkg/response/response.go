package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务码。HTTP 状态固定为 200，调用方按 code 区分结果
const (
	CodeSuccess = 0

	// 1xxx 调用方可处理的错误
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeConflict         = 1004
	CodeDuplicateAction  = 1005
	CodeInvalidSignature = 1006
	CodeVerifyFailed     = 1007

	// 5xxx 服务端或外部依赖故障
	CodeServerError      = 5000
	CodeGatewayError     = 5001
	CodeExternalDegraded = 5002
)

var defaultMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodeConflict:         "当前状态不允许该操作",
	CodeDuplicateAction:  "重复操作",
	CodeInvalidSignature: "支付签名无效",
	CodeVerifyFailed:     "支付校验失败",
	CodeServerError:      "服务器内部错误",
	CodeGatewayError:     "支付网关暂不可用",
	CodeExternalDegraded: "外部服务暂不可用",
}

// Message 业务码的默认提示，未登记的码按服务器错误处理
func Message(code int) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeServerError]
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 列表接口的 data
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func write(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = Message(code)
	}
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	write(c, CodeSuccess, "", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, CodeSuccess, message, data)
}

// SuccessPage items 为 nil 时输出空数组，前端不必判空
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	if items == nil {
		items = []interface{}{}
	}
	write(c, CodeSuccess, "", PageData{Total: total, Page: page, PageSize: pageSize, Items: items})
}

// Error 错误响应，message 为空时使用业务码的默认提示
func Error(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

func ParamError(c *gin.Context, message string)      { Error(c, CodeParamError, message) }
func AuthError(c *gin.Context, message string)       { Error(c, CodeAuthFailed, message) }
func PermissionError(c *gin.Context, message string) { Error(c, CodePermissionDenied, message) }
func NotFoundError(c *gin.Context, message string)   { Error(c, CodeResourceNotFound, message) }
func ServerError(c *gin.Context, message string)     { Error(c, CodeServerError, message) }

// ConflictError 订阅或服务状态不允许当前操作
func ConflictError(c *gin.Context, message string) { Error(c, CodeConflict, message) }

// DuplicateError 支付已处理过
func DuplicateError(c *gin.Context, message string) { Error(c, CodeDuplicateAction, message) }

// SignatureError 支付签名校验不通过，不会开通
func SignatureError(c *gin.Context, message string) { Error(c, CodeInvalidSignature, message) }

// VerifyFailedError 支付已扣款但开通失败，需人工跟进
func VerifyFailedError(c *gin.Context, message string) { Error(c, CodeVerifyFailed, message) }

// GatewayError 支付网关不可用，客户端可稍后重试
func GatewayError(c *gin.Context, message string) { Error(c, CodeGatewayError, message) }

// DegradedError 频道等外部依赖不可用
func DegradedError(c *gin.Context, message string) { Error(c, CodeExternalDegraded, message) }
