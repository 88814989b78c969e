package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/api/middleware"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/response"
	"github.com/qs3c/trademint_server/internal/service"
)

type AlertHandler struct {
	alertService *service.AlertService
}

func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// Publish 发布交易提醒
// POST /api/v1/alerts
func (h *AlertHandler) Publish(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.PublishAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.alertService.Publish(c.Request.Context(), userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "发布成功", resp)
}

// Inbox 我的提醒
// GET /api/v1/alerts/mine
func (h *AlertHandler) Inbox(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.InboxRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.alertService.Inbox(userID, req.UnreadOnly, req.Page, req.PageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// UnreadCount 未读数
// GET /api/v1/alerts/unread-count
func (h *AlertHandler) UnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	count, err := h.alertService.UnreadCount(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"unread": count})
}

// MarkRead 标记已读
// POST /api/v1/alerts/recipients/:id/read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.alertService.MarkRead(c.Request.Context(), id, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, nil)
}
