package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/api/middleware"
	"github.com/qs3c/trademint_server/internal/model/dto"
	"github.com/qs3c/trademint_server/internal/pkg/response"
	"github.com/qs3c/trademint_server/internal/service"
)

type TraderHandler struct {
	catalogService *service.CatalogService
}

func NewTraderHandler(catalogService *service.CatalogService) *TraderHandler {
	return &TraderHandler{
		catalogService: catalogService,
	}
}

// CreateService 创建服务
// POST /api/v1/trader/services
func (h *TraderHandler) CreateService(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.catalogService.CreateService(userID, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", item)
}

// ListServices 我的服务
// GET /api/v1/trader/services
func (h *TraderHandler) ListServices(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.catalogService.ListMine(userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"services": items})
}

// DeactivateService 停售服务
// POST /api/v1/trader/services/:id/deactivate
func (h *TraderHandler) DeactivateService(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Deactivate(userID, middleware.GetRole(c), id); err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已停售", nil)
}

// BindChannel 绑定或创建频道
// POST /api/v1/trader/services/:id/channel
func (h *TraderHandler) BindChannel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.catalogService.BindChannel(c.Request.Context(), userID, id, &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "频道已绑定", item)
}

// InviteLink 生成频道邀请链接
// POST /api/v1/trader/services/:id/invite-link
func (h *TraderHandler) InviteLink(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.InviteLinkRequest
	// 请求体可选
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	url, err := h.catalogService.InviteLink(c.Request.Context(), userID, id, req.Permanent)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, dto.InviteLinkResponse{URL: url})
}

// ChannelInfo 频道信息
// GET /api/v1/trader/services/:id/channel
func (h *TraderHandler) ChannelInfo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	info, err := h.catalogService.ChannelInfo(c.Request.Context(), userID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, info)
}
