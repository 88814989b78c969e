package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/api/middleware"
	"github.com/qs3c/trademint_server/internal/model"
	"github.com/qs3c/trademint_server/internal/pkg/response"
	"github.com/qs3c/trademint_server/internal/service"
)

type AdminHandler struct {
	catalogService *service.CatalogService
}

func NewAdminHandler(catalogService *service.CatalogService) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
	}
}

// ApproveTrader 审核通过交易员
// POST /api/v1/admin/traders/:id/approve
func (h *AdminHandler) ApproveTrader(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.catalogService.ApproveTrader(adminID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已通过", item)
}

// RevokeTrader 撤销交易员资格
// POST /api/v1/admin/traders/:id/revoke
func (h *AdminHandler) RevokeTrader(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.catalogService.RevokeTrader(adminID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已撤销", item)
}

// DeactivateService 管理员停售任意服务
// POST /api/v1/admin/services/:id/deactivate
func (h *AdminHandler) DeactivateService(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Deactivate(adminID, model.RoleAdmin, id); err != nil {
		writeServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已停售", nil)
}
