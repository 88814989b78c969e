package dto

import "github.com/qs3c/trademint_server/internal/model"

// CreateServiceRequest 创建服务请求，price 为展示货币单位
type CreateServiceRequest struct {
	Name         string              `json:"name" binding:"required,min=1,max=100"`
	Description  string              `json:"description" binding:"max=5000"`
	Price        int64               `json:"price" binding:"required,gt=0"`
	DurationDays int                 `json:"duration_days" binding:"required,gt=0"`
	PricingTiers []model.PricingTier `json:"pricing_tiers,omitempty"`
}

// ServiceItem 服务信息
type ServiceItem struct {
	ID           int64               `json:"id"`
	TraderID     int64               `json:"trader_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        int64               `json:"price"`
	DurationDays int                 `json:"duration_days"`
	PricingTiers []model.PricingTier `json:"pricing_tiers,omitempty"`
	ChannelID    *string             `json:"channel_id"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    string              `json:"created_at"`
}

// ChannelRequest 绑定已有频道（channel_id）或新建频道（title）
type ChannelRequest struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title" binding:"max=128"`
	Description string `json:"description" binding:"max=255"`
}

// InviteLinkRequest 邀请链接请求
type InviteLinkRequest struct {
	Permanent bool `json:"permanent"`
}

// InviteLinkResponse 邀请链接
type InviteLinkResponse struct {
	URL string `json:"url"`
}

// TraderItem 交易员审核状态
type TraderItem struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	Name       string  `json:"name"`
	SebiReg    string  `json:"sebi_reg"`
	Approved   bool    `json:"approved"`
	ApprovedAt *string `json:"approved_at"`
}
