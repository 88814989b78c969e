package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// PricingTier 服务的可选价格档位，价格为展示货币单位
type PricingTier struct {
	Price        int64 `json:"price"`
	DurationDays int   `json:"duration_days"`
}

// Service 交易员发布的付费服务
type Service struct {
	ID           int64          `gorm:"primaryKey" json:"id"`
	TraderID     int64          `gorm:"not null;index" json:"trader_id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	Price        int64          `gorm:"not null" json:"price"`
	DurationDays int            `gorm:"not null" json:"duration_days"`
	PricingTiers datatypes.JSON `gorm:"type:json" json:"pricing_tiers,omitempty"`
	ChannelID    *string        `gorm:"column:channel_id;size:64" json:"channel_id,omitempty"`
	IsActive     bool           `gorm:"not null;index" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// Tiers 解析价格档位，解析失败时视为没有档位
func (s *Service) Tiers() []PricingTier {
	if len(s.PricingTiers) == 0 {
		return nil
	}
	var tiers []PricingTier
	if err := json.Unmarshal(s.PricingTiers, &tiers); err != nil {
		return nil
	}
	return tiers
}

// HasChannel 是否绑定了外部频道
func (s *Service) HasChannel() bool {
	return s.ChannelID != nil && *s.ChannelID != ""
}
