package model

import (
	"fmt"
	"time"
)

// 订阅状态
const (
	SubscriptionPending   = "PENDING"
	SubscriptionActive    = "ACTIVE"
	SubscriptionExpired   = "EXPIRED"
	SubscriptionCancelled = "CANCELLED"
)

// Subscription 访问授权。ActiveKey 仅在 ACTIVE 时有值，
// 依靠其唯一索引保证同一用户同一服务最多一条 ACTIVE 记录
type Subscription struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	UserID           int64      `gorm:"not null;index" json:"user_id"`
	ServiceID        int64      `gorm:"not null;index" json:"service_id"`
	PaymentID        *int64     `gorm:"index" json:"payment_id,omitempty"`
	StartDate        time.Time  `gorm:"not null" json:"start_date"`
	EndDate          time.Time  `gorm:"not null;index" json:"end_date"`
	Status           string     `gorm:"size:20;not null;index" json:"status"`
	ActiveKey        *string    `gorm:"column:active_key;size:64;uniqueIndex" json:"-"`
	ChannelMemberID  *string    `gorm:"column:channel_member_id;size:64" json:"channel_member_id,omitempty"`
	ChannelRevokedAt *time.Time `json:"channel_revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Payment *Payment `gorm:"foreignKey:PaymentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ActiveSlot 生成 (user, service) 的 ACTIVE 占位键
func ActiveSlot(userID, serviceID int64) *string {
	key := fmt.Sprintf("%d:%d", userID, serviceID)
	return &key
}
