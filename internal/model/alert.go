package model

import (
	"time"
)

type TradeAlert struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	ServiceID   int64     `gorm:"not null;index" json:"service_id"`
	TraderID    int64     `gorm:"not null;index" json:"trader_id"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	StockSymbol string    `gorm:"size:30" json:"stock_symbol,omitempty"`
	Action      string    `gorm:"size:10" json:"action,omitempty"` // BUY, SELL, HOLD
	TargetPrice string    `gorm:"size:30" json:"target_price,omitempty"`
	StopLoss    string    `gorm:"size:30" json:"stop_loss,omitempty"`
	Fingerprint string    `gorm:"size:64;index" json:"-"`
	SentAt      time.Time `gorm:"not null;index" json:"sent_at"`
}

func (TradeAlert) TableName() string {
	return "trade_alerts"
}

// AlertRecipient 每个接收者一条投递记录，(alert_id, user_id) 唯一
type AlertRecipient struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	AlertID        int64      `gorm:"not null;uniqueIndex:idx_alert_user" json:"alert_id"`
	UserID         int64      `gorm:"not null;uniqueIndex:idx_alert_user;index:idx_recipient_user_read" json:"user_id"`
	SubscriptionID int64      `gorm:"not null;index" json:"subscription_id"`
	ReceivedAt     time.Time  `gorm:"not null;index" json:"received_at"`
	IsRead         bool       `gorm:"not null;index:idx_recipient_user_read" json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`

	Alert *TradeAlert `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AlertRecipient) TableName() string {
	return "alert_recipients"
}
