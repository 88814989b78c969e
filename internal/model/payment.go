package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 支付状态，只能沿 CREATED -> CAPTURED / FAILED 前进，CAPTURED 之后只允许退款字段变化
const (
	PaymentCreated    = "CREATED"
	PaymentAuthorized = "AUTHORIZED"
	PaymentCaptured   = "CAPTURED"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

// PaymentOpenStatuses 尚未落定的支付状态
var PaymentOpenStatuses = []string{PaymentCreated, PaymentAuthorized}

// Payment 每次网关下单一条记录，作为不可删除的审计流水
type Payment struct {
	ID               int64             `gorm:"primaryKey" json:"id"`
	OrderID          string            `gorm:"column:gateway_order_id;size:100;uniqueIndex;not null" json:"order_id"`
	ChargeID         *string           `gorm:"column:gateway_charge_id;size:100;uniqueIndex" json:"charge_id,omitempty"`
	Signature        *string           `gorm:"column:gateway_signature;size:255" json:"-"`
	UserID           int64             `gorm:"not null;index" json:"user_id"`
	ServiceID        int64             `gorm:"not null;index" json:"service_id"`
	Amount           decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string            `gorm:"size:3;not null" json:"currency"`
	DurationDays     int               `gorm:"not null" json:"duration_days"`
	Status           string            `gorm:"size:20;not null;index" json:"status"`
	Method           string            `gorm:"size:30" json:"method,omitempty"`
	Contact          string            `gorm:"size:50" json:"-"`
	Notes            datatypes.JSONMap `gorm:"type:json" json:"-"`
	ErrorCode        *string           `gorm:"size:50" json:"error_code,omitempty"`
	ErrorDescription *string           `gorm:"type:text" json:"error_description,omitempty"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	RefundedAt       *time.Time        `json:"refunded_at,omitempty"`

	// 仅用于建立外键约束，不做关联加载
	Service *Service `gorm:"foreignKey:ServiceID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
