package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("gateway: resource not found")
	ErrUnavailable  = errors.New("gateway: unavailable")
	ErrUnsupported  = errors.New("gateway: operation not supported")
	ErrInvalidInput = errors.New("gateway: invalid input")
)

// NoteDurationDays 订单备注中携带有效时长的键
const NoteDurationDays = "duration_days"

// Order 网关侧订单，金额为最小货币单位
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
	Notes       map[string]string
}

// Charge 网关侧扣款记录
type Charge struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Status      string
	Method      string
	Contact     string
	Email       string
}

// Refund 退款回执
type Refund struct {
	ID          string
	ChargeID    string
	AmountMinor int64
	Status      string
}

// Gateway 支付网关。所有调用都是阻塞的网络请求，由调用方通过 ctx 控制超时
type Gateway interface {
	// Name 网关名称，写入日志
	Name() string
	// ClientKey 前端完成支付所需的公开密钥
	ClientKey() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error)
	// VerifySignature 校验 (订单, 扣款, 签名) 三元组，error 仅表示网关不可用
	VerifySignature(ctx context.Context, orderID, chargeID, signature string) (bool, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	// Refund amountMinor 为 0 时全额退款
	Refund(ctx context.Context, chargeID string, amountMinor int64) (*Refund, error)
}

// NewReceipt 生成订单回执号，长度不超过 40
func NewReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
