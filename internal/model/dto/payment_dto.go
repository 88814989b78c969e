package dto

// CreateOrderRequest 下单请求，custom_* 为协商价格和时长，未填写时使用服务默认值
type CreateOrderRequest struct {
	ServiceID          int64  `json:"service_id" binding:"required"`
	CustomPrice        *int64 `json:"custom_price,omitempty"`
	CustomDurationDays *int   `json:"custom_duration_days,omitempty"`
}

// CreateOrderResponse 下单结果，amount 为最小货币单位
type CreateOrderResponse struct {
	PaymentID     int64  `json:"payment_id"`
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount"`
	Currency      string `json:"currency"`
	DurationDays  int    `json:"duration_days"`
	Gateway       string `json:"gateway"`
	KeyID         string `json:"key_id"`
}

// VerifyPaymentRequest 支付校验请求
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	ChargeID  string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	ServiceID int64  `json:"service_id" binding:"required"`
}

// ActivationResponse 支付校验成功后的订阅和支付摘要
type ActivationResponse struct {
	Subscription *SubscriptionItem `json:"subscription"`
	Payment      *PaymentItem      `json:"payment"`
}

// PaymentItem 支付摘要
type PaymentItem struct {
	ID           int64   `json:"id"`
	ServiceID    int64   `json:"service_id"`
	OrderID      string  `json:"order_id"`
	ChargeID     *string `json:"charge_id"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
	Status       string  `json:"status"`
	Method       string  `json:"method,omitempty"`
	ErrorCode    *string `json:"error_code,omitempty"`
	CreatedAt    string  `json:"created_at"`
	PaidAt       *string `json:"paid_at"`
}

// ListPaymentsRequest 支付列表请求
type ListPaymentsRequest struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}
