package dto

// ListSubscriptionsRequest 订阅列表请求
type ListSubscriptionsRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING ACTIVE EXPIRED CANCELLED"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// SubscriptionItem 订阅摘要
type SubscriptionItem struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"service_id"`
	ServiceName string `json:"service_name,omitempty"`
	PaymentID   *int64 `json:"payment_id"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	DaysLeft    int    `json:"days_left"`
}
