package dto

// PublishAlertRequest 发布交易提醒请求
type PublishAlertRequest struct {
	ServiceID   int64  `json:"service_id" binding:"required"`
	Message     string `json:"message" binding:"required,min=1,max=2000"`
	StockSymbol string `json:"stock_symbol" binding:"max=30"`
	Action      string `json:"action" binding:"omitempty,oneof=BUY SELL HOLD"`
	TargetPrice string `json:"target_price" binding:"max=30"`
	StopLoss    string `json:"stop_loss" binding:"max=30"`
}

// PublishAlertResponse 发布结果
type PublishAlertResponse struct {
	Alert      *AlertItem `json:"alert"`
	Recipients int64      `json:"recipients"`
	Inserted   int64      `json:"inserted"`
	Reused     bool       `json:"reused"`
}

// AlertItem 提醒内容
type AlertItem struct {
	ID          int64  `json:"id"`
	ServiceID   int64  `json:"service_id"`
	TraderID    int64  `json:"trader_id"`
	Message     string `json:"message"`
	StockSymbol string `json:"stock_symbol,omitempty"`
	Action      string `json:"action,omitempty"`
	TargetPrice string `json:"target_price,omitempty"`
	StopLoss    string `json:"stop_loss,omitempty"`
	SentAt      string `json:"sent_at"`
}

// InboxRequest 收件箱请求
type InboxRequest struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page,default=1" binding:"min=1"`
	PageSize   int  `form:"page_size,default=20" binding:"min=1,max=100"`
}

// InboxItem 收件箱条目
type InboxItem struct {
	RecipientID int64      `json:"recipient_id"`
	Alert       *AlertItem `json:"alert"`
	ReceivedAt  string     `json:"received_at"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *string    `json:"read_at"`
}
