package model

import (
	"time"
)

// 用户角色
const (
	RoleAdmin  = "admin"
	RoleTrader = "trader"
	RoleClient = "client"
)

// User 账号由外部认证服务写入，这里只读取角色和 Telegram 绑定
type User struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role           string    `gorm:"size:20;not null;index" json:"role"` // admin, trader, client
	TelegramUserID *string   `gorm:"column:telegram_user_id;size:64" json:"telegram_user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
