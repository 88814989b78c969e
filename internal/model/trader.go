package model

import (
	"time"
)

type Trader struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	UserID     int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	Name       string     `gorm:"size:100" json:"name"`
	SebiReg    string     `gorm:"column:sebi_reg;size:50;uniqueIndex;not null" json:"sebi_reg"`
	Approved   bool       `gorm:"not null" json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy *int64     `json:"approved_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Trader) TableName() string {
	return "traders"
}
