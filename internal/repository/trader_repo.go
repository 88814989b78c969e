package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
)

type TraderRepository struct {
	db *gorm.DB
}

func NewTraderRepository(db *gorm.DB) *TraderRepository {
	return &TraderRepository{db: db}
}

func (r *TraderRepository) Create(trader *model.Trader) error {
	return r.db.Create(trader).Error
}

func (r *TraderRepository) GetByID(id int64) (*model.Trader, error) {
	var trader model.Trader
	err := r.db.Where("id = ?", id).First(&trader).Error
	if err != nil {
		return nil, err
	}
	return &trader, nil
}

// GetByUserID 根据账号获取交易员资料
func (r *TraderRepository) GetByUserID(userID int64) (*model.Trader, error) {
	var trader model.Trader
	err := r.db.Where("user_id = ?", userID).First(&trader).Error
	if err != nil {
		return nil, err
	}
	return &trader, nil
}

// Approve 审核通过
func (r *TraderRepository) Approve(id, adminID int64, at time.Time) error {
	return r.db.Model(&model.Trader{}).Where("id = ?", id).Updates(map[string]interface{}{
		"approved":    true,
		"approved_at": at,
		"approved_by": adminID,
	}).Error
}

// Revoke 撤销审核
func (r *TraderRepository) Revoke(id int64) error {
	return r.db.Model(&model.Trader{}).Where("id = ?", id).Updates(map[string]interface{}{
		"approved":    false,
		"approved_at": nil,
		"approved_by": nil,
	}).Error
}
