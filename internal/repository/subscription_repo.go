package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/trademint_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Omit(clause.Associations).Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByIDAndUser 获取属于用户的订阅
func (r *SubscriptionRepository) GetByIDAndUser(id, userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// HasActive 用户在该服务上是否已有 ACTIVE 订阅
func (r *SubscriptionRepository) HasActive(userID, serviceID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("user_id = ? AND service_id = ? AND status = ?", userID, serviceID, model.SubscriptionActive).
		Count(&count).Error
	return count > 0, err
}

// ListDue 获取已到期但仍为 ACTIVE 的订阅
func (r *SubscriptionRepository) ListDue(now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND end_date <= ?", model.SubscriptionActive, now).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

// Expire 仅当订阅仍为 ACTIVE 时置为 EXPIRED 并释放占位，返回受影响行数
func (r *SubscriptionRepository) Expire(id int64, now time.Time) (int64, error) {
	return r.closeActive(id, model.SubscriptionExpired, now)
}

// Cancel 仅当订阅仍为 ACTIVE 时置为 CANCELLED 并释放占位，返回受影响行数
func (r *SubscriptionRepository) Cancel(id int64, now time.Time) (int64, error) {
	return r.closeActive(id, model.SubscriptionCancelled, now)
}

func (r *SubscriptionRepository) closeActive(id int64, status string, now time.Time) (int64, error) {
	result := r.db.Model(&model.Subscription{}).
		Where("id = ? AND status = ?", id, model.SubscriptionActive).
		Updates(map[string]interface{}{
			"status":     status,
			"active_key": nil,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// MarkChannelRevoked 记录频道成员已移除
func (r *SubscriptionRepository) MarkChannelRevoked(id int64, at time.Time) error {
	return r.db.Model(&model.Subscription{}).
		Where("id = ? AND channel_revoked_at IS NULL", id).
		Update("channel_revoked_at", at).Error
}

// ListActiveForService 获取服务当前有效的订阅，排除 end_date 已过的记录
func (r *SubscriptionRepository) ListActiveForService(serviceID int64, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("service_id = ? AND status = ? AND end_date >= ?", serviceID, model.SubscriptionActive, now).
		Order("id ASC").
		Find(&subs).Error
	return subs, err
}

// ListByUser 分页获取用户订阅，status 为空时不过滤
func (r *SubscriptionRepository) ListByUser(userID int64, status string, page, pageSize int) ([]*model.Subscription, int64, error) {
	var subs []*model.Subscription
	var total int64

	query := r.db.Model(&model.Subscription{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}
