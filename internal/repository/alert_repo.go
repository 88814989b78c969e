package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/trademint_server/internal/model"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *AlertRepository) WithTx(tx *gorm.DB) *AlertRepository {
	return &AlertRepository{db: tx}
}

// Create 创建提醒
func (r *AlertRepository) Create(alert *model.TradeAlert) error {
	return r.db.Create(alert).Error
}

// FindRecent 查找去重窗口内内容相同的提醒
func (r *AlertRepository) FindRecent(serviceID int64, fingerprint string, since time.Time) (*model.TradeAlert, error) {
	var alert model.TradeAlert
	err := r.db.Where("service_id = ? AND fingerprint = ? AND sent_at >= ?", serviceID, fingerprint, since).
		Order("sent_at DESC").
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// InsertRecipients 批量写入接收记录，(alert_id, user_id) 冲突时忽略，返回新写入行数
func (r *AlertRepository) InsertRecipients(recipients []*model.AlertRecipient) (int64, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	result := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "alert_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&recipients)
	return result.RowsAffected, result.Error
}

// GetRecipientForUser 获取属于用户的接收记录
func (r *AlertRepository) GetRecipientForUser(id, userID int64) (*model.AlertRecipient, error) {
	var recipient model.AlertRecipient
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&recipient).Error
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}

// MarkRead 仅当未读时置为已读，返回受影响行数
func (r *AlertRepository) MarkRead(id, userID int64, at time.Time) (int64, error) {
	result := r.db.Model(&model.AlertRecipient{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return result.RowsAffected, result.Error
}

// ListByUser 分页获取用户收到的提醒
func (r *AlertRepository) ListByUser(userID int64, unreadOnly bool, page, pageSize int) ([]*model.AlertRecipient, int64, error) {
	var recipients []*model.AlertRecipient
	var total int64

	query := r.db.Model(&model.AlertRecipient{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Alert").
		Order("received_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&recipients).Error
	if err != nil {
		return nil, 0, err
	}

	return recipients, total, nil
}

// CountUnread 用户未读提醒数
func (r *AlertRepository) CountUnread(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.AlertRecipient{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// CountRecipients 提醒的接收记录数
func (r *AlertRepository) CountRecipients(alertID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.AlertRecipient{}).Where("alert_id = ?", alertID).Count(&count).Error
	return count, err
}
