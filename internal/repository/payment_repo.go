package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/trademint_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.db.Omit(clause.Associations).Create(payment).Error
}

func (r *PaymentRepository) GetByID(id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByIDAndUser 获取属于用户的支付记录
func (r *PaymentRepository) GetByIDAndUser(id, userID int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrderAndUser 根据网关订单号获取用户的支付记录
func (r *PaymentRepository) GetByOrderAndUser(orderID string, userID int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("gateway_order_id = ? AND user_id = ?", orderID, userID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockByOrderID 在事务内对支付行加行锁
func (r *PaymentRepository) LockByOrderID(orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CaptureFields 支付成功时写入的字段
type CaptureFields struct {
	ChargeID  string
	Signature string
	Method    string
	Contact   string
	PaidAt    time.Time
}

// MarkCaptured 仅当支付仍未落定时置为 CAPTURED，返回受影响行数
func (r *PaymentRepository) MarkCaptured(id int64, f CaptureFields) (int64, error) {
	result := r.db.Model(&model.Payment{}).
		Where("id = ? AND status IN ?", id, model.PaymentOpenStatuses).
		Updates(map[string]interface{}{
			"gateway_charge_id": f.ChargeID,
			"gateway_signature": f.Signature,
			"status":            model.PaymentCaptured,
			"method":            f.Method,
			"contact":           f.Contact,
			"paid_at":           f.PaidAt,
		})
	return result.RowsAffected, result.Error
}

// MarkFailed 仅当支付仍未落定时置为 FAILED，返回受影响行数
func (r *PaymentRepository) MarkFailed(id int64, code, description string) (int64, error) {
	result := r.db.Model(&model.Payment{}).
		Where("id = ? AND status IN ?", id, model.PaymentOpenStatuses).
		Updates(map[string]interface{}{
			"status":            model.PaymentFailed,
			"error_code":        code,
			"error_description": description,
		})
	return result.RowsAffected, result.Error
}

// ListByUser 分页获取用户支付记录
func (r *PaymentRepository) ListByUser(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.Model(&model.Payment{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}
