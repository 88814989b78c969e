package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
)

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *ServiceRepository) WithTx(tx *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: tx}
}

func (r *ServiceRepository) Create(service *model.Service) error {
	return r.db.Create(service).Error
}

func (r *ServiceRepository) GetByID(id int64) (*model.Service, error) {
	var service model.Service
	err := r.db.Where("id = ?", id).First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// GetByIDs 批量获取服务，按 ID 索引
func (r *ServiceRepository) GetByIDs(ids []int64) (map[int64]*model.Service, error) {
	result := make(map[int64]*model.Service, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var services []*model.Service
	if err := r.db.Where("id IN ?", ids).Find(&services).Error; err != nil {
		return nil, err
	}
	for _, s := range services {
		result[s.ID] = s
	}
	return result, nil
}

// ListByTrader 获取交易员的全部服务
func (r *ServiceRepository) ListByTrader(traderID int64) ([]*model.Service, error) {
	var services []*model.Service
	err := r.db.Where("trader_id = ?", traderID).
		Order("created_at DESC").
		Find(&services).Error
	return services, err
}

// Deactivate 停止售卖，已有订阅不受影响
func (r *ServiceRepository) Deactivate(id int64) error {
	return r.db.Model(&model.Service{}).Where("id = ?", id).
		Update("is_active", false).Error
}

// SetChannelID 绑定外部频道
func (r *ServiceRepository) SetChannelID(id int64, channelID string) error {
	return r.db.Model(&model.Service{}).Where("id = ?", id).
		Update("channel_id", channelID).Error
}
