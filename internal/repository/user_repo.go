package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/trademint_server/internal/model"
)

// UserRepository 用户只读访问，账号由认证服务写入
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID 只取下单和开通需要的列
func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Select("id", "email", "role", "telegram_user_id").
		Where("id = ?", id).
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
