package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor 开启数据库事务，回调中使用 tx 构造的仓储共享同一事务
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// Transaction 回调返回错误时回滚，否则提交
func (t *Transactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
