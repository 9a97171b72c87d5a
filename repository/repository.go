package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// ErrStaleState 报销单已被其他审批操作修改
var ErrStaleState = errors.New("报销单状态已变更，请刷新后重试")

// Repository 所有仓库的聚合入口
type Repository struct {
	db     *gorm.DB
	Users  *UserRepository
	Claims *ClaimRepository
	Matrix *MatrixRepository
}

// New 创建仓库聚合
func New(db *gorm.DB) *Repository {
	return &Repository{
		db:     db,
		Users:  NewUserRepository(db),
		Claims: NewClaimRepository(db),
		Matrix: NewMatrixRepository(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
