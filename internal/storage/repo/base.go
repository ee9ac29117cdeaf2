package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// BaseRepository 基础DAO层
type BaseRepository[T any] struct {
	Db *gorm.DB
}

// NewBaseRepository 创建基础DAO层
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{
		Db: db,
	}
}

// FindOne 按条件查询一条记录，不存在时返回 nil, nil
func (r *BaseRepository[T]) FindOne(ctx context.Context, query string, args ...any) (*T, error) {
	item := new(T)
	err := r.Db.WithContext(ctx).Where(query, args...).First(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Transaction 在事务中执行 fn，fn 收到绑定事务的仓库副本
func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(tx *BaseRepository[T]) error) error {
	return r.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BaseRepository[T]{Db: tx})
	})
}
