package repo

import (
	"context"
	"time"

	"netmodifier/internal/storage/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRepo 键值仓库
type KVRepo struct {
	BaseRepository[model.Entry]
}

// NewKVRepo 创建键值仓库实例
func NewKVRepo(db *gorm.DB) *KVRepo {
	return &KVRepo{
		BaseRepository: *NewBaseRepository[model.Entry](db),
	}
}

// Get 获取键对应的记录，不存在时返回 nil
func (r *KVRepo) Get(ctx context.Context, key string) (*model.Entry, error) {
	return r.FindOne(ctx, "key = ?", key)
}

// Put 写入值并返回写入前的记录（不存在时为 nil），读取与写入在同一事务内
func (r *KVRepo) Put(ctx context.Context, key, value string) (*model.Entry, error) {
	var old *model.Entry
	err := r.Transaction(ctx, func(tx *BaseRepository[model.Entry]) error {
		prev, err := tx.FindOne(ctx, "key = ?", key)
		if err != nil {
			return err
		}
		old = prev

		entry := model.Entry{Key: key, Value: value, Revision: 1, UpdatedAt: time.Now()}
		if prev != nil {
			entry.Revision = prev.Revision + 1
		}
		return tx.Db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "revision", "updated_at"}),
		}).Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}
