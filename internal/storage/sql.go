package storage

import (
	"context"
	"sync"

	"netmodifier/internal/storage/db"
	"netmodifier/internal/storage/model"
	"netmodifier/internal/storage/repo"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"

	"gorm.io/gorm"
)

// SQLStore 基于 SQLite 的键值存储
type SQLStore struct {
	gdb    *gorm.DB
	kv     *repo.KVRepo
	notify *notifier

	mu     sync.RWMutex
	closed bool
}

// OpenSQL 打开数据库、执行迁移并返回存储
func OpenSQL(opts db.Options) (*SQLStore, error) {
	gdb, err := db.New(opts)
	if err != nil {
		return nil, errx.Wrap(errx.CodeStorage, err, "打开数据库失败")
	}
	if err := db.Migrate(gdb, &model.Entry{}); err != nil {
		_ = db.Close(gdb)
		return nil, errx.Wrap(errx.CodeStorage, err, "数据库迁移失败")
	}
	return NewSQL(gdb), nil
}

// NewSQL 使用已迁移的连接创建存储
func NewSQL(gdb *gorm.DB) *SQLStore {
	return &SQLStore{
		gdb:    gdb,
		kv:     repo.NewKVRepo(gdb),
		notify: newNotifier(),
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, domain.ErrStoreClosed
	}

	e, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, errx.Wrap(errx.CodeStorage, err, "读取存储失败")
	}
	if e == nil {
		return nil, false, nil
	}
	return []byte(e.Value), true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return domain.ErrStoreClosed
	}
	old, err := s.kv.Put(ctx, key, string(value))
	s.mu.RUnlock()
	if err != nil {
		return errx.Wrap(errx.CodeStorage, err, "写入存储失败")
	}

	change := domain.StorageChange{Key: key, NewValue: append([]byte(nil), value...)}
	if old != nil {
		change.OldValue = []byte(old.Value)
	}
	s.notify.publish(change)
	return nil
}

func (s *SQLStore) Subscribe() (<-chan domain.StorageChange, func()) {
	return s.notify.subscribe()
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.notify.close()
	return db.Close(s.gdb)
}
