// Package storage 提供持久化键值存储及其变更通知
//
// 规则集合以 JSON 文本保存在 domain.StorageKeyRules 键下，
// 写入成功后所有订阅者都会收到一条 domain.StorageChange。
package storage

import (
	"context"

	"netmodifier/pkg/domain"
)

// subscriberBuffer 每个订阅者的通知缓冲
const subscriberBuffer = 16

// Store 键值存储
type Store interface {
	// Get 读取键值，不存在时 ok 为 false
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set 写入键值并通知订阅者
	Set(ctx context.Context, key string, value []byte) error

	// Subscribe 订阅变更通知，返回的 cancel 用于退订并关闭通道
	Subscribe() (changes <-chan domain.StorageChange, cancel func())

	// Close 关闭存储并关闭所有订阅通道
	Close() error
}
