// Package tracker 提供带过期清理的键值追踪器
//
// 导航拦截用它记录“标签页 -> 已发起的重定向目标”，每个拦截器持有自己的实例。
package tracker

import (
	"sync"
	"time"

	"netmodifier/internal/logger"
)

const (
	// DefaultTTL 条目默认存活时间
	DefaultTTL = 60 * time.Second
	// DefaultInterval 默认清理周期
	DefaultInterval = 30 * time.Second
)

// Options 追踪器配置
type Options struct {
	TTL      time.Duration // 条目存活时间
	Interval time.Duration // 后台清理周期
}

type entry[V any] struct {
	value     V
	startTime time.Time
}

// Tracker 并发安全的键值追踪器，过期条目由后台协程清理
type Tracker[K comparable, V any] struct {
	pool     sync.Map
	ttl      time.Duration
	interval time.Duration
	log      logger.Logger
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New 创建追踪器并启动清理协程，使用完毕需调用 Stop
func New[K comparable, V any](opts Options, l logger.Logger) *Tracker[K, V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if l == nil {
		l = logger.NewNop()
	}
	t := &Tracker[K, V]{
		ttl:      opts.TTL,
		interval: opts.Interval,
		log:      l,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go t.cleanupLoop()
	return t
}

// Set 写入或覆盖条目
func (t *Tracker[K, V]) Set(key K, value V) {
	t.pool.Store(key, &entry[V]{value: value, startTime: t.now()})
}

// Peek 仅获取条目而不移除
func (t *Tracker[K, V]) Peek(key K) (V, bool) {
	val, ok := t.pool.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	e := val.(*entry[V])
	if t.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// ConsumeIf 条目存在且满足 match 时将其移除并返回 true，否则保持不变
func (t *Tracker[K, V]) ConsumeIf(key K, match func(V) bool) bool {
	val, ok := t.pool.Load(key)
	if !ok {
		return false
	}
	e := val.(*entry[V])
	if t.expired(e) || !match(e.value) {
		return false
	}
	// 期间被覆盖写入的新条目不受影响
	return t.pool.CompareAndDelete(key, val)
}

// Delete 删除条目
func (t *Tracker[K, V]) Delete(key K) {
	t.pool.Delete(key)
}

// Stop 停止清理协程，可重复调用
func (t *Tracker[K, V]) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Tracker[K, V]) expired(e *entry[V]) bool {
	return t.now().Sub(e.startTime) > t.ttl
}

// sweep 删除所有过期条目，返回删除数量
func (t *Tracker[K, V]) sweep() int {
	removed := 0
	t.pool.Range(func(key, value any) bool {
		e := value.(*entry[V])
		if t.expired(e) && t.pool.CompareAndDelete(key, value) {
			removed++
			t.log.Debug("清理过期条目", "key", key, "startTime", e.startTime)
		}
		return true
	})
	return removed
}

func (t *Tracker[K, V]) cleanupLoop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}
