package tracker_test

import (
	"sync"
	"testing"
	"time"

	"netmodifier/internal/logger"
	"netmodifier/internal/tracker"
)

func newTracker(ttl, interval time.Duration) *tracker.Tracker[string, string] {
	return tracker.New[string, string](tracker.Options{TTL: ttl, Interval: interval}, logger.NewNop())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		opts tracker.Options
	}{
		{"正常配置", tracker.Options{TTL: 30 * time.Second, Interval: time.Second}},
		{"零值使用默认值", tracker.Options{}},
		{"负值使用默认值", tracker.Options{TTL: -time.Second, Interval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tracker.New[int, string](tt.opts, nil)
			defer tr.Stop()
			if tr == nil {
				t.Error("New() returned nil")
			}
		})
	}
}

func TestSetAndConsume(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	tr.Set("tab1", "https://a.com")

	if !tr.ConsumeIf("tab1", func(v string) bool { return v == "https://a.com" }) {
		t.Fatal("ConsumeIf() 应命中刚写入的条目")
	}
	// 消费之后条目被移除
	if _, ok := tr.Peek("tab1"); ok {
		t.Error("消费后条目应被移除")
	}
}

func TestPeek(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	tr.Set("tab1", "v")
	for i := 0; i < 2; i++ {
		if got, ok := tr.Peek("tab1"); !ok || got != "v" {
			t.Errorf("第 %d 次 Peek() = %q, %v", i+1, got, ok)
		}
	}
}

func TestSetOverwrites(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	tr.Set("tab1", "old")
	tr.Set("tab1", "new")
	if got, _ := tr.Peek("tab1"); got != "new" {
		t.Errorf("Peek() = %q, want new", got)
	}
	if tracker.Size(tr) != 1 {
		t.Errorf("Size() = %d, want 1", tracker.Size(tr))
	}
}

func TestConsumeIf(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	tr.Set("tab1", "https://b.com")

	equal := func(want string) func(string) bool {
		return func(v string) bool { return v == want }
	}

	if tr.ConsumeIf("tab1", equal("https://other.com")) {
		t.Error("不满足条件时不应移除")
	}
	if _, ok := tr.Peek("tab1"); !ok {
		t.Error("不满足条件时条目应保留")
	}
	if !tr.ConsumeIf("tab1", equal("https://b.com")) {
		t.Error("满足条件时应移除")
	}
	if _, ok := tr.Peek("tab1"); ok {
		t.Error("ConsumeIf 后条目应被删除")
	}
	if tr.ConsumeIf("missing", equal("")) {
		t.Error("不存在的键应返回 false")
	}
}

func TestDelete(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	tr.Set("id1", "data")
	tr.Delete("id1")

	if _, ok := tr.Peek("id1"); ok {
		t.Error("Delete() did not remove data")
	}
}

func TestExpiredEntriesInvisible(t *testing.T) {
	tr := newTracker(20*time.Millisecond, time.Hour)
	defer tr.Stop()

	tr.Set("id1", "data")
	time.Sleep(50 * time.Millisecond)

	if _, ok := tr.Peek("id1"); ok {
		t.Error("过期条目不应被 Peek 读到")
	}
	if tr.ConsumeIf("id1", func(string) bool { return true }) {
		t.Error("过期条目不应被 ConsumeIf 命中")
	}
}

func TestCleanup(t *testing.T) {
	tr := newTracker(20*time.Millisecond, 10*time.Millisecond)
	defer tr.Stop()

	tr.Set("id1", "data")

	deadline := time.Now().Add(2 * time.Second)
	for tracker.Size(tr) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if tracker.Size(tr) != 0 {
		t.Error("cleanup did not remove expired data")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := tracker.New[int, int](tracker.Options{}, logger.NewNop())
	defer tr.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.Set(n, n)
			tr.Peek(n)
			tr.ConsumeIf(n, func(v int) bool { return v == n })
		}(i)
	}
	wg.Wait()

	if tracker.Size(tr) != 0 {
		t.Errorf("Size() = %d, want 0", tracker.Size(tr))
	}
}

func TestStop(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	tr.Stop()

	// 多次调用Stop应该安全
	tr.Stop()
	tr.Stop()
}

func TestPeekNotExists(t *testing.T) {
	tr := newTracker(5*time.Second, time.Second)
	defer tr.Stop()

	if _, ok := tr.Peek("not-exist"); ok {
		t.Error("Peek() should return false for non-existent id")
	}
}
