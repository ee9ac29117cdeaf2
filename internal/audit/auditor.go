// Package audit 记录导航拦截的处理结果，供近期查询
package audit

import (
	"sync"
	"time"

	"netmodifier/internal/logger"
	"netmodifier/internal/navigation"
	"netmodifier/pkg/domain"
)

// DefaultCapacity 默认保留的近期记录数
const DefaultCapacity = 100

// Record 一次导航事件的审计记录
type Record struct {
	Timestamp   int64        `json:"timestamp"`
	TabID       domain.TabID `json:"tabId"`
	URL         string       `json:"url"`
	Outcome     string       `json:"outcome"`
	RuleID      string       `json:"ruleId,omitempty"`
	RedirectURL string       `json:"redirectUrl,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Auditor 导航审计器，保留最近 capacity 条记录
type Auditor struct {
	mu       sync.Mutex
	enabled  bool
	recent   []Record
	capacity int
	log      logger.Logger
}

// New 创建审计器，capacity <= 0 时使用默认值
func New(capacity int, l logger.Logger) *Auditor {
	if l == nil {
		l = logger.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Auditor{
		enabled:  true,
		capacity: capacity,
		log:      l,
	}
}

// SetEnabled 设置是否启用审计
func (a *Auditor) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
}

// Record 记录一次导航处理结果，子框架导航不记录
func (a *Auditor) Record(ev domain.NavigationEvent, d navigation.Decision, err error) {
	if d.Outcome == navigation.OutcomeIgnored && err == nil {
		return
	}

	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}
	rec := Record{
		Timestamp:   time.Now().UnixMilli(),
		TabID:       ev.TabID,
		URL:         ev.URL,
		Outcome:     string(d.Outcome),
		RuleID:      d.RuleID,
		RedirectURL: d.RedirectURL,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	a.recent = append(a.recent, rec)
	if len(a.recent) > a.capacity {
		a.recent = a.recent[len(a.recent)-a.capacity:]
	}
	a.mu.Unlock()

	a.log.Debug("导航已记录", "tabId", rec.TabID, "outcome", rec.Outcome)
}

// Recent 返回最近 n 条记录，按时间先后排列；n <= 0 时返回全部
func (a *Auditor) Recent(n int) []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n > len(a.recent) {
		n = len(a.recent)
	}
	out := make([]Record, n)
	copy(out, a.recent[len(a.recent)-n:])
	return out
}
