package navigation

import (
	"context"
	"sync"

	"netmodifier/internal/logger"
	"netmodifier/pkg/domain"
)

// Navigation 一次标签页跳转记录
type Navigation struct {
	TabID domain.TabID `json:"tabId"`
	URL   string       `json:"url"`
}

// LogUpdater 只记录跳转、不操作浏览器的 TabUpdater，用于无浏览器运行和模拟
type LogUpdater struct {
	log     logger.Logger
	mu      sync.Mutex
	history []Navigation
}

// NewLogUpdater 创建记录型 TabUpdater
func NewLogUpdater(l logger.Logger) *LogUpdater {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogUpdater{log: l}
}

func (u *LogUpdater) Update(_ context.Context, tabID domain.TabID, url string) error {
	u.mu.Lock()
	u.history = append(u.history, Navigation{TabID: tabID, URL: url})
	u.mu.Unlock()
	u.log.Info("标签页跳转", "tabId", tabID, "url", url)
	return nil
}

// History 返回跳转记录副本
func (u *LogUpdater) History() []Navigation {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Navigation(nil), u.history...)
}
