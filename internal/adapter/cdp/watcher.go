package cdp

import (
	"context"
	"sync"
	"time"

	"netmodifier/internal/logger"
	"netmodifier/internal/navigation"
	"netmodifier/pkg/domain"

	"github.com/mafredri/cdp/protocol/page"
)

// DefaultPollInterval 刷新页面目标列表的周期
const DefaultPollInterval = 2 * time.Second

// subFrameID 子框架导航统一使用的 frameId，CDP 的框架 ID 是字符串，这里只区分顶层与否
const subFrameID = 1

// NavigationHandler 接收页面目标上的导航事件
type NavigationHandler interface {
	HandleNavigation(ctx context.Context, ev domain.NavigationEvent) (navigation.Decision, error)
	TabClosed(tabID domain.TabID)
}

type subscription struct {
	cancel context.CancelFunc
}

// Watcher 为每个页面目标订阅 Page.frameNavigated，并把事件交给 NavigationHandler
type Watcher struct {
	tabs     *TabUpdater
	handler  NavigationHandler
	interval time.Duration
	log      logger.Logger

	mu       sync.Mutex
	watching map[domain.TabID]*subscription
}

// NewWatcher 创建导航事件监听器，与 tabs 共用 CDP 连接
func NewWatcher(tabs *TabUpdater, h NavigationHandler, interval time.Duration, l logger.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Watcher{
		tabs:     tabs,
		handler:  h,
		interval: interval,
		log:      l,
		watching: make(map[domain.TabID]*subscription),
	}
}

// Run 周期同步页面目标列表：新目标开始监听，消失的目标通知 TabClosed，直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.stopAll()

	for {
		w.sync(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) sync(ctx context.Context) {
	targets, err := w.tabs.ListTargets(ctx)
	if err != nil {
		w.log.Debug("获取页面目标失败", "error", err.Error())
		return
	}

	alive := make(map[domain.TabID]bool, len(targets))
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range targets {
		alive[t.ID] = true
		if _, ok := w.watching[t.ID]; ok {
			continue
		}
		subCtx, cancel := context.WithCancel(ctx)
		sub := &subscription{cancel: cancel}
		w.watching[t.ID] = sub
		go w.watch(subCtx, t.ID, sub)
	}

	for id, sub := range w.watching {
		if alive[id] {
			continue
		}
		sub.cancel()
		delete(w.watching, id)
		w.tabs.drop(id)
		w.handler.TabClosed(id)
	}
}

func (w *Watcher) watch(ctx context.Context, tabID domain.TabID, sub *subscription) {
	defer w.release(tabID, sub)

	s, err := w.tabs.session(ctx, tabID)
	if err != nil {
		return
	}

	// 先订阅再启用，避免漏掉启用后立即到达的事件
	stream, err := s.client.Page.FrameNavigated(ctx)
	if err != nil {
		w.log.Err(err, "订阅导航事件失败", "tabId", string(tabID))
		w.tabs.drop(tabID)
		return
	}
	defer stream.Close()

	if err := s.client.Page.Enable(ctx); err != nil {
		w.log.Err(err, "启用 Page 域失败", "tabId", string(tabID))
		w.tabs.drop(tabID)
		return
	}
	w.log.Debug("开始监听导航", "tabId", string(tabID))

	for {
		ev, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Err(err, "接收导航事件失败", "tabId", string(tabID))
				w.tabs.drop(tabID)
			}
			return
		}
		_, _ = w.handler.HandleNavigation(ctx, navigationEvent(tabID, ev))
	}
}

// release 监听结束后移出列表，下一轮同步时重新建立
func (w *Watcher) release(tabID domain.TabID, sub *subscription) {
	w.mu.Lock()
	if w.watching[tabID] == sub {
		delete(w.watching, tabID)
	}
	w.mu.Unlock()
	sub.cancel()
}

func (w *Watcher) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, sub := range w.watching {
		sub.cancel()
		delete(w.watching, id)
	}
}

func navigationEvent(tabID domain.TabID, ev *page.FrameNavigatedReply) domain.NavigationEvent {
	frameID := domain.MainFrameID
	if ev.Frame.ParentID != nil {
		frameID = subFrameID
	}
	return domain.NavigationEvent{TabID: tabID, FrameID: frameID, URL: ev.Frame.URL}
}
