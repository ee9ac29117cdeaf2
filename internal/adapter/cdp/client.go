// Package cdp 通过 Chrome DevTools 协议把标签页导航到重定向目标
package cdp

import (
	"context"
	"fmt"
	"sync"

	"netmodifier/internal/logger"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/rpcc"
)

// Target 浏览器中的一个页面目标
type Target struct {
	ID    domain.TabID `json:"id"`
	URL   string       `json:"url"`
	Title string       `json:"title"`
}

type targetSession struct {
	client *cdp.Client
	conn   *rpcc.Conn
	cancel context.CancelFunc
}

// TabUpdater 以 DevTools 目标 ID 作为标签页 ID，使用 Page.navigate 跳转
type TabUpdater struct {
	devtoolsURL string
	log         logger.Logger
	mu          sync.Mutex
	sessions    map[domain.TabID]*targetSession
}

// NewTabUpdater 创建 TabUpdater，devtoolsURL 形如 http://127.0.0.1:9222
func NewTabUpdater(devtoolsURL string, l logger.Logger) *TabUpdater {
	if l == nil {
		l = logger.NewNop()
	}
	return &TabUpdater{
		devtoolsURL: devtoolsURL,
		log:         l,
		sessions:    make(map[domain.TabID]*targetSession),
	}
}

// TestConnection 测试与浏览器的连通性
func (u *TabUpdater) TestConnection(ctx context.Context) error {
	_, err := devtool.New(u.devtoolsURL).Version(ctx)
	return err
}

// ListTargets 获取浏览器当前所有的页面目标
func (u *TabUpdater) ListTargets(ctx context.Context) ([]Target, error) {
	targets, err := devtool.New(u.devtoolsURL).List(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t == nil || t.Type != devtool.Page {
			continue
		}
		res = append(res, Target{ID: domain.TabID(t.ID), URL: t.URL, Title: t.Title})
	}
	return res, nil
}

// Update 把标签页导航到 url
func (u *TabUpdater) Update(ctx context.Context, tabID domain.TabID, url string) error {
	s, err := u.session(ctx, tabID)
	if err != nil {
		return err
	}

	reply, err := s.client.Page.Navigate(ctx, page.NewNavigateArgs(url))
	if err != nil {
		// 连接可能已失效，下次重新建立
		u.drop(tabID)
		return errx.Wrap(errx.CodeTabUpdate, err, "Page.navigate 调用失败")
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		return errx.New(errx.CodeTabUpdate, *reply.ErrorText)
	}
	u.log.Debug("标签页已跳转", "tabId", string(tabID), "url", url)
	return nil
}

// Close 断开所有连接
func (u *TabUpdater) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var firstErr error
	for id, s := range u.sessions {
		delete(u.sessions, id)
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (u *TabUpdater) session(ctx context.Context, tabID domain.TabID) (*targetSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if s, ok := u.sessions[tabID]; ok {
		return s, nil
	}

	targets, err := devtool.New(u.devtoolsURL).List(ctx)
	if err != nil {
		u.log.Err(err, "获取 Target 列表失败")
		return nil, errx.Wrap(errx.CodeTabUpdate, err, "获取 Target 列表失败")
	}

	var target *devtool.Target
	for _, t := range targets {
		if t != nil && t.ID == string(tabID) {
			target = t
			break
		}
	}
	if target == nil {
		return nil, errx.Wrap(errx.CodeTabUpdate, domain.ErrTabNotFound, fmt.Sprintf("标签页 %s 不存在", tabID))
	}

	// 连接生命周期独立于单次调用的 ctx
	connCtx, cancel := context.WithCancel(context.Background())
	conn, err := rpcc.DialContext(connCtx, target.WebSocketDebuggerURL)
	if err != nil {
		cancel()
		u.log.Err(err, "CDP 连接建立失败", "tabId", string(tabID), "wsURL", target.WebSocketDebuggerURL)
		return nil, errx.Wrap(errx.CodeTabUpdate, err, "CDP 连接建立失败")
	}

	s := &targetSession{client: cdp.NewClient(conn), conn: conn, cancel: cancel}
	u.sessions[tabID] = s
	u.log.Info("Target 附着成功", "tabId", string(tabID), "url", target.URL)
	return s, nil
}

func (u *TabUpdater) drop(tabID domain.TabID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if s, ok := u.sessions[tabID]; ok {
		delete(u.sessions, tabID)
		_ = s.close()
	}
}

func (s *targetSession) close() error {
	s.cancel()
	return s.conn.Close()
}
