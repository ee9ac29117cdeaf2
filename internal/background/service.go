// Package background 负责把规则集合同步到声明式规则引擎，并分发导航事件
package background

import (
	"context"
	"sync"

	"netmodifier/internal/audit"
	"netmodifier/internal/compiler"
	"netmodifier/internal/engine"
	"netmodifier/internal/logger"
	"netmodifier/internal/navigation"
	"netmodifier/internal/storage"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"
)

// Service 后台服务
type Service struct {
	rules  navigation.RuleSource
	store  storage.Store
	engine engine.Engine
	nav    *navigation.Interceptor
	opts   compiler.Options
	audit  *audit.Auditor
	log    logger.Logger

	mu sync.Mutex // 串行化安装
}

// New 创建后台服务
func New(rules navigation.RuleSource, store storage.Store, eng engine.Engine, nav *navigation.Interceptor, opts compiler.Options, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{
		rules:  rules,
		store:  store,
		engine: eng,
		nav:    nav,
		opts:   opts,
		log:    l,
	}
}

// WithAuditor 设置导航审计器
func (s *Service) WithAuditor(a *audit.Auditor) *Service {
	s.audit = a
	return s
}

// Install 编译当前规则，并替换引擎中已安装的整批规则
func (s *Service) Install(ctx context.Context) ([]rulespec.CompiledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	actions := compiler.Compile(list, s.opts)

	installed, err := s.engine.InstalledIDs(ctx)
	if err != nil {
		return nil, errx.Wrap(errx.CodeEngine, err, "读取已安装规则失败")
	}
	if err := s.engine.UpdateRules(ctx, installed, actions); err != nil {
		return nil, err
	}

	s.log.Info("声明式规则已安装", "rules", len(list), "removed", len(installed), "added", len(actions))
	return actions, nil
}

// Run 启动时安装一次，之后每次规则变更都重新安装，直到 ctx 结束
//
// 单次安装失败只记录日志；存储关闭时返回 ErrStoreClosed。
func (s *Service) Run(ctx context.Context) error {
	changes, cancel := s.store.Subscribe()
	defer cancel()

	if _, err := s.Install(ctx); err != nil {
		s.log.Err(err, "初始安装规则失败")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return domain.ErrStoreClosed
			}
			if c.Key != domain.StorageKeyRules {
				continue
			}
			if _, err := s.Install(ctx); err != nil {
				s.log.Err(err, "重新安装规则失败")
			}
		}
	}
}

// HandleNavigation 处理导航开始事件
func (s *Service) HandleNavigation(ctx context.Context, ev domain.NavigationEvent) (navigation.Decision, error) {
	d, err := s.nav.HandleBeforeNavigate(ctx, ev)
	if err != nil {
		s.log.Err(err, "处理导航事件失败", "tabId", ev.TabID, "url", ev.URL)
	}
	if s.audit != nil {
		s.audit.Record(ev, d, err)
	}
	return d, err
}

// History 返回最近 n 条导航审计记录，未设置审计器时为空
func (s *Service) History(n int) []audit.Record {
	if s.audit == nil {
		return []audit.Record{}
	}
	return s.audit.Recent(n)
}

// PendingRedirect 返回标签页尚未消费的重定向目标
func (s *Service) PendingRedirect(tabID domain.TabID) (string, bool) {
	return s.nav.Pending(tabID)
}

// TabClosed 标签页关闭后清除其重定向标记
func (s *Service) TabClosed(tabID domain.TabID) {
	s.nav.Forget(tabID)
	s.log.Debug("标签页已关闭", "tabId", tabID)
}

// Installed 返回引擎中已安装的规则与统计；引擎不支持查看内容时只返回数量
func (s *Service) Installed(ctx context.Context) ([]rulespec.CompiledAction, engine.Stats, error) {
	if in, ok := s.engine.(engine.Inspector); ok {
		return in.Rules(), in.Stats(), nil
	}
	ids, err := s.engine.InstalledIDs(ctx)
	if err != nil {
		return nil, engine.Stats{}, errx.Wrap(errx.CodeEngine, err, "读取已安装规则失败")
	}
	return []rulespec.CompiledAction{}, engine.Stats{Installed: len(ids)}, nil
}
