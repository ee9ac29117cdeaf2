// Package navigation 实现顶层导航的重定向拦截
//
// 每次重定向都会为标签页记录目标 URL，下一次导航到该 URL 时消费标记并放行。
// 标记默认 60 秒后过期（Options.MarkerTTL），标签页关闭时通过 Forget 清除；
// 过期后，同一标签页再次打开该目标 URL 会重新按规则评估。
package navigation

import (
	"context"
	"time"

	"netmodifier/internal/logger"
	"netmodifier/internal/placeholder"
	"netmodifier/internal/regexutil"
	"netmodifier/internal/tracker"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"
)

// RuleSource 规则快照来源
type RuleSource interface {
	List(ctx context.Context) ([]rulespec.NetworkRule, error)
}

// TabUpdater 把标签页导航到新的 URL
type TabUpdater interface {
	Update(ctx context.Context, tabID domain.TabID, url string) error
}

// Subject 占位符替换时匹配的 URL
type Subject int

const (
	// SubjectExampleURL 使用规则的示例 URL
	SubjectExampleURL Subject = iota
	// SubjectNavigatedURL 使用实际导航的 URL
	SubjectNavigatedURL
)

// Outcome 导航处理结果
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"    // 非顶层导航
	OutcomeLoopGuard  Outcome = "loopGuard"  // 本次导航是上一次重定向的结果
	OutcomeNoMatch    Outcome = "noMatch"    // 没有匹配的重定向规则
	OutcomeRedirected Outcome = "redirected" // 已重定向
)

// Decision 单次导航事件的处理结果
type Decision struct {
	Outcome     Outcome `json:"outcome"`
	RuleID      string  `json:"ruleId,omitempty"`
	RedirectURL string  `json:"redirectUrl,omitempty"`
}

// Options 拦截器配置
type Options struct {
	Subject      Subject
	SkipDisabled bool
	MarkerTTL    time.Duration // 重定向标记的存活时间
}

// Interceptor 导航拦截器
//
// 持有“标签页 -> 最近一次重定向目标”的标记，用于识别由自己发起的导航。
type Interceptor struct {
	rules   RuleSource
	tabs    TabUpdater
	subst   *placeholder.Substituter
	cache   *regexutil.Cache
	markers *tracker.Tracker[domain.TabID, string]
	opts    Options
	log     logger.Logger
}

// New 创建导航拦截器，使用完毕需调用 Close
func New(rules RuleSource, tabs TabUpdater, cache *regexutil.Cache, opts Options, l logger.Logger) *Interceptor {
	if cache == nil {
		cache = regexutil.Default()
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Interceptor{
		rules:   rules,
		tabs:    tabs,
		subst:   placeholder.New(cache),
		cache:   cache,
		markers: tracker.New[domain.TabID, string](tracker.Options{TTL: opts.MarkerTTL}, l),
		opts:    opts,
		log:     l,
	}
}

// HandleBeforeNavigate 处理一次导航开始事件
func (i *Interceptor) HandleBeforeNavigate(ctx context.Context, ev domain.NavigationEvent) (Decision, error) {
	if !ev.IsMainFrame() {
		return Decision{Outcome: OutcomeIgnored}, nil
	}

	if i.markers.ConsumeIf(ev.TabID, func(dest string) bool { return dest == ev.URL }) {
		i.log.Debug("跳过重定向产生的导航", "tabId", ev.TabID, "url", ev.URL)
		return Decision{Outcome: OutcomeLoopGuard}, nil
	}

	list, err := i.rules.List(ctx)
	if err != nil {
		return Decision{}, err
	}

	for idx := range list {
		rule := &list[idx]
		v, ok := rule.Variant().(rulespec.RedirectVariant)
		if !ok || (i.opts.SkipDisabled && rule.Disable) {
			continue
		}

		matched, err := i.cache.MatchString(v.IncludePattern, ev.URL)
		if err != nil {
			i.log.Warn("重定向规则正则无效，已跳过", "ruleId", rule.RuleID, "pattern", v.IncludePattern, "error", err.Error())
			continue
		}
		if !matched {
			continue
		}

		subject := v.ExampleURL
		if i.opts.Subject == SubjectNavigatedURL {
			subject = ev.URL
		}
		dest, err := i.subst.Substitute(subject, v.IncludePattern, v.ToURL)
		if err != nil {
			i.log.Warn("生成重定向地址失败，已跳过", "ruleId", rule.RuleID, "error", err.Error())
			continue
		}

		i.markers.Set(ev.TabID, dest)
		i.log.Info("重定向导航", "tabId", ev.TabID, "from", ev.URL, "to", dest, "ruleId", rule.RuleID)

		decision := Decision{Outcome: OutcomeRedirected, RuleID: rule.RuleID, RedirectURL: dest}
		if err := i.tabs.Update(ctx, ev.TabID, dest); err != nil {
			return decision, errx.Wrap(errx.CodeTabUpdate, err, "更新标签页失败")
		}
		return decision, nil
	}

	return Decision{Outcome: OutcomeNoMatch}, nil
}

// Pending 返回标签页尚未消费的重定向标记
func (i *Interceptor) Pending(tabID domain.TabID) (string, bool) {
	return i.markers.Peek(tabID)
}

// Forget 清除标签页的重定向标记，标签页关闭时调用
func (i *Interceptor) Forget(tabID domain.TabID) {
	i.markers.Delete(tabID)
}

// Close 释放标记清理协程
func (i *Interceptor) Close() {
	i.markers.Stop()
}
