package background_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"netmodifier/internal/audit"
	"netmodifier/internal/background"
	"netmodifier/internal/compiler"
	"netmodifier/internal/engine"
	"netmodifier/internal/logger"
	"netmodifier/internal/navigation"
	"netmodifier/internal/rules"
	"netmodifier/internal/storage"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/rulespec"
)

type fixture struct {
	store *storage.Memory
	repo  *rules.Repository
	eng   *engine.Memory
	tabs  *navigation.LogUpdater
	svc   *background.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: storage.NewMemory(), eng: engine.NewMemory(), tabs: navigation.NewLogUpdater(nil)}
	f.repo = rules.New(f.store, nil, logger.NewNop())
	nav := navigation.New(f.repo, f.tabs, nil, navigation.Options{}, logger.NewNop())
	f.svc = background.New(f.repo, f.store, f.eng, nav, compiler.Options{}, logger.NewNop())
	t.Cleanup(func() {
		nav.Close()
		f.store.Close()
	})
	return f
}

func headerRule(name string) rulespec.NetworkRule {
	return rulespec.NetworkRule{
		RuleName:      name,
		ReqHeaderName: "X-" + name,
		ReqHeaderOp:   rulespec.HeaderOpSet,
	}
}

// waitInstalled 等待引擎中的规则数量达到 n
func waitInstalled(t *testing.T, eng *engine.Memory, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(eng.Rules()) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待安装超时: 期望 %d 条，实际 %d 条", n, len(eng.Rules()))
}

func TestInstall_ReplacesBatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _ = f.repo.Save(ctx, headerRule("a"))
	_, _ = f.repo.Save(ctx, headerRule("b"))

	actions, err := f.svc.Install(ctx)
	if err != nil {
		t.Fatalf("安装失败: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(actions))
	}

	// 再次安装，ID 从头分配，不与旧批次冲突
	if _, err := f.svc.Install(ctx); err != nil {
		t.Fatalf("重复安装失败: %v", err)
	}
	ids, _ := f.eng.InstalledIDs(ctx)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("InstalledIDs() = %v", ids)
	}
}

func TestRun_ReinstallsOnChange(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()

	_, _ = f.repo.Save(context.Background(), headerRule("a"))
	waitInstalled(t, f.eng, 1)

	_, _ = f.repo.Save(context.Background(), headerRule("b"))
	waitInstalled(t, f.eng, 2)

	list, _ := f.repo.List(context.Background())
	_ = f.repo.Delete(context.Background(), list[0].RuleID)
	waitInstalled(t, f.eng, 1)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ctx 结束时 Run 应返回 nil，实际 %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run 未退出")
	}
}

func TestRun_StoreClosed(t *testing.T) {
	f := setup(t)

	done := make(chan error, 1)
	go func() { done <- f.svc.Run(context.Background()) }()

	// 等待初始安装完成，确保已订阅
	deadline := time.Now().Add(time.Second)
	for f.eng.Stats().Updates == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.store.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrStoreClosed) {
			t.Errorf("期望 ErrStoreClosed，实际 %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run 未退出")
	}
}

func TestHandleNavigation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rule := rulespec.NewRule("google")
	rule.RuleID = ""
	rule.IsRedirect = true
	if _, err := f.repo.Save(ctx, rule); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.HandleNavigation(ctx, domain.NavigationEvent{TabID: "1", URL: "https://www.google.com/search?hl=de&q=x"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Outcome != navigation.OutcomeRedirected || d.RedirectURL != "https://duckduckgo.com/?q=enyoutube" {
		t.Errorf("Decision = %+v", d)
	}
	if len(f.tabs.History()) != 1 {
		t.Errorf("应跳转一次，实际 %d", len(f.tabs.History()))
	}
}

func TestHandleNavigation_Audit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if got := f.svc.History(0); len(got) != 0 {
		t.Errorf("未设置审计器时应为空: %+v", got)
	}

	f.svc.WithAuditor(audit.New(10, nil))
	_, _ = f.svc.HandleNavigation(ctx, domain.NavigationEvent{TabID: "1", URL: "https://nothing.example"})
	_, _ = f.svc.HandleNavigation(ctx, domain.NavigationEvent{TabID: "1", FrameID: 1, URL: "https://frame.example"})

	h := f.svc.History(0)
	if len(h) != 1 || h[0].Outcome != string(navigation.OutcomeNoMatch) || h[0].URL != "https://nothing.example" {
		t.Errorf("History() = %+v", h)
	}
}

func TestInstalled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.repo.Save(ctx, headerRule("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Install(ctx); err != nil {
		t.Fatal(err)
	}

	rules, stats, err := f.svc.Installed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].ID != compiler.BaseID+1 {
		t.Errorf("已安装规则错误: %+v", rules)
	}
	if stats.Installed != 1 || stats.Updates != 2 || stats.Rejected != 0 {
		t.Errorf("统计错误: %+v", stats)
	}
}

type idsOnlyEngine struct{ engine.Engine }

func TestInstalled_IDsOnlyEngine(t *testing.T) {
	store := storage.NewMemory()
	t.Cleanup(func() { store.Close() })
	repo := rules.New(store, nil, nil)
	if _, err := repo.Save(context.Background(), headerRule("a")); err != nil {
		t.Fatal(err)
	}
	nav := navigation.New(repo, navigation.NewLogUpdater(nil), nil, navigation.Options{}, nil)
	t.Cleanup(nav.Close)

	svc := background.New(repo, store, idsOnlyEngine{engine.NewMemory()}, nav, compiler.Options{}, nil)
	if _, err := svc.Install(context.Background()); err != nil {
		t.Fatal(err)
	}
	rules, stats, err := svc.Installed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 0 || stats.Installed != 1 {
		t.Errorf("只支持 ID 的引擎应只返回数量: %+v %+v", rules, stats)
	}
}

func TestTabClosed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rule := rulespec.NewRule("google")
	rule.RuleID = ""
	rule.IsRedirect = true
	if _, err := f.repo.Save(ctx, rule); err != nil {
		t.Fatal(err)
	}
	d, err := f.svc.HandleNavigation(ctx, domain.NavigationEvent{TabID: "5", URL: rulespec.DefaultExampleURL})
	if err != nil || d.Outcome != navigation.OutcomeRedirected {
		t.Fatalf("应重定向: %+v %v", d, err)
	}

	if dest, ok := f.svc.PendingRedirect("5"); !ok || dest != d.RedirectURL {
		t.Errorf("PendingRedirect() = %q, %v", dest, ok)
	}

	f.svc.TabClosed("5")
	if _, ok := f.svc.PendingRedirect("5"); ok {
		t.Error("关闭后不应有待消费标记")
	}
	d, _ = f.svc.HandleNavigation(ctx, domain.NavigationEvent{TabID: "5", URL: d.RedirectURL})
	if d.Outcome == navigation.OutcomeLoopGuard {
		t.Error("标签页关闭后不应保留回环标记")
	}
}
