package service

import (
	"context"

	"netmodifier/internal/background"
	"netmodifier/internal/compiler"
	"netmodifier/internal/logger"
	"netmodifier/internal/placeholder"
	"netmodifier/internal/rules"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/model"
	"netmodifier/pkg/rulespec"
)

// Deps 服务层依赖
type Deps struct {
	Rules       *rules.Repository
	Background  *background.Service
	Substituter *placeholder.Substituter
	Compiler    compiler.Options
	Logger      logger.Logger
}

type svc struct {
	rules *rules.Repository
	bg    *background.Service
	subst *placeholder.Substituter
	opts  compiler.Options
	log   logger.Logger
}

// New 创建并返回服务层实例
func New(deps Deps) *svc {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Substituter == nil {
		deps.Substituter = placeholder.New(nil)
	}
	return &svc{
		rules: deps.Rules,
		bg:    deps.Background,
		subst: deps.Substituter,
		opts:  deps.Compiler,
		log:   deps.Logger,
	}
}

func (s *svc) ListRules(ctx context.Context) ([]rulespec.NetworkRule, error) {
	return s.rules.List(ctx)
}

func (s *svc) GetRule(ctx context.Context, id string) (rulespec.NetworkRule, error) {
	return s.rules.Get(ctx, id)
}

func (s *svc) SaveRule(ctx context.Context, rule rulespec.NetworkRule) (rulespec.NetworkRule, error) {
	return s.rules.Save(ctx, rule)
}

func (s *svc) DeleteRule(ctx context.Context, id string) error {
	return s.rules.Delete(ctx, id)
}

func (s *svc) SetRuleDisabled(ctx context.Context, id string, disabled bool) error {
	return s.rules.SetDisabled(ctx, id, disabled)
}

func (s *svc) CompileRules(ctx context.Context) ([]rulespec.CompiledAction, error) {
	list, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(list, s.opts), nil
}

func (s *svc) InstallRules(ctx context.Context) (model.InstallResult, error) {
	actions, err := s.bg.Install(ctx)
	if err != nil {
		return model.InstallResult{}, err
	}
	ids := compiler.RuleIDs(actions)
	list, err := s.rules.List(ctx)
	if err != nil {
		return model.InstallResult{}, err
	}
	return model.InstallResult{RuleCount: len(list), ActionCount: len(actions), ActionIDs: ids}, nil
}

func (s *svc) EngineState(ctx context.Context) (model.EngineState, error) {
	actions, stats, err := s.bg.Installed(ctx)
	if err != nil {
		return model.EngineState{}, err
	}
	return model.EngineState{
		Installed: stats.Installed,
		Updates:   stats.Updates,
		Rejected:  stats.Rejected,
		Rules:     actions,
	}, nil
}

func (s *svc) TestPattern(sourceURL, pattern string) ([]string, error) {
	return s.subst.TestPattern(sourceURL, pattern)
}

func (s *svc) PreviewPattern(exampleURL, pattern, template string) (model.PatternPreview, error) {
	res, err := s.subst.Preview(exampleURL, pattern, template)
	if err != nil {
		return model.PatternPreview{}, err
	}
	out := model.PatternPreview{
		Matched:    res.Matched,
		Variables:  make([]model.PatternVariable, 0, len(res.Variables)),
		NavigateTo: res.NavigateTo,
	}
	for _, v := range res.Variables {
		out.Variables = append(out.Variables, model.PatternVariable{Label: v.Label, Value: v.Value})
	}
	return out, nil
}

func (s *svc) SimulateNavigation(ctx context.Context, ev domain.NavigationEvent) (model.NavigationDecision, error) {
	d, err := s.bg.HandleNavigation(ctx, ev)
	out := model.NavigationDecision{Outcome: string(d.Outcome), RuleID: d.RuleID, RedirectURL: d.RedirectURL}
	return out, err
}

func (s *svc) PendingRedirect(tabID domain.TabID) model.PendingRedirect {
	url, ok := s.bg.PendingRedirect(tabID)
	return model.PendingRedirect{TabID: string(tabID), URL: url, Pending: ok}
}

func (s *svc) NavigationHistory(limit int) []model.NavigationRecord {
	recs := s.bg.History(limit)
	out := make([]model.NavigationRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.NavigationRecord{
			Timestamp:   r.Timestamp,
			TabID:       string(r.TabID),
			URL:         r.URL,
			Outcome:     r.Outcome,
			RuleID:      r.RuleID,
			RedirectURL: r.RedirectURL,
			Error:       r.Error,
		})
	}
	return out
}
