package api

import (
	"context"

	"netmodifier/internal/service"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/model"
	"netmodifier/pkg/rulespec"
)

// Service 服务接口
type Service interface {
	// ListRules 列出规则
	ListRules(ctx context.Context) ([]rulespec.NetworkRule, error)

	// GetRule 获取规则
	GetRule(ctx context.Context, id string) (rulespec.NetworkRule, error)

	// SaveRule 新建或更新规则
	SaveRule(ctx context.Context, rule rulespec.NetworkRule) (rulespec.NetworkRule, error)

	// DeleteRule 删除规则
	DeleteRule(ctx context.Context, id string) error

	// SetRuleDisabled 切换规则禁用状态
	SetRuleDisabled(ctx context.Context, id string, disabled bool) error

	// CompileRules 编译当前规则但不安装
	CompileRules(ctx context.Context) ([]rulespec.CompiledAction, error)

	// InstallRules 编译并安装当前规则
	InstallRules(ctx context.Context) (model.InstallResult, error)

	// EngineState 查看引擎中已安装的规则
	EngineState(ctx context.Context) (model.EngineState, error)

	// TestPattern 测试重定向正则
	TestPattern(sourceURL, pattern string) ([]string, error)

	// PreviewPattern 预览重定向目标
	PreviewPattern(exampleURL, pattern, template string) (model.PatternPreview, error)

	// SimulateNavigation 模拟一次导航事件
	SimulateNavigation(ctx context.Context, ev domain.NavigationEvent) (model.NavigationDecision, error)

	// PendingRedirect 标签页尚未消费的重定向标记
	PendingRedirect(tabID domain.TabID) model.PendingRedirect

	// NavigationHistory 最近的导航处理记录
	NavigationHistory(limit int) []model.NavigationRecord
}

// NewService 创建并返回服务接口实现
func NewService(deps service.Deps) Service {
	return service.New(deps)
}
