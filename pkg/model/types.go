// Package model 定义对外接口使用的数据结构
package model

import "netmodifier/pkg/rulespec"

// PatternVariable 预览中的一个 $N 取值
type PatternVariable struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PatternPreview 重定向规则表单的预览结果
type PatternPreview struct {
	Matched    bool              `json:"matched"`
	Variables  []PatternVariable `json:"variables"`
	NavigateTo string            `json:"navigateTo,omitempty"`
}

// NavigationDecision 导航事件的处理结果
type NavigationDecision struct {
	Outcome     string `json:"outcome"`
	RuleID      string `json:"ruleId,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// PendingRedirect 标签页尚未消费的重定向标记
type PendingRedirect struct {
	TabID   string `json:"tabId"`
	URL     string `json:"url,omitempty"`
	Pending bool   `json:"pending"`
}

// InstallResult 一次声明式规则安装的结果
type InstallResult struct {
	RuleCount   int   `json:"ruleCount"`
	ActionCount int   `json:"actionCount"`
	ActionIDs   []int `json:"actionIds"`
}

// EngineState 声明式引擎当前状态
type EngineState struct {
	Installed int                       `json:"installed"`
	Updates   int64                     `json:"updates"`
	Rejected  int64                     `json:"rejected"`
	Rules     []rulespec.CompiledAction `json:"rules"`
}

// NavigationRecord 导航审计记录
type NavigationRecord struct {
	Timestamp   int64  `json:"timestamp"`
	TabID       string `json:"tabId"`
	URL         string `json:"url"`
	Outcome     string `json:"outcome"`
	RuleID      string `json:"ruleId,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
