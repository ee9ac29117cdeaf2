// Package compiler 把用户规则编译为浏览器声明式规则引擎可安装的规则列表
package compiler

import "netmodifier/pkg/rulespec"

const (
	// BaseID 保留的起始 ID，第一条输出规则的 ID 为 BaseID+1
	BaseID = 1
	// DefaultPriority 所有输出规则的优先级
	DefaultPriority = 1
)

// FilterSource 条件 urlFilter 的取值来源
type FilterSource int

const (
	// FilterFromRedirectPattern 所有规则都使用 redirectIncludePattern
	FilterFromRedirectPattern FilterSource = iota
	// FilterFromVariant 修改规则使用 urlFilter，重定向规则使用 redirectIncludePattern
	FilterFromVariant
)

// Options 编译选项，零值保持与扩展一致的输出
type Options struct {
	SkipDisabled bool
	FilterSource FilterSource
}

// Compile 按规则顺序生成声明式规则
//
// 每条规则依次可能产生：请求头 modifyHeaders、响应头 modifyHeaders、
// XHR 重定向。ID 在一次调用内从 BaseID+1 起严格递增。
func Compile(rules []rulespec.NetworkRule, opts Options) []rulespec.CompiledAction {
	actions := make([]rulespec.CompiledAction, 0, len(rules))
	id := BaseID

	emit := func(cond rulespec.Condition, act rulespec.Action) {
		id++
		actions = append(actions, rulespec.CompiledAction{
			ID:        id,
			Priority:  DefaultPriority,
			Action:    act,
			Condition: cond,
		})
	}

	for i := range rules {
		r := &rules[i]
		if opts.SkipDisabled && r.Disable {
			continue
		}
		cond := condition(r, opts.FilterSource)

		if h, ok := r.RequestHeader(); ok {
			emit(cond, rulespec.Action{
				Type:           rulespec.ActionModifyHeaders,
				RequestHeaders: []rulespec.HeaderModifyInfo{headerInfo(h)},
			})
		}
		if h, ok := r.ResponseHeader(); ok {
			emit(cond, rulespec.Action{
				Type:            rulespec.ActionModifyHeaders,
				ResponseHeaders: []rulespec.HeaderModifyInfo{headerInfo(h)},
			})
		}
		if r.IsHTTPRedirect {
			emit(cond, rulespec.Action{
				Type:     rulespec.ActionRedirect,
				Redirect: &rulespec.Redirect{RegexSubstitution: r.RedirectToURL},
			})
		}
	}
	return actions
}

// RuleIDs 返回编译结果中的全部 ID
func RuleIDs(actions []rulespec.CompiledAction) []int {
	ids := make([]int, len(actions))
	for i, a := range actions {
		ids[i] = a.ID
	}
	return ids
}

func condition(r *rulespec.NetworkRule, src FilterSource) rulespec.Condition {
	filter := r.RedirectIncludePattern
	if src == FilterFromVariant {
		if v, ok := r.Variant().(rulespec.ModifyVariant); ok {
			filter = v.URLFilter
		}
	}
	return rulespec.Condition{
		URLFilter:     filter,
		ResourceTypes: []rulespec.ResourceType{rulespec.ResourceTypeXMLHTTPRequest},
	}
}

func headerInfo(h rulespec.HeaderMutation) rulespec.HeaderModifyInfo {
	return rulespec.HeaderModifyInfo{Header: h.Name, Operation: h.Operation, Value: h.Value}
}
