// Package rulespec 定义用户规则（mockConfigs 中的记录）及其编译产物的类型规范
package rulespec

import "github.com/google/uuid"

// HeaderOperation Header 修改方式
type HeaderOperation string

const (
	HeaderOpSet    HeaderOperation = "set"    // 设置（覆盖）
	HeaderOpAppend HeaderOperation = "append" // 追加
	HeaderOpRemove HeaderOperation = "remove" // 移除
)

// 新建规则表单的默认值
const (
	DefaultMethod          = "POST"
	DefaultExampleURL      = "https://www.google.com/search?hl=en&q=youtube"
	DefaultIncludePattern  = `^(?:https?://)?(?:www\.)?google\.com(?:\/[^\?#]*)?(?:\?|&)(?:[^&]*&)?hl=([^&]*)&q=([^&]*)(?:&.*)?$`
	DefaultRedirectToURL   = "https://duckduckgo.com/?q=$1$2"
	DefaultHeaderOperation = HeaderOpSet
)

// NetworkRule 用户编写的单条规则，字段名与持久化 JSON 保持一致
//
// IsRedirect 为 true 时是导航重定向规则，否则是 HTTP 修改规则。
// 两类规则都可以带请求头/响应头修改。
type NetworkRule struct {
	RuleID         string `json:"ruleId"`
	Disable        bool   `json:"disable"`
	IsRedirect     bool   `json:"isRedirect"`
	IsHTTPRedirect bool   `json:"isHttpRedirect,omitempty"` // 是否额外生成 XHR 重定向声明式规则
	RuleName       string `json:"ruleName"`

	// 重定向字段
	RedirectExampleURL     string `json:"redirectExampleURL"`
	RedirectIncludePattern string `json:"redirectIncludePattern" validate:"required_if=IsRedirect true,required_if=IsHTTPRedirect true"`
	RedirectToURL          string `json:"redirectToURL" validate:"required_if=IsRedirect true,required_if=IsHTTPRedirect true"`

	// HTTP 修改字段
	URLMethod    string `json:"urlMethod" validate:"omitempty,httpmethod"`
	URLFilter    string `json:"urlFilter"`
	MockResponse string `json:"mockResponse"`

	ReqHeaderName  string          `json:"reqHeaderName"`
	ReqHeaderOp    HeaderOperation `json:"reqHeaderOp" validate:"omitempty,oneof=set append remove"`
	ReqHeaderValue string          `json:"reqHeaderValue"`
	ResHeaderName  string          `json:"resHeaderName"`
	ResHeaderOp    HeaderOperation `json:"resHeaderOp" validate:"omitempty,oneof=set append remove"`
	ResHeaderValue string          `json:"resHeaderValue"`
}

// NewRule 创建一条带默认表单值和新 UUID 的规则
func NewRule(name string) NetworkRule {
	return NetworkRule{
		RuleID:                 uuid.New().String(),
		RuleName:               name,
		URLMethod:              DefaultMethod,
		RedirectExampleURL:     DefaultExampleURL,
		RedirectIncludePattern: DefaultIncludePattern,
		RedirectToURL:          DefaultRedirectToURL,
		ReqHeaderOp:            DefaultHeaderOperation,
		ResHeaderOp:            DefaultHeaderOperation,
	}
}

// Variant 规则的行为分支，只有 RedirectVariant 与 ModifyVariant 两种
type Variant interface {
	variant()
}

// RedirectVariant 导航重定向规则
type RedirectVariant struct {
	ExampleURL     string
	IncludePattern string
	ToURL          string
}

// ModifyVariant HTTP 修改规则
type ModifyVariant struct {
	URLFilter    string
	Method       string
	MockResponse string // 不参与声明式规则编译
}

func (RedirectVariant) variant() {}
func (ModifyVariant) variant()   {}

// Variant 按 IsRedirect 返回规则的行为分支
func (r NetworkRule) Variant() Variant {
	if r.IsRedirect {
		return RedirectVariant{
			ExampleURL:     r.RedirectExampleURL,
			IncludePattern: r.RedirectIncludePattern,
			ToURL:          r.RedirectToURL,
		}
	}
	return ModifyVariant{
		URLFilter:    r.URLFilter,
		Method:       r.URLMethod,
		MockResponse: r.MockResponse,
	}
}

// HeaderMutation 单个 Header 修改
type HeaderMutation struct {
	Name      string
	Operation HeaderOperation
	Value     string
}

// RequestHeader 返回请求头修改，名称与操作都存在时 ok 为 true
func (r NetworkRule) RequestHeader() (HeaderMutation, bool) {
	m := HeaderMutation{Name: r.ReqHeaderName, Operation: r.ReqHeaderOp, Value: r.ReqHeaderValue}
	return m, m.Name != "" && m.Operation != ""
}

// ResponseHeader 返回响应头修改，名称与操作都存在时 ok 为 true
func (r NetworkRule) ResponseHeader() (HeaderMutation, bool) {
	m := HeaderMutation{Name: r.ResHeaderName, Operation: r.ResHeaderOp, Value: r.ResHeaderValue}
	return m, m.Name != "" && m.Operation != ""
}
