package compiler_test

import (
	"encoding/json"
	"testing"

	"netmodifier/internal/compiler"
	"netmodifier/pkg/rulespec"
)

func headerRule(id string) rulespec.NetworkRule {
	return rulespec.NetworkRule{
		RuleID:                 id,
		URLFilter:              "api.example.com",
		RedirectIncludePattern: `^https://api\.example\.com/`,
		ReqHeaderName:          "X-Req",
		ReqHeaderOp:            rulespec.HeaderOpSet,
		ReqHeaderValue:         "1",
		ResHeaderName:          "X-Res",
		ResHeaderOp:            rulespec.HeaderOpRemove,
	}
}

func TestCompile_Empty(t *testing.T) {
	got := compiler.Compile(nil, compiler.Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("空规则应返回空切片，实际 %v", got)
	}
	data, _ := json.Marshal(got)
	if string(data) != "[]" {
		t.Errorf("空结果序列化应为 []，实际 %s", data)
	}
}

// TestCompile_Emission 每条规则按请求头、响应头、重定向的顺序生成
func TestCompile_Emission(t *testing.T) {
	tests := []struct {
		name      string
		rule      rulespec.NetworkRule
		wantTypes []rulespec.ActionType
	}{
		{"请求头和响应头", headerRule("a"), []rulespec.ActionType{rulespec.ActionModifyHeaders, rulespec.ActionModifyHeaders}},
		{"只有名称没有操作", rulespec.NetworkRule{RuleID: "b", ReqHeaderName: "X"}, nil},
		{"只有操作没有名称", rulespec.NetworkRule{RuleID: "c", ResHeaderOp: rulespec.HeaderOpSet}, nil},
		{"仅导航重定向不生成", rulespec.NetworkRule{RuleID: "d", IsRedirect: true, RedirectIncludePattern: "x", RedirectToURL: "y"}, nil},
		{"HTTP 重定向", rulespec.NetworkRule{RuleID: "e", IsHTTPRedirect: true, RedirectIncludePattern: "x", RedirectToURL: "https://b/$1"}, []rulespec.ActionType{rulespec.ActionRedirect}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compiler.Compile([]rulespec.NetworkRule{tt.rule}, compiler.Options{})
			if len(got) != len(tt.wantTypes) {
				t.Fatalf("生成 %d 条，期望 %d 条: %+v", len(got), len(tt.wantTypes), got)
			}
			for i, want := range tt.wantTypes {
				if got[i].Action.Type != want {
					t.Errorf("[%d] type = %s, want %s", i, got[i].Action.Type, want)
				}
				if got[i].Priority != compiler.DefaultPriority {
					t.Errorf("[%d] priority = %d", i, got[i].Priority)
				}
			}
		})
	}
}

func TestCompile_HeaderContent(t *testing.T) {
	got := compiler.Compile([]rulespec.NetworkRule{headerRule("a")}, compiler.Options{})
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(got))
	}

	req := got[0].Action
	if len(req.RequestHeaders) != 1 || len(req.ResponseHeaders) != 0 {
		t.Fatalf("第一条应只有请求头: %+v", req)
	}
	if h := req.RequestHeaders[0]; h.Header != "X-Req" || h.Operation != rulespec.HeaderOpSet || h.Value != "1" {
		t.Errorf("请求头内容错误: %+v", h)
	}

	res := got[1].Action
	if len(res.ResponseHeaders) != 1 || len(res.RequestHeaders) != 0 {
		t.Fatalf("第二条应只有响应头: %+v", res)
	}
	if h := res.ResponseHeaders[0]; h.Header != "X-Res" || h.Operation != rulespec.HeaderOpRemove {
		t.Errorf("响应头内容错误: %+v", h)
	}

	for i, a := range got {
		if a.Condition.URLFilter != `^https://api\.example\.com/` {
			t.Errorf("[%d] 默认条件应取 redirectIncludePattern，实际 %q", i, a.Condition.URLFilter)
		}
		if len(a.Condition.ResourceTypes) != 1 || a.Condition.ResourceTypes[0] != rulespec.ResourceTypeXMLHTTPRequest {
			t.Errorf("[%d] resourceTypes = %v", i, a.Condition.ResourceTypes)
		}
	}
}

func TestCompile_RedirectContent(t *testing.T) {
	rule := rulespec.NetworkRule{RuleID: "r", IsHTTPRedirect: true, RedirectIncludePattern: `^https://a/(\d+)`, RedirectToURL: "https://b/\\1"}
	got := compiler.Compile([]rulespec.NetworkRule{rule}, compiler.Options{})
	if len(got) != 1 || got[0].Action.Redirect == nil {
		t.Fatalf("应生成一条重定向: %+v", got)
	}
	if got[0].Action.Redirect.RegexSubstitution != rule.RedirectToURL {
		t.Errorf("regexSubstitution = %q", got[0].Action.Redirect.RegexSubstitution)
	}
}

// TestCompile_IDs ID 从 BaseID+1 开始并严格递增
func TestCompile_IDs(t *testing.T) {
	rules := []rulespec.NetworkRule{
		headerRule("a"),
		{RuleID: "b"},
		headerRule("c"),
		{RuleID: "d", IsHTTPRedirect: true, RedirectIncludePattern: "x", RedirectToURL: "y", ReqHeaderName: "X", ReqHeaderOp: rulespec.HeaderOpAppend},
	}
	got := compiler.Compile(rules, compiler.Options{})
	ids := compiler.RuleIDs(got)
	want := []int{2, 3, 4, 5, 6, 7}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
	if ids[0] == compiler.BaseID {
		t.Error("第一条不能使用保留 ID")
	}
}

func TestCompile_Disabled(t *testing.T) {
	r := headerRule("a")
	r.Disable = true

	if got := compiler.Compile([]rulespec.NetworkRule{r}, compiler.Options{}); len(got) != 2 {
		t.Errorf("默认模式下禁用的规则仍会编译，实际 %d 条", len(got))
	}
	if got := compiler.Compile([]rulespec.NetworkRule{r}, compiler.Options{SkipDisabled: true}); len(got) != 0 {
		t.Errorf("SkipDisabled 时应跳过禁用规则，实际 %d 条", len(got))
	}
}

func TestCompile_FilterFromVariant(t *testing.T) {
	modify := headerRule("m")
	redirect := headerRule("r")
	redirect.IsRedirect = true

	got := compiler.Compile([]rulespec.NetworkRule{modify, redirect}, compiler.Options{FilterSource: compiler.FilterFromVariant})
	if len(got) != 4 {
		t.Fatalf("期望 4 条，实际 %d", len(got))
	}
	if got[0].Condition.URLFilter != "api.example.com" {
		t.Errorf("修改规则应使用 urlFilter，实际 %q", got[0].Condition.URLFilter)
	}
	if got[2].Condition.URLFilter != redirect.RedirectIncludePattern {
		t.Errorf("重定向规则应使用 redirectIncludePattern，实际 %q", got[2].Condition.URLFilter)
	}
}

func TestCompile_JSONShape(t *testing.T) {
	r := rulespec.NetworkRule{RuleID: "a", RedirectIncludePattern: "p", ReqHeaderName: "X", ReqHeaderOp: rulespec.HeaderOpSet, ReqHeaderValue: "v"}
	data, err := json.Marshal(compiler.Compile([]rulespec.NetworkRule{r}, compiler.Options{}))
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"id":2,"priority":1,"action":{"type":"modifyHeaders","requestHeaders":[{"header":"X","operation":"set","value":"v"}]},"condition":{"urlFilter":"p","resourceTypes":["xmlhttprequest"]}}]`
	if string(data) != want {
		t.Errorf("JSON 结构不符:\n got %s\nwant %s", data, want)
	}
}

// TestCompile_Pure 同一输入多次编译结果一致，且不修改输入
func TestCompile_Pure(t *testing.T) {
	rules := []rulespec.NetworkRule{headerRule("a"), headerRule("b")}
	before, _ := json.Marshal(rules)
	a, _ := json.Marshal(compiler.Compile(rules, compiler.Options{}))
	b, _ := json.Marshal(compiler.Compile(rules, compiler.Options{}))
	after, _ := json.Marshal(rules)
	if string(a) != string(b) {
		t.Error("两次编译结果不同")
	}
	if string(before) != string(after) {
		t.Error("编译修改了输入")
	}
}
