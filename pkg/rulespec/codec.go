package rulespec

import (
	"bytes"
	"encoding/json"

	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"

	"github.com/tidwall/gjson"
)

// Decode 容错解析持久化的规则集合
//
// 缺失或类型不符的字段取零值，非对象元素会被跳过；
// 文档不是数组时返回空集合与 CodeMalformedRules 错误。
func Decode(raw []byte) ([]NetworkRule, error) {
	rules := make([]NetworkRule, 0)
	if len(bytes.TrimSpace(raw)) == 0 {
		return rules, nil
	}
	if !gjson.ValidBytes(raw) {
		return rules, errx.Wrap(errx.CodeMalformedRules, domain.ErrMalformedRules, "规则数据不是合法 JSON")
	}

	doc := gjson.ParseBytes(raw)
	if doc.Type == gjson.Null {
		return rules, nil
	}
	if !doc.IsArray() {
		return rules, errx.Wrap(errx.CodeMalformedRules, domain.ErrMalformedRules, "规则数据不是数组")
	}

	doc.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			rules = append(rules, decodeRule(item))
		}
		return true
	})
	return rules, nil
}

// Encode 序列化规则集合，nil 输出为空数组
func Encode(rules []NetworkRule) ([]byte, error) {
	if rules == nil {
		rules = []NetworkRule{}
	}
	return json.Marshal(rules)
}

func decodeRule(item gjson.Result) NetworkRule {
	return NetworkRule{
		RuleID:                 str(item, "ruleId"),
		Disable:                item.Get("disable").Bool(),
		IsRedirect:             item.Get("isRedirect").Bool(),
		IsHTTPRedirect:         item.Get("isHttpRedirect").Bool(),
		RuleName:               str(item, "ruleName"),
		RedirectExampleURL:     str(item, "redirectExampleURL"),
		RedirectIncludePattern: str(item, "redirectIncludePattern"),
		RedirectToURL:          str(item, "redirectToURL"),
		URLMethod:              str(item, "urlMethod"),
		URLFilter:              str(item, "urlFilter"),
		MockResponse:           str(item, "mockResponse"),
		ReqHeaderName:          str(item, "reqHeaderName"),
		ReqHeaderOp:            HeaderOperation(str(item, "reqHeaderOp")),
		ReqHeaderValue:         str(item, "reqHeaderValue"),
		ResHeaderName:          str(item, "resHeaderName"),
		ResHeaderOp:            HeaderOperation(str(item, "resHeaderOp")),
		ResHeaderValue:         str(item, "resHeaderValue"),
	}
}

// str 只接受字符串和数字，其余类型视为缺失
func str(item gjson.Result, key string) string {
	v := item.Get(key)
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	default:
		return ""
	}
}
