// Package placeholder 实现重定向目标模板中 $N 占位符的替换与预览
package placeholder

import (
	"strconv"

	"netmodifier/internal/regexutil"

	"github.com/dlclark/regexp2"
)

// undefinedText 越过匹配结果末尾一位或可选分组未参与匹配时的替换文本，与浏览器脚本中的 String(undefined) 一致
const undefinedText = "undefined"

// tokenRe 模板中的占位符：$ 后跟一个或多个十进制数字
var tokenRe = regexp2.MustCompile(`\$(\d+)`, regexp2.ECMAScript)

// capture 匹配结果中的一个元素
type capture struct {
	value   string
	matched bool
}

// Substituter 占位符替换器
type Substituter struct {
	cache *regexutil.Cache
}

// New 创建替换器，cache 为 nil 时使用默认缓存
func New(cache *regexutil.Cache) *Substituter {
	if cache == nil {
		cache = regexutil.Default()
	}
	return &Substituter{cache: cache}
}

// Substitute 用 pattern 匹配 sourceURL，并把 template 中的 $N 替换为匹配结果的第 N 个元素
//
// 下标直接索引匹配结果数组（0 为整体匹配），因此 $1 是第一个捕获组。
// $0、无匹配以及下标越界时保留原占位符；pattern 非法时返回 CodeInvalidPattern。
func (s *Substituter) Substitute(sourceURL, pattern, template string) (string, error) {
	m, err := s.cache.Exec(pattern, sourceURL)
	if err != nil {
		return "", err
	}
	if m == nil {
		return template, nil
	}
	return replaceTokens(template, captures(m))
}

// TestPattern 返回完整匹配结果（0 为整体匹配，1..N 为捕获组），未匹配时返回 nil
func (s *Substituter) TestPattern(sourceURL, pattern string) ([]string, error) {
	m, err := s.cache.Exec(pattern, sourceURL)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	caps := captures(m)
	values := make([]string, len(caps))
	for i, c := range caps {
		values[i] = c.value
	}
	return values, nil
}

func captures(m *regexp2.Match) []capture {
	groups := m.Groups()
	caps := make([]capture, len(groups))
	for i := range groups {
		caps[i] = capture{value: groups[i].String(), matched: len(groups[i].Captures) > 0}
	}
	return caps
}

func replaceTokens(template string, caps []capture) (string, error) {
	return tokenRe.ReplaceFunc(template, func(tok regexp2.Match) string {
		index, err := strconv.Atoi(tok.Groups()[1].String())
		if err != nil || index <= 0 || index > len(caps) {
			return tok.String()
		}
		if index == len(caps) || !caps[index].matched {
			return undefinedText
		}
		return caps[index].value
	}, -1, -1)
}

var defaultSubstituter = New(nil)

// Substitute 使用默认缓存执行占位符替换
func Substitute(sourceURL, pattern, template string) (string, error) {
	return defaultSubstituter.Substitute(sourceURL, pattern, template)
}

// TestPattern 使用默认缓存测试 pattern
func TestPattern(sourceURL, pattern string) ([]string, error) {
	return defaultSubstituter.TestPattern(sourceURL, pattern)
}
