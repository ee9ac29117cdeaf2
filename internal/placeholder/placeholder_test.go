package placeholder_test

import (
	"testing"

	"netmodifier/internal/placeholder"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"
)

// TestSubstitute 以固定样例验证下标直接索引匹配结果数组的规则
func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		pattern  string
		template string
		want     string
	}{
		{"两个捕获组", "a-b", "(a)-(b)", "$1 and $2", "a and b"},
		{"$0 永不替换", "a-b", "(a)-(b)", "$0|$1", "$0|a"},
		// 匹配结果为 ["a-b","a","b"]，长度为 3，$3 恰好越过末尾一位
		{"越过末尾一位", "a-b", "(a)-(b)", "$3", "undefined"},
		{"越界保留原样", "a-b", "(a)-(b)", "$4/$10", "$4/$10"},
		{"无匹配保留模板", "xyz", "(a)-(b)", "$1 and $2", "$1 and $2"},
		{"无占位符", "a-b", "(a)-(b)", "https://example.com/", "https://example.com/"},
		{"前导零按数值解析", "a-b", "(a)-(b)", "$01$02", "ab"},
		{"未参与匹配的可选组", "ac", "(a)(b)?(c)", "$1-$2-$3", "a-undefined-c"},
		{"单独的 $ 不处理", "a-b", "(a)-(b)", "$$1 $x $", "$a $x $"},
		{"部分匹配位置", "see https://a.com/42 now", `a\.com/(\d+)`, "https://b.com/item/$1", "https://b.com/item/42"},
		{"默认表单示例", rulespec.DefaultExampleURL, rulespec.DefaultIncludePattern, rulespec.DefaultRedirectToURL, "https://duckduckgo.com/?q=enyoutube"},
		{"命名分组按出现顺序编号", "1-2", `(?<y>\d+)-(\d+)`, "$1|$2", "1|2"},
		{"命名分组位于中间", "a1b", `(a)(?<num>\d)(b)`, "$3$2$1", "b1a"},
		{"命名反向引用", "xx-y", `(?<c>x)\k<c>-(y)`, "$1$2", "xy"},
		{"点号不匹配行分隔符", "a\u2028b a\rb a_b", `(a.b)`, "$1", "a_b"},
		{"超长数字视为越界", "a-b", "(a)-(b)", "$99999999999999999999", "$99999999999999999999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := placeholder.Substitute(tt.source, tt.pattern, tt.template)
			if err != nil {
				t.Fatalf("Substitute 返回错误: %v", err)
			}
			if got != tt.want {
				t.Errorf("Substitute(%q, %q, %q) = %q, want %q", tt.source, tt.pattern, tt.template, got, tt.want)
			}
		})
	}
}

// TestSubstitute_Properties 验证与输入无关的性质
func TestSubstitute_Properties(t *testing.T) {
	sources := []string{"", "a-b", "https://www.google.com/search?hl=en&q=go", "zzz"}
	patterns := []string{"(a)-(b)", `hl=([^&]*)`, "^$", "(.*)"}

	for _, src := range sources {
		for _, p := range patterns {
			// 不含占位符的模板原样返回
			if got, _ := placeholder.Substitute(src, p, "https://plain/"); got != "https://plain/" {
				t.Errorf("无占位符模板被修改: src=%q p=%q got=%q", src, p, got)
			}
			// $0 总是原样保留
			if got, _ := placeholder.Substitute(src, p, "$0"); got != "$0" {
				t.Errorf("$0 被替换: src=%q p=%q got=%q", src, p, got)
			}
			// 幂等
			a, _ := placeholder.Substitute(src, p, "$1/$2")
			b, _ := placeholder.Substitute(src, p, "$1/$2")
			if a != b {
				t.Errorf("同一输入结果不一致: %q vs %q", a, b)
			}
		}
	}
}

// TestSubstitute_InvalidPattern 非法正则返回错误而不是 panic
func TestSubstitute_InvalidPattern(t *testing.T) {
	_, err := placeholder.Substitute("a", "(", "$1")
	if !errx.Is(err, errx.CodeInvalidPattern) {
		t.Errorf("期望 %s，实际 %v", errx.CodeInvalidPattern, err)
	}
}

func TestTestPattern(t *testing.T) {
	got, err := placeholder.TestPattern("a-b", "(a)-(b)")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a-b", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	named, err := placeholder.TestPattern("2024-06", `(?<year>\d{4})-(\d{2})`)
	if err != nil || len(named) != 3 || named[1] != "2024" || named[2] != "06" {
		t.Errorf("命名分组顺序错误: %v %v", named, err)
	}

	none, err := placeholder.TestPattern("xyz", "(a)")
	if err != nil || none != nil {
		t.Errorf("未匹配应返回 nil: %v %v", none, err)
	}

	if _, err := placeholder.TestPattern("a", "[z-a]"); !errx.Is(err, errx.CodeInvalidPattern) {
		t.Errorf("非法正则应返回 %s: %v", errx.CodeInvalidPattern, err)
	}
}

func TestPreview(t *testing.T) {
	res, err := placeholder.Preview(rulespec.DefaultExampleURL, rulespec.DefaultIncludePattern, rulespec.DefaultRedirectToURL)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("默认示例应匹配")
	}
	if len(res.Variables) != 3 {
		t.Fatalf("应有 $0..$2 三个变量，实际 %d", len(res.Variables))
	}
	if res.Variables[1].Label != "$1" || res.Variables[1].Value != "en" || res.Variables[2].Value != "youtube" {
		t.Errorf("变量取值错误: %+v", res.Variables)
	}
	if res.NavigateTo != "https://duckduckgo.com/?q=enyoutube" {
		t.Errorf("NavigateTo = %q", res.NavigateTo)
	}

	miss, err := placeholder.Preview("https://bing.com", rulespec.DefaultIncludePattern, rulespec.DefaultRedirectToURL)
	if err != nil {
		t.Fatal(err)
	}
	if miss.Matched || len(miss.Variables) != 0 || miss.NavigateTo != "" {
		t.Errorf("未匹配时预览应为空: %+v", miss)
	}
}
