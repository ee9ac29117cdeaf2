package regexutil

import (
	"strconv"
	"strings"
)

// dotClass 浏览器 RegExp 中 . 不匹配的行终止符
const dotClass = `[^\n\r\u2028\u2029]`

// Translate 把浏览器 RegExp 语法改写成 regexp2 下语义一致的形式
//
// 命名分组改为普通分组，使分组编号按左括号出现的顺序排列（regexp2 会把命名分组排在所有普通分组之后）；
// \k<name> 改为对应编号的反向引用；字符类之外的 . 改为排除行终止符的字符类。
func Translate(pattern string) string {
	names := groupNames(pattern)

	var b strings.Builder
	b.Grow(len(pattern) + 16)
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			if i+1 >= len(pattern) {
				b.WriteByte(c)
				continue
			}
			if !inClass && pattern[i+1] == 'k' && len(names) > 0 {
				if name, end, ok := readName(pattern, i+2); ok {
					if n, found := names[name]; found {
						b.WriteString(`(?:\` + strconv.Itoa(n) + `)`)
						i = end
						continue
					}
				}
			}
			b.WriteByte(c)
			b.WriteByte(pattern[i+1])
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == '.':
			b.WriteString(dotClass)
		case c == '(':
			if _, end, ok := namedGroupAt(pattern, i); ok {
				b.WriteByte('(')
				i = end
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// groupNames 按左括号顺序为捕获分组编号，返回命名分组的编号
func groupNames(pattern string) map[string]int {
	var names map[string]int
	n := 0
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			if i+1 < len(pattern) && pattern[i+1] == '?' {
				name, _, ok := namedGroupAt(pattern, i)
				if !ok {
					continue
				}
				n++
				if names == nil {
					names = make(map[string]int)
				}
				if _, dup := names[name]; !dup {
					names[name] = n
				}
				continue
			}
			n++
		}
	}
	return names
}

// namedGroupAt 判断 pattern[i] 处是否为 (?<name> 或 (?P<name>，返回名称与 > 的位置
func namedGroupAt(pattern string, i int) (string, int, bool) {
	rest := pattern[i:]
	var start int
	switch {
	case strings.HasPrefix(rest, "(?P<"):
		start = i + 4
	case strings.HasPrefix(rest, "(?<"):
		start = i + 3
	default:
		return "", 0, false
	}
	if start < len(pattern) && (pattern[start] == '=' || pattern[start] == '!') {
		// 后行断言
		return "", 0, false
	}
	return readNameFrom(pattern, start)
}

// readName 读取 <name>，i 指向 <
func readName(pattern string, i int) (string, int, bool) {
	if i >= len(pattern) || pattern[i] != '<' {
		return "", 0, false
	}
	return readNameFrom(pattern, i+1)
}

func readNameFrom(pattern string, start int) (string, int, bool) {
	end := strings.IndexByte(pattern[start:], '>')
	if end <= 0 {
		return "", 0, false
	}
	return pattern[start : start+end], start + end, true
}
