// Package regexutil 提供带有界缓存的正则表达式编译工具
//
// 正则先经 Translate 改写，再使用 regexp2 的 ECMAScript 模式编译，分组编号与 . 的语义与浏览器中的 RegExp 保持一致。
package regexutil

import (
	"time"

	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultSize 默认缓存容量
	DefaultSize = 256
	// DefaultMatchTimeout 单次匹配超时，防止回溯爆炸卡住事件处理
	DefaultMatchTimeout = 200 * time.Millisecond
)

// Options 缓存配置
type Options struct {
	Size         int
	MatchTimeout time.Duration
}

// Cache 正则表达式编译器缓存，并发安全
type Cache struct {
	cache   *lru.Cache[string, *regexp2.Regexp]
	timeout time.Duration
}

// New 创建一个新的正则缓存实例
func New(opts Options) *Cache {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.MatchTimeout <= 0 {
		opts.MatchTimeout = DefaultMatchTimeout
	}
	// 只有 size <= 0 时才会返回错误，上面已保证
	c, _ := lru.New[string, *regexp2.Regexp](opts.Size)
	return &Cache{cache: c, timeout: opts.MatchTimeout}
}

// Get 获取编译后的正则表达式对象
// 如果缓存中已存在则直接返回，否则进行编译并存入缓存
func (c *Cache) Get(p string) (*regexp2.Regexp, error) {
	// 1. 尝试从缓存中读取
	if re, ok := c.cache.Get(p); ok {
		return re, nil
	}

	// 2. 编译正则
	compiled, err := regexp2.Compile(Translate(p), regexp2.ECMAScript)
	if err != nil {
		return nil, errx.Wrap(errx.CodeInvalidPattern, domain.ErrInvalidPattern, err.Error())
	}
	compiled.MatchTimeout = c.timeout

	// 3. 存入缓存
	c.cache.Add(p, compiled)
	return compiled, nil
}

// Exec 编译并对 s 执行一次匹配，返回完整匹配结果；未匹配时返回 nil
func (c *Cache) Exec(pattern, s string) (*regexp2.Match, error) {
	re, err := c.Get(pattern)
	if err != nil {
		return nil, err
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		// 仅在匹配超时时出现
		return nil, errx.Wrap(errx.CodeInvalidPattern, err, "正则匹配超时")
	}
	return m, nil
}

// MatchString 判断 pattern 是否匹配 s
func (c *Cache) MatchString(pattern, s string) (bool, error) {
	m, err := c.Exec(pattern, s)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

var defaultCache = New(Options{})

// Default 返回进程级默认缓存
func Default() *Cache { return defaultCache }
