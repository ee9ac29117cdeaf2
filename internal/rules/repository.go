// Package rules 管理持久化在键值存储中的用户规则集合
package rules

import (
	"context"
	"fmt"
	"sync"

	"netmodifier/internal/logger"
	"netmodifier/internal/regexutil"
	"netmodifier/internal/storage"
	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Repository 规则仓库
//
// 每次操作都重新读取存储，内存中不保留规则副本。
// 写操作在进程内串行执行，读改写之间不会互相覆盖。
type Repository struct {
	store storage.Store
	cache *regexutil.Cache
	log   logger.Logger
	key   string
	mu    sync.Mutex
}

// New 创建规则仓库
func New(store storage.Store, cache *regexutil.Cache, l logger.Logger) *Repository {
	if cache == nil {
		cache = regexutil.Default()
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Repository{store: store, cache: cache, log: l, key: domain.StorageKeyRules}
}

// List 返回当前规则集合，保持存储顺序
//
// 存储内容损坏时记录警告并返回空集合。
func (r *Repository) List(ctx context.Context) ([]rulespec.NetworkRule, error) {
	raw, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return r.decode(raw), nil
}

// Get 按 ID 获取规则
func (r *Repository) Get(ctx context.Context, id string) (rulespec.NetworkRule, error) {
	list, err := r.List(ctx)
	if err != nil {
		return rulespec.NetworkRule{}, err
	}
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return rulespec.NetworkRule{}, notFound(id)
}

// Save 新建或更新规则
//
// RuleID 为空时分配新 UUID 并追加到末尾；否则原位替换同 ID 的规则，ID 不存在时返回 CodeRuleNotFound。
func (r *Repository) Save(ctx context.Context, rule rulespec.NetworkRule) (rulespec.NetworkRule, error) {
	if err := r.check(rule); err != nil {
		return rulespec.NetworkRule{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.load(ctx)
	if err != nil {
		return rulespec.NetworkRule{}, err
	}
	list := r.decode(raw)

	if rule.RuleID == "" {
		rule.RuleID = uuid.New().String()
		list = append(list, rule)
		r.log.Info("新增规则", "ruleId", rule.RuleID, "ruleName", rule.RuleName)
	} else {
		i := indexOf(list, rule.RuleID)
		if i < 0 {
			return rulespec.NetworkRule{}, notFound(rule.RuleID)
		}
		list[i] = rule
		r.log.Info("更新规则", "ruleId", rule.RuleID, "ruleName", rule.RuleName)
	}

	if err := r.write(ctx, list); err != nil {
		return rulespec.NetworkRule{}, err
	}
	return rule, nil
}

// Delete 删除规则，其余规则相对顺序不变
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.load(ctx)
	if err != nil {
		return err
	}
	list := r.decode(raw)

	i := indexOf(list, id)
	if i < 0 {
		return notFound(id)
	}
	list = append(list[:i], list[i+1:]...)

	if err := r.write(ctx, list); err != nil {
		return err
	}
	r.log.Info("删除规则", "ruleId", id)
	return nil
}

// SetDisabled 切换规则的禁用状态
//
// 只改写存储文档中对应元素的 disable 字段，其他字段（包括未知字段）原样保留。
func (r *Repository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.load(ctx)
	if err != nil {
		return err
	}

	pos := rawIndexOf(raw, id)
	if pos < 0 {
		return notFound(id)
	}
	patched, err := sjson.SetBytes(raw, fmt.Sprintf("%d.disable", pos), disabled)
	if err != nil {
		return errx.Wrap(errx.CodeStorage, err, "更新规则状态失败")
	}
	if err := r.store.Set(ctx, r.key, patched); err != nil {
		return errx.Wrap(errx.CodeStorage, err, "写入规则失败")
	}
	r.log.Info("切换规则状态", "ruleId", id, "disable", disabled)
	return nil
}

// ReplaceAll 整体替换规则集合
func (r *Repository) ReplaceAll(ctx context.Context, list []rulespec.NetworkRule) error {
	if err := rulespec.ValidateUnique(list); err != nil {
		return err
	}
	for _, rule := range list {
		if err := r.check(rule); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(ctx, list)
}

// check 校验字段组合，重定向规则的正则必须能编译
func (r *Repository) check(rule rulespec.NetworkRule) error {
	if err := rulespec.Validate(rule); err != nil {
		return err
	}
	if rule.IsRedirect || rule.IsHTTPRedirect {
		if _, err := r.cache.Get(rule.RedirectIncludePattern); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) load(ctx context.Context) ([]byte, error) {
	raw, _, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, errx.Wrap(errx.CodeStorage, err, "读取规则失败")
	}
	return raw, nil
}

func (r *Repository) decode(raw []byte) []rulespec.NetworkRule {
	list, err := rulespec.Decode(raw)
	if err != nil {
		r.log.Warn("规则数据损坏，按空集合处理", "error", err.Error())
	}
	return list
}

func (r *Repository) write(ctx context.Context, list []rulespec.NetworkRule) error {
	data, err := rulespec.Encode(list)
	if err != nil {
		return errx.Wrap(errx.CodeStorage, err, "序列化规则失败")
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return errx.Wrap(errx.CodeStorage, err, "写入规则失败")
	}
	return nil
}

func indexOf(list []rulespec.NetworkRule, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].RuleID == id {
			return i
		}
	}
	return -1
}

// rawIndexOf 返回存储文档中 ruleId 等于 id 的数组下标
func rawIndexOf(raw []byte, id string) int {
	if id == "" || !gjson.ValidBytes(raw) {
		return -1
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return -1
	}
	pos, i := -1, 0
	doc.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() && item.Get("ruleId").String() == id {
			pos = i
			return false
		}
		i++
		return true
	})
	return pos
}

func notFound(id string) error {
	return errx.Wrap(errx.CodeRuleNotFound, domain.ErrRuleNotFound, fmt.Sprintf("规则 '%s' 不存在", id))
}
