// Package engine 定义浏览器声明式规则引擎的接口，并提供内存实现
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"netmodifier/pkg/domain"
	"netmodifier/pkg/errx"
	"netmodifier/pkg/rulespec"
)

// Engine 声明式规则引擎
type Engine interface {
	// InstalledIDs 返回当前已安装的规则 ID
	InstalledIDs(ctx context.Context) ([]int, error)

	// UpdateRules 先移除 removeIDs，再安装 add；任一检查失败时不做任何修改
	UpdateRules(ctx context.Context, removeIDs []int, add []rulespec.CompiledAction) error
}

// Inspector 可查看已安装规则内容的引擎
type Inspector interface {
	Rules() []rulespec.CompiledAction
	Stats() Stats
}

// Stats 引擎统计
type Stats struct {
	Installed int   `json:"installed"`
	Updates   int64 `json:"updates"`
	Rejected  int64 `json:"rejected"`
}

// Memory 内存中的声明式规则引擎
type Memory struct {
	mu       sync.RWMutex
	rules    map[int]rulespec.CompiledAction
	updates  int64
	rejected int64
}

// NewMemory 创建内存引擎
func NewMemory() *Memory {
	return &Memory{rules: make(map[int]rulespec.CompiledAction)}
}

func (m *Memory) InstalledIDs(_ context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int, 0, len(m.rules))
	for id := range m.rules {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *Memory) UpdateRules(_ context.Context, removeIDs []int, add []rulespec.CompiledAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	remove := make(map[int]bool, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = true
	}

	seen := make(map[int]bool, len(add))
	for _, a := range add {
		if err := checkAction(a); err != nil {
			m.rejected++
			return err
		}
		if seen[a.ID] {
			m.rejected++
			return reject(fmt.Sprintf("规则 ID %d 重复", a.ID))
		}
		if _, exists := m.rules[a.ID]; exists && !remove[a.ID] {
			m.rejected++
			return reject(fmt.Sprintf("规则 ID %d 已安装", a.ID))
		}
		seen[a.ID] = true
	}

	for id := range remove {
		delete(m.rules, id)
	}
	for _, a := range add {
		m.rules[a.ID] = a
	}
	m.updates++
	return nil
}

// Rules 返回按 ID 排序的已安装规则
func (m *Memory) Rules() []rulespec.CompiledAction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rulespec.CompiledAction, 0, len(m.rules))
	for _, a := range m.rules {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats 返回统计信息
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Installed: len(m.rules), Updates: m.updates, Rejected: m.rejected}
}

func checkAction(a rulespec.CompiledAction) error {
	if a.ID <= 0 {
		return reject(fmt.Sprintf("规则 ID 必须为正整数: %d", a.ID))
	}
	switch a.Action.Type {
	case rulespec.ActionModifyHeaders:
		if len(a.Action.RequestHeaders) == 0 && len(a.Action.ResponseHeaders) == 0 {
			return reject(fmt.Sprintf("规则 %d 缺少 Header 修改", a.ID))
		}
	case rulespec.ActionRedirect:
		if a.Action.Redirect == nil {
			return reject(fmt.Sprintf("规则 %d 缺少重定向目标", a.ID))
		}
	default:
		return reject(fmt.Sprintf("规则 %d 的行为类型未知: %s", a.ID, a.Action.Type))
	}
	return nil
}

func reject(msg string) error {
	return errx.Wrap(errx.CodeEngine, domain.ErrEngineRejected, msg)
}
