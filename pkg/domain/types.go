package domain

// RuleID 规则ID
type RuleID string

// TabID 浏览器标签页（或 DevTools 目标）ID
type TabID string

// MainFrameID 顶层文档的 frameId
const MainFrameID = 0

// StorageKeyRules 规则集合在键值存储中的键名
const StorageKeyRules = "mockConfigs"

// NavigationEvent 导航开始事件（对应 webNavigation.onBeforeNavigate）
type NavigationEvent struct {
	TabID   TabID  `json:"tabId"`
	FrameID int    `json:"frameId"`
	URL     string `json:"url"`
}

// IsMainFrame 是否为顶层导航
func (e NavigationEvent) IsMainFrame() bool {
	return e.FrameID == MainFrameID
}

// StorageChange 存储变更通知
type StorageChange struct {
	Key      string `json:"key"`
	OldValue []byte `json:"oldValue,omitempty"`
	NewValue []byte `json:"newValue,omitempty"`
}
