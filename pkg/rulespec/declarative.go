package rulespec

// ActionType 声明式规则行为类型
type ActionType string

const (
	ActionModifyHeaders ActionType = "modifyHeaders"
	ActionRedirect      ActionType = "redirect"
)

// ResourceType 声明式规则资源类型
type ResourceType string

const (
	ResourceTypeMainFrame      ResourceType = "main_frame"
	ResourceTypeXMLHTTPRequest ResourceType = "xmlhttprequest"
)

// CompiledAction 一条可安装到浏览器声明式规则引擎的规则
type CompiledAction struct {
	ID        int       `json:"id"`
	Priority  int       `json:"priority"`
	Action    Action    `json:"action"`
	Condition Condition `json:"condition"`
}

// Action 声明式规则行为
type Action struct {
	Type            ActionType         `json:"type"`
	RequestHeaders  []HeaderModifyInfo `json:"requestHeaders,omitempty"`
	ResponseHeaders []HeaderModifyInfo `json:"responseHeaders,omitempty"`
	Redirect        *Redirect          `json:"redirect,omitempty"`
}

// HeaderModifyInfo Header 修改条目
type HeaderModifyInfo struct {
	Header    string          `json:"header"`
	Operation HeaderOperation `json:"operation"`
	Value     string          `json:"value,omitempty"`
}

// Redirect 重定向目标
type Redirect struct {
	RegexSubstitution string `json:"regexSubstitution,omitempty"`
	URL               string `json:"url,omitempty"`
}

// Condition 声明式规则匹配条件
type Condition struct {
	URLFilter     string         `json:"urlFilter,omitempty"`
	ResourceTypes []ResourceType `json:"resourceTypes,omitempty"`
}
