package domain

import "errors"

// 规则相关错误
var (
	ErrRuleNotFound    = errors.New("rule not found")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrMalformedRules  = errors.New("malformed rules")
	ErrDuplicateRuleID = errors.New("duplicate rule id")
)

// 运行环境相关错误
var (
	ErrStoreClosed     = errors.New("store closed")
	ErrTabNotFound     = errors.New("tab not found")
	ErrEngineRejected  = errors.New("engine rejected rules")
	ErrDatabaseNotInit = errors.New("database not initialized")
)
