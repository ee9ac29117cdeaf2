package model

import (
	"time"
)

// Entry 键值存储表，一行对应一个存储键
type Entry struct {
	Key       string    `gorm:"primaryKey" json:"key"`  // 存储键，如 mockConfigs
	Value     string    `gorm:"type:text" json:"value"` // JSON 文本
	Revision  int64     `gorm:"not null;default:0" json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}
