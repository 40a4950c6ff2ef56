package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// DefaultApplicationName 保留应用名，账户首次上报且未指定应用时自动创建
const DefaultApplicationName = "Default Application"

// Application 应用模型，接入方通过 API Key 上报告警
type Application struct {
	BaseModel
	PublicID   int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID     int64      `gorm:"not null;index:idx_applications_user" json:"user_id"`
	Name       string     `gorm:"type:varchar(128);not null" json:"name"`
	APIKey     string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"api_key"`
	Recipients Recipients `gorm:"type:jsonb;default:'[]'" json:"recipients"` // 接收人数组（JSONB），保持插入顺序
}

// TableName 指定表名
func (Application) TableName() string {
	return "applications"
}

// IsDefault 是否为保留的默认应用
func (a *Application) IsDefault() bool {
	return a.Name == DefaultApplicationName
}

// Recipients 接收人数组（JSONB）
type Recipients []Recipient

// Recipient 告警接收人（存储在 applications.recipients JSONB 中）
type Recipient struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

func (rs Recipients) Value() (driver.Value, error) {
	if rs == nil {
		return "[]", nil
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (rs *Recipients) Scan(value interface{}) error {
	if value == nil {
		*rs = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, rs)
	case string:
		return json.Unmarshal([]byte(v), rs)
	default:
		return errors.New("failed to unmarshal recipients value")
	}
}

// ActiveCount 统计激活的接收人数量
func (rs Recipients) ActiveCount() int {
	count := 0
	for _, r := range rs {
		if r.IsActive {
			count++
		}
	}
	return count
}
