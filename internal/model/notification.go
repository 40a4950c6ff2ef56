package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// NotificationStatus 通知状态枚举
type NotificationStatus string

const (
	NotificationStatusPending     NotificationStatus = "pending"      // 待派发
	NotificationStatusSent        NotificationStatus = "sent"         // 已送达
	NotificationStatusRateLimited NotificationStatus = "rate-limited" // 命中去重窗口被抑制
	NotificationStatusFailed      NotificationStatus = "failed"       // 派发失败
)

// Notification 告警通知模型
// Hash 在创建时计算，之后不再变更
type Notification struct {
	BaseModel
	PublicID      int64              `gorm:"uniqueIndex;not null" json:"public_id"`
	UserID        int64              `gorm:"not null;index:idx_notifications_user" json:"user_id"`
	ApplicationID int64              `gorm:"not null;index:idx_notifications_app" json:"application_id"`
	Message       string             `gorm:"type:text;not null" json:"message"`
	StackTrace    string             `gorm:"type:text;not null;default:''" json:"stack_trace,omitempty"`
	Context       JSONB              `gorm:"type:jsonb;default:'{}'" json:"context"`
	Status        NotificationStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_notifications_dedup" json:"status"`
	Hash          string             `gorm:"type:char(64);not null;index:idx_notifications_dedup" json:"hash"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// DeliveryAttemptStatus 投递尝试状态枚举
type DeliveryAttemptStatus string

const (
	DeliveryAttemptStatusSent   DeliveryAttemptStatus = "sent"   // 成功
	DeliveryAttemptStatusFailed DeliveryAttemptStatus = "failed" // 失败
)

// JSONB 自定义 JSONB 类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("failed to unmarshal JSONB value")
	}
}
