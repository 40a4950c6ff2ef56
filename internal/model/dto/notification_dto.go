package dto

import "time"

// ========== Notification 相关 DTO ==========

// NotificationItem 通知列表项
type NotificationItem struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationDetail 通知详情
type NotificationDetail struct {
	ID         string                 `json:"id"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Context    map[string]interface{} `json:"context"`
	Status     string                 `json:"status"`
	Hash       string                 `json:"hash"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   []DeliveryAttemptItem  `json:"attempts"`
}

// DeliveryAttemptItem 投递尝试记录
type DeliveryAttemptItem struct {
	ID           string                 `json:"id"`
	Status       string                 `json:"status"`
	ResponseData map[string]interface{} `json:"response_data"`
	AttemptedAt  time.Time              `json:"attempted_at"`
}

// NotificationQuery 通知查询参数
type NotificationQuery struct {
	Status string `query:"status"`
	From   string `query:"from"` // RFC3339 或 2006-01-02 15:04:05
	To     string `query:"to"`
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}
