package model

// DispatchMessage 通知派发消息
// server 在通知入库后投递，worker 消费后执行派发编排
type DispatchMessage struct {
	MessageID      string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	NotificationID int64  `json:"notification_id"`
	UserID         int64  `json:"user_id"`
	ApplicationID  int64  `json:"application_id"`
	EnqueuedAt     string `json:"enqueued_at"`
}

// EventMessage 事件消息（用于事件总线）
type EventMessage struct {
	Payload    map[string]interface{} `json:"payload"`
	EventKey   string                 `json:"event_key"`
	EventType  string                 `json:"event_type"`
	OccurredAt string                 `json:"occurred_at"`
}
