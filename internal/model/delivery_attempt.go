package model

import (
	"time"
)

// DeliveryAttempt 投递尝试记录，只追加不修改
// ResponseData 记录本次尝试的结果快照：
//
//	首次派发成功  {"recipients": n}
//	派发失败      {"error": "..."}
//	升级重试      {"retry": true, "method": "sms"|"call"}
type DeliveryAttempt struct {
	BaseModel
	NotificationID int64                 `gorm:"not null;index:idx_delivery_attempts_notification" json:"notification_id"`
	Status         DeliveryAttemptStatus `gorm:"type:varchar(16);not null" json:"status"`
	ResponseData   JSONB                 `gorm:"type:jsonb;default:'{}'" json:"response_data"`
	AttemptedAt    time.Time             `gorm:"not null" json:"attempted_at"`
}

// TableName 指定表名
func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}
