package service

import (
	"ConsoleExt/internal/model"
	"ConsoleExt/internal/queue"
)

// publishDispatch 默认的派发消息投递实现
func publishDispatch(msg model.DispatchMessage) error {
	return queue.PublishDispatch(msg)
}

// publishNotificationEvent 默认的事件总线投递实现
func publishNotificationEvent(eventType string, notificationID, userID int64, status string) error {
	return queue.PublishNotificationEvent(eventType, notificationID, userID, status)
}
