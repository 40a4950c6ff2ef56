package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"ConsoleExt/internal/model"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/storage/mq"
)

// PublishDispatch 发布通知派发消息，server 侧入库后调用
func PublishDispatch(msg model.DispatchMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("notification_id", msg.NotificationID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("dispatch_%d", id)
	}
	if msg.EnqueuedAt == "" {
		msg.EnqueuedAt = time.Now().Format(time.RFC3339)
	}

	err := mq.PublishMessage(
		mq.NotificationExchange,
		mq.DispatchRoutingKey,
		msg,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish dispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("notification_id", msg.NotificationID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published dispatch message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("notification_id", msg.NotificationID),
	)

	return nil
}

// PublishNotificationEvent 发布通知终态事件到事件总线
func PublishNotificationEvent(eventType string, notificationID, userID int64, status string) error {
	event := model.EventMessage{
		EventKey:   fmt.Sprintf("notification.%s", status),
		EventType:  eventType,
		OccurredAt: time.Now().Format(time.RFC3339),
		Payload: map[string]interface{}{
			"notification_id": notificationID,
			"user_id":         userID,
			"status":          status,
		},
	}

	err := mq.PublishMessage(
		mq.EventExchange,
		event.EventKey,
		event,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish notification event",
			zap.Int64("notification_id", notificationID),
			zap.String("status", status),
			zap.Error(err),
		)
		return err
	}

	return nil
}
