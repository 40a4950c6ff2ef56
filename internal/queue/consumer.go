package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ConsoleExt/internal/cache"
	"ConsoleExt/internal/model"
	"ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/storage/mq"
)

// Dispatcher 派发编排入口，由 worker 启动时注入，避免 queue 反向依赖 service
type Dispatcher interface {
	Dispatch(ctx context.Context, notificationID int64) error
}

var dispatcher Dispatcher

// SetDispatcher 设置派发服务，worker 启动时调用
func SetDispatcher(d Dispatcher) {
	dispatcher = d
}

// StartDispatchConsumer 启动通知派发消费者
func StartDispatchConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.DispatchMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			// 无法解析的消息重试也没有意义
			return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed dispatch message: %v", err)}
		}

		if dispatcher == nil {
			return fmt.Errorf("dispatcher not set, call queue.SetDispatcher first")
		}

		// 【幂等性检查】SETNX 原子性地检查并标记消息正在处理
		acquired, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，派发编排本身按通知状态幂等
		} else if !acquired {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("notification_id", msg.NotificationID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		logger.Logger.Info("Processing dispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("notification_id", msg.NotificationID),
		)

		if err := dispatcher.Dispatch(ctx, msg.NotificationID); err != nil {
			if errors.IsSkipMessageError(err) {
				// 通知已不存在或已处理，标记完成后直接 ack
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return err
			}

			// 基础设施错误：取消标记，允许 MQ 重投
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to dispatch notification %d: %w", msg.NotificationID, err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.DispatchQueue,
		ConsumerTag:   "notification_dispatch_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// StartAllConsumers 启动全部消费者
func StartAllConsumers(ctx context.Context) error {
	if err := StartDispatchConsumer(ctx); err != nil {
		return fmt.Errorf("failed to start dispatch consumer: %w", err)
	}

	logger.Logger.Info("All consumers started")
	return nil
}
