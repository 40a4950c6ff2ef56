package service

// 升级重试：告警发出后无人处理，延迟触发一次更强的提醒
// 单次触发不级联，任何失败只记录日志，不影响通知终态

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ConsoleExt/internal/model"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/metrics"
	"ConsoleExt/utils"
)

// EscalationRetryPrefix 升级短信的消息前缀
const EscalationRetryPrefix = "RETRY: "

// Escalate 执行一次升级重试，由调度器延迟触发
// 通知已不是 sent 状态（被抑制、失败或已删除）时静默放弃
func (s *NotificationService) Escalate(ctx context.Context, notificationID int64) {
	var notification model.Notification
	err := s.db.WithContext(ctx).First(&notification, notificationID).Error
	if err != nil {
		if !pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			logger.Logger.Error("Failed to reload notification for escalation",
				zap.Int64("notification_id", notificationID),
				zap.Error(err),
			)
		}
		return
	}

	if notification.Status != model.NotificationStatusSent {
		logger.Logger.Debug("Escalation skipped, notification no longer sent",
			zap.Int64("notification_id", notificationID),
			zap.String("status", string(notification.Status)),
		)
		return
	}

	var app model.Application
	if err := s.db.WithContext(ctx).First(&app, notification.ApplicationID).Error; err != nil {
		return
	}

	var owner model.User
	if err := s.db.WithContext(ctx).First(&owner, notification.UserID).Error; err != nil {
		return
	}

	// 升级时重新解析接收人，拿到的是当下的配置而非发送时的快照
	recipients, err := ResolveRecipients(&app, &owner)
	if err != nil {
		logger.Logger.Warn("Escalation skipped, no deliverable recipient",
			zap.Int64("notification_id", notificationID),
			zap.Error(err),
		)
		return
	}

	method := "sms"
	if owner.CallEnabled {
		method = "call"
	}

	var deliverErr error
	for _, r := range recipients {
		if owner.CallEnabled {
			deliverErr = s.client.PlaceCall(ctx, r.Phone, notification.Message)
		} else {
			deliverErr = s.client.SendSMS(ctx, r.Phone, EscalationRetryPrefix+notification.Message)
		}
		if deliverErr != nil {
			logger.Logger.Error("Escalation delivery failed",
				zap.Int64("notification_id", notificationID),
				zap.String("method", method),
				zap.String("phone", utils.MaskPhone(r.Phone)),
				zap.Error(deliverErr),
			)
			break
		}
	}

	status := model.DeliveryAttemptStatusSent
	responseData := model.JSONB{
		"retry":  true,
		"method": method,
	}
	if deliverErr != nil {
		status = model.DeliveryAttemptStatusFailed
		responseData["error"] = deliverErr.Error()
	}

	// 升级只追加尝试记录，通知保持 sent 状态
	if err := s.appendAttempt(ctx, notification.ID, status, responseData); err != nil {
		logger.Logger.Error("Failed to record escalation attempt",
			zap.Int64("notification_id", notificationID),
			zap.Error(err),
		)
		return
	}

	metrics.RecordEscalation(method)
	logger.Logger.Info("Escalation executed",
		zap.Int64("notification_id", notificationID),
		zap.String("method", method),
		zap.String("attempt_status", string(status)),
	)
}

// EscalationDelay 账户配置的升级延迟，越界时回退默认值
func EscalationDelay(owner *model.User) time.Duration {
	delay := owner.RetryDelay
	if delay < model.RetryDelayMin || delay > model.RetryDelayMax {
		delay = model.RetryDelayDefault
	}
	return time.Duration(delay) * time.Minute
}
