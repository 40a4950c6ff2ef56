package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	"ConsoleExt/internal/schedule"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/metrics"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/pkg/telephony"
	"ConsoleExt/storage/database"
	"ConsoleExt/utils"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = NewNotificationService(
			database.DB(),
			telephony.GetClient(),
			schedule.GetScheduler(),
		)
	})
	return notificationService
}

// NotificationService 告警通知服务：入库、派发编排、升级重试、查询
type NotificationService struct {
	db        *gorm.DB
	client    telephony.Client
	scheduler schedule.Scheduler

	// publish 投递派发消息，测试中可替换
	publish func(msg model.DispatchMessage) error
	// publishEvent 向事件总线广播终态变更，失败只记日志
	publishEvent func(eventType string, notificationID, userID int64, status string) error
}

func NewNotificationService(
	db *gorm.DB,
	client telephony.Client,
	scheduler schedule.Scheduler,
) *NotificationService {
	return &NotificationService{
		db:           db,
		client:       client,
		scheduler:    scheduler,
		publish:      publishDispatch,
		publishEvent: publishNotificationEvent,
	}
}

// SetPublishFunc 替换派发消息的投递方式，仅测试使用
func (s *NotificationService) SetPublishFunc(fn func(msg model.DispatchMessage) error) {
	s.publish = fn
}

// Ingest 接收上报的告警：入库为 pending 并投递派发消息，立即返回
// 去重、接收人解析、短信发送都在 worker 侧异步执行
func (s *NotificationService) Ingest(
	ctx context.Context,
	app *model.Application,
	req dto.IngestRequest,
) (*model.Notification, error) {
	if req.Message == "" {
		return nil, pkgerrors.MessageRequired
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate notification ID: %w", err)
	}

	notification := &model.Notification{
		PublicID:      publicID,
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Message:       req.Message,
		StackTrace:    req.StackTrace,
		Context:       model.JSONB(req.Context),
		Status:        model.NotificationStatusPending,
		Hash:          utils.Fingerprint(app.ID, req.Message, req.Context),
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	messageID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message ID: %w", err)
	}

	msg := model.DispatchMessage{
		MessageID:      fmt.Sprintf("dispatch_%d", messageID),
		NotificationID: notification.ID,
		UserID:         app.UserID,
		ApplicationID:  app.ID,
		EnqueuedAt:     time.Now().Format(time.RFC3339),
	}

	if err := s.publish(msg); err != nil {
		// 消息投递失败不回滚通知，留给补偿任务扫描 pending 重新投递
		logger.Logger.Error("Failed to publish dispatch message",
			zap.Int64("notification_id", notification.ID),
			zap.Error(err),
		)
	}

	return notification, nil
}

// Dispatch 派发编排，由 worker 消费派发消息后调用
// 终态（sent / rate-limited / failed）都返回 nil，只有基础设施错误才返回 error 触发重试
func (s *NotificationService) Dispatch(ctx context.Context, notificationID int64) error {
	startTime := time.Now()

	var notification model.Notification
	err := s.db.WithContext(ctx).First(&notification, notificationID).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return &pkgerrors.SkipMessageError{Reason: "notification not found"}
		}
		return fmt.Errorf("failed to query notification: %w", err)
	}

	// 已经处理过的消息直接跳过，保证重复投递无副作用
	if notification.Status != model.NotificationStatusPending {
		return &pkgerrors.SkipMessageError{Reason: "notification already dispatched"}
	}

	var app model.Application
	err = s.db.WithContext(ctx).First(&app, notification.ApplicationID).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return s.finishFailed(ctx, &notification, startTime, "application not found")
		}
		return fmt.Errorf("failed to query application: %w", err)
	}

	var owner model.User
	err = s.db.WithContext(ctx).First(&owner, notification.UserID).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return s.finishFailed(ctx, &notification, startTime, "account not found")
		}
		return fmt.Errorf("failed to query user: %w", err)
	}

	// 去重窗口检查：同一应用、同一指纹、窗口内已成功发出过，则本条被抑制
	duplicate, err := s.isDuplicate(ctx, &notification, owner.RateLimitWindow)
	if err != nil {
		return fmt.Errorf("failed to check duplicate: %w", err)
	}
	if duplicate {
		if err := s.updateStatus(ctx, &notification, model.NotificationStatusRateLimited); err != nil {
			return err
		}
		metrics.RecordDispatch(string(model.NotificationStatusRateLimited), time.Since(startTime).Seconds())
		logger.Logger.Info("Notification suppressed by rate limit",
			zap.Int64("notification_id", notification.ID),
			zap.String("hash", notification.Hash),
			zap.Int("window_minutes", owner.RateLimitWindow),
		)
		return nil
	}

	recipients, err := ResolveRecipients(&app, &owner)
	if err != nil {
		return s.finishFailed(ctx, &notification, startTime, err.Error())
	}

	for _, r := range recipients {
		if sendErr := s.client.SendSMS(ctx, r.Phone, notification.Message); sendErr != nil {
			logger.Logger.Error("Failed to deliver alert SMS",
				zap.Int64("notification_id", notification.ID),
				zap.String("phone", utils.MaskPhone(r.Phone)),
				zap.Error(sendErr),
			)
			return s.finishFailed(ctx, &notification, startTime, sendErr.Error())
		}
	}

	if err := s.updateStatus(ctx, &notification, model.NotificationStatusSent); err != nil {
		return err
	}
	if err := s.appendAttempt(ctx, notification.ID, model.DeliveryAttemptStatusSent, model.JSONB{
		"recipients": len(recipients),
	}); err != nil {
		return err
	}

	metrics.RecordDispatch(string(model.NotificationStatusSent), time.Since(startTime).Seconds())
	logger.Logger.Info("Notification dispatched",
		zap.Int64("notification_id", notification.ID),
		zap.Int("recipient_count", len(recipients)),
	)

	// 只有发送成功才安排升级重试
	if owner.RetryEnabled {
		delay := EscalationDelay(&owner)
		id := notification.ID
		s.scheduler.Schedule(id, delay, func() {
			s.Escalate(context.Background(), id)
		})
	}

	return nil
}

// finishFailed 标记失败并追加失败尝试记录
func (s *NotificationService) finishFailed(
	ctx context.Context,
	notification *model.Notification,
	startTime time.Time,
	reason string,
) error {
	if err := s.updateStatus(ctx, notification, model.NotificationStatusFailed); err != nil {
		return err
	}
	if err := s.appendAttempt(ctx, notification.ID, model.DeliveryAttemptStatusFailed, model.JSONB{
		"error": reason,
	}); err != nil {
		return err
	}

	metrics.RecordDispatch(string(model.NotificationStatusFailed), time.Since(startTime).Seconds())
	logger.Logger.Warn("Notification dispatch failed",
		zap.Int64("notification_id", notification.ID),
		zap.String("reason", reason),
	)
	return nil
}

// isDuplicate 查询去重窗口内是否已有同指纹的 sent 通知
func (s *NotificationService) isDuplicate(
	ctx context.Context,
	notification *model.Notification,
	windowMinutes int,
) (bool, error) {
	if windowMinutes < model.RateLimitWindowMin || windowMinutes > model.RateLimitWindowMax {
		windowMinutes = model.RateLimitWindowDefault
	}

	since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("hash = ?", notification.Hash).
		Where("application_id = ?", notification.ApplicationID).
		Where("status = ?", model.NotificationStatusSent).
		Where("created_at >= ?", since).
		Where("id <> ?", notification.ID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (s *NotificationService) updateStatus(
	ctx context.Context,
	notification *model.Notification,
	status model.NotificationStatus,
) error {
	err := s.db.WithContext(ctx).Model(notification).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	notification.Status = status

	// 终态变更广播到事件总线，订阅方（统计、审计）自行消费
	if status != model.NotificationStatusPending {
		if err := s.publishEvent("notification.status_changed", notification.ID, notification.UserID, string(status)); err != nil {
			logger.Logger.Warn("Failed to publish notification event",
				zap.Int64("notification_id", notification.ID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *NotificationService) appendAttempt(
	ctx context.Context,
	notificationID int64,
	status model.DeliveryAttemptStatus,
	responseData model.JSONB,
) error {
	attempt := &model.DeliveryAttempt{
		NotificationID: notificationID,
		Status:         status,
		ResponseData:   responseData,
		AttemptedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create delivery attempt: %w", err)
	}
	return nil
}

// Resolve 确认告警已处理：取消尚未触发的升级重试
func (s *NotificationService) Resolve(
	ctx context.Context,
	userID string,
	notificationID string,
) error {
	notification, err := s.getOwnedNotification(ctx, userID, notificationID)
	if err != nil {
		return err
	}

	s.scheduler.Cancel(notification.ID)
	logger.Logger.Info("Notification resolved",
		zap.Int64("notification_id", notification.ID),
	)
	return nil
}

// ListNotifications 按账户分页查询通知，游标为内部自增 ID，按创建时间倒序
func (s *NotificationService) ListNotifications(
	ctx context.Context,
	userID string,
	q dto.NotificationQuery,
) ([]dto.NotificationItem, string, error) {
	userIDInt, err := parsePublicID(userID)
	if err != nil {
		return nil, "", err
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("public_id = ?", userIDInt).First(&user).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.UserNotFound
		}
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	db := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", user.ID)

	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.From != "" {
		if from, err := utils.ParseTime(q.From); err == nil {
			db = db.Where("created_at >= ?", from)
		}
	}
	if q.To != "" {
		if to, err := utils.ParseTime(q.To); err == nil {
			db = db.Where("created_at <= ?", to)
		}
	}
	if q.Cursor != "" {
		cursor, err := parsePublicID(q.Cursor)
		if err != nil {
			return nil, "", pkgerrors.InvalidRequest
		}
		db = db.Where("id < ?", cursor)
	}

	var notifications []model.Notification
	// 多取一条判断是否还有下一页
	if err := db.Order("id DESC").Limit(limit + 1).Find(&notifications).Error; err != nil {
		return nil, "", fmt.Errorf("failed to query notifications: %w", err)
	}

	nextCursor := ""
	if len(notifications) > limit {
		notifications = notifications[:limit]
		nextCursor = fmt.Sprintf("%d", notifications[limit-1].ID)
	}

	items := make([]dto.NotificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, dto.NotificationItem{
			ID:        fmt.Sprintf("%d", n.PublicID),
			Message:   n.Message,
			Status:    string(n.Status),
			CreatedAt: n.CreatedAt,
		})
	}

	return items, nextCursor, nil
}

// GetNotificationDetail 查询通知详情及全部投递尝试记录
func (s *NotificationService) GetNotificationDetail(
	ctx context.Context,
	userID string,
	notificationID string,
) (*dto.NotificationDetail, error) {
	notification, err := s.getOwnedNotification(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}

	var attempts []model.DeliveryAttempt
	err = s.db.WithContext(ctx).
		Where("notification_id = ?", notification.ID).
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery attempts: %w", err)
	}

	attemptItems := make([]dto.DeliveryAttemptItem, 0, len(attempts))
	for _, a := range attempts {
		attemptItems = append(attemptItems, dto.DeliveryAttemptItem{
			ID:           fmt.Sprintf("%d", a.ID),
			Status:       string(a.Status),
			ResponseData: map[string]interface{}(a.ResponseData),
			AttemptedAt:  a.AttemptedAt,
		})
	}

	return &dto.NotificationDetail{
		ID:         fmt.Sprintf("%d", notification.PublicID),
		Message:    notification.Message,
		StackTrace: notification.StackTrace,
		Context:    map[string]interface{}(notification.Context),
		Status:     string(notification.Status),
		Hash:       notification.Hash,
		CreatedAt:  notification.CreatedAt,
		Attempts:   attemptItems,
	}, nil
}

// SweepPendingNotifications 补偿扫描：重新投递卡在 pending 超过 age 的通知
// 由独立的 scheduler 进程周期性调用
func (s *NotificationService) SweepPendingNotifications(ctx context.Context, age time.Duration) (int, error) {
	deadline := time.Now().Add(-age)

	var notifications []model.Notification
	err := s.db.WithContext(ctx).
		Where("status = ?", model.NotificationStatusPending).
		Where("created_at < ?", deadline).
		Order("id ASC").
		Limit(500).
		Find(&notifications).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query pending notifications: %w", err)
	}

	republished := 0
	for _, n := range notifications {
		messageID, err := snowflake.NextID()
		if err != nil {
			return republished, fmt.Errorf("failed to generate message ID: %w", err)
		}

		msg := model.DispatchMessage{
			MessageID:      fmt.Sprintf("dispatch_sweep_%d", messageID),
			NotificationID: n.ID,
			UserID:         n.UserID,
			ApplicationID:  n.ApplicationID,
			EnqueuedAt:     time.Now().Format(time.RFC3339),
		}

		if err := s.publish(msg); err != nil {
			logger.Logger.Error("Failed to republish stuck notification",
				zap.Int64("notification_id", n.ID),
				zap.Error(err),
			)
			continue
		}
		republished++
	}

	if republished > 0 {
		logger.Logger.Info("Republished stuck pending notifications",
			zap.Int("count", republished),
		)
	}

	return republished, nil
}

// getOwnedNotification 按 public_id 查询通知并校验归属
func (s *NotificationService) getOwnedNotification(
	ctx context.Context,
	userID string,
	notificationID string,
) (*model.Notification, error) {
	userIDInt, err := parsePublicID(userID)
	if err != nil {
		return nil, err
	}

	notificationIDInt, err := parsePublicID(notificationID)
	if err != nil {
		return nil, pkgerrors.NotificationNotFound
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("public_id = ?", userIDInt).First(&user).Error; err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	var notification model.Notification
	err = s.db.WithContext(ctx).
		Where("public_id = ?", notificationIDInt).
		Where("user_id = ?", user.ID).
		First(&notification).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotificationNotFound
		}
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}

	return &notification, nil
}

func parsePublicID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, pkgerrors.InvalidUserID
	}
	return id, nil
}
