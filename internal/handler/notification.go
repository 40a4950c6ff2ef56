package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ConsoleExt/internal/middleware"
	"ConsoleExt/internal/model/dto"
	"ConsoleExt/internal/service"
	"ConsoleExt/pkg/response"
)

// ListNotifications 分页查询通知
// GET /v1/notifications
func ListNotifications(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	var q dto.NotificationQuery
	if err := c.BindAndValidate(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	items, nextCursor, err := service.Notification().ListNotifications(ctx, userID, q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	meta := map[string]interface{}{}
	if nextCursor != "" {
		meta["next_cursor"] = nextCursor
	}
	response.SuccessWithMeta(ctx, c, items, meta)
}

// GetNotificationDetail 查询通知详情及投递尝试记录
// GET /v1/notifications/:notification_id
func GetNotificationDetail(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	notificationID := c.Param("notification_id")
	detail, err := service.Notification().GetNotificationDetail(ctx, userID, notificationID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, detail)
}

// ResolveNotification 确认告警已处理，取消待触发的升级重试
// POST /v1/notifications/:notification_id/resolve
func ResolveNotification(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	notificationID := c.Param("notification_id")
	if err := service.Notification().Resolve(ctx, userID, notificationID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
