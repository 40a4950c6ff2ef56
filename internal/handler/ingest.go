package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"ConsoleExt/internal/middleware"
	"ConsoleExt/internal/model/dto"
	"ConsoleExt/internal/service"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/response"
)

// IngestNotification 接收应用上报的告警，入库后立即返回，派发异步执行
// POST /v1/ingest
func IngestNotification(ctx context.Context, c *app.RequestContext) {
	application, ok := middleware.GetApplication(c)
	if !ok {
		response.Error(ctx, c, pkgerrors.APIKeyInvalid)
		return
	}

	var req dto.IngestRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	notification, err := service.Notification().Ingest(ctx, application, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Accepted(ctx, c, dto.IngestResponse{
		Success: true,
		Notification: dto.IngestNotification{
			ID:      fmt.Sprintf("%d", notification.PublicID),
			Message: notification.Message,
			Status:  string(notification.Status),
		},
	})
}
