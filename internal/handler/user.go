package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ConsoleExt/internal/middleware"
	"ConsoleExt/internal/model/dto"
	"ConsoleExt/internal/service"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/response"
)

// 鉴权中间件失效时的兜底
var errUnauthorized = pkgerrors.Unauthorized

// GetUserProfile 获取账户资料与通知设置
// GET /v1/users/me
func GetUserProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	profile, err := service.User().GetProfile(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, profile)
}

// UpdateUserSettings 更新账户资料与通知设置
// PUT /v1/users/me/settings
func UpdateUserSettings(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	var req dto.UpdateUserSettingsRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	profile, err := service.User().UpdateSettings(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, profile)
}
