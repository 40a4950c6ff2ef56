package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"ConsoleExt/internal/middleware"
	"ConsoleExt/internal/model/dto"
	"ConsoleExt/internal/service"
	pkgerrors "ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/response"
)

// ListApplications 列出账户的全部应用
// GET /v1/applications
func ListApplications(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	items, err := service.Application().ListApplications(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, items)
}

// CreateApplication 创建新应用
// POST /v1/applications
func CreateApplication(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	var req dto.CreateApplicationRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := service.Application().CreateApplication(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// DeleteApplication 删除应用
// DELETE /v1/applications/:application_id
func DeleteApplication(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	applicationID := c.Param("application_id")
	if err := service.Application().DeleteApplication(ctx, userID, applicationID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// RotateAPIKey 轮换应用的 API Key
// POST /v1/applications/:application_id/api-key/rotate
func RotateAPIKey(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	applicationID := c.Param("application_id")
	item, err := service.Application().RotateAPIKey(ctx, userID, applicationID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// AddRecipient 为应用添加接收人
// POST /v1/applications/:application_id/recipients
func AddRecipient(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	var req dto.AddRecipientRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	applicationID := c.Param("application_id")
	item, err := service.Application().AddRecipient(ctx, userID, applicationID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// UpdateRecipient 按位置更新接收人
// PATCH /v1/applications/:application_id/recipients/:index
func UpdateRecipient(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(ctx, c, pkgerrors.RecipientNotFound)
		return
	}

	var req dto.UpdateRecipientRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	applicationID := c.Param("application_id")
	item, err := service.Application().UpdateRecipient(ctx, userID, applicationID, index, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// RemoveRecipient 按位置移除接收人
// DELETE /v1/applications/:application_id/recipients/:index
func RemoveRecipient(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errUnauthorized)
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(ctx, c, pkgerrors.RecipientNotFound)
		return
	}

	applicationID := c.Param("application_id")
	item, err := service.Application().RemoveRecipient(ctx, userID, applicationID, index)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}
