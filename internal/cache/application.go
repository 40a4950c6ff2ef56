package cache

import (
	"context"

	"ConsoleExt/internal/model"
)

// 上报接口每次请求都要按 API Key 解析应用，用受保护缓存挡住数据库

// GetApplicationByAPIKey 按 API Key 获取应用缓存
// 返回 (nil, nil) 表示缓存未命中或空值命中
func GetApplicationByAPIKey(ctx context.Context, apiKey string) (*model.Application, error) {
	var app model.Application

	hit, err := ApplicationProtectedCache.Get(ctx, apiKey, &app)
	if err != nil {
		return nil, err
	}
	if !hit || app.ID == 0 {
		return nil, nil
	}

	return &app, nil
}

// SetApplicationByAPIKey 写入应用缓存，app 为 nil 时写入空值标记防穿透
func SetApplicationByAPIKey(ctx context.Context, apiKey string, app *model.Application) error {
	if app == nil {
		return ApplicationProtectedCache.Set(ctx, apiKey, nil)
	}
	return ApplicationProtectedCache.Set(ctx, apiKey, app)
}

// InvalidateApplication 应用变更（改名、换 key、增删接收人）后使缓存失效
func InvalidateApplication(ctx context.Context, apiKeys ...string) error {
	if len(apiKeys) == 0 {
		return nil
	}
	return ApplicationProtectedCache.BatchDelete(ctx, apiKeys)
}

// InvalidateUserApplications 按用户使应用缓存失效，key 为应用 API Key 列表
func InvalidateUserApplications(ctx context.Context, apps []model.Application) error {
	keys := make([]string, 0, len(apps))
	for _, app := range apps {
		keys = append(keys, app.APIKey)
	}
	return InvalidateApplication(ctx, keys...)
}
