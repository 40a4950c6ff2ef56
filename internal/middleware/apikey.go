package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/service"
	"ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/response"
)

// ApplicationKey 上报鉴权后存入请求上下文的应用对象键
const ApplicationKey = "ingest_application"

// APIKeyMiddleware 告警上报鉴权：X-API-Key 换取应用
func APIKeyMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		apiKey := string(c.GetHeader("X-API-Key"))
		if apiKey == "" {
			c.Abort()
			response.Error(ctx, c, errors.APIKeyInvalid)
			return
		}

		app, err := service.Application().GetByAPIKey(ctx, apiKey)
		if err != nil {
			c.Abort()
			response.Error(ctx, c, err)
			return
		}

		c.Set(ApplicationKey, app)
		c.Next(ctx)
	}
}

// GetApplication 从请求上下文中取出鉴权通过的应用
func GetApplication(c *app.RequestContext) (*model.Application, bool) {
	value, exists := c.Get(ApplicationKey)
	if !exists {
		return nil, false
	}
	app, ok := value.(*model.Application)
	return app, ok
}
