package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"ConsoleExt/internal/handler"
	"ConsoleExt/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())
	v1 := h.Group("/v1")

	// 告警上报路由，由应用 API Key 鉴权，不走用户 JWT
	v1.POST("/ingest", middleware.IngestRateLimitMiddleware(), middleware.APIKeyMiddleware(), handler.IngestNotification)

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware()) // 认证接口限流
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/token/refresh", handler.RefreshToken)
		auth.POST("/logout", middleware.AuthMiddleware(), handler.Logout)
	}

	// 用户相关路由
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware()) // 需要鉴权的路由组
	{
		users.GET("/me", handler.GetUserProfile)
		users.PUT("/me/settings", middleware.UserSettingsRateLimitMiddleware(), handler.UpdateUserSettings)
	}

	// 应用与接收人路由
	applications := v1.Group("/applications")
	applications.Use(middleware.AuthMiddleware())
	{
		applications.GET("", handler.ListApplications)
		applications.POST("", handler.CreateApplication)
		applications.DELETE("/:application_id", handler.DeleteApplication)
		applications.POST("/:application_id/api-key/rotate", handler.RotateAPIKey)
		applications.POST("/:application_id/recipients", handler.AddRecipient)
		applications.PATCH("/:application_id/recipients/:index", handler.UpdateRecipient)
		applications.DELETE("/:application_id/recipients/:index", handler.RemoveRecipient)
	}

	// 通知查询路由
	notifications := v1.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", handler.ListNotifications)
		notifications.GET("/:notification_id", handler.GetNotificationDetail)
		notifications.POST("/:notification_id/resolve", handler.ResolveNotification)
	}
}
