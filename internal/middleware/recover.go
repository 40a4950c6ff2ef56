package middleware

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"ConsoleExt/config"
	"ConsoleExt/pkg/errors"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 堆栈追踪级别（full 抓所有 goroutine，simple 只抓当前调用栈，none 不抓）
	StackTraceLevel string
	// 生产环境是否在响应里返回 panic 详情
	ExposeDetails bool
	// 是否记录请求头和请求体
	LogRequestDetails bool
	// 严重 panic 回调，可接入告警
	OnSeverePanic func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte)
	// 是否是生产环境
	IsProduction bool
}

// NewRecoverConfig 创建 recover 配置
func NewRecoverConfig() RecoverConfig {
	return RecoverConfig{
		StackTraceLevel:   "simple",
		ExposeDetails:     false,
		LogRequestDetails: true,
		IsProduction:      config.Cfg.IsProduction(),
	}
}

// RecoverMiddleware 兜底 panic，保证单个请求崩溃不影响进程
func RecoverMiddleware() app.HandlerFunc {
	return RecoverMiddlewareWithConfig(NewRecoverConfig())
}

// RecoverMiddlewareWithConfig 带配置的 recover 中间件
func RecoverMiddlewareWithConfig(cfg RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				stack := captureStack(cfg.StackTraceLevel)
				logPanic(ctx, c, err, stack, cfg)

				if cfg.OnSeverePanic != nil && isSeverePanic(err) {
					cfg.OnSeverePanic(ctx, c, err, stack)
				}

				writePanicResponse(c, err, stack, cfg)
			}
		}()

		c.Next(ctx)
	}
}

// writePanicResponse 返回 500，生产环境不暴露 panic 细节
func writePanicResponse(c *app.RequestContext, err interface{}, stack []byte, cfg RecoverConfig) {
	if cfg.IsProduction && !cfg.ExposeDetails {
		response.Error(context.Background(), c, errors.Definition{
			Code:    "INTERNAL_SERVER_ERROR",
			Message: "服务器内部错误，请稍后重试",
		})
		return
	}

	details := map[string]interface{}{
		"panic":     fmt.Sprintf("%v", err),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if len(stack) > 0 {
		details["stack"] = string(stack)
	}

	response.ErrorWithDetails(context.Background(), c, errors.Definition{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: fmt.Sprintf("Internal error: %v", err),
	}, details)
}

func captureStack(level string) []byte {
	switch level {
	case "full":
		return debug.Stack()
	case "simple":
		var buf bytes.Buffer
		buf.WriteString("goroutine panic:\n")
		// 跳过 runtime 和 recover 相关的帧
		for i := 3; ; i++ {
			pc, file, line, ok := runtime.Caller(i)
			if !ok {
				break
			}
			fn := runtime.FuncForPC(pc)
			if fn == nil {
				continue
			}
			fmt.Fprintf(&buf, "  %s:%d\n    %s\n", file, line, fn.Name())
		}
		return buf.Bytes()
	default:
		return nil
	}
}

func logPanic(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte, cfg RecoverConfig) {
	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", string(c.GetHeader("X-Request-Id"))),
	}

	if userID, exists := GetUserID(ctx, c); exists {
		fields = append(fields, zap.String("user_id", userID))
	}

	if cfg.LogRequestDetails {
		headers := make(map[string]string)
		c.Request.Header.VisitAll(func(key, value []byte) {
			headers[string(key)] = string(value)
		})
		fields = append(fields, zap.Any("headers", headers))

		// 请求体只记录小的文本负载，上报请求体里可能有大段堆栈
		body := c.Request.Body()
		if len(body) > 0 && len(body) < 1024 {
			if contentType := string(c.ContentType()); !strings.Contains(contentType, "multipart") {
				fields = append(fields, zap.String("body", string(body)))
			}
		}
	}

	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}

	logger.Logger.Error("[PANIC RECOVERED]", fields...)
}

// isSeverePanic 判断是否为需要额外告警的严重 panic
func isSeverePanic(err interface{}) bool {
	if err == nil {
		return false
	}

	errStr := fmt.Sprintf("%v", err)
	severePatterns := []string{
		"runtime: out of memory",
		"fatal error:",
		"concurrent map writes",
		"concurrent map read and map write",
		"all goroutines are asleep - deadlock!",
	}

	for _, pattern := range severePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
