package telephony

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ConsoleExt/config"
	"ConsoleExt/pkg/logger"
)

// Client 告警投递通道接口，短信 + 语音外呼
type Client interface {
	// SendSMS 向单个手机号发送告警短信
	SendSMS(ctx context.Context, phone, message string) error

	// PlaceCall 向单个手机号发起语音外呼，message 为播报文本
	PlaceCall(ctx context.Context, phone, message string) error
}

var (
	client     Client
	clientOnce sync.Once
	clientErr  error
)

// Init 初始化投递通道客户端
func Init() error {
	clientOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.SMSProvider {
		case "aliyun":
			client, clientErr = NewAliyunClient()
		case "mock":
			client = NewMockClient()
		default:
			clientErr = fmt.Errorf("unsupported telephony provider: %s", cfg.SMSProvider)
		}

		if clientErr != nil {
			logger.Logger.Error("Failed to initialize telephony client", zap.Error(clientErr))
			return
		}

		logger.Logger.Info("Telephony client initialized successfully",
			zap.String("provider", cfg.SMSProvider),
		)
	})

	return clientErr
}

func GetClient() Client {
	if client == nil {
		panic("telephony client not initialized, call telephony.Init() first")
	}
	return client
}
