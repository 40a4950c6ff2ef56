package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ConsoleExt/config"
	"ConsoleExt/internal/queue"
	"ConsoleExt/internal/service"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/metrics"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/pkg/telephony"
	"ConsoleExt/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := telephony.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize telephony client", zap.Error(err))
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
	}

	// 派发编排与升级调度都在 worker 进程内
	queue.SetDispatcher(service.Notification())

	logger.Logger.Info("Worker service starting",
		zap.String("service", "consoleext-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 阻塞消费派发消息，直到连接关闭或收到退出信号
	if err := queue.StartAllConsumers(ctx); err != nil {
		logger.Logger.Error("Consumer exited with error", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
