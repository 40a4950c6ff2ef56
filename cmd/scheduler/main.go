package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ConsoleExt/config"
	"ConsoleExt/internal/cache"
	"ConsoleExt/internal/service"
	"ConsoleExt/pkg/logger"
	"ConsoleExt/pkg/snowflake"
	"ConsoleExt/pkg/telephony"
	"ConsoleExt/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 考虑与 worker 和 server 作区分
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	// 补偿扫描只重新投递消息，但通知服务初始化需要投递通道
	if err := telephony.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize telephony client", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", "consoleext-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	go runPendingSweepLoop(ctx)

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runPendingSweepLoop 周期性补偿扫描：把派发消息丢失、仍卡在 pending 的通知重新投递
// 多实例部署时通过 Redis 锁保证同一时刻只有一个实例扫描
func runPendingSweepLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.PendingSweepInterval) * time.Minute
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
		logger.Logger.Info("Pending sweep loop running in development mode with 1m interval")
	}

	age := time.Duration(config.Cfg.PendingSweepAge) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			acquired, err := cache.TryLock(ctx, "pending_sweep", interval)
			if err != nil {
				logger.Logger.Warn("Failed to acquire sweep lock", zap.Error(err))
				continue
			}
			if !acquired {
				logger.Logger.Debug("Sweep lock held by another instance, skipping")
				continue
			}

			runCtx, cancelRun := context.WithTimeout(ctx, 2*time.Minute)
			count, err := service.Notification().SweepPendingNotifications(runCtx, age)
			if err != nil {
				logger.Logger.Error("Pending sweep run failed", zap.Error(err))
			} else if count > 0 {
				logger.Logger.Info("Pending sweep completed", zap.Int("republished", count))
			}
			cancelRun()

			if err := cache.Unlock(ctx, "pending_sweep"); err != nil {
				logger.Logger.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}
	}
}
