package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wearable-analytics/internal/common/logger"
	"wearable-analytics/internal/config"
	"wearable-analytics/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wearable-analytics")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting wearable-analytics service",
		zap.String("raw_stream", cfg.Pipeline.Streams.Raw),
		zap.String("trigger_stream", cfg.Pipeline.Streams.Trigger),
		zap.String("output_stream", cfg.Pipeline.Streams.Output),
		zap.Bool("mqtt_ingest", cfg.Ingest.Enabled),
	)

	// 创建服务
	analyticsService, err := service.NewAnalyticsService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create analytics service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := analyticsService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start analytics service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	cancel()
	if err := analyticsService.Stop(context.Background()); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
