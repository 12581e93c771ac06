// Package service 分析流水线服务装配层
package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wearable-analytics/internal/cache"
	"wearable-analytics/internal/config"
	"wearable-analytics/internal/consumer"
	"wearable-analytics/internal/export"
	"wearable-analytics/internal/metrics"
	"wearable-analytics/internal/models"
	"wearable-analytics/internal/notify"
	"wearable-analytics/internal/pipeline"
	"wearable-analytics/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wearable-analytics/internal/common/database"
	mqttcommon "wearable-analytics/internal/common/mqtt"
	rediscommon "wearable-analytics/internal/common/redis"
)

// AnalyticsService 分析流水线服务
//
// 装配数据库、Redis、可选 MQTT 采集链路与流水线运行器，
// 并实现消费者的运行回调：重算 -> 物化 -> 缓存 -> 发布 -> 通知 -> 导出。
type AnalyticsService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	measurements *repository.MeasurementsRepository
	features     *repository.FeaturesRepository
	runner       *pipeline.Runner
	summaryCache *cache.SummaryCache
	notifier     *notify.WebhookNotifier

	streamConsumer *consumer.StreamConsumer
	mqttConsumer   *consumer.MQTTConsumer
	metricsServer  *metrics.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAnalyticsService 创建分析流水线服务
func NewAnalyticsService(cfg *config.Config, logger *zap.Logger) (*AnalyticsService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 2. 连接Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	ctx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 3. 初始化仓库与流水线
	measurements := repository.NewMeasurementsRepository(db, logger)
	sessions := repository.NewSessionsRepository(db, logger)
	features := repository.NewFeaturesRepository(db, logger)

	source := repository.NewAnalyticsSource(measurements, sessions)
	runner := pipeline.NewRunner(source, features, logger)

	summaryCache := cache.NewSummaryCache(cache.NewRedisKVStore(redisClient), cfg.Pipeline.CacheTTL, logger)

	svc := &AnalyticsService{
		config:       cfg,
		logger:       logger,
		db:           db,
		redisClient:  redisClient,
		measurements: measurements,
		features:     features,
		runner:       runner,
		summaryCache: summaryCache,
	}

	if cfg.Notify.WebhookURL != "" {
		svc.notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, logger)
	}

	// 4. 可选的 MQTT 实时采集链路
	if cfg.Ingest.Enabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT)
		if err != nil {
			rediscommon.Close(redisClient)
			database.Close(db)
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		svc.mqttClient = mqttClient
		svc.mqttConsumer = consumer.NewMQTTConsumer(cfg, mqttClient, redisClient, logger)
	}

	// 5. 消费者与指标服务
	svc.streamConsumer = consumer.NewStreamConsumer(cfg, redisClient, &countingWriter{repo: measurements}, svc, logger)
	svc.metricsServer = metrics.NewServer(cfg.Metrics.Addr, logger)

	return svc, nil
}

// Start 启动服务
func (s *AnalyticsService) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.metricsServer.Start(); err != nil {
			s.logger.Error("Metrics server stopped with error", zap.Error(err))
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.streamConsumer.Start(runCtx); err != nil {
			s.logger.Error("Stream consumer stopped with error", zap.Error(err))
		}
	}()

	if s.mqttConsumer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.mqttConsumer.Start(runCtx); err != nil {
				s.logger.Error("MQTT consumer stopped with error", zap.Error(err))
			}
		}()
	}

	s.logger.Info("Analytics service started",
		zap.Bool("mqtt_ingest", s.mqttConsumer != nil),
		zap.String("metrics_addr", s.config.Metrics.Addr),
	)

	return nil
}

// Stop 优雅停止服务
func (s *AnalyticsService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping analytics service")

	if s.cancel != nil {
		s.cancel()
	}

	if s.mqttConsumer != nil {
		if err := s.mqttConsumer.Stop(ctx); err != nil {
			s.logger.Error("Failed to stop MQTT consumer", zap.Error(err))
		}
		s.mqttClient.Disconnect()
	}

	if err := s.metricsServer.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop metrics server", zap.Error(err))
	}

	s.wg.Wait()

	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Analytics service stopped")
	return nil
}

// HandleRun 执行一次流水线运行并分发结果（实现 consumer.RunHandler）
//
// 运行本身失败时返回错误；下游分发（缓存、发布、通知、导出）
// 失败只记录日志，不影响已经物化的结果。
func (s *AnalyticsService) HandleRun(ctx context.Context, trigger string) error {
	start := time.Now()

	run, err := s.runner.Run(ctx, trigger)
	if err != nil {
		metrics.RunsFailed.Inc()
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	metrics.RunsCompleted.Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.ImplausibleValues.WithLabelValues(models.SignalHR).Add(float64(run.ImplausibleHR))
	metrics.ImplausibleValues.WithLabelValues(models.SignalIBI).Add(float64(run.ImplausibleIBI))

	summaries, err := s.features.GetSessionSummaries(ctx)
	if err != nil {
		s.logger.Error("Failed to read session summaries after run",
			zap.String("run_id", run.RunID),
			zap.Error(err),
		)
		summaries = nil
	}

	if err := s.summaryCache.CacheRunResults(ctx, run, summaries); err != nil {
		s.logger.Error("Failed to cache run results",
			zap.String("run_id", run.RunID),
			zap.Error(err),
		)
	}

	if _, err := rediscommon.PublishJSONToStream(ctx, s.redisClient, s.config.Pipeline.Streams.Output, run); err != nil {
		s.logger.Error("Failed to publish run summary to output stream",
			zap.String("run_id", run.RunID),
			zap.String("stream", s.config.Pipeline.Streams.Output),
			zap.Error(err),
		)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRunCompleted(run); err != nil {
			s.logger.Error("Failed to notify webhook",
				zap.String("run_id", run.RunID),
				zap.Error(err),
			)
		}
	}

	if s.config.Export.ReportDir != "" {
		if err := s.exportReport(ctx, run, summaries); err != nil {
			s.logger.Error("Failed to export analytics report",
				zap.String("run_id", run.RunID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// exportReport 生成并落盘本次运行的 Excel 报告
func (s *AnalyticsService) exportReport(ctx context.Context, run *models.RunSummary, summaries []models.SessionSummary) error {
	profiles, err := s.features.GetSubjectProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to read subject profiles: %w", err)
	}

	data, err := export.GenerateAnalyticsReport(summaries, profiles)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.MkdirAll(s.config.Export.ReportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(s.config.Export.ReportDir, fmt.Sprintf("analytics-report-%s.xlsx", run.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	s.logger.Info("Analytics report exported",
		zap.String("run_id", run.RunID),
		zap.String("path", path),
	)
	return nil
}

// countingWriter 落库计数包装（指标用）
type countingWriter struct {
	repo *repository.MeasurementsRepository
}

func (w *countingWriter) BatchInsert(ctx context.Context, measurements []models.Measurement) error {
	if err := w.repo.BatchInsert(ctx, measurements); err != nil {
		return err
	}
	metrics.SamplesIngested.Add(float64(len(measurements)))
	return nil
}
