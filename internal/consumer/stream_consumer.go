package consumer

import (
	"context"
	"fmt"
	"time"

	"wearable-analytics/internal/config"
	"wearable-analytics/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscommon "wearable-analytics/internal/common/redis"
)

// MeasurementWriter 实时样本的落库端
type MeasurementWriter interface {
	BatchInsert(ctx context.Context, measurements []models.Measurement) error
}

// RunHandler 流水线运行回调（由 service 层实现：运行、缓存、发布、通知）
type RunHandler interface {
	HandleRun(ctx context.Context, trigger string) error
}

// StreamConsumer Redis Streams 消费者
//
// 消费两个流：
// - raw 流：设备实时样本（MQTT 采集链路发布），逐条落库
// - trigger 流：运行触发事件（加载器发布），触发整体重算
// 一个批次内多条触发事件只运行一次（整体重算是幂等的，没必要重复）。
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	writer      MeasurementWriter
	runner      RunHandler
	logger      *zap.Logger
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	writer MeasurementWriter,
	runner RunHandler,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		writer:      writer,
		runner:      runner,
		logger:      logger,
	}
}

// Start 启动消费者
func (c *StreamConsumer) Start(ctx context.Context) error {
	// 创建消费者组
	streams := []string{
		c.config.Pipeline.Streams.Raw,
		c.config.Pipeline.Streams.Trigger,
	}

	for _, stream := range streams {
		if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, c.config.Pipeline.ConsumerGroup); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
		}
	}

	c.logger.Info("Stream consumer started",
		zap.String("consumer_group", c.config.Pipeline.ConsumerGroup),
		zap.String("consumer_name", c.config.Pipeline.ConsumerName),
	)

	// 周期性兜底重算（可选）
	var recomputeTicker *time.Ticker
	var recomputeCh <-chan time.Time
	if c.config.Pipeline.RecomputeInterval > 0 {
		recomputeTicker = time.NewTicker(c.config.Pipeline.RecomputeInterval)
		recomputeCh = recomputeTicker.C
		defer recomputeTicker.Stop()
	}

	// 消费循环（指数退避）
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-recomputeCh:
			if err := c.runner.HandleRun(ctx, "interval"); err != nil {
				c.logger.Error("Scheduled recompute failed", zap.Error(err))
			}
		default:
			rawErr := c.consumeRaw(ctx)
			triggerErr := c.consumeTrigger(ctx)

			// 两个流都出错时才退避
			if rawErr != nil && triggerErr != nil {
				c.logger.Error("Failed to consume streams",
					zap.Error(rawErr),
					zap.NamedError("trigger_error", triggerErr),
					zap.Duration("backoff", backoffDuration),
				)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second

				if rawErr != nil {
					c.logger.Error("Failed to consume raw stream", zap.Error(rawErr))
				}
				if triggerErr != nil {
					c.logger.Error("Failed to consume trigger stream", zap.Error(triggerErr))
				}
			}
		}
	}
}

// consumeRaw 消费实时样本流并落库
func (c *StreamConsumer) consumeRaw(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.config.Pipeline.Streams.Raw,
		c.config.Pipeline.ConsumerGroup,
		c.config.Pipeline.ConsumerName,
		c.config.Pipeline.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from raw stream: %w", err)
	}

	var batch []models.Measurement
	var ackIDs []string

	for _, msg := range messages {
		var sample models.RawSample
		if err := models.ParseStreamJSON(msg.Values, &sample); err != nil {
			c.logger.Error("Failed to parse raw sample",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			// 格式错误的消息确认后丢弃，避免反复投递
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		if err := sample.Validate(); err != nil {
			c.logger.Warn("Dropping invalid raw sample",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		batch = append(batch, sample.ToMeasurement(uuid.New().String()))
		ackIDs = append(ackIDs, msg.ID)
	}

	if len(batch) > 0 {
		if err := c.writer.BatchInsert(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert raw samples: %w", err)
		}
	}

	for _, id := range ackIDs {
		if err := rediscommon.AckMessage(ctx, c.redisClient, c.config.Pipeline.Streams.Raw, c.config.Pipeline.ConsumerGroup, id); err != nil {
			c.logger.Warn("Failed to ack raw message", zap.String("message_id", id), zap.Error(err))
		}
	}

	return nil
}

// consumeTrigger 消费触发流，一个批次最多触发一次整体重算
func (c *StreamConsumer) consumeTrigger(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		c.config.Pipeline.Streams.Trigger,
		c.config.Pipeline.ConsumerGroup,
		c.config.Pipeline.ConsumerName,
		c.config.Pipeline.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from trigger stream: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	for _, msg := range messages {
		var event models.TriggerEvent
		if err := models.ParseStreamJSON(msg.Values, &event); err != nil {
			c.logger.Error("Failed to parse trigger event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		} else {
			c.logger.Info("Received pipeline trigger",
				zap.String("reason", event.Reason),
				zap.String("session_id", event.SessionID),
				zap.String("source", event.Source),
			)
		}

		if err := rediscommon.AckMessage(ctx, c.redisClient, c.config.Pipeline.Streams.Trigger, c.config.Pipeline.ConsumerGroup, msg.ID); err != nil {
			c.logger.Warn("Failed to ack trigger message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	if err := c.runner.HandleRun(ctx, "stream"); err != nil {
		return fmt.Errorf("failed to run pipeline: %w", err)
	}

	return nil
}
