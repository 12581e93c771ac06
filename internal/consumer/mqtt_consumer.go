package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wearable-analytics/internal/config"
	"wearable-analytics/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	mqttcommon "wearable-analytics/internal/common/mqtt"
	rediscommon "wearable-analytics/internal/common/redis"
)

// MQTTConsumer MQTT消息消费者
//
// 实时采集链路：穿戴设备按主题 wearable/{subject_id}/samples 发布样本，
// 消费者校验后转发到 Redis Streams 的 raw 流，由 Stream 消费者落库。
type MQTTConsumer struct {
	config      *config.Config
	mqttClient  *mqttcommon.Client
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	redisClient *redis.Client,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:      cfg,
		mqttClient:  mqttClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Ingest.Topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to samples topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.config.Ingest.Topic),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Ingest.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	// 1. 从主题中提取受试者编号
	// 主题格式: wearable/{subject_id}/samples
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	subjectID := parts[1]

	// 2. 解析样本（单条或数组）
	samples, err := parseSamplePayload(payload)
	if err != nil {
		c.logger.Error("Failed to unmarshal MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	// 3. 校验并转发到 Redis Streams
	published := 0
	for _, sample := range samples {
		if sample.SubjectID == "" {
			sample.SubjectID = subjectID
		}
		if err := sample.Validate(); err != nil {
			c.logger.Warn("Dropping invalid sample",
				zap.String("topic", topic),
				zap.Error(err),
			)
			continue
		}

		if _, err := rediscommon.PublishJSONToStream(context.Background(), c.redisClient, c.config.Pipeline.Streams.Raw, sample); err != nil {
			c.logger.Error("Failed to publish to Redis Streams",
				zap.String("stream", c.config.Pipeline.Streams.Raw),
				zap.Error(err),
			)
			return fmt.Errorf("failed to publish to stream: %w", err)
		}
		published++
	}

	c.logger.Debug("Published wearable samples to Redis Streams",
		zap.String("subject_id", subjectID),
		zap.Int("published", published),
	)

	return nil
}

// parseSamplePayload 兼容单条对象与数组两种负载
func parseSamplePayload(payload []byte) ([]models.RawSample, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var samples []models.RawSample
		if err := json.Unmarshal(payload, &samples); err != nil {
			return nil, err
		}
		return samples, nil
	}

	var sample models.RawSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, err
	}
	return []models.RawSample{sample}, nil
}
