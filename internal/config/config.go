package config

import (
	"os"
	"strconv"
	"time"

	"wearable-analytics/internal/common/config"
)

// Config 分析流水线服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 流水线服务特定配置
	Pipeline struct {
		// Redis Streams 配置
		Streams struct {
			Raw     string // 设备实时样本流，如 "wearable:raw:stream"
			Trigger string // 运行触发流，如 "analytics:trigger:stream"
			Output  string // 运行结果输出流，如 "analytics:runs:stream"
		}
		ConsumerGroup string // 消费者组名称
		ConsumerName  string // 消费者名称
		BatchSize     int64  // 批量处理大小

		// 周期性兜底重算间隔；0 表示仅按触发事件运行
		RecomputeInterval time.Duration

		// 会话汇总缓存 TTL
		CacheTTL time.Duration
	}

	// MQTT 实时采集（可选）
	Ingest struct {
		Enabled bool
		Topic   string // 如 "wearable/+/samples"
	}

	// 运行完成 webhook（可选，为空则不通知）
	Notify struct {
		WebhookURL string
	}

	// 运行报告导出（可选，为空则不导出）
	Export struct {
		ReportDir string
	}

	Metrics struct {
		Addr string // /metrics 与 /healthz 监听地址
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "wearable")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wearable-analytics")
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTT.QoS = 1

	// 流水线配置
	cfg.Pipeline.Streams.Raw = getEnv("STREAM_RAW", "wearable:raw:stream")
	cfg.Pipeline.Streams.Trigger = getEnv("STREAM_TRIGGER", "analytics:trigger:stream")
	cfg.Pipeline.Streams.Output = getEnv("STREAM_OUTPUT", "analytics:runs:stream")
	cfg.Pipeline.ConsumerGroup = getEnv("CONSUMER_GROUP", "analytics-pipeline-group")
	cfg.Pipeline.ConsumerName = getEnv("CONSUMER_NAME", "analytics-pipeline-1")
	cfg.Pipeline.BatchSize = 10
	cfg.Pipeline.RecomputeInterval = getEnvDuration("RECOMPUTE_INTERVAL", 0)
	cfg.Pipeline.CacheTTL = getEnvDuration("CACHE_TTL", 24*time.Hour)

	cfg.Ingest.Enabled = getEnvBool("INGEST_MQTT_ENABLED", false)
	cfg.Ingest.Topic = getEnv("INGEST_MQTT_TOPIC", "wearable/+/samples")

	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Export.ReportDir = getEnv("EXPORT_REPORT_DIR", "")

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9102")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
