package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Database != "wearable" {
		t.Errorf("Expected DB_NAME default 'wearable', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.Pipeline.Streams.Raw != "wearable:raw:stream" {
		t.Errorf("Expected STREAM_RAW default 'wearable:raw:stream', got '%s'", cfg.Pipeline.Streams.Raw)
	}

	if cfg.Pipeline.ConsumerGroup != "analytics-pipeline-group" {
		t.Errorf("Expected CONSUMER_GROUP default 'analytics-pipeline-group', got '%s'", cfg.Pipeline.ConsumerGroup)
	}

	if cfg.Pipeline.RecomputeInterval != 0 {
		t.Errorf("Expected RECOMPUTE_INTERVAL default 0, got %v", cfg.Pipeline.RecomputeInterval)
	}

	if cfg.Pipeline.CacheTTL != 24*time.Hour {
		t.Errorf("Expected CACHE_TTL default 24h, got %v", cfg.Pipeline.CacheTTL)
	}

	if cfg.Ingest.Enabled {
		t.Error("Expected INGEST_MQTT_ENABLED default false")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("STREAM_TRIGGER", "test:trigger")
	os.Setenv("RECOMPUTE_INTERVAL", "15m")
	os.Setenv("INGEST_MQTT_ENABLED", "true")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Pipeline.Streams.Trigger != "test:trigger" {
		t.Errorf("Expected STREAM_TRIGGER 'test:trigger', got '%s'", cfg.Pipeline.Streams.Trigger)
	}

	if cfg.Pipeline.RecomputeInterval != 15*time.Minute {
		t.Errorf("Expected RECOMPUTE_INTERVAL 15m, got %v", cfg.Pipeline.RecomputeInterval)
	}

	if !cfg.Ingest.Enabled {
		t.Error("Expected INGEST_MQTT_ENABLED true")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}
