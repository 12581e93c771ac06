package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wearable-analytics/internal/models"

	"go.uber.org/zap"
)

// 缓存键格式
const (
	sessionSummaryKeyFormat = "analytics:session:%s:summary"
	latestRunKey            = "analytics:run:latest"
)

// SummaryCache 会话汇总缓存
//
// 每次流水线运行后把最新的会话级汇总与运行摘要写入 Redis，
// 供下游看板/卡片类消费方直接读取，避免每次查询派生表。
type SummaryCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSummaryCache 创建会话汇总缓存
func NewSummaryCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	return &SummaryCache{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

// CacheRunResults 缓存一次运行的输出
// 单条缓存失败记录日志后继续，不中断整体流程
func (c *SummaryCache) CacheRunResults(ctx context.Context, run *models.RunSummary, summaries []models.SessionSummary) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := c.kv.Set(ctx, latestRunKey, string(runJSON), c.ttl); err != nil {
		return fmt.Errorf("failed to cache run summary: %w", err)
	}

	for _, s := range summaries {
		summaryJSON, err := json.Marshal(s)
		if err != nil {
			c.logger.Warn("Failed to marshal session summary",
				zap.String("session_id", s.SessionID),
				zap.Error(err),
			)
			continue
		}

		key := fmt.Sprintf(sessionSummaryKeyFormat, s.SessionID)
		if err := c.kv.Set(ctx, key, string(summaryJSON), c.ttl); err != nil {
			c.logger.Warn("Failed to cache session summary",
				zap.String("session_id", s.SessionID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// GetSessionSummary 读取缓存的会话汇总
func (c *SummaryCache) GetSessionSummary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	key := fmt.Sprintf(sessionSummaryKeyFormat, sessionID)

	val, err := c.kv.Get(ctx, key)
	if err != nil {
		if err == ErrCacheMiss {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get session summary: %w", err)
	}

	var summary models.SessionSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session summary: %w", err)
	}

	return &summary, nil
}

// GetLatestRun 读取最近一次运行的摘要
func (c *SummaryCache) GetLatestRun(ctx context.Context) (*models.RunSummary, error) {
	val, err := c.kv.Get(ctx, latestRunKey)
	if err != nil {
		if err == ErrCacheMiss {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var run models.RunSummary
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}

	return &run, nil
}
