// Package notify 将流水线运行结果推送给下游系统
package notify

import (
	"fmt"
	"time"

	"wearable-analytics/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier 运行完成 webhook 通知器
//
// 每次流水线运行完成后把运行摘要 POST 到配置的地址，
// 供外部报表/调度系统感知数据已刷新。
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier 创建 webhook 通知器
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// NotifyRunCompleted 推送运行摘要
func (n *WebhookNotifier) NotifyRunCompleted(run *models.RunSummary) error {
	resp, err := n.httpClient.R().
		SetBody(run).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post run summary: %w", err)
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}

	n.logger.Info("Run summary delivered to webhook",
		zap.String("run_id", run.RunID),
		zap.Int("status", resp.StatusCode()),
	)

	return nil
}
