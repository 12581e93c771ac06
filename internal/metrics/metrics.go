// Package metrics 暴露流水线运行指标（Prometheus）
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wearable_pipeline_runs_completed_total",
		Help: "Total number of completed pipeline runs.",
	})
	RunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wearable_pipeline_runs_failed_total",
		Help: "Total number of failed pipeline runs.",
	})
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wearable_pipeline_run_duration_seconds",
		Help:    "Duration of a full pipeline run.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	SamplesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wearable_pipeline_samples_ingested_total",
		Help: "Total number of raw samples ingested from streams.",
	})
	ImplausibleValues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wearable_pipeline_implausible_values_total",
		Help: "Total number of implausible raw values filtered before feature computation.",
	}, []string{"signal"})
)

// Server 指标与健康检查 HTTP 监听
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer 创建指标服务
func NewServer(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start 启动监听（阻塞直到关闭）
func (s *Server) Start() error {
	s.logger.Info("Metrics server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
