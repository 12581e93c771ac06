package pipeline

import (
	"context"
	"fmt"
	"time"

	"wearable-analytics/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SourceStore 流水线输入（事实表与维表的只读访问）
type SourceStore interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	ListMeasurements(ctx context.Context, sessionID string) ([]models.Measurement, error)
}

// FeatureStore 派生表的写入端（整体替换语义）
type FeatureStore interface {
	ReplaceAll(ctx context.Context, results *Results) error
}

// Results 一次完整计算的全部派生输出
type Results struct {
	Windows          []models.WindowedFeature
	Baselines        []models.Baseline
	Stress           []models.StressFeature
	HRV              []models.HRVFeature
	Zones            []models.ZoneMinute
	SessionSummaries []models.SessionSummary
	SubjectProfiles  []models.SubjectProfile

	// 数据质量计数（仅监控）
	ImplausibleHR  int
	ImplausibleIBI int
}

// ComputeAll 对给定输入执行全部四个阶段
//
// 纯函数：相同输入产生完全相同（含排序）的输出，重复运行幂等。
// 各阶段只读取上一阶段的输出，无反馈回路、无共享可变状态。
func ComputeAll(subjects []models.Subject, sessions []models.Session, measurements []models.Measurement) *Results {
	r := &Results{}

	r.Windows = ComputeWindows(measurements)
	r.Baselines = ComputeBaselines(r.Windows, sessions)
	r.Stress = ComputeStress(r.Windows, r.Baselines)

	hrv := ComputeHRV(measurements)
	r.HRV = hrv.Features
	r.ImplausibleIBI = hrv.ImplausibleIBI

	zones := ComputeZones(measurements, sessions, subjects)
	r.Zones = zones.Rows
	r.ImplausibleHR = zones.ImplausibleHR

	r.SessionSummaries = ComputeSessionSummaries(sessions, r.Windows, r.Stress, r.HRV, r.Zones)
	r.SubjectProfiles = ComputeSubjectProfiles(subjects, r.SessionSummaries, r.Stress, r.HRV, r.Zones)

	return r
}

// Runner 流水线运行器：读取输入、整体重算、drop-and-replace 写回
type Runner struct {
	source   SourceStore
	features FeatureStore
	logger   *zap.Logger
}

// NewRunner 创建流水线运行器
func NewRunner(source SourceStore, features FeatureStore, logger *zap.Logger) *Runner {
	return &Runner{
		source:   source,
		features: features,
		logger:   logger,
	}
}

// Run 执行一次完整的流水线运行
//
// 没有增量更新语义：每次运行从输入整体重算所有派生表。
// 失败时上一次的物化结果保持不变，重新运行是唯一的恢复机制。
func (r *Runner) Run(ctx context.Context, trigger string) (*models.RunSummary, error) {
	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	r.logger.Info("Starting pipeline run",
		zap.String("run_id", runID),
		zap.String("trigger", trigger),
	)

	subjects, err := r.source.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	sessions, err := r.source.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var measurements []models.Measurement
	for _, s := range sessions {
		rows, err := r.source.ListMeasurements(ctx, s.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list measurements for session %s: %w", s.SessionID, err)
		}
		measurements = append(measurements, rows...)
	}

	results := ComputeAll(subjects, sessions, measurements)

	if err := r.features.ReplaceAll(ctx, results); err != nil {
		return nil, fmt.Errorf("failed to replace derived tables: %w", err)
	}

	summary := &models.RunSummary{
		RunID:          runID,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
		Trigger:        trigger,
		SessionsIn:     len(sessions),
		WindowCount:    len(results.Windows),
		HRVWindows:     len(results.HRV),
		StressRows:     len(results.Stress),
		ZoneRows:       len(results.Zones),
		Subjects:       len(results.SubjectProfiles),
		ImplausibleHR:  results.ImplausibleHR,
		ImplausibleIBI: results.ImplausibleIBI,
	}

	r.logger.Info("Pipeline run finished",
		zap.String("run_id", runID),
		zap.Int("sessions", summary.SessionsIn),
		zap.Int("windows", summary.WindowCount),
		zap.Int("hrv_windows", summary.HRVWindows),
		zap.Int("zone_rows", summary.ZoneRows),
		zap.Int("implausible_hr", summary.ImplausibleHR),
		zap.Int("implausible_ibi", summary.ImplausibleIBI),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}
