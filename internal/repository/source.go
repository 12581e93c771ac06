package repository

import (
	"context"

	"wearable-analytics/internal/models"
)

// AnalyticsSource 组合测量与维表仓库，作为流水线的只读输入端
// （实现 pipeline.SourceStore）
type AnalyticsSource struct {
	measurements *MeasurementsRepository
	sessions     *SessionsRepository
}

// NewAnalyticsSource 创建流水线输入源
func NewAnalyticsSource(measurements *MeasurementsRepository, sessions *SessionsRepository) *AnalyticsSource {
	return &AnalyticsSource{
		measurements: measurements,
		sessions:     sessions,
	}
}

func (s *AnalyticsSource) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.sessions.ListSubjects(ctx)
}

func (s *AnalyticsSource) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.sessions.ListSessions(ctx)
}

func (s *AnalyticsSource) ListMeasurements(ctx context.Context, sessionID string) ([]models.Measurement, error) {
	return s.measurements.ListBySession(ctx, sessionID)
}
