package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"go.uber.org/zap"
)

// FeaturesRepository 派生特征表仓库
//
// 所有派生表采用 drop-and-replace 语义：每次流水线运行在单个事务内
// TRUNCATE 后整体重写。事务失败时上一次的物化结果保持不变。
type FeaturesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFeaturesRepository 创建特征仓库
func NewFeaturesRepository(db *sql.DB, logger *zap.Logger) *FeaturesRepository {
	return &FeaturesRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceAll 整体替换全部派生表（实现 pipeline.FeatureStore）
func (r *FeaturesRepository) ReplaceAll(ctx context.Context, results *pipeline.Results) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"windowed_features",
		"baselines",
		"stress_features",
		"hrv_features",
		"zone_minutes",
		"session_summaries",
		"subject_profiles",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	if err := r.insertWindows(ctx, tx, results.Windows); err != nil {
		return err
	}
	if err := r.insertBaselines(ctx, tx, results.Baselines); err != nil {
		return err
	}
	if err := r.insertStress(ctx, tx, results.Stress); err != nil {
		return err
	}
	if err := r.insertHRV(ctx, tx, results.HRV); err != nil {
		return err
	}
	if err := r.insertZones(ctx, tx, results.Zones); err != nil {
		return err
	}
	if err := r.insertSessionSummaries(ctx, tx, results.SessionSummaries); err != nil {
		return err
	}
	if err := r.insertSubjectProfiles(ctx, tx, results.SubjectProfiles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit derived tables: %w", err)
	}

	r.logger.Info("Replaced derived tables",
		zap.Int("windows", len(results.Windows)),
		zap.Int("baselines", len(results.Baselines)),
		zap.Int("stress", len(results.Stress)),
		zap.Int("hrv", len(results.HRV)),
		zap.Int("zones", len(results.Zones)),
		zap.Int("session_summaries", len(results.SessionSummaries)),
		zap.Int("subject_profiles", len(results.SubjectProfiles)),
	)

	return nil
}

func (r *FeaturesRepository) insertWindows(ctx context.Context, tx *sql.Tx, windows []models.WindowedFeature) error {
	query := `
		INSERT INTO windowed_features (
			subject_id, session_id, time_window,
			avg_bvp, std_bvp, avg_eda, std_eda, eda_range,
			avg_temp, std_temp, avg_hr, std_hr,
			avg_acc_x, avg_acc_y, avg_acc_z
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare windowed_features insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		if _, err := stmt.ExecContext(ctx,
			w.SubjectID, w.SessionID, w.TimeWindow,
			statMean(w.BVP), statStdDev(w.BVP),
			statMean(w.EDA), statStdDev(w.EDA), w.EDARange,
			statMean(w.Temp), statStdDev(w.Temp),
			statMean(w.HR), statStdDev(w.HR),
			statMean(w.AccX), statMean(w.AccY), statMean(w.AccZ),
		); err != nil {
			return fmt.Errorf("failed to insert windowed feature: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertBaselines(ctx context.Context, tx *sql.Tx, baselines []models.Baseline) error {
	query := `
		INSERT INTO baselines (
			subject_id, session_id, session_start, baseline_eda, baseline_hr, baseline_temp, sample_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare baselines insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range baselines {
		if _, err := stmt.ExecContext(ctx,
			b.SubjectID, b.SessionID, b.SessionStart, b.EDA, b.HR, b.Temp, b.SampleCount,
		); err != nil {
			return fmt.Errorf("failed to insert baseline: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertStress(ctx context.Context, tx *sql.Tx, stress []models.StressFeature) error {
	query := `
		INSERT INTO stress_features (
			subject_id, session_id, time_window,
			eda_change_pct, hr_change_pct, temp_delta, stress_index, stress_state
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare stress_features insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range stress {
		if _, err := stmt.ExecContext(ctx,
			f.SubjectID, f.SessionID, f.TimeWindow,
			f.EDAChangePct, f.HRChangePct, f.TempDelta, f.StressIndex, f.StressState,
		); err != nil {
			return fmt.Errorf("failed to insert stress feature: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertHRV(ctx context.Context, tx *sql.Tx, hrv []models.HRVFeature) error {
	query := `
		INSERT INTO hrv_features (
			subject_id, session_id, time_window,
			beat_count, sdnn, rmssd, pnn50, hrv_category, recovery_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare hrv_features insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range hrv {
		if _, err := stmt.ExecContext(ctx,
			f.SubjectID, f.SessionID, f.TimeWindow,
			f.BeatCount, f.SDNN, f.RMSSD, f.PNN50, f.HRVCategory, f.RecoveryStatus,
		); err != nil {
			return fmt.Errorf("failed to insert hrv feature: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertZones(ctx context.Context, tx *sql.Tx, zones []models.ZoneMinute) error {
	query := `
		INSERT INTO zone_minutes (
			subject_id, session_id, time_window, zone,
			sample_count, minutes_in, effort_points, avg_hr, hr_percentage
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare zone_minutes insert: %w", err)
	}
	defer stmt.Close()

	for _, z := range zones {
		if _, err := stmt.ExecContext(ctx,
			z.SubjectID, z.SessionID, z.TimeWindow, z.Zone,
			z.SampleCount, z.MinutesIn, z.EffortPoints, z.AvgHR, z.HRPercentage,
		); err != nil {
			return fmt.Errorf("failed to insert zone minute: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertSessionSummaries(ctx context.Context, tx *sql.Tx, summaries []models.SessionSummary) error {
	query := `
		INSERT INTO session_summaries (
			session_id, subject_id, session_type,
			avg_hr, max_hr, min_hr, total_effort_score, minutes_by_zone,
			window_count, stressed_windows, stressed_share, avg_stress_index,
			avg_sdnn, avg_rmssd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare session_summaries insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		var minutesJSON []byte
		if s.MinutesByZone != nil {
			minutesJSON, err = json.Marshal(s.MinutesByZone)
			if err != nil {
				return fmt.Errorf("failed to marshal minutes_by_zone: %w", err)
			}
		}

		if _, err := stmt.ExecContext(ctx,
			s.SessionID, s.SubjectID, s.SessionType,
			s.AvgHR, s.MaxHR, s.MinHR, s.TotalEffortScore, nullableJSON(minutesJSON),
			s.WindowCount, s.StressedWindows, s.StressedShare, s.AvgStressIndex,
			s.AvgSDNN, s.AvgRMSSD,
		); err != nil {
			return fmt.Errorf("failed to insert session summary: %w", err)
		}
	}
	return nil
}

func (r *FeaturesRepository) insertSubjectProfiles(ctx context.Context, tx *sql.Tx, profiles []models.SubjectProfile) error {
	query := `
		INSERT INTO subject_profiles (
			subject_id, cohort, session_count,
			avg_rmssd, avg_sdnn, low_hrv_share, stressed_share,
			peak_intensity_pct, total_effort_score, stress_profile, segment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare subject_profiles insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		if _, err := stmt.ExecContext(ctx,
			p.SubjectID, p.Cohort, p.SessionCount,
			p.AvgRMSSD, p.AvgSDNN, p.LowHRVShare, p.StressedShare,
			p.PeakIntensityPct, p.TotalEffortScore, p.StressProfile, p.Segment,
		); err != nil {
			return fmt.Errorf("failed to insert subject profile: %w", err)
		}
	}
	return nil
}

// GetSessionSummaries 读取会话级汇总（供导出使用）
func (r *FeaturesRepository) GetSessionSummaries(ctx context.Context) ([]models.SessionSummary, error) {
	query := `
		SELECT
			session_id, subject_id, session_type,
			avg_hr, max_hr, min_hr, total_effort_score, minutes_by_zone,
			window_count, stressed_windows, stressed_share, avg_stress_index,
			avg_sdnn, avg_rmssd
		FROM session_summaries
		ORDER BY subject_id, session_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query session summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		var avgHR, maxHR, minHR, stressedShare, avgStressIdx, avgSDNN, avgRMSSD sql.NullFloat64
		var minutesJSON []byte
		if err := rows.Scan(
			&s.SessionID, &s.SubjectID, &s.SessionType,
			&avgHR, &maxHR, &minHR, &s.TotalEffortScore, &minutesJSON,
			&s.WindowCount, &s.StressedWindows, &stressedShare, &avgStressIdx,
			&avgSDNN, &avgRMSSD,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}

		s.AvgHR = nullableFloat(avgHR)
		s.MaxHR = nullableFloat(maxHR)
		s.MinHR = nullableFloat(minHR)
		s.StressedShare = nullableFloat(stressedShare)
		s.AvgStressIndex = nullableFloat(avgStressIdx)
		s.AvgSDNN = nullableFloat(avgSDNN)
		s.AvgRMSSD = nullableFloat(avgRMSSD)

		if len(minutesJSON) > 0 {
			if err := json.Unmarshal(minutesJSON, &s.MinutesByZone); err != nil {
				return nil, fmt.Errorf("failed to unmarshal minutes_by_zone: %w", err)
			}
		}

		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session summaries: %w", err)
	}

	return summaries, nil
}

// GetSubjectProfiles 读取受试者画像（供导出使用）
func (r *FeaturesRepository) GetSubjectProfiles(ctx context.Context) ([]models.SubjectProfile, error) {
	query := `
		SELECT
			subject_id, cohort, session_count,
			avg_rmssd, avg_sdnn, low_hrv_share, stressed_share,
			peak_intensity_pct, total_effort_score, stress_profile, segment
		FROM subject_profiles
		ORDER BY subject_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.SubjectProfile
	for rows.Next() {
		var p models.SubjectProfile
		var avgRMSSD, avgSDNN, lowHRV, stressed, peak sql.NullFloat64
		if err := rows.Scan(
			&p.SubjectID, &p.Cohort, &p.SessionCount,
			&avgRMSSD, &avgSDNN, &lowHRV, &stressed,
			&peak, &p.TotalEffortScore, &p.StressProfile, &p.Segment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subject profile: %w", err)
		}

		p.AvgRMSSD = nullableFloat(avgRMSSD)
		p.AvgSDNN = nullableFloat(avgSDNN)
		p.LowHRVShare = nullableFloat(lowHRV)
		p.StressedShare = nullableFloat(stressed)
		p.PeakIntensityPct = nullableFloat(peak)

		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subject profiles: %w", err)
	}

	return profiles, nil
}

// 辅助函数

func statMean(s *models.SignalStats) *float64 {
	if s == nil {
		return nil
	}
	return &s.Mean
}

func statStdDev(s *models.SignalStats) *float64 {
	if s == nil {
		return nil
	}
	return s.StdDev
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
