package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wearable-analytics/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// MeasurementsRepository 原始测量数据仓库（事实表，追加写入）
type MeasurementsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMeasurementsRepository 创建测量数据仓库
func NewMeasurementsRepository(db *sql.DB, logger *zap.Logger) *MeasurementsRepository {
	return &MeasurementsRepository{
		db:     db,
		logger: logger,
	}
}

// BatchInsert 批量写入测量记录（COPY 协议，适合单次会话数十万样本）
func (r *MeasurementsRepository) BatchInsert(ctx context.Context, measurements []models.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn("measurements",
		"measurement_id",
		"subject_id",
		"session_id",
		"measurement_timestamp",
		"signal_type",
		"value",
		"session_type",
		"data_quality_flag",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, m := range measurements {
		if _, err := stmt.Exec(
			m.MeasurementID,
			m.SubjectID,
			m.SessionID,
			m.Timestamp,
			m.SignalType,
			m.Value,
			m.SessionType,
			m.QualityFlag,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy measurement %s: %w", m.MeasurementID, err)
		}
	}

	// 空 Exec 冲刷缓冲
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Info("Inserted measurements batch",
		zap.Int("count", len(measurements)),
		zap.String("session_id", measurements[0].SessionID),
	)

	return nil
}

// ListBySession 按时间顺序读取一个会话的全部测量记录
func (r *MeasurementsRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Measurement, error) {
	query := `
		SELECT
			measurement_id,
			subject_id,
			session_id,
			measurement_timestamp,
			signal_type,
			value,
			session_type,
			data_quality_flag
		FROM measurements
		WHERE session_id = $1
		ORDER BY measurement_timestamp, measurement_id
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(
			&m.MeasurementID,
			&m.SubjectID,
			&m.SessionID,
			&m.Timestamp,
			&m.SignalType,
			&m.Value,
			&m.SessionType,
			&m.QualityFlag,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}

	return measurements, nil
}

// DeleteBySession 删除一个会话的测量记录（重新加载前清理）
func (r *MeasurementsRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM measurements WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete measurements: %w", err)
	}
	return nil
}
