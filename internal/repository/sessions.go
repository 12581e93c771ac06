package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wearable-analytics/internal/models"

	"go.uber.org/zap"
)

// SessionsRepository 会话与受试者维表仓库
type SessionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionsRepository 创建会话仓库
func NewSessionsRepository(db *sql.DB, logger *zap.Logger) *SessionsRepository {
	return &SessionsRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertSession 写入会话元数据（同一会话重新加载时覆盖）
func (r *SessionsRepository) UpsertSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, subject_id, session_type, protocol_version,
			session_start_time, session_end_time, duration_minutes, data_quality_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			session_start_time = EXCLUDED.session_start_time,
			session_end_time = EXCLUDED.session_end_time,
			duration_minutes = EXCLUDED.duration_minutes,
			data_quality_notes = EXCLUDED.data_quality_notes
	`

	if _, err := r.db.ExecContext(ctx, query,
		s.SessionID, s.SubjectID, s.SessionType, s.ProtocolVersion,
		s.StartTime, s.EndTime, s.DurationMinutes, s.DataQualityNotes,
	); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// ListSessions 读取全部会话
func (r *SessionsRepository) ListSessions(ctx context.Context) ([]models.Session, error) {
	query := `
		SELECT
			session_id, subject_id, session_type, protocol_version,
			session_start_time, session_end_time, duration_minutes, data_quality_notes
		FROM sessions
		ORDER BY subject_id, session_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		var notes sql.NullString
		if err := rows.Scan(
			&s.SessionID, &s.SubjectID, &s.SessionType, &s.ProtocolVersion,
			&s.StartTime, &s.EndTime, &s.DurationMinutes, &notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if notes.Valid {
			s.DataQualityNotes = &notes.String
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// UpsertSubject 写入受试者信息
func (r *SessionsRepository) UpsertSubject(ctx context.Context, s *models.Subject) error {
	query := `
		INSERT INTO subjects (
			subject_id, cohort, age, gender, height_cm, weight_kg, bmi, enrollment_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subject_id) DO UPDATE SET
			cohort = EXCLUDED.cohort,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			bmi = EXCLUDED.bmi
	`

	if _, err := r.db.ExecContext(ctx, query,
		s.SubjectID, s.Cohort, s.Age, s.Gender, s.HeightCM, s.WeightKG, s.BMI, s.EnrollmentDate,
	); err != nil {
		return fmt.Errorf("failed to upsert subject: %w", err)
	}

	return nil
}

// ListSubjects 读取全部受试者
func (r *SessionsRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	query := `
		SELECT subject_id, cohort, age, gender, height_cm, weight_kg, bmi, enrollment_date
		FROM subjects
		ORDER BY subject_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var s models.Subject
		var height, weight, bmi sql.NullFloat64
		var enrollment sql.NullTime
		if err := rows.Scan(
			&s.SubjectID, &s.Cohort, &s.Age, &s.Gender, &height, &weight, &bmi, &enrollment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		if height.Valid {
			s.HeightCM = &height.Float64
		}
		if weight.Valid {
			s.WeightKG = &weight.Float64
		}
		if bmi.Valid {
			s.BMI = &bmi.Float64
		}
		if enrollment.Valid {
			s.EnrollmentDate = &enrollment.Time
		}
		subjects = append(subjects, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}

	return subjects, nil
}
