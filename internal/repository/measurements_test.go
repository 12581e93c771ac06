package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMeasurementsRepository_ListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMeasurementsRepository(db, zap.NewNop())

	ts := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT\s+measurement_id`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"measurement_id", "subject_id", "session_id", "measurement_timestamp",
			"signal_type", "value", "session_type", "data_quality_flag",
		}).AddRow(
			"m-1", "S01", "s1", ts, "HR", 72.0, "STRESS", "VALID",
		))

	measurements, err := repo.ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, measurements, 1)

	assert.Equal(t, "m-1", measurements[0].MeasurementID)
	assert.Equal(t, "HR", measurements[0].SignalType)
	assert.Equal(t, 72.0, measurements[0].Value)
	assert.Equal(t, ts, measurements[0].Timestamp)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementsRepository_DeleteBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMeasurementsRepository(db, zap.NewNop())

	mock.ExpectExec(`DELETE FROM measurements`).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 42))

	require.NoError(t, repo.DeleteBySession(context.Background(), "s1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementsRepository_BatchInsertEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMeasurementsRepository(db, zap.NewNop())

	// 空批次不触达数据库
	require.NoError(t, repo.BatchInsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
