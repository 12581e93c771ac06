package repository

import (
	"context"
	"testing"

	"wearable-analytics/internal/pipeline"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFeaturesRepository_ReplaceAll_TruncatesAllTablesInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFeaturesRepository(db, zap.NewNop())

	mock.ExpectBegin()
	for _, table := range []string{
		"windowed_features", "baselines", "stress_features", "hrv_features",
		"zone_minutes", "session_summaries", "subject_profiles",
	} {
		mock.ExpectExec("TRUNCATE " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectPrepare(`INSERT INTO windowed_features`)
	mock.ExpectPrepare(`INSERT INTO baselines`)
	mock.ExpectPrepare(`INSERT INTO stress_features`)
	mock.ExpectPrepare(`INSERT INTO hrv_features`)
	mock.ExpectPrepare(`INSERT INTO zone_minutes`)
	mock.ExpectPrepare(`INSERT INTO session_summaries`)
	mock.ExpectPrepare(`INSERT INTO subject_profiles`)
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), &pipeline.Results{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeaturesRepository_ReplaceAll_RollsBackOnTruncateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewFeaturesRepository(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE windowed_features").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	require.Error(t, repo.ReplaceAll(context.Background(), &pipeline.Results{}))
	require.NoError(t, mock.ExpectationsWereMet())
}
