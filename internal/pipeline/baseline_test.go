package pipeline_test

import (
	"testing"
	"time"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(sessionID string, start time.Time) models.Session {
	return models.Session{
		SessionID:   sessionID,
		SubjectID:   "S01",
		SessionType: models.SessionTypeStress,
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
	}
}

func windowWithEDA(sessionID string, window time.Time, edaMean float64) models.WindowedFeature {
	return models.WindowedFeature{
		SubjectID:  "S01",
		SessionID:  sessionID,
		TimeWindow: window,
		EDA:        &models.SignalStats{Mean: edaMean, Count: 240},
	}
}

func TestComputeBaselines_FirstThreeMinutes(t *testing.T) {
	sessions := []models.Session{testSession("s1", at(0, 0))}
	windows := []models.WindowedFeature{
		windowWithEDA("s1", at(0, 0), 1.0),
		windowWithEDA("s1", at(1, 0), 2.0),
		windowWithEDA("s1", at(2, 0), 3.0),
		// 第4分钟在基线窗口之外
		windowWithEDA("s1", at(3, 0), 100.0),
	}

	baselines := pipeline.ComputeBaselines(windows, sessions)
	require.Len(t, baselines, 1)

	require.NotNil(t, baselines[0].EDA)
	assert.InDelta(t, 2.0, *baselines[0].EDA, 1e-9)
	assert.Equal(t, 3, baselines[0].SampleCount)
	assert.Nil(t, baselines[0].HR)
}

func TestComputeBaselines_ShortSessionPartialBaseline(t *testing.T) {
	// 会话不足3分钟时用已有窗口计算部分基线，而不是丢弃
	sessions := []models.Session{testSession("s1", at(0, 0))}
	windows := []models.WindowedFeature{
		windowWithEDA("s1", at(0, 0), 1.5),
	}

	baselines := pipeline.ComputeBaselines(windows, sessions)
	require.Len(t, baselines, 1)
	require.NotNil(t, baselines[0].EDA)
	assert.InDelta(t, 1.5, *baselines[0].EDA, 1e-9)
	assert.Equal(t, 1, baselines[0].SampleCount)
}

func TestComputeBaselines_NoWindowsInBaselinePeriod(t *testing.T) {
	// 前3分钟无窗口的会话不产生基线行
	sessions := []models.Session{testSession("s1", at(0, 0))}
	windows := []models.WindowedFeature{
		windowWithEDA("s1", at(5, 0), 2.0),
	}

	baselines := pipeline.ComputeBaselines(windows, sessions)
	assert.Empty(t, baselines)
}

func TestComputeBaselines_UnknownSessionIgnored(t *testing.T) {
	windows := []models.WindowedFeature{
		windowWithEDA("orphan", at(0, 0), 2.0),
	}

	baselines := pipeline.ComputeBaselines(windows, nil)
	assert.Empty(t, baselines)
}
