package pipeline_test

import (
	"testing"
	"time"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试辅助：固定基准时间 2023-05-01 10:00:00 UTC 加偏移
func at(minute, second int) time.Time {
	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

func sample(sessionID, signalType string, ts time.Time, value float64) models.Measurement {
	return models.Measurement{
		MeasurementID: sessionID + "_" + signalType + "_" + ts.Format("150405"),
		SubjectID:     "S01",
		SessionID:     sessionID,
		Timestamp:     ts,
		SignalType:    signalType,
		Value:         value,
		SessionType:   models.SessionTypeStress,
		QualityFlag:   "VALID",
	}
}

func fptr(v float64) *float64 {
	return &v
}

func TestComputeWindows_MinuteTruncation(t *testing.T) {
	// 同一分钟内的样本落入同一个窗口，跨分钟的样本分开
	measurements := []models.Measurement{
		sample("s1", models.SignalHR, at(0, 10), 70),
		sample("s1", models.SignalHR, at(0, 50), 80),
		sample("s1", models.SignalHR, at(1, 5), 90),
	}

	windows := pipeline.ComputeWindows(measurements)
	require.Len(t, windows, 2)

	assert.Equal(t, at(0, 0), windows[0].TimeWindow)
	require.NotNil(t, windows[0].HR)
	assert.InDelta(t, 75.0, windows[0].HR.Mean, 1e-9)
	assert.Equal(t, 2, windows[0].HR.Count)

	assert.Equal(t, at(1, 0), windows[1].TimeWindow)
	require.NotNil(t, windows[1].HR)
	assert.InDelta(t, 90.0, windows[1].HR.Mean, 1e-9)
}

func TestComputeWindows_MissingSignalIsNil(t *testing.T) {
	// 窗口内无样本的信号聚合必须为 nil，不能填零
	measurements := []models.Measurement{
		sample("s1", models.SignalHR, at(0, 0), 70),
	}

	windows := pipeline.ComputeWindows(measurements)
	require.Len(t, windows, 1)

	assert.Nil(t, windows[0].EDA)
	assert.Nil(t, windows[0].BVP)
	assert.Nil(t, windows[0].Temp)
	assert.Nil(t, windows[0].EDARange)
	assert.NotNil(t, windows[0].HR)
}

func TestComputeWindows_StdDevRequiresTwoSamples(t *testing.T) {
	measurements := []models.Measurement{
		sample("s1", models.SignalEDA, at(0, 0), 1.5),
	}

	windows := pipeline.ComputeWindows(measurements)
	require.Len(t, windows, 1)
	require.NotNil(t, windows[0].EDA)
	assert.Nil(t, windows[0].EDA.StdDev)
	assert.Equal(t, 1, windows[0].EDA.Count)
}

func TestComputeWindows_EDARange(t *testing.T) {
	measurements := []models.Measurement{
		sample("s1", models.SignalEDA, at(0, 0), 1.2),
		sample("s1", models.SignalEDA, at(0, 15), 2.8),
		sample("s1", models.SignalEDA, at(0, 30), 0.9),
	}

	windows := pipeline.ComputeWindows(measurements)
	require.Len(t, windows, 1)
	require.NotNil(t, windows[0].EDARange)
	assert.InDelta(t, 1.9, *windows[0].EDARange, 1e-9)
}

func TestComputeWindows_IBIExcluded(t *testing.T) {
	// IBI 不参与透视，仅供 HRV 阶段消费
	measurements := []models.Measurement{
		sample("s1", models.SignalIBI, at(0, 0), 800),
	}

	windows := pipeline.ComputeWindows(measurements)
	assert.Empty(t, windows)
}

func TestComputeWindows_SortedOutput(t *testing.T) {
	measurements := []models.Measurement{
		sample("s2", models.SignalHR, at(1, 0), 70),
		sample("s1", models.SignalHR, at(2, 0), 70),
		sample("s1", models.SignalHR, at(0, 0), 70),
	}

	windows := pipeline.ComputeWindows(measurements)
	require.Len(t, windows, 3)
	assert.Equal(t, "s1", windows[0].SessionID)
	assert.Equal(t, at(0, 0), windows[0].TimeWindow)
	assert.Equal(t, "s1", windows[1].SessionID)
	assert.Equal(t, at(2, 0), windows[1].TimeWindow)
	assert.Equal(t, "s2", windows[2].SessionID)
}
