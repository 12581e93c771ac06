package pipeline_test

import (
	"testing"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubject(subjectID string, age int) models.Subject {
	return models.Subject{
		SubjectID: subjectID,
		Cohort:    "V1",
		Age:       age,
		Gender:    "M",
	}
}

func hrSample(sessionID string, minute, second int, value float64) models.Measurement {
	return models.Measurement{
		MeasurementID: sessionID + "_HR",
		SubjectID:     "S01",
		SessionID:     sessionID,
		Timestamp:     at(minute, second),
		SignalType:    models.SignalHR,
		Value:         value,
		SessionType:   models.SessionTypeAerobic,
		QualityFlag:   "VALID",
	}
}

func aerobicSession(sessionID string) models.Session {
	s := testSession(sessionID, at(0, 0))
	s.SessionType = models.SessionTypeAerobic
	return s
}

func TestClassifyZone_Boundaries(t *testing.T) {
	cases := []struct {
		pct    float64
		zone   string
		points float64
	}{
		{30, models.ZoneRecovery, 1},
		{49.9, models.ZoneRecovery, 1},
		{50, models.ZoneWarmUp, 2},
		{60, models.ZoneEasy, 3},
		{70, models.ZoneHard, 4},
		{80, models.ZoneThreshold, 5},
		{90, models.ZoneMaximum, 6},
		{110, models.ZoneMaximum, 6},
	}

	for _, tc := range cases {
		zone, points := pipeline.ClassifyZone(tc.pct)
		assert.Equal(t, tc.zone, zone, "pct=%.1f", tc.pct)
		assert.Equal(t, tc.points, points, "pct=%.1f", tc.pct)
	}
}

func TestComputeZones_AgeBasedClassification(t *testing.T) {
	// 30岁最大心率 190，HR 150 -> 78.9% -> ZONE_3_HARD（4点/分钟）
	subjects := []models.Subject{testSubject("S01", 30)}
	sessions := []models.Session{aerobicSession("s1")}
	measurements := []models.Measurement{
		hrSample("s1", 0, 0, 150),
	}

	result := pipeline.ComputeZones(measurements, sessions, subjects)
	require.Len(t, result.Rows, 1)

	z := result.Rows[0]
	assert.Equal(t, models.ZoneHard, z.Zone)
	assert.InDelta(t, 78.947, z.HRPercentage, 0.001)
	assert.InDelta(t, 4.0/60, z.EffortPoints, 1e-9)
	assert.InDelta(t, 1.0/60, z.MinutesIn, 1e-9)
	assert.Equal(t, 1, z.SampleCount)
}

func TestComputeZones_StressSessionExcluded(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}
	sessions := []models.Session{testSession("s1", at(0, 0))} // STRESS
	measurements := []models.Measurement{
		hrSample("s1", 0, 0, 150),
	}

	result := pipeline.ComputeZones(measurements, sessions, subjects)
	assert.Empty(t, result.Rows)
}

func TestComputeZones_ImplausibleHRFiltered(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}
	sessions := []models.Session{aerobicSession("s1")}
	measurements := []models.Measurement{
		hrSample("s1", 0, 0, 30),  // 过低
		hrSample("s1", 0, 1, 250), // 过高
		hrSample("s1", 0, 2, 150),
	}

	result := pipeline.ComputeZones(measurements, sessions, subjects)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 2, result.ImplausibleHR)
	assert.Equal(t, 1, result.Rows[0].SampleCount)
}

func TestComputeZones_SamplesPartitionAcrossZones(t *testing.T) {
	// 每个合格样本恰好落入一个区间：各区间样本数之和等于合格样本总数
	subjects := []models.Subject{testSubject("S01", 30)}
	sessions := []models.Session{aerobicSession("s1")}
	measurements := []models.Measurement{
		hrSample("s1", 0, 0, 80),  // 42% recovery
		hrSample("s1", 0, 1, 100), // 52% warm up
		hrSample("s1", 0, 2, 150), // 78.9% hard
		hrSample("s1", 0, 3, 152), // 80% threshold
		hrSample("s1", 0, 4, 180), // 94.7% maximum
	}

	result := pipeline.ComputeZones(measurements, sessions, subjects)

	total := 0
	for _, z := range result.Rows {
		total += z.SampleCount
	}
	assert.Equal(t, len(measurements), total)
	assert.Len(t, result.Rows, 5)
}

func TestComputeZones_UnknownSubjectSkipped(t *testing.T) {
	// 无年龄信息无法估算最大心率
	sessions := []models.Session{aerobicSession("s1")}
	measurements := []models.Measurement{
		hrSample("s1", 0, 0, 150),
	}

	result := pipeline.ComputeZones(measurements, sessions, nil)
	assert.Empty(t, result.Rows)
}
