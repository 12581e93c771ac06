package pipeline_test

import (
	"testing"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSessionSummaries_Aggregation(t *testing.T) {
	sessions := []models.Session{aerobicSession("s1")}

	windows := []models.WindowedFeature{
		{SubjectID: "S01", SessionID: "s1", TimeWindow: at(0, 0), HR: &models.SignalStats{Mean: 120, Count: 60}},
		{SubjectID: "S01", SessionID: "s1", TimeWindow: at(1, 0), HR: &models.SignalStats{Mean: 150, Count: 60}},
		{SubjectID: "S01", SessionID: "s1", TimeWindow: at(2, 0)},
	}

	idx := 0.3
	stress := []models.StressFeature{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), StressState: models.StressStateCalm},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(1, 0), StressState: models.StressStateStressed, StressIndex: &idx},
	}

	rmssd := 40.0
	hrv := []models.HRVFeature{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), SDNN: 60, RMSSD: &rmssd},
	}

	zones := []models.ZoneMinute{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), Zone: models.ZoneHard, EffortPoints: 4, MinutesIn: 1},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(1, 0), Zone: models.ZoneThreshold, EffortPoints: 5, MinutesIn: 1},
	}

	summaries := pipeline.ComputeSessionSummaries(sessions, windows, stress, hrv, zones)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, 3, s.WindowCount)
	require.NotNil(t, s.AvgHR)
	assert.InDelta(t, 135.0, *s.AvgHR, 1e-9)
	require.NotNil(t, s.MaxHR)
	assert.InDelta(t, 150.0, *s.MaxHR, 1e-9)
	require.NotNil(t, s.MinHR)
	assert.InDelta(t, 120.0, *s.MinHR, 1e-9)

	assert.Equal(t, 1, s.StressedWindows)
	require.NotNil(t, s.StressedShare)
	assert.InDelta(t, 0.5, *s.StressedShare, 1e-9)
	require.NotNil(t, s.AvgStressIndex)
	assert.InDelta(t, 0.3, *s.AvgStressIndex, 1e-9)

	require.NotNil(t, s.AvgSDNN)
	assert.InDelta(t, 60.0, *s.AvgSDNN, 1e-9)

	assert.InDelta(t, 9.0, s.TotalEffortScore, 1e-9)
	require.NotNil(t, s.MinutesByZone)
	assert.InDelta(t, 1.0, s.MinutesByZone[models.ZoneHard], 1e-9)
	assert.InDelta(t, 1.0, s.MinutesByZone[models.ZoneThreshold], 1e-9)
}

func TestComputeSessionSummaries_EmptySessionStillReported(t *testing.T) {
	// 无任何特征的会话仍产生汇总行（计数为零、指标为 nil）
	sessions := []models.Session{testSession("s1", at(0, 0))}

	summaries := pipeline.ComputeSessionSummaries(sessions, nil, nil, nil, nil)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].WindowCount)
	assert.Nil(t, summaries[0].AvgHR)
	assert.Nil(t, summaries[0].StressedShare)
}

func TestComputeSubjectProfiles_SegmentClassification(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}

	summaries := []models.SessionSummary{
		{SessionID: "s1", SubjectID: "S01", SessionType: models.SessionTypeAerobic, TotalEffortScore: 50},
	}

	rmssd := 45.0
	hrv := []models.HRVFeature{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), SDNN: 80, RMSSD: &rmssd},
	}

	zones := []models.ZoneMinute{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), Zone: models.ZoneMaximum, HRPercentage: 92},
	}

	profiles := pipeline.ComputeSubjectProfiles(subjects, summaries, nil, hrv, zones)
	require.Len(t, profiles, 1)

	p := profiles[0]
	// 峰值强度 92% > 85 且 RMSSD 45 > 30
	assert.Equal(t, models.SegmentAthlete, p.Segment)
	// 无压力窗口时回退到 RESILIENT
	assert.Equal(t, models.StressProfileResilient, p.StressProfile)
	assert.Equal(t, 1, p.SessionCount)
	require.NotNil(t, p.PeakIntensityPct)
	assert.InDelta(t, 92.0, *p.PeakIntensityPct, 1e-9)
}

func TestComputeSubjectProfiles_StressProfileChain(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}

	// 3/4 窗口 STRESSED -> HIGH_STRESS，同时 STRESS_PRONE 分群
	stress := []models.StressFeature{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), StressState: models.StressStateStressed},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(1, 0), StressState: models.StressStateStressed},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(2, 0), StressState: models.StressStateStressed},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(3, 0), StressState: models.StressStateCalm},
	}

	profiles := pipeline.ComputeSubjectProfiles(subjects, nil, stress, nil, nil)
	require.Len(t, profiles, 1)

	assert.Equal(t, models.StressProfileHighStress, profiles[0].StressProfile)
	assert.Equal(t, models.SegmentStressProne, profiles[0].Segment)
}

func TestComputeSubjectProfiles_LowHRVShare(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}

	// 2/3 窗口 SDNN < 50 -> 低HRV占比 0.67 -> RECOVERY_FOCUSED
	hrv := []models.HRVFeature{
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(0, 0), SDNN: 30},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(1, 0), SDNN: 45},
		{SessionID: "s1", SubjectID: "S01", TimeWindow: at(2, 0), SDNN: 80},
	}

	profiles := pipeline.ComputeSubjectProfiles(subjects, nil, nil, hrv, nil)
	require.Len(t, profiles, 1)

	require.NotNil(t, profiles[0].LowHRVShare)
	assert.InDelta(t, 2.0/3, *profiles[0].LowHRVShare, 1e-9)
	assert.Equal(t, models.SegmentRecoveryFocused, profiles[0].Segment)
}

func TestComputeSubjectProfiles_GeneralWellnessFallback(t *testing.T) {
	subjects := []models.Subject{testSubject("S01", 30)}

	profiles := pipeline.ComputeSubjectProfiles(subjects, nil, nil, nil, nil)
	require.Len(t, profiles, 1)
	assert.Equal(t, models.SegmentGeneralWellness, profiles[0].Segment)
	assert.Equal(t, models.StressProfileResilient, profiles[0].StressProfile)
}
