package ingest

import (
	"strings"
	"testing"
	"time"

	"wearable-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignalFile_UnixStartTime(t *testing.T) {
	csv := "1361377519.0\n4.0\n1.5\n1.6\n"

	f, err := ParseSignalFile(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1361377519, 0).UTC(), f.StartTime)
	assert.Equal(t, 4.0, f.SampleRate)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, 1.5, f.Rows[0][0])
}

func TestParseSignalFile_DateTimeStartTime(t *testing.T) {
	// 部分受试者的文件头是日期时间字符串而不是Unix秒
	csv := "2013-02-20 17:55:19\n1.0\n70\n71\n"

	f, err := ParseSignalFile(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2013, 2, 20, 17, 55, 19, 0, time.UTC), f.StartTime)
}

func TestParseSignalFile_TooShort(t *testing.T) {
	_, err := ParseSignalFile(strings.NewReader("1361377519.0\n"))
	assert.Error(t, err)
}

func TestMeasurementsFromSignal_SampleRateTimestamps(t *testing.T) {
	// 4 Hz 采样：第4个样本偏移1秒
	f := &SignalFile{
		StartTime:  time.Unix(1361377519, 0).UTC(),
		SampleRate: 4.0,
		Rows:       [][]float64{{1.0}, {1.1}, {1.2}, {1.3}, {1.4}},
	}

	measurements, err := MeasurementsFromSignal(f, "S01", "S01_STRESS", models.SessionTypeStress, models.SignalEDA)
	require.NoError(t, err)
	require.Len(t, measurements, 5)

	assert.Equal(t, f.StartTime, measurements[0].Timestamp)
	assert.Equal(t, f.StartTime.Add(time.Second), measurements[4].Timestamp)
	assert.Equal(t, models.SignalEDA, measurements[0].SignalType)
}

func TestMeasurementsFromSignal_ACCExpandsAndScales(t *testing.T) {
	// ACC 每行展开为 X/Y/Z 三条记录，原始值除以64转为g
	f := &SignalFile{
		StartTime:  time.Unix(1361377519, 0).UTC(),
		SampleRate: 32.0,
		Rows:       [][]float64{{64, -32, 128}},
	}

	measurements, err := MeasurementsFromSignal(f, "S01", "S01_STRESS", models.SessionTypeStress, "ACC")
	require.NoError(t, err)
	require.Len(t, measurements, 3)

	assert.Equal(t, models.SignalAccX, measurements[0].SignalType)
	assert.Equal(t, 1.0, measurements[0].Value)
	assert.Equal(t, models.SignalAccY, measurements[1].SignalType)
	assert.Equal(t, -0.5, measurements[1].Value)
	assert.Equal(t, models.SignalAccZ, measurements[2].SignalType)
	assert.Equal(t, 2.0, measurements[2].Value)
}

func TestMeasurementsFromSignal_IBIOffsetAndMillis(t *testing.T) {
	// IBI 行格式：秒偏移, 间期（秒）；转为毫秒存储
	f := &SignalFile{
		StartTime:  time.Unix(1361377519, 0).UTC(),
		SampleRate: 0,
		Rows:       [][]float64{{5.25, 0.8}, {6.05, 0.85}},
	}

	measurements, err := MeasurementsFromSignal(f, "S01", "S01_STRESS", models.SessionTypeStress, models.SignalIBI)
	require.NoError(t, err)
	require.Len(t, measurements, 2)

	assert.Equal(t, f.StartTime.Add(5250*time.Millisecond), measurements[0].Timestamp)
	assert.InDelta(t, 800.0, measurements[0].Value, 1e-9)
	assert.InDelta(t, 850.0, measurements[1].Value, 1e-9)
}

func TestShouldSkipSubject(t *testing.T) {
	// 默认跳过所有已知问题
	skip, issue := ShouldSkipSubject("S02", models.SessionTypeStress, false)
	assert.True(t, skip)
	assert.Equal(t, "duplicated_data", issue)

	// includeProblematic 时仅跳过不可用的问题类型
	skip, issue = ShouldSkipSubject("S02", models.SessionTypeStress, true)
	assert.False(t, skip)
	assert.Equal(t, "duplicated_data", issue)

	skip, _ = ShouldSkipSubject("S12", models.SessionTypeAerobic, true)
	assert.True(t, skip, "test_not_performed is never loadable")

	skip, issue = ShouldSkipSubject("S01", models.SessionTypeStress, false)
	assert.False(t, skip)
	assert.Empty(t, issue)
}

func TestCohortForSubject(t *testing.T) {
	assert.Equal(t, "V1", CohortForSubject("S05"))
	assert.Equal(t, "V2", CohortForSubject("f07"))
}
