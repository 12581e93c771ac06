package pipeline

import (
	"sort"
	"time"

	"wearable-analytics/internal/models"
)

// 训练区间参数
const (
	// HR 合理区间（bpm），区间外的样本在分类前过滤
	MinPlausibleHR = 40.0
	MaxPlausibleHR = 220.0

	// 最大心率估算公式：220 - 年龄
	maxHRBase = 220.0
)

// trainingZone 训练区间定义：下界（最大心率百分比）+ 每分钟努力点数
type trainingZone struct {
	name            string
	lowerPct        float64
	pointsPerMinute float64
}

// 六档有序区间，边界在 50/60/70/80/90%
var trainingZones = []trainingZone{
	{models.ZoneRecovery, 0, 1},
	{models.ZoneWarmUp, 50, 2},
	{models.ZoneEasy, 60, 3},
	{models.ZoneHard, 70, 4},
	{models.ZoneThreshold, 80, 5},
	{models.ZoneMaximum, 90, 6},
}

// ClassifyZone 按最大心率百分比返回训练区间及每分钟努力点数
func ClassifyZone(hrPercentage float64) (string, float64) {
	zone := trainingZones[0]
	for _, z := range trainingZones[1:] {
		if hrPercentage >= z.lowerPct {
			zone = z
		}
	}
	return zone.name, zone.pointsPerMinute
}

// MaxHeartRate 按年龄估算最大心率
func MaxHeartRate(age int) float64 {
	return maxHRBase - float64(age)
}

// ZoneResult 训练区间阶段的输出：区间行 + 数据质量计数
type ZoneResult struct {
	Rows         []models.ZoneMinute
	ImplausibleHR int // 被过滤的区间外 HR 样本数（仅监控，不参与分类）
}

// ComputeZones 对训练会话（AEROBIC/ANAEROBIC）的 HR 样本做区间分类与努力点聚合
//
// 每个合格 HR 样本恰好落入一个区间（区间对样本是完整划分），
// 1 Hz 采样下每样本贡献 points_per_minute/60 努力点、1/60 区间分钟。
// STRESS 会话不参与训练区间计算。
func ComputeZones(measurements []models.Measurement, sessions []models.Session, subjects []models.Subject) ZoneResult {
	result := ZoneResult{}

	eligible := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if s.SessionType == models.SessionTypeAerobic || s.SessionType == models.SessionTypeAnaerobic {
			eligible[s.SessionID] = true
		}
	}

	ageBySubject := make(map[string]int, len(subjects))
	for _, s := range subjects {
		ageBySubject[s.SubjectID] = s.Age
	}

	type zoneKey struct {
		subjectID string
		sessionID string
		window    time.Time
		zone      string
	}
	type zoneAcc struct {
		count  int
		sumHR  float64
		sumPct float64
		points float64
	}
	acc := make(map[zoneKey]*zoneAcc)

	for _, m := range measurements {
		if m.SignalType != models.SignalHR || !eligible[m.SessionID] {
			continue
		}

		age, ok := ageBySubject[m.SubjectID]
		if !ok {
			continue
		}

		if m.Value < MinPlausibleHR || m.Value > MaxPlausibleHR {
			result.ImplausibleHR++
			continue
		}

		maxHR := MaxHeartRate(age)
		pct := m.Value / maxHR * 100
		zone, points := ClassifyZone(pct)

		key := zoneKey{
			subjectID: m.SubjectID,
			sessionID: m.SessionID,
			window:    m.Timestamp.UTC().Truncate(time.Minute),
			zone:      zone,
		}
		a, ok := acc[key]
		if !ok {
			a = &zoneAcc{}
			acc[key] = a
		}
		a.count++
		a.sumHR += m.Value
		a.sumPct += pct
		a.points += points / 60 // 每秒贡献
	}

	result.Rows = make([]models.ZoneMinute, 0, len(acc))
	for key, a := range acc {
		result.Rows = append(result.Rows, models.ZoneMinute{
			SubjectID:    key.subjectID,
			SessionID:    key.sessionID,
			TimeWindow:   key.window,
			Zone:         key.zone,
			SampleCount:  a.count,
			MinutesIn:    float64(a.count) / 60,
			EffortPoints: a.points,
			AvgHR:        a.sumHR / float64(a.count),
			HRPercentage: a.sumPct / float64(a.count),
		})
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		a, b := result.Rows[i], result.Rows[j]
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if !a.TimeWindow.Equal(b.TimeWindow) {
			return a.TimeWindow.Before(b.TimeWindow)
		}
		return a.Zone < b.Zone
	})

	return result
}
