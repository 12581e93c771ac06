package pipeline

import (
	"math"
	"sort"
	"time"

	"wearable-analytics/internal/models"

	"gonum.org/v1/gonum/stat"
)

// HRV 计算参数
const (
	// IBI 合理区间（毫秒），对应 30-200 bpm；区间外的值在聚合前过滤
	MinPlausibleIBIMillis = 300.0
	MaxPlausibleIBIMillis = 2000.0

	// 每窗口最少合格心搏数，不足则丢弃窗口（统计上不可靠，不以高方差形式报告）
	MinBeatsPerWindow = 5

	// pNN50 相邻差阈值（毫秒）
	PNN50ThresholdMillis = 50.0
)

// HRVResult HRV 阶段的输出：窗口特征 + 数据质量计数
type HRVResult struct {
	Features       []models.HRVFeature
	ImplausibleIBI int // 被过滤的区间外 IBI 数（仅监控，不参与分类）
}

// ComputeHRV 从 IBI 序列计算逐分钟窗口的时域 HRV 指标
//
// RMSSD 的相邻差按会话内时间顺序计算（当前 IBI 减去紧邻前一个），
// 会话首个样本没有前驱，被排除在相邻差计算之外；
// 相邻差归属于当前心搏所在的窗口。
func ComputeHRV(measurements []models.Measurement) HRVResult {
	result := HRVResult{}

	// 按会话收集 IBI 样本
	type beat struct {
		subjectID string
		ts        time.Time
		value     float64
	}
	bySession := make(map[string][]beat)

	for _, m := range measurements {
		if m.SignalType != models.SignalIBI {
			continue
		}
		if m.Value < MinPlausibleIBIMillis || m.Value > MaxPlausibleIBIMillis {
			result.ImplausibleIBI++
			continue
		}
		bySession[m.SessionID] = append(bySession[m.SessionID], beat{
			subjectID: m.SubjectID,
			ts:        m.Timestamp.UTC(),
			value:     m.Value,
		})
	}

	sessionIDs := make([]string, 0, len(bySession))
	for sessionID := range bySession {
		sessionIDs = append(sessionIDs, sessionID)
	}
	sort.Strings(sessionIDs)

	for _, sessionID := range sessionIDs {
		beats := bySession[sessionID]
		sort.SliceStable(beats, func(i, j int) bool {
			return beats[i].ts.Before(beats[j].ts)
		})

		type windowAcc struct {
			subjectID string
			values    []float64
			diffs     []float64
		}
		windows := make(map[time.Time]*windowAcc)

		for i, b := range beats {
			window := b.ts.Truncate(time.Minute)
			acc, ok := windows[window]
			if !ok {
				acc = &windowAcc{subjectID: b.subjectID}
				windows[window] = acc
			}
			acc.values = append(acc.values, b.value)

			// 会话首搏无前驱，不产生相邻差
			if i > 0 {
				acc.diffs = append(acc.diffs, b.value-beats[i-1].value)
			}
		}

		windowTimes := make([]time.Time, 0, len(windows))
		for w := range windows {
			windowTimes = append(windowTimes, w)
		}
		sort.Slice(windowTimes, func(i, j int) bool { return windowTimes[i].Before(windowTimes[j]) })

		for _, w := range windowTimes {
			acc := windows[w]
			if len(acc.values) < MinBeatsPerWindow {
				continue
			}

			sdnn := stat.StdDev(acc.values, nil)
			f := models.HRVFeature{
				SubjectID:      acc.subjectID,
				SessionID:      sessionID,
				TimeWindow:     w,
				BeatCount:      len(acc.values),
				SDNN:           sdnn,
				HRVCategory:    hrvCategory(sdnn),
				RecoveryStatus: models.RecoveryPoor,
			}

			if len(acc.diffs) > 0 {
				rmssd := rootMeanSquare(acc.diffs)
				f.RMSSD = &rmssd
				f.RecoveryStatus = recoveryStatus(rmssd)

				exceeding := 0
				for _, d := range acc.diffs {
					if math.Abs(d) > PNN50ThresholdMillis {
						exceeding++
					}
				}
				pnn50 := 100 * float64(exceeding) / float64(len(acc.diffs))
				f.PNN50 = &pnn50
			}

			result.Features = append(result.Features, f)
		}
	}

	return result
}

// rootMeanSquare 相邻差的均方根
func rootMeanSquare(diffs []float64) float64 {
	var sumSquares float64
	for _, d := range diffs {
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(diffs)))
}

// hrvCategory SDNN 固定阈值分类
func hrvCategory(sdnn float64) string {
	switch {
	case sdnn < 20:
		return models.HRVCategoryVeryLow
	case sdnn < 50:
		return models.HRVCategoryLow
	case sdnn < 100:
		return models.HRVCategoryNormal
	default:
		return models.HRVCategoryHigh
	}
}

// recoveryStatus RMSSD 固定阈值分类
func recoveryStatus(rmssd float64) string {
	switch {
	case rmssd < 15:
		return models.RecoveryPoor
	case rmssd < 30:
		return models.RecoveryModerate
	default:
		return models.RecoveryGood
	}
}
