package pipeline

import (
	"sort"
	"time"

	"wearable-analytics/internal/models"

	"gonum.org/v1/gonum/stat"
)

// BaselineWindowMinutes 基线窗口：会话开始后的前3分钟
const BaselineWindowMinutes = 3

// ComputeBaselines 按 (受试者, 会话) 计算个性化基线
//
// 基线为窗口均值落在会话开始后前3分钟内的信号均值。
// 前3分钟内无任何合格窗口的会话不产生基线行，
// 下游压力计算使用 inner-join 语义将其完全排除（不回退到默认/全局基线）。
// 会话不足3分钟时使用已有的窗口计算部分基线。
func ComputeBaselines(windows []models.WindowedFeature, sessions []models.Session) []models.Baseline {
	startBySession := make(map[string]time.Time, len(sessions))
	for _, s := range sessions {
		startBySession[s.SessionID] = s.StartTime.UTC()
	}

	type accumulator struct {
		subjectID string
		start     time.Time
		eda       []float64
		hr        []float64
		temp      []float64
		windows   int
	}

	acc := make(map[string]*accumulator)

	for _, w := range windows {
		start, ok := startBySession[w.SessionID]
		if !ok {
			continue
		}

		cutoff := start.Add(BaselineWindowMinutes * time.Minute)
		if !w.TimeWindow.Before(cutoff) {
			continue
		}

		a, ok := acc[w.SessionID]
		if !ok {
			a = &accumulator{subjectID: w.SubjectID, start: start}
			acc[w.SessionID] = a
		}
		a.windows++

		if w.EDA != nil {
			a.eda = append(a.eda, w.EDA.Mean)
		}
		if w.HR != nil {
			a.hr = append(a.hr, w.HR.Mean)
		}
		if w.Temp != nil {
			a.temp = append(a.temp, w.Temp.Mean)
		}
	}

	baselines := make([]models.Baseline, 0, len(acc))
	for sessionID, a := range acc {
		b := models.Baseline{
			SubjectID:    a.subjectID,
			SessionID:    sessionID,
			SessionStart: a.start,
			SampleCount:  a.windows,
		}
		if len(a.eda) > 0 {
			mean := stat.Mean(a.eda, nil)
			b.EDA = &mean
		}
		if len(a.hr) > 0 {
			mean := stat.Mean(a.hr, nil)
			b.HR = &mean
		}
		if len(a.temp) > 0 {
			mean := stat.Mean(a.temp, nil)
			b.Temp = &mean
		}
		baselines = append(baselines, b)
	}

	sort.Slice(baselines, func(i, j int) bool {
		if baselines[i].SubjectID != baselines[j].SubjectID {
			return baselines[i].SubjectID < baselines[j].SubjectID
		}
		return baselines[i].SessionID < baselines[j].SessionID
	})

	return baselines
}
