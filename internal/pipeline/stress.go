package pipeline

import (
	"wearable-analytics/internal/models"
)

// 压力分类阈值（固定常量，不按受试者配置）
const (
	EDAStressThreshold = 0.20 // eda_change_pct 超过此值判定为 STRESSED
	HRStressThreshold  = 0.15 // hr_change_pct 超过此值判定为 STRESSED
)

// 压力指数的固定线性权重
//
// 注意：该指数是百分比变化与绝对温差的无界线性组合，没有归一化保证，
// 结果可能超出 [0,1]。下游若按概率型分数使用需自行确认（已知问题，按原定义保留）。
const (
	stressWeightEDA     = 0.4
	stressWeightHR      = 0.3
	stressWeightTemp    = 0.2
	stressWeightHRStd   = 0.1
	stressTempDivisor   = 2.0
	stressHRStdDivisor  = 100.0
)

// ComputeStress 计算每个窗口的压力特征
//
// 仅对存在基线的 (受试者, 会话) 计算（inner-join 语义）：
// 没有基线就不报告压力指数，而不是用默认基线兜底。
// 基线为零或缺失时百分比变化为 nil（安全除法），nil 沿算式传播。
func ComputeStress(windows []models.WindowedFeature, baselines []models.Baseline) []models.StressFeature {
	baselineBySession := make(map[string]models.Baseline, len(baselines))
	for _, b := range baselines {
		baselineBySession[b.SessionID] = b
	}

	features := make([]models.StressFeature, 0, len(windows))
	for _, w := range windows {
		baseline, ok := baselineBySession[w.SessionID]
		if !ok {
			// 无基线的窗口直接丢弃
			continue
		}

		f := models.StressFeature{
			SubjectID:  w.SubjectID,
			SessionID:  w.SessionID,
			TimeWindow: w.TimeWindow,
		}

		f.EDAChangePct = safePctChange(w.EDA, baseline.EDA)
		f.HRChangePct = safePctChange(w.HR, baseline.HR)

		if w.Temp != nil && baseline.Temp != nil {
			delta := w.Temp.Mean - *baseline.Temp
			f.TempDelta = &delta
		}

		f.StressIndex = stressIndex(f.EDAChangePct, f.HRChangePct, f.TempDelta, hrStdDev(w.HR))
		f.StressState = classifyStressState(f.EDAChangePct, f.HRChangePct)

		features = append(features, f)
	}

	return features
}

// safePctChange 安全除法：基线为 nil 或零时返回 nil，而不是除零错误
func safePctChange(avg *models.SignalStats, baseline *float64) *float64 {
	if avg == nil || baseline == nil || *baseline == 0 {
		return nil
	}
	pct := (avg.Mean - *baseline) / *baseline
	return &pct
}

// stressIndex 固定线性加权的压力指数；任一分量缺失时为 nil（null 传播）
func stressIndex(edaChange, hrChange, tempDelta, hrStd *float64) *float64 {
	if edaChange == nil || hrChange == nil || tempDelta == nil || hrStd == nil {
		return nil
	}
	idx := stressWeightEDA**edaChange +
		stressWeightHR**hrChange +
		stressWeightTemp*(*tempDelta/stressTempDivisor) +
		stressWeightHRStd*(1 - *hrStd/stressHRStdDivisor)
	return &idx
}

// classifyStressState 二元压力分类
// STRESSED 当且仅当 eda_change_pct > 0.2 或 hr_change_pct > 0.15（nil 视为不超阈）
func classifyStressState(edaChange, hrChange *float64) string {
	if edaChange != nil && *edaChange > EDAStressThreshold {
		return models.StressStateStressed
	}
	if hrChange != nil && *hrChange > HRStressThreshold {
		return models.StressStateStressed
	}
	return models.StressStateCalm
}

func hrStdDev(hr *models.SignalStats) *float64 {
	if hr == nil {
		return nil
	}
	return hr.StdDev
}
