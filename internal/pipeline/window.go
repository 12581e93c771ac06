// Package pipeline 实现生理信号特征计算流水线
//
// 四个阶段，每个阶段只读取上一阶段的物化输出：
// 1. 信号分窗与透视（长表 → 宽表，按分钟窗口）
// 2. 基线计算（会话前3分钟均值）
// 3. 特征推导（压力指数、HRV、训练区间）
// 4. 汇总与分类（会话/受试者级别）
//
// 所有阶段均为纯函数（输入 → 输出），每次运行整体重算，
// 输出按键排序以保证重复运行结果完全一致。
package pipeline

import (
	"sort"
	"time"

	"wearable-analytics/internal/models"

	"gonum.org/v1/gonum/stat"
)

// windowKey 分窗键：(受试者, 会话, 分钟窗口)
type windowKey struct {
	subjectID string
	sessionID string
	window    time.Time
}

// ComputeWindows 将原始测量数据按分钟窗口分桶并透视为宽表
//
// 窗口由时间戳截断到分钟定义（而非固定样本数分批），
// 因此不同采样率的信号（1 Hz HR 与 64 Hz BVP）天然对齐，无需插值。
// 窗口内某信号无样本时该信号的聚合为 nil（不得填零，零是合法的生理增量）。
//
// IBI 不参与透视：HRV 阶段需要保留逐搏顺序，直接消费原始 IBI 序列。
func ComputeWindows(measurements []models.Measurement) []models.WindowedFeature {
	// 按 (受试者, 会话, 窗口, 信号) 收集样本值
	samples := make(map[windowKey]map[string][]float64)

	for _, m := range measurements {
		if m.SignalType == models.SignalIBI {
			continue
		}

		key := windowKey{
			subjectID: m.SubjectID,
			sessionID: m.SessionID,
			window:    m.Timestamp.UTC().Truncate(time.Minute),
		}

		bySignal, ok := samples[key]
		if !ok {
			bySignal = make(map[string][]float64)
			samples[key] = bySignal
		}
		bySignal[m.SignalType] = append(bySignal[m.SignalType], m.Value)
	}

	features := make([]models.WindowedFeature, 0, len(samples))
	for key, bySignal := range samples {
		f := models.WindowedFeature{
			SubjectID:  key.subjectID,
			SessionID:  key.sessionID,
			TimeWindow: key.window,
			BVP:        newSignalStats(bySignal[models.SignalBVP]),
			EDA:        newSignalStats(bySignal[models.SignalEDA]),
			Temp:       newSignalStats(bySignal[models.SignalTemp]),
			AccX:       newSignalStats(bySignal[models.SignalAccX]),
			AccY:       newSignalStats(bySignal[models.SignalAccY]),
			AccZ:       newSignalStats(bySignal[models.SignalAccZ]),
			HR:         newSignalStats(bySignal[models.SignalHR]),
		}

		// EDA 峰值幅度代理：窗口内 max - min
		if eda := bySignal[models.SignalEDA]; len(eda) > 0 {
			min, max := eda[0], eda[0]
			for _, v := range eda[1:] {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			edaRange := max - min
			f.EDARange = &edaRange
		}

		features = append(features, f)
	}

	sortWindowedFeatures(features)
	return features
}

// newSignalStats 计算单信号的窗口统计；无样本返回 nil
func newSignalStats(values []float64) *models.SignalStats {
	if len(values) == 0 {
		return nil
	}

	s := &models.SignalStats{
		Mean:  stat.Mean(values, nil),
		Count: len(values),
	}

	// 样本标准差需要至少2个样本
	if len(values) >= 2 {
		sd := stat.StdDev(values, nil)
		s.StdDev = &sd
	}

	return s
}

func sortWindowedFeatures(features []models.WindowedFeature) {
	sort.Slice(features, func(i, j int) bool {
		if features[i].SubjectID != features[j].SubjectID {
			return features[i].SubjectID < features[j].SubjectID
		}
		if features[i].SessionID != features[j].SessionID {
			return features[i].SessionID < features[j].SessionID
		}
		return features[i].TimeWindow.Before(features[j].TimeWindow)
	})
}
