package pipeline

import (
	"sort"

	"wearable-analytics/internal/models"

	"gonum.org/v1/gonum/stat"
)

// ComputeSessionSummaries 将窗口级特征汇总到会话级
func ComputeSessionSummaries(
	sessions []models.Session,
	windows []models.WindowedFeature,
	stress []models.StressFeature,
	hrv []models.HRVFeature,
	zones []models.ZoneMinute,
) []models.SessionSummary {
	type sessionAcc struct {
		hrMeans      []float64
		stressIdx    []float64
		stressTotal  int
		stressedCnt  int
		sdnn         []float64
		rmssd        []float64
		effort       float64
		minutesByZone map[string]float64
		windowCount  int
	}
	acc := make(map[string]*sessionAcc, len(sessions))
	for _, s := range sessions {
		acc[s.SessionID] = &sessionAcc{minutesByZone: make(map[string]float64)}
	}

	for _, w := range windows {
		a, ok := acc[w.SessionID]
		if !ok {
			continue
		}
		a.windowCount++
		if w.HR != nil {
			a.hrMeans = append(a.hrMeans, w.HR.Mean)
		}
	}

	for _, f := range stress {
		a, ok := acc[f.SessionID]
		if !ok {
			continue
		}
		a.stressTotal++
		if f.StressState == models.StressStateStressed {
			a.stressedCnt++
		}
		if f.StressIndex != nil {
			a.stressIdx = append(a.stressIdx, *f.StressIndex)
		}
	}

	for _, f := range hrv {
		a, ok := acc[f.SessionID]
		if !ok {
			continue
		}
		a.sdnn = append(a.sdnn, f.SDNN)
		if f.RMSSD != nil {
			a.rmssd = append(a.rmssd, *f.RMSSD)
		}
	}

	for _, z := range zones {
		a, ok := acc[z.SessionID]
		if !ok {
			continue
		}
		a.effort += z.EffortPoints
		a.minutesByZone[z.Zone] += z.MinutesIn
	}

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		a := acc[s.SessionID]
		summary := models.SessionSummary{
			SessionID:        s.SessionID,
			SubjectID:        s.SubjectID,
			SessionType:      s.SessionType,
			TotalEffortScore: a.effort,
			WindowCount:      a.windowCount,
			StressedWindows:  a.stressedCnt,
		}

		if len(a.hrMeans) > 0 {
			avg := stat.Mean(a.hrMeans, nil)
			min, max := a.hrMeans[0], a.hrMeans[0]
			for _, v := range a.hrMeans[1:] {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			summary.AvgHR = &avg
			summary.MaxHR = &max
			summary.MinHR = &min
		}

		if a.stressTotal > 0 {
			share := float64(a.stressedCnt) / float64(a.stressTotal)
			summary.StressedShare = &share
		}
		if len(a.stressIdx) > 0 {
			avg := stat.Mean(a.stressIdx, nil)
			summary.AvgStressIndex = &avg
		}
		if len(a.sdnn) > 0 {
			avg := stat.Mean(a.sdnn, nil)
			summary.AvgSDNN = &avg
		}
		if len(a.rmssd) > 0 {
			avg := stat.Mean(a.rmssd, nil)
			summary.AvgRMSSD = &avg
		}
		if len(a.minutesByZone) > 0 {
			summary.MinutesByZone = a.minutesByZone
		}

		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].SubjectID != summaries[j].SubjectID {
			return summaries[i].SubjectID < summaries[j].SubjectID
		}
		return summaries[i].SessionID < summaries[j].SessionID
	})

	return summaries
}

// 用户分群规则链（顺序即语义，首条匹配生效）
var segmentRules = []ProfileRule{
	{
		// 高峰强度大且恢复能力好
		Label: models.SegmentAthlete,
		Matches: func(p *models.SubjectProfile) bool {
			return gtPtr(p.PeakIntensityPct, 85) && gtPtr(p.AvgRMSSD, 30)
		},
	},
	{
		// 低HRV窗口占比过半或RMSSD持续偏低
		Label: models.SegmentRecoveryFocused,
		Matches: func(p *models.SubjectProfile) bool {
			return gtPtr(p.LowHRVShare, 0.5) || ltPtr(p.AvgRMSSD, 20)
		},
	},
	{
		Label: models.SegmentStressProne,
		Matches: func(p *models.SubjectProfile) bool {
			return gtPtr(p.StressedShare, 0.4)
		},
	},
	{
		Label: models.SegmentActive,
		Matches: func(p *models.SubjectProfile) bool {
			return p.TotalEffortScore > 0
		},
	},
}

// 压力画像规则链
var stressProfileRules = []ProfileRule{
	{
		Label: models.StressProfileHighStress,
		Matches: func(p *models.SubjectProfile) bool {
			return gtPtr(p.StressedShare, 0.5)
		},
	},
	{
		Label: models.StressProfileModerate,
		Matches: func(p *models.SubjectProfile) bool {
			return gtPtr(p.StressedShare, 0.2)
		},
	},
}

// ComputeSubjectProfiles 将会话级与窗口级特征汇总到受试者级，并做分类
func ComputeSubjectProfiles(
	subjects []models.Subject,
	summaries []models.SessionSummary,
	stress []models.StressFeature,
	hrv []models.HRVFeature,
	zones []models.ZoneMinute,
) []models.SubjectProfile {
	type subjectAcc struct {
		sessions    int
		rmssd       []float64
		sdnn        []float64
		lowHRV      int
		hrvWindows  int
		stressed    int
		stressTotal int
		peakPct     float64
		hasZones    bool
		effort      float64
	}
	acc := make(map[string]*subjectAcc, len(subjects))
	for _, s := range subjects {
		acc[s.SubjectID] = &subjectAcc{}
	}

	for _, s := range summaries {
		a, ok := acc[s.SubjectID]
		if !ok {
			continue
		}
		a.sessions++
		a.effort += s.TotalEffortScore
	}

	for _, f := range hrv {
		a, ok := acc[f.SubjectID]
		if !ok {
			continue
		}
		a.hrvWindows++
		a.sdnn = append(a.sdnn, f.SDNN)
		if f.RMSSD != nil {
			a.rmssd = append(a.rmssd, *f.RMSSD)
		}
		if f.SDNN < 50 {
			a.lowHRV++
		}
	}

	for _, f := range stress {
		a, ok := acc[f.SubjectID]
		if !ok {
			continue
		}
		a.stressTotal++
		if f.StressState == models.StressStateStressed {
			a.stressed++
		}
	}

	for _, z := range zones {
		a, ok := acc[z.SubjectID]
		if !ok {
			continue
		}
		if !a.hasZones || z.HRPercentage > a.peakPct {
			a.peakPct = z.HRPercentage
			a.hasZones = true
		}
	}

	profiles := make([]models.SubjectProfile, 0, len(subjects))
	for _, s := range subjects {
		a := acc[s.SubjectID]
		p := models.SubjectProfile{
			SubjectID:        s.SubjectID,
			Cohort:           s.Cohort,
			SessionCount:     a.sessions,
			TotalEffortScore: a.effort,
		}

		if len(a.rmssd) > 0 {
			avg := stat.Mean(a.rmssd, nil)
			p.AvgRMSSD = &avg
		}
		if len(a.sdnn) > 0 {
			avg := stat.Mean(a.sdnn, nil)
			p.AvgSDNN = &avg
		}
		if a.hrvWindows > 0 {
			share := float64(a.lowHRV) / float64(a.hrvWindows)
			p.LowHRVShare = &share
		}
		if a.stressTotal > 0 {
			share := float64(a.stressed) / float64(a.stressTotal)
			p.StressedShare = &share
		}
		if a.hasZones {
			p.PeakIntensityPct = &a.peakPct
		}

		p.StressProfile = EvaluateRules(stressProfileRules, &p, models.StressProfileResilient)
		p.Segment = EvaluateRules(segmentRules, &p, models.SegmentGeneralWellness)

		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].SubjectID < profiles[j].SubjectID
	})

	return profiles
}
