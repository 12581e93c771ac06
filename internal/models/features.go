package models

import "time"

// SignalStats 单信号在一个时间窗口内的聚合统计
// 窗口内该信号无样本时整个结构为 nil（不得用零值代替，零是合法的生理增量）
type SignalStats struct {
	Mean   float64  `json:"mean"`
	StdDev *float64 `json:"std_dev,omitempty"` // 样本数<2时为 nil
	Count  int      `json:"count"`
}

// WindowedFeature 按 (受试者, 会话, 分钟窗口) 透视后的信号特征
// 每次流水线运行整体重算（drop-and-replace），不做增量更新
type WindowedFeature struct {
	SubjectID  string    `json:"subject_id"`
	SessionID  string    `json:"session_id"`
	TimeWindow time.Time `json:"time_window"` // 截断到分钟

	BVP  *SignalStats `json:"bvp,omitempty"`
	EDA  *SignalStats `json:"eda,omitempty"`
	Temp *SignalStats `json:"temp,omitempty"`
	AccX *SignalStats `json:"acc_x,omitempty"`
	AccY *SignalStats `json:"acc_y,omitempty"`
	AccZ *SignalStats `json:"acc_z,omitempty"`
	HR   *SignalStats `json:"hr,omitempty"`

	// EDA 峰值幅度代理（窗口内 max-min）
	EDARange *float64 `json:"eda_range,omitempty"`
}

// Baseline 受试者会话基线（会话开始后前3分钟的信号均值）
// 不变式：窗口缺少基线时不计算压力指数（inner-join 语义，直接丢弃）
type Baseline struct {
	SubjectID    string    `json:"subject_id"`
	SessionID    string    `json:"session_id"`
	SessionStart time.Time `json:"session_start"`
	EDA          *float64  `json:"baseline_eda,omitempty"`
	HR           *float64  `json:"baseline_hr,omitempty"`
	Temp         *float64  `json:"baseline_temp,omitempty"`
	SampleCount  int       `json:"sample_count"`
}

// 压力状态
const (
	StressStateStressed = "STRESSED"
	StressStateCalm     = "CALM"
)

// StressFeature 单窗口压力特征
type StressFeature struct {
	SubjectID  string    `json:"subject_id"`
	SessionID  string    `json:"session_id"`
	TimeWindow time.Time `json:"time_window"`

	EDAChangePct *float64 `json:"eda_change_pct,omitempty"` // 安全除法：基线为零/空时为 nil
	HRChangePct  *float64 `json:"hr_change_pct,omitempty"`
	TempDelta    *float64 `json:"temp_delta,omitempty"` // 绝对差，非相对

	// 固定线性加权，结果无归一化保证（可能超出[0,1]）
	StressIndex *float64 `json:"stress_index,omitempty"`
	StressState string   `json:"stress_state"`
}

// HRV 分类
const (
	HRVCategoryVeryLow = "VERY_LOW"
	HRVCategoryLow     = "LOW"
	HRVCategoryNormal  = "NORMAL"
	HRVCategoryHigh    = "HIGH"

	RecoveryPoor     = "POOR"
	RecoveryModerate = "MODERATE"
	RecoveryGood     = "GOOD"
)

// HRVFeature 单窗口心率变异性特征
// 仅报告窗口内合格心搏数 >= 5 的窗口
type HRVFeature struct {
	SubjectID  string    `json:"subject_id"`
	SessionID  string    `json:"session_id"`
	TimeWindow time.Time `json:"time_window"`

	BeatCount      int      `json:"beat_count"`
	SDNN           float64  `json:"sdnn"`             // IBI标准差（毫秒）
	RMSSD          *float64 `json:"rmssd,omitempty"`  // 相邻差均方根；窗口内无相邻差时为 nil
	PNN50          *float64 `json:"pnn50,omitempty"`  // |相邻差|>50ms 的百分比
	HRVCategory    string   `json:"hrv_category"`     // 基于SDNN的固定阈值
	RecoveryStatus string   `json:"recovery_status"`  // 基于RMSSD的固定阈值
}

// 训练区间（6档，按最大心率百分比划分）
const (
	ZoneRecovery  = "ZONE_0_RECOVERY"  // <50%
	ZoneWarmUp    = "ZONE_1_WARM_UP"   // 50-60%
	ZoneEasy      = "ZONE_2_EASY"      // 60-70%
	ZoneHard      = "ZONE_3_HARD"      // 70-80%
	ZoneThreshold = "ZONE_4_THRESHOLD" // 80-90%
	ZoneMaximum   = "ZONE_5_MAXIMUM"   // >=90%
)

// ZoneMinute 按 (会话, 分钟窗口, 区间) 的训练区间聚合
type ZoneMinute struct {
	SubjectID    string    `json:"subject_id"`
	SessionID    string    `json:"session_id"`
	TimeWindow   time.Time `json:"time_window"`
	Zone         string    `json:"zone"`
	SampleCount  int       `json:"sample_count"`   // 该窗口落入该区间的HR样本数（1 Hz）
	MinutesIn    float64   `json:"minutes_in"`     // sample_count / 60
	EffortPoints float64   `json:"effort_points"`  // 每样本 points_per_minute/60
	AvgHR        float64   `json:"avg_hr"`
	HRPercentage float64   `json:"hr_percentage"`  // 平均HR占最大心率的百分比
}

// SessionSummary 会话级汇总
type SessionSummary struct {
	SessionID   string `json:"session_id"`
	SubjectID   string `json:"subject_id"`
	SessionType string `json:"session_type"`

	AvgHR *float64 `json:"avg_hr,omitempty"`
	MaxHR *float64 `json:"max_hr,omitempty"`
	MinHR *float64 `json:"min_hr,omitempty"`

	TotalEffortScore float64            `json:"total_effort_score"`
	MinutesByZone    map[string]float64 `json:"minutes_by_zone,omitempty"`

	WindowCount     int      `json:"window_count"`
	StressedWindows int      `json:"stressed_windows"`
	StressedShare   *float64 `json:"stressed_share,omitempty"` // 有压力特征窗口时才有值
	AvgStressIndex  *float64 `json:"avg_stress_index,omitempty"`

	AvgSDNN  *float64 `json:"avg_sdnn,omitempty"`
	AvgRMSSD *float64 `json:"avg_rmssd,omitempty"`
}

// 受试者压力画像
const (
	StressProfileHighStress = "HIGH_STRESS"
	StressProfileModerate   = "MODERATE_STRESS"
	StressProfileResilient  = "RESILIENT"
)

// 用户分群
const (
	SegmentAthlete         = "ATHLETE"
	SegmentRecoveryFocused = "RECOVERY_FOCUSED"
	SegmentStressProne     = "STRESS_PRONE"
	SegmentActive          = "ACTIVE"
	SegmentGeneralWellness = "GENERAL_WELLNESS"
)

// SubjectProfile 受试者级画像（基于全部会话的生命周期汇总）
type SubjectProfile struct {
	SubjectID string `json:"subject_id"`
	Cohort    string `json:"cohort"`

	SessionCount     int      `json:"session_count"`
	AvgRMSSD         *float64 `json:"avg_rmssd,omitempty"`
	AvgSDNN          *float64 `json:"avg_sdnn,omitempty"`
	LowHRVShare      *float64 `json:"low_hrv_share,omitempty"` // SDNN<50 窗口占比
	StressedShare    *float64 `json:"stressed_share,omitempty"`
	PeakIntensityPct *float64 `json:"peak_intensity_pct,omitempty"` // 训练会话中最高HR百分比
	TotalEffortScore float64  `json:"total_effort_score"`

	StressProfile string `json:"stress_profile"`
	Segment       string `json:"segment"`
}

// RunSummary 一次流水线运行的汇总（发布到输出流、webhook和缓存）
type RunSummary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Trigger     string    `json:"trigger"` // "stream" / "interval" / "manual"
	SessionsIn  int       `json:"sessions_in"`
	WindowCount int       `json:"window_count"`
	HRVWindows  int       `json:"hrv_windows"`
	StressRows  int       `json:"stress_rows"`
	ZoneRows    int       `json:"zone_rows"`
	Subjects    int       `json:"subjects"`

	// 数据质量：被过滤的不合理原始值计数（仅监控，不参与分类）
	ImplausibleHR  int `json:"implausible_hr"`
	ImplausibleIBI int `json:"implausible_ibi"`
}
