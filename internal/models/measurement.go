package models

import "time"

// 信号类型（Empatica E4 传感器信号）
const (
	SignalBVP  = "BVP"   // 血容量脉搏（64 Hz）
	SignalEDA  = "EDA"   // 皮肤电活动（4 Hz）
	SignalTemp = "TEMP"  // 皮肤温度（4 Hz）
	SignalAccX = "ACC_X" // 加速度X轴（32 Hz，单位g）
	SignalAccY = "ACC_Y" // 加速度Y轴
	SignalAccZ = "ACC_Z" // 加速度Z轴
	SignalHR   = "HR"    // 心率（1 Hz）
	SignalIBI  = "IBI"   // 心搏间期（毫秒，事件驱动）
)

// 会话类型
const (
	SessionTypeStress    = "STRESS"
	SessionTypeAerobic   = "AEROBIC"
	SessionTypeAnaerobic = "ANAEROBIC"
)

// Measurement 原始生理测量数据（追加写入，不可变）
type Measurement struct {
	MeasurementID string    `json:"measurement_id"`
	SubjectID     string    `json:"subject_id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"measurement_timestamp"`
	SignalType    string    `json:"signal_type"`
	Value         float64   `json:"value"`
	SessionType   string    `json:"session_type"`
	QualityFlag   string    `json:"data_quality_flag"`
}

// Session 会话元数据（一个受试者可有多个会话，一个会话属于一个受试者）
type Session struct {
	SessionID        string    `json:"session_id"`
	SubjectID        string    `json:"subject_id"`
	SessionType      string    `json:"session_type"`
	ProtocolVersion  string    `json:"protocol_version"` // V1 / V2
	StartTime        time.Time `json:"session_start_time"`
	EndTime          time.Time `json:"session_end_time"`
	DurationMinutes  float64   `json:"duration_minutes"`
	DataQualityNotes *string   `json:"data_quality_notes,omitempty"`
}

// Subject 受试者静态信息
type Subject struct {
	SubjectID      string     `json:"subject_id"`
	Cohort         string     `json:"cohort"` // V1 / V2
	Age            int        `json:"age"`
	Gender         string     `json:"gender"`
	HeightCM       *float64   `json:"height_cm,omitempty"`
	WeightKG       *float64   `json:"weight_kg,omitempty"`
	BMI            *float64   `json:"bmi,omitempty"`
	EnrollmentDate *time.Time `json:"enrollment_date,omitempty"`
}
