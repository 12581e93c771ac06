package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawSample 设备实时样本（来自 MQTT → Redis Streams 的实时采集链路）
type RawSample struct {
	SubjectID   string  `json:"subject_id"`
	SessionID   string  `json:"session_id"`
	SessionType string  `json:"session_type"`
	SignalType  string  `json:"signal_type"`
	Value       float64 `json:"value"`
	Timestamp   int64   `json:"timestamp"` // Unix秒
}

// TriggerEvent 流水线运行触发事件（加载器完成一次会话加载后发布）
type TriggerEvent struct {
	Reason    string `json:"reason"`               // 如 "session_loaded"
	SessionID string `json:"session_id,omitempty"` // 触发来源会话（仅供日志）
	Source    string `json:"source"`               // 如 "load-measurements"
	Timestamp int64  `json:"timestamp"`
}

// ParseStreamJSON 解析 Streams 消息中的 data 字段（PublishJSONToStream 的逆操作）
func ParseStreamJSON(values map[string]interface{}, out interface{}) error {
	raw, ok := values["data"]
	if !ok {
		return fmt.Errorf("stream message missing data field")
	}

	dataStr, ok := raw.(string)
	if !ok {
		return fmt.Errorf("stream data field is %T, want string", raw)
	}

	if err := json.Unmarshal([]byte(dataStr), out); err != nil {
		return fmt.Errorf("failed to unmarshal stream data: %w", err)
	}

	return nil
}

// ToMeasurement 将实时样本转换为测量记录
func (s *RawSample) ToMeasurement(measurementID string) Measurement {
	return Measurement{
		MeasurementID: measurementID,
		SubjectID:     s.SubjectID,
		SessionID:     s.SessionID,
		Timestamp:     time.Unix(s.Timestamp, 0).UTC(),
		SignalType:    s.SignalType,
		Value:         s.Value,
		SessionType:   s.SessionType,
		QualityFlag:   "VALID",
	}
}

// Validate 校验实时样本的必填字段
func (s *RawSample) Validate() error {
	if s.SubjectID == "" {
		return fmt.Errorf("raw sample missing subject_id")
	}
	if s.SessionID == "" {
		return fmt.Errorf("raw sample missing session_id")
	}
	switch s.SignalType {
	case SignalBVP, SignalEDA, SignalTemp, SignalAccX, SignalAccY, SignalAccZ, SignalHR, SignalIBI:
	default:
		return fmt.Errorf("unknown signal type: %s", s.SignalType)
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("raw sample missing timestamp")
	}
	return nil
}
