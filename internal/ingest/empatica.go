// Package ingest 解析 Empatica E4 原始数据文件并生成测量记录
//
// 数据集目录结构：{STRESS|AEROBIC|ANAEROBIC}/{subject_id}/{SIGNAL}.csv
// 文件格式：首行为起始时间（Unix秒或日期时间字符串），次行为采样率，
// 之后为数据行。ACC 为三列（X/Y/Z，原始值除以64转为g），
// IBI 为两列（相对起始的秒偏移 + 心搏间期秒数），其余信号单列。
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wearable-analytics/internal/models"
)

// 信号文件名 → 信号类型
var signalFiles = map[string]string{
	"BVP.csv":  models.SignalBVP,
	"EDA.csv":  models.SignalEDA,
	"TEMP.csv": models.SignalTemp,
	"ACC.csv":  "ACC",
	"HR.csv":   models.SignalHR,
	"IBI.csv":  models.SignalIBI,
}

// accAxes ACC 文件的三列对应的信号类型
var accAxes = []string{models.SignalAccX, models.SignalAccY, models.SignalAccZ}

// accScale ACC 原始值转为 g 的除数
const accScale = 64.0

// ibiSecondsToMillis IBI 以秒记录，入库统一为毫秒
const ibiSecondsToMillis = 1000.0

// KnownIssues 已知数据质量问题（按会话类型 → 受试者）
// 来自数据集的 data_constraints 说明
var KnownIssues = map[string]map[string]string{
	models.SessionTypeStress: {
		"S02": "duplicated_data",
		"f07": "invalid_signals_no_cover_removed",
		"f14": "split_data",
	},
	models.SessionTypeAerobic: {
		"S03": "incomplete_procedure",
		"S07": "incomplete_procedure",
		"S11": "split_data",
		"S12": "test_not_performed",
	},
	models.SessionTypeAnaerobic: {
		"S06": "incomplete_procedure",
		"S16": "split_data",
	},
}

// 无论如何都排除的问题类型
var alwaysSkipIssues = map[string]bool{
	"test_not_performed":               true,
	"invalid_signals_no_cover_removed": true,
}

// ShouldSkipSubject 判断受试者是否应跳过加载
// 返回 (是否跳过, 问题说明)；includeProblematic 为 true 时仅跳过必须排除的问题
func ShouldSkipSubject(subjectID, sessionType string, includeProblematic bool) (bool, string) {
	issues, ok := KnownIssues[sessionType]
	if !ok {
		return false, ""
	}
	issue, ok := issues[subjectID]
	if !ok {
		return false, ""
	}
	if alwaysSkipIssues[issue] {
		return true, issue
	}
	if !includeProblematic {
		return true, issue
	}
	// 加载但记录问题
	return false, issue
}

// SignalFile 解析后的单信号文件
type SignalFile struct {
	StartTime  time.Time
	SampleRate float64
	Rows       [][]float64
}

// ParseSignalFile 解析 Empatica CSV 文件
//
// 起始时间兼容两种格式：Unix 秒（如 1361377519.0）
// 和日期时间字符串（如 "2013-02-20 17:55:19"，按 UTC 解释）。
func ParseSignalFile(r io.Reader) (*SignalFile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 列数不固定（ACC为3列，IBI为2列）

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file too short: %d rows", len(records))
	}

	startTime, err := parseStartTime(strings.TrimSpace(records[0][0]))
	if err != nil {
		return nil, err
	}

	sampleRate, err := strconv.ParseFloat(strings.TrimSpace(records[1][0]), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sample rate: %w", err)
	}

	rows := make([][]float64, 0, len(records)-2)
	for i, record := range records[2:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse row %d col %d: %w", i+2, j, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	return &SignalFile{
		StartTime:  startTime,
		SampleRate: sampleRate,
		Rows:       rows,
	}, nil
}

func parseStartTime(value string) (time.Time, error) {
	// 先按 Unix 秒解析
	if unix, err := strconv.ParseFloat(value, 64); err == nil {
		sec := int64(unix)
		nsec := int64((unix - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	// 退回到日期时间字符串
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse start time: %q", value)
}

// MeasurementsFromSignal 将解析后的信号文件展开为测量记录
//
// 常规信号按采样率推算逐样本时间戳；IBI 使用每行自带的秒偏移；
// ACC 每行展开为 X/Y/Z 三条记录并转为 g。
func MeasurementsFromSignal(f *SignalFile, subjectID, sessionID, sessionType, signalType string) ([]models.Measurement, error) {
	var measurements []models.Measurement

	switch signalType {
	case "ACC":
		for i, row := range f.Rows {
			if len(row) < 3 {
				return nil, fmt.Errorf("acc row %d has %d columns, want 3", i, len(row))
			}
			ts := f.StartTime.Add(sampleOffset(i, f.SampleRate))
			for axis, signal := range accAxes {
				measurements = append(measurements, models.Measurement{
					MeasurementID: fmt.Sprintf("%s_%s_%d", sessionID, signal, i),
					SubjectID:     subjectID,
					SessionID:     sessionID,
					Timestamp:     ts,
					SignalType:    signal,
					Value:         row[axis] / accScale,
					SessionType:   sessionType,
					QualityFlag:   "VALID",
				})
			}
		}

	case models.SignalIBI:
		for i, row := range f.Rows {
			if len(row) < 2 {
				return nil, fmt.Errorf("ibi row %d has %d columns, want 2", i, len(row))
			}
			offset := time.Duration(row[0] * float64(time.Second))
			measurements = append(measurements, models.Measurement{
				MeasurementID: fmt.Sprintf("%s_IBI_%d", sessionID, i),
				SubjectID:     subjectID,
				SessionID:     sessionID,
				Timestamp:     f.StartTime.Add(offset),
				SignalType:    models.SignalIBI,
				Value:         row[1] * ibiSecondsToMillis,
				SessionType:   sessionType,
				QualityFlag:   "VALID",
			})
		}

	default:
		for i, row := range f.Rows {
			if len(row) < 1 {
				continue
			}
			measurements = append(measurements, models.Measurement{
				MeasurementID: fmt.Sprintf("%s_%s_%d", sessionID, signalType, i),
				SubjectID:     subjectID,
				SessionID:     sessionID,
				Timestamp:     f.StartTime.Add(sampleOffset(i, f.SampleRate)),
				SignalType:    signalType,
				Value:         row[0],
				SessionType:   sessionType,
				QualityFlag:   "VALID",
			})
		}
	}

	return measurements, nil
}

func sampleOffset(index int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(index) / sampleRate * float64(time.Second))
}

// LoadSubjectSession 加载一个受试者某次会话的全部信号文件
//
// 缺失的信号文件跳过（不报错），单个文件解析失败记为错误返回。
// 返回的测量记录与据此推导的会话元数据（起止时间取测量时间戳的最小/最大值）。
func LoadSubjectSession(baseDir, subjectID, sessionType string, quality string) ([]models.Measurement, *models.Session, error) {
	sessionID := fmt.Sprintf("%s_%s", subjectID, sessionType)
	subjectDir := filepath.Join(baseDir, sessionType, subjectID)

	var all []models.Measurement
	for filename, signalType := range signalFiles {
		path := filepath.Join(subjectDir, filename)
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
		}

		parsed, err := ParseSignalFile(file)
		file.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		measurements, err := MeasurementsFromSignal(parsed, subjectID, sessionID, sessionType, signalType)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to expand %s: %w", path, err)
		}
		all = append(all, measurements...)
	}

	if len(all) == 0 {
		return nil, nil, fmt.Errorf("no signal data found in %s", subjectDir)
	}

	session := sessionFromMeasurements(sessionID, subjectID, sessionType, all, quality)
	return all, session, nil
}

// sessionFromMeasurements 从测量记录推导会话元数据
func sessionFromMeasurements(sessionID, subjectID, sessionType string, measurements []models.Measurement, quality string) *models.Session {
	minTime, maxTime := measurements[0].Timestamp, measurements[0].Timestamp
	for _, m := range measurements[1:] {
		if m.Timestamp.Before(minTime) {
			minTime = m.Timestamp
		}
		if m.Timestamp.After(maxTime) {
			maxTime = m.Timestamp
		}
	}

	session := &models.Session{
		SessionID:       sessionID,
		SubjectID:       subjectID,
		SessionType:     sessionType,
		ProtocolVersion: CohortForSubject(subjectID),
		StartTime:       minTime,
		EndTime:         maxTime,
		DurationMinutes: maxTime.Sub(minTime).Minutes(),
	}
	if quality != "" {
		session.DataQualityNotes = &quality
	}
	return session
}

// CohortForSubject 按受试者编号前缀判断采集批次：S* 为 V1，其余为 V2
func CohortForSubject(subjectID string) string {
	if strings.HasPrefix(subjectID, "S") {
		return "V1"
	}
	return "V2"
}
