// Package export 生成分析结果的 Excel 报告
package export

import (
	"fmt"

	"wearable-analytics/internal/models"

	"github.com/xuri/excelize/v2"
)

// 会话汇总表头
var sessionSummaryHeader = []string{
	"Subject ID",
	"Session ID",
	"Session Type",
	"Avg HR",
	"Max HR",
	"Min HR",
	"Total Effort Score",
	"Window Count",
	"Stressed Windows",
	"Stressed Share",
	"Avg Stress Index",
	"Avg SDNN",
	"Avg RMSSD",
}

// 受试者画像表头
var subjectProfileHeader = []string{
	"Subject ID",
	"Cohort",
	"Session Count",
	"Avg RMSSD",
	"Avg SDNN",
	"Low HRV Share",
	"Stressed Share",
	"Peak Intensity %",
	"Total Effort Score",
	"Stress Profile",
	"Segment",
}

// GenerateAnalyticsReport 生成分析报告 Excel 文件
// 两个工作表：会话汇总 + 受试者画像
func GenerateAnalyticsReport(summaries []models.SessionSummary, profiles []models.SubjectProfile) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：出错路径才 Close，正常路径 WriteToBuffer 需要文件保持打开

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 会话汇总工作表
	sessionSheet := "Session Summaries"
	index, err := f.NewSheet(sessionSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	if err := writeHeader(f, sessionSheet, sessionSummaryHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	for i, s := range summaries {
		row := []interface{}{
			s.SubjectID,
			s.SessionID,
			s.SessionType,
			floatCell(s.AvgHR),
			floatCell(s.MaxHR),
			floatCell(s.MinHR),
			s.TotalEffortScore,
			s.WindowCount,
			s.StressedWindows,
			floatCell(s.StressedShare),
			floatCell(s.AvgStressIndex),
			floatCell(s.AvgSDNN),
			floatCell(s.AvgRMSSD),
		}
		if err := writeRow(f, sessionSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 受试者画像工作表
	profileSheet := "Subject Profiles"
	if _, err := f.NewSheet(profileSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeHeader(f, profileSheet, subjectProfileHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	for i, p := range profiles {
		row := []interface{}{
			p.SubjectID,
			p.Cohort,
			p.SessionCount,
			floatCell(p.AvgRMSSD),
			floatCell(p.AvgSDNN),
			floatCell(p.LowHRVShare),
			floatCell(p.StressedShare),
			floatCell(p.PeakIntensityPct),
			p.TotalEffortScore,
			p.StressProfile,
			p.Segment,
		}
		if err := writeRow(f, profileSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to set header cell: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell: %w", err)
		}
	}
	return nil
}

// floatCell 空值以空单元格呈现，而不是 0
func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
