package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wearable-analytics/internal/models"
)

// ParseSubjectInfo 解析受试者信息文件（subject-info.csv）
//
// 数值列可能带星号标注，清洗后解析；缺少编号/年龄/身高/体重的行丢弃。
// BMI 由身高体重计算，cohort 由编号前缀判断。
func ParseSubjectInfo(r io.Reader) ([]models.Subject, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read subject info: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("subject info has no data rows")
	}

	// 按表头定位列
	cols := make(map[string]int)
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}

	idCol, ok := cols["Info"]
	if !ok {
		return nil, fmt.Errorf("subject info missing 'Info' column")
	}

	subjects := make([]models.Subject, 0, len(records)-1)
	for _, row := range records[1:] {
		subjectID := strings.TrimSpace(row[idCol])
		if subjectID == "" {
			continue
		}

		age := cleanInt(fieldAt(row, cols, "Age"))
		height := cleanFloat(fieldAt(row, cols, "Height (cm)"))
		weight := cleanFloat(fieldAt(row, cols, "Weight (kg)"))

		// 关键字段缺失的行丢弃
		if age == nil || height == nil || weight == nil {
			continue
		}

		s := models.Subject{
			SubjectID: subjectID,
			Cohort:    CohortForSubject(subjectID),
			Age:       *age,
			Gender:    strings.ToUpper(strings.TrimSpace(fieldAt(row, cols, "Gender"))),
			HeightCM:  height,
			WeightKG:  weight,
		}

		bmi := *weight / ((*height / 100) * (*height / 100))
		s.BMI = &bmi

		subjects = append(subjects, s)
	}

	return subjects, nil
}

func fieldAt(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// cleanFloat 清洗数值字段：去掉星号标注与空白后解析，失败返回 nil
func cleanFloat(value string) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, "*", ""))
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func cleanInt(value string) *int {
	f := cleanFloat(value)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
