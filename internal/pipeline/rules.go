package pipeline

import "wearable-analytics/internal/models"

// ProfileRule 受试者画像分类规则：谓词 + 标签
//
// 分类链按声明顺序自上而下求值，第一条匹配的规则获胜，
// 后续规则不再求值。规则顺序是语义的一部分，调整顺序会改变分群结果。
type ProfileRule struct {
	Label   string
	Matches func(p *models.SubjectProfile) bool
}

// EvaluateRules 依序求值规则链，返回首条匹配规则的标签；无匹配时返回 fallback
func EvaluateRules(rules []ProfileRule, p *models.SubjectProfile, fallback string) string {
	for _, r := range rules {
		if r.Matches(p) {
			return r.Label
		}
	}
	return fallback
}

// gtPtr 指针比较辅助：nil 视为不超阈
func gtPtr(v *float64, threshold float64) bool {
	return v != nil && *v > threshold
}

// ltPtr 指针比较辅助：nil 视为不低于阈值
func ltPtr(v *float64, threshold float64) bool {
	return v != nil && *v < threshold
}
