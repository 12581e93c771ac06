package pipeline_test

import (
	"testing"

	"wearable-analytics/internal/models"
	"wearable-analytics/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRules_FirstMatchWins(t *testing.T) {
	// 两条规则都匹配时取声明顺序靠前的一条
	rules := []pipeline.ProfileRule{
		{Label: "first", Matches: func(p *models.SubjectProfile) bool { return true }},
		{Label: "second", Matches: func(p *models.SubjectProfile) bool { return true }},
	}

	assert.Equal(t, "first", pipeline.EvaluateRules(rules, &models.SubjectProfile{}, "fallback"))
}

func TestEvaluateRules_FallbackWhenNoMatch(t *testing.T) {
	rules := []pipeline.ProfileRule{
		{Label: "never", Matches: func(p *models.SubjectProfile) bool { return false }},
	}

	assert.Equal(t, "fallback", pipeline.EvaluateRules(rules, &models.SubjectProfile{}, "fallback"))
}

func TestEvaluateRules_OrderChangesOutcome(t *testing.T) {
	// 规则顺序是语义的一部分
	p := &models.SubjectProfile{TotalEffortScore: 10}
	matchEffort := pipeline.ProfileRule{
		Label:   "active",
		Matches: func(p *models.SubjectProfile) bool { return p.TotalEffortScore > 0 },
	}
	matchAll := pipeline.ProfileRule{
		Label:   "general",
		Matches: func(p *models.SubjectProfile) bool { return true },
	}

	assert.Equal(t, "active", pipeline.EvaluateRules([]pipeline.ProfileRule{matchEffort, matchAll}, p, "x"))
	assert.Equal(t, "general", pipeline.EvaluateRules([]pipeline.ProfileRule{matchAll, matchEffort}, p, "x"))
}
