package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

func TestExplainSplitsStrengthsAndGaps(t *testing.T) {
	e := NewExplainer(NewAggregator(nil, nil))
	res := &domain.MatchResult{
		Features: map[string]float64{
			"skills_coverage":          0.95,
			"cultural_values_explicit": 0.90,
			"pref_salary":              0.10,
			"text_tfidf":               0.55, // mid band: neither
			"exp_years":                1.0,
		},
	}
	e.Explain(res)

	require.NotEmpty(t, res.Strengths)
	// skills coverage has the largest impact, so it leads
	assert.Equal(t, "skills_coverage", res.Strengths[0].Feature)
	for _, s := range res.Strengths {
		assert.GreaterOrEqual(t, s.Value, 0.75)
		assert.NotEqual(t, "text_tfidf", s.Feature)
	}

	require.Len(t, res.Gaps, 1)
	assert.Equal(t, "pref_salary", res.Gaps[0].Feature)
	assert.Contains(t, res.Suggestions, "Salary expectations diverge from the offered range")
}

func TestExplainCapsCounts(t *testing.T) {
	e := NewExplainer(NewAggregator(nil, nil))
	res := &domain.MatchResult{
		Features: map[string]float64{
			"skills_coverage": 1, "skills_exact_f1": 1, "skills_taxonomy": 1,
			"text_tfidf": 1, "text_bm25": 1, "text_title": 1,
			"pref_location": 0, "pref_salary": 0, "pref_work_mode": 0,
			"cultural_values_explicit": 0, "exp_years": 0,
		},
	}
	e.Explain(res)
	assert.Len(t, res.Strengths, 5)
	assert.Len(t, res.Gaps, 3)
}

func TestExplainSuggestsMissingSkills(t *testing.T) {
	e := NewExplainer(NewAggregator(nil, nil))
	res := &domain.MatchResult{
		Features: map[string]float64{"skills_coverage": 0.2},
		Missing: []domain.MissingRequirement{
			{Skill: "kubernetes", Required: true},
			{Skill: "terraform", Required: true},
			{Skill: "helm"},
		},
	}
	e.Explain(res)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, "Develop: kubernetes, terraform, helm", res.Suggestions[0])
}

func TestRankDeterministicTieBreak(t *testing.T) {
	results := []domain.MatchResult{
		{JobID: "j3", OverallScore: 0.7, Features: map[string]float64{"skills_coverage": 0.5}},
		{JobID: "j1", OverallScore: 0.7, Features: map[string]float64{"skills_coverage": 0.5}},
		{JobID: "j2", OverallScore: 0.7, Features: map[string]float64{"skills_coverage": 0.9}},
		{JobID: "j4", OverallScore: 0.9, Features: map[string]float64{"skills_coverage": 0.1}},
	}
	Rank(results)
	assert.Equal(t, "j4", results[0].JobID)
	assert.Equal(t, "j2", results[1].JobID)
	assert.Equal(t, "j1", results[2].JobID)
	assert.Equal(t, "j3", results[3].JobID)
}
