package match

import (
	"context"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match/feature"
	"github.com/fairyhunter13/talent-matcher/internal/match/score"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
)

// RuleMatcher is the deterministic weighted-feature scorer. It has no model
// or embeddings dependency and is always healthy, which makes it the terminal
// fallback.
type RuleMatcher struct {
	scorer scorer
}

// RuleDeps carries the rule matcher's collaborators.
type RuleDeps struct {
	Taxonomy        *taxonomy.Taxonomy
	Geo             feature.TravelTimer // nil disables geo-backed features
	CategoryWeights map[string]float64
	FeatureWeights  map[string]float64
}

// NewRuleMatcher wires the full generator family without embeddings.
func NewRuleMatcher(deps RuleDeps) *RuleMatcher {
	skills := feature.NewSkillsGenerator(deps.Taxonomy, nil)
	runner := feature.NewRunner(
		skills,
		feature.NewTextualGenerator(),
		feature.NewPreferenceGenerator(deps.Geo),
		feature.NewCulturalGenerator(nil),
		feature.NewExperienceGenerator(),
	)
	agg := score.NewAggregator(deps.CategoryWeights, deps.FeatureWeights)
	return &RuleMatcher{scorer: scorer{
		name:      AlgorithmRule,
		runner:    runner,
		agg:       agg,
		explainer: score.NewExplainer(agg),
		skills:    skills,
		geo:       deps.Geo,
		now:       time.Now,
	}}
}

// Name implements Matcher.
func (m *RuleMatcher) Name() string { return AlgorithmRule }

// Healthy implements Matcher; the rule matcher has no external dependencies.
func (m *RuleMatcher) Healthy() bool { return true }

// Score implements Matcher.
func (m *RuleMatcher) Score(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	return m.scorer.score(ctx, req)
}
