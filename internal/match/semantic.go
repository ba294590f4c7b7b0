package match

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match/feature"
	"github.com/fairyhunter13/talent-matcher/internal/match/score"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
)

// SemanticMatcher leans on embedding similarity: it runs the same generator
// family but shifts feature weight onto skills_semantic and cultural_implicit.
// It requires an embeddings provider at construction.
type SemanticMatcher struct {
	scorer scorer
}

// SemanticDeps carries the semantic matcher's collaborators.
type SemanticDeps struct {
	Taxonomy        *taxonomy.Taxonomy
	Embeddings      domain.EmbeddingsProvider
	Geo             feature.TravelTimer
	CategoryWeights map[string]float64
	FeatureWeights  map[string]float64
}

// semanticWeightShift is applied over the caller's feature weights.
var semanticWeightShift = map[string]float64{
	"skills_semantic":   3.0,
	"skills_coverage":   2.0,
	"skills_exact_f1":   0.3,
	"cultural_implicit": 2.5,
	"text_tfidf":        1.0,
}

// NewSemanticMatcher wires the embedding-weighted scorer; it fails without a
// provider.
func NewSemanticMatcher(deps SemanticDeps) (*SemanticMatcher, error) {
	if deps.Embeddings == nil {
		return nil, fmt.Errorf("op=match.NewSemanticMatcher: %w: embeddings provider required", domain.ErrInvalidArgument)
	}
	fw := make(map[string]float64, len(deps.FeatureWeights)+len(semanticWeightShift))
	for k, v := range deps.FeatureWeights {
		fw[k] = v
	}
	for k, v := range semanticWeightShift {
		fw[k] = v
	}

	skills := feature.NewSkillsGenerator(deps.Taxonomy, deps.Embeddings)
	runner := feature.NewRunner(
		skills,
		feature.NewTextualGenerator(),
		feature.NewPreferenceGenerator(deps.Geo),
		feature.NewCulturalGenerator(deps.Embeddings),
		feature.NewExperienceGenerator(),
	)
	agg := score.NewAggregator(deps.CategoryWeights, fw)
	return &SemanticMatcher{scorer: scorer{
		name:      AlgorithmSemantic,
		runner:    runner,
		agg:       agg,
		explainer: score.NewExplainer(agg),
		skills:    skills,
		geo:       deps.Geo,
		now:       time.Now,
	}}, nil
}

// Name implements Matcher.
func (m *SemanticMatcher) Name() string { return AlgorithmSemantic }

// Healthy implements Matcher; construction already guaranteed the provider.
func (m *SemanticMatcher) Healthy() bool { return true }

// Score implements Matcher.
func (m *SemanticMatcher) Score(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	return m.scorer.score(ctx, req)
}
