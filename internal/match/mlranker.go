package match

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match/feature"
	"github.com/fairyhunter13/talent-matcher/internal/match/score"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
)

// gbdtNode is one node of a regression tree. Leaf nodes carry Value; split
// nodes route on Feature < Threshold.
type gbdtNode struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Value     *float64 `json:"value,omitempty"`
}

type gbdtTree struct {
	Nodes []gbdtNode `json:"nodes"`
}

// gbdtModel is the serialized gradient-boosted ensemble. Objective "logistic"
// squashes the margin through a sigmoid; anything else is treated as an
// identity link clamped to [0,1].
type gbdtModel struct {
	Version   string     `json:"version"`
	Objective string     `json:"objective"`
	BaseScore float64    `json:"base_score"`
	Features  []string   `json:"features"`
	Trees     []gbdtTree `json:"trees"`
}

func (m *gbdtModel) validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("model lists no features")
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Value != nil {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(m.Features) {
				return fmt.Errorf("tree %d node %d references unknown feature %d", ti, ni, n.Feature)
			}
			if n.Left < 0 || n.Left >= len(tree.Nodes) || n.Right < 0 || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
		}
	}
	return nil
}

// predict walks every tree and returns the final score plus per-feature
// attribution: each leaf's value is split evenly across the features on its
// decision path.
func (m *gbdtModel) predict(vec []float64) (float64, map[string]float64) {
	margin := m.BaseScore
	attribution := make(map[string]float64, len(m.Features))
	for _, tree := range m.Trees {
		idx := 0
		var path []int
		for {
			n := tree.Nodes[idx]
			if n.Value != nil {
				margin += *n.Value
				if len(path) > 0 {
					share := *n.Value / float64(len(path))
					for _, f := range path {
						attribution[m.Features[f]] += share
					}
				}
				break
			}
			path = append(path, n.Feature)
			if vec[n.Feature] < n.Threshold {
				idx = n.Left
			} else {
				idx = n.Right
			}
		}
	}
	if m.Objective == "logistic" {
		return 1.0 / (1.0 + math.Exp(-margin)), attribution
	}
	return feature.Clamp01(margin), attribution
}

// MLMatcher scores with a gradient-boosted tree ensemble over the feature
// vector. Construction fails on a missing or malformed model, so a wired
// MLMatcher is always healthy.
type MLMatcher struct {
	model  *gbdtModel
	scorer scorer
}

// MLDeps carries the ML matcher's collaborators.
type MLDeps struct {
	ModelPath       string
	Taxonomy        *taxonomy.Taxonomy
	Embeddings      domain.EmbeddingsProvider // optional, enriches features
	Geo             feature.TravelTimer
	CategoryWeights map[string]float64
	FeatureWeights  map[string]float64
}

// NewMLMatcher loads and validates the model, then wires the generator
// family.
func NewMLMatcher(deps MLDeps) (*MLMatcher, error) {
	data, err := os.ReadFile(deps.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("op=match.NewMLMatcher: read model: %w", err)
	}
	var model gbdtModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("op=match.NewMLMatcher: parse model: %w", err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("op=match.NewMLMatcher: %w: %w", domain.ErrInvalidArgument, err)
	}

	skills := feature.NewSkillsGenerator(deps.Taxonomy, deps.Embeddings)
	runner := feature.NewRunner(
		skills,
		feature.NewTextualGenerator(),
		feature.NewPreferenceGenerator(deps.Geo),
		feature.NewCulturalGenerator(deps.Embeddings),
		feature.NewExperienceGenerator(),
	)
	agg := score.NewAggregator(deps.CategoryWeights, deps.FeatureWeights)
	return &MLMatcher{
		model: &model,
		scorer: scorer{
			name:      AlgorithmML,
			runner:    runner,
			agg:       agg,
			explainer: score.NewExplainer(agg),
			skills:    skills,
			geo:       deps.Geo,
			now:       time.Now,
		},
	}, nil
}

// Name implements Matcher.
func (m *MLMatcher) Name() string { return AlgorithmML }

// Healthy implements Matcher.
func (m *MLMatcher) Healthy() bool { return m.model != nil }

// Score implements Matcher. Category scores come from the weighted
// aggregation for reporting; the overall score and factor impacts come from
// the ensemble.
func (m *MLMatcher) Score(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	res, err := m.scorer.score(ctx, req)
	if err != nil {
		return domain.MatchResult{}, err
	}
	vec := make([]float64, len(m.model.Features))
	for i, name := range m.model.Features {
		vec[i] = res.Features[name] // absent features read as 0
	}
	overall, attribution := m.model.predict(vec)
	res.OverallScore = overall
	res.Category = domain.CategoryFor(overall)
	applyAttribution(res.Strengths, attribution)
	applyAttribution(res.Gaps, attribution)
	return res, nil
}

// applyAttribution overwrites factor impacts with the model's path
// attribution where the feature appears in it.
func applyAttribution(factors []domain.Factor, attribution map[string]float64) {
	for i := range factors {
		if a, ok := attribution[factors[i].Feature]; ok {
			factors[i].Impact = a
		}
	}
}
