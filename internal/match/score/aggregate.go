// Package score turns raw feature vectors into overall match scores and
// human-readable explanations.
package score

import (
	"sort"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match/feature"
)

// Category keys. These line up with the category weight configuration.
const (
	CatSkills     = "skills"
	CatText       = "text"
	CatPref       = "pref"
	CatCultural   = "cultural"
	CatExperience = "experience"
)

// prefixCategory maps a feature name prefix to its category.
var prefixCategory = map[string]string{
	"skills_":   CatSkills,
	"text_":     CatText,
	"pref_":     CatPref,
	"cultural_": CatCultural,
	"exp_":      CatExperience,
}

// defaultFeatureWeights carries the per-feature weighting inside each
// category. Unlisted features weigh 1.0; the per-category coverage and
// dimension features weigh less so the headline signals dominate.
var defaultFeatureWeights = map[string]float64{
	"skills_coverage":  3.0,
	"skills_exact_f1":  0.5,
	"skills_taxonomy":  1.0,
	"skills_semantic":  1.0,

	"text_tfidf":        2.0,
	"text_bm25":         1.5,
	"text_title":        1.0,
	"text_entity":       0.5,
	"text_action_verbs": 0.5,

	"pref_location":           1.0,
	"pref_salary":             6.0,
	"pref_work_mode":          1.0,
	"pref_contract":           0.5,
	"pref_company_size":       0.5,
	"pref_industry":           0.5,
	"pref_travel_willingness": 0.5,

	"cultural_values_explicit":       2.0,
	"cultural_implicit":              1.0,
	"cultural_management_style":      1.0,
	"cultural_environment_pace":      0.5,
	"cultural_environment_formality": 0.5,
	"cultural_environment_hierarchy": 0.5,

	"exp_years":     2.0,
	"exp_education": 1.0,
	"exp_language":  1.0,
}

// Aggregator folds labeled features into category scores and one overall
// score, renormalizing category weights over the categories present.
type Aggregator struct {
	categoryWeights map[string]float64
	featureWeights  map[string]float64
}

// NewAggregator builds an aggregator. Either map may be nil; overrides are
// merged over the defaults.
func NewAggregator(categoryWeights, featureOverrides map[string]float64) *Aggregator {
	cw := map[string]float64{
		CatSkills: 0.40, CatCultural: 0.20, CatText: 0.20, CatPref: 0.15, CatExperience: 0.05,
	}
	for k, v := range categoryWeights {
		cw[k] = v
	}
	fw := make(map[string]float64, len(defaultFeatureWeights)+len(featureOverrides))
	for k, v := range defaultFeatureWeights {
		fw[k] = v
	}
	for k, v := range featureOverrides {
		fw[k] = v
	}
	return &Aggregator{categoryWeights: cw, featureWeights: fw}
}

// featureWeight resolves a feature's weight. The skills per-category
// coverage features and cultural dimension features are generated names, so
// they fall through to low family defaults rather than 1.0.
func (a *Aggregator) featureWeight(name string) float64 {
	if w, ok := a.featureWeights[name]; ok {
		return w
	}
	if strings.HasPrefix(name, "skills_") && strings.HasSuffix(name, "_coverage") {
		return 0.2
	}
	if strings.HasPrefix(name, "cultural_") {
		return 0.3
	}
	return 1.0
}

// Aggregate computes the per-category weighted means and the renormalized
// overall score. Categories with no features present are absent from the
// returned map and carry no weight in the overall.
func (a *Aggregator) Aggregate(features map[string]float64) (float64, map[string]float64) {
	catNum := make(map[string]float64)
	catDen := make(map[string]float64)
	for name, v := range features {
		cat, ok := categoryOf(name)
		if !ok {
			continue
		}
		w := a.featureWeight(name)
		catNum[cat] += w * feature.Clamp01(v)
		catDen[cat] += w
	}

	categories := make(map[string]float64, len(catNum))
	var overallNum, overallDen float64
	for cat, den := range catDen {
		if den == 0 {
			continue
		}
		s := feature.Clamp01(catNum[cat] / den)
		categories[cat] = s
		cw := a.categoryWeights[cat]
		overallNum += cw * s
		overallDen += cw
	}
	if overallDen == 0 {
		return 0, categories
	}
	return feature.Clamp01(overallNum / overallDen), categories
}

func categoryOf(name string) (string, bool) {
	for prefix, cat := range prefixCategory {
		if strings.HasPrefix(name, prefix) {
			return cat, true
		}
	}
	return "", false
}

// Rank sorts results best-first with deterministic tie-breaking: overall
// score, then skills coverage, then explicit value alignment, then job id.
func Rank(results []domain.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		ac, bc := a.Features["skills_coverage"], b.Features["skills_coverage"]
		if ac != bc {
			return ac > bc
		}
		av, bv := a.Features["cultural_values_explicit"], b.Features["cultural_values_explicit"]
		if av != bv {
			return av > bv
		}
		return a.JobID < b.JobID
	})
}
