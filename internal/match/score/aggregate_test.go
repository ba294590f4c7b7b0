package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateRenormalizesAbsentCategories(t *testing.T) {
	a := NewAggregator(nil, nil)
	// only skills and experience present; text, pref, cultural drop out
	overall, cats := a.Aggregate(map[string]float64{
		"skills_coverage": 1.0,
		"skills_exact_f1": 1.0,
		"skills_taxonomy": 1.0,
		"exp_years":       1.0,
	})
	assert.Equal(t, 1.0, cats[CatSkills])
	assert.Equal(t, 1.0, cats[CatExperience])
	_, hasText := cats[CatText]
	assert.False(t, hasText)
	// perfect present categories renormalize to a perfect overall
	assert.InDelta(t, 1.0, overall, 1e-9)
}

func TestAggregateWeightedCategoryMean(t *testing.T) {
	a := NewAggregator(nil, nil)
	_, cats := a.Aggregate(map[string]float64{
		"skills_coverage": 1.0, // weight 3
		"skills_exact_f1": 0.0, // weight 0.5
	})
	assert.InDelta(t, 3.0/3.5, cats[CatSkills], 1e-9)
}

func TestAggregateOverallUsesCategoryWeights(t *testing.T) {
	a := NewAggregator(nil, nil)
	overall, _ := a.Aggregate(map[string]float64{
		"skills_coverage": 1.0,
		"exp_years":       0.0,
	})
	// skills 0.40, experience 0.05: (0.4*1 + 0.05*0) / 0.45
	assert.InDelta(t, 0.4/0.45, overall, 1e-9)
}

func TestAggregateEmptyFeatures(t *testing.T) {
	a := NewAggregator(nil, nil)
	overall, cats := a.Aggregate(nil)
	assert.Equal(t, 0.0, overall)
	assert.Empty(t, cats)
}

func TestAggregateIgnoresUnknownPrefixes(t *testing.T) {
	a := NewAggregator(nil, nil)
	overall, cats := a.Aggregate(map[string]float64{"mystery_feature": 1.0})
	assert.Equal(t, 0.0, overall)
	assert.Empty(t, cats)
}

func TestAggregateMonotoneInFeatureValue(t *testing.T) {
	a := NewAggregator(nil, nil)
	base := map[string]float64{
		"skills_coverage": 0.5,
		"text_tfidf":      0.5,
		"pref_salary":     0.5,
	}
	lo, _ := a.Aggregate(base)
	base["skills_coverage"] = 0.9
	hi, _ := a.Aggregate(base)
	assert.Greater(t, hi, lo)
}

func TestAggregateCategoryOverride(t *testing.T) {
	a := NewAggregator(map[string]float64{CatSkills: 1.0, CatText: 0.0, CatPref: 0.0, CatCultural: 0.0, CatExperience: 0.0}, nil)
	overall, _ := a.Aggregate(map[string]float64{
		"skills_coverage": 0.8,
		"text_tfidf":      0.1,
	})
	assert.InDelta(t, 0.8, overall, 1e-9)
}
