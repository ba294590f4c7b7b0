package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// featureLabels maps feature names to the phrasing surfaced to recruiters.
// Generated names (per-category coverage, cultural dimensions) are labeled
// from their parts.
var featureLabels = map[string]string{
	"skills_coverage":                "required skill coverage",
	"skills_exact_f1":                "exact skill overlap",
	"skills_taxonomy":                "related skill proximity",
	"skills_semantic":                "semantic skill similarity",
	"text_tfidf":                     "profile and posting wording",
	"text_bm25":                      "posting terms found in profile",
	"text_title":                     "role title alignment",
	"text_entity":                    "shared companies and roles",
	"text_action_verbs":              "achievement verb overlap",
	"pref_location":                  "location fit",
	"pref_salary":                    "salary expectations",
	"pref_work_mode":                 "work mode preference",
	"pref_contract":                  "contract type preference",
	"pref_company_size":              "company size preference",
	"pref_industry":                  "industry preference",
	"pref_travel_willingness":        "travel willingness",
	"cultural_values_explicit":       "stated value alignment",
	"cultural_implicit":              "cultural tone similarity",
	"cultural_management_style":      "management style fit",
	"cultural_environment_pace":      "work pace fit",
	"cultural_environment_formality": "formality fit",
	"cultural_environment_hierarchy": "hierarchy fit",
	"exp_years":                      "years of experience",
	"exp_education":                  "education requirement",
	"exp_language":                   "required languages",
}

// Explainer derives strengths, gaps and suggestions from a scored feature
// vector and the skill detail records.
type Explainer struct {
	agg *Aggregator
}

// NewExplainer builds an explainer sharing the aggregator's weights so
// impact ordering matches scoring.
func NewExplainer(agg *Aggregator) *Explainer {
	return &Explainer{agg: agg}
}

// strengthFloor and gapCeiling bound which features qualify as strengths or
// gaps.
const (
	strengthFloor = 0.75
	gapCeiling    = 0.45
	maxStrengths  = 5
	maxGaps       = 3
)

// Explain fills Strengths, Gaps and Suggestions on the result in place.
func (e *Explainer) Explain(res *domain.MatchResult) {
	type ranked struct {
		factor domain.Factor
		impact float64
	}
	var highs, lows []ranked
	for name, v := range res.Features {
		cat, ok := categoryOf(name)
		if !ok {
			continue
		}
		impact := e.agg.featureWeight(name) * e.agg.categoryWeights[cat]
		f := domain.Factor{Feature: name, Label: labelFor(name), Value: v, Impact: impact}
		if v >= strengthFloor {
			highs = append(highs, ranked{f, impact * v})
		} else if v <= gapCeiling {
			lows = append(lows, ranked{f, impact * (1 - v)})
		}
	}
	sort.Slice(highs, func(i, j int) bool {
		if highs[i].impact != highs[j].impact {
			return highs[i].impact > highs[j].impact
		}
		return highs[i].factor.Feature < highs[j].factor.Feature
	})
	sort.Slice(lows, func(i, j int) bool {
		if lows[i].impact != lows[j].impact {
			return lows[i].impact > lows[j].impact
		}
		return lows[i].factor.Feature < lows[j].factor.Feature
	})

	res.Strengths = res.Strengths[:0]
	for i, h := range highs {
		if i == maxStrengths {
			break
		}
		res.Strengths = append(res.Strengths, h.factor)
	}
	res.Gaps = res.Gaps[:0]
	for i, l := range lows {
		if i == maxGaps {
			break
		}
		res.Gaps = append(res.Gaps, l.factor)
	}
	res.Suggestions = suggestions(res.Missing, res.Gaps)
}

// suggestions turns missing skills and gap factors into actionable lines.
// Required skills come first; at most three skills per development line.
func suggestions(missing []domain.MissingRequirement, gaps []domain.Factor) []string {
	var out []string
	var skills []string
	for _, m := range missing {
		if m.Required {
			skills = append(skills, m.Skill)
		}
	}
	for _, m := range missing {
		if !m.Required && len(skills) < 3 {
			skills = append(skills, m.Skill)
		}
	}
	if len(skills) > 0 {
		if len(skills) > 3 {
			skills = skills[:3]
		}
		out = append(out, fmt.Sprintf("Develop: %s", strings.Join(skills, ", ")))
	}
	for _, g := range gaps {
		switch g.Feature {
		case "pref_salary":
			out = append(out, "Salary expectations diverge from the offered range")
		case "pref_location":
			out = append(out, "Consider the commute or relocation implications")
		case "exp_years":
			out = append(out, "Experience level is outside the requested range")
		case "cultural_values_explicit":
			out = append(out, "Stated values show little overlap with the company's")
		}
	}
	return out
}

func labelFor(name string) string {
	if l, ok := featureLabels[name]; ok {
		return l
	}
	// generated names: skills_<category>_coverage, cultural_<dimension>
	if strings.HasPrefix(name, "skills_") && strings.HasSuffix(name, "_coverage") {
		cat := strings.TrimSuffix(strings.TrimPrefix(name, "skills_"), "_coverage")
		return cat + " skill coverage"
	}
	if strings.HasPrefix(name, "cultural_") {
		return strings.TrimPrefix(name, "cultural_") + " value alignment"
	}
	return strings.ReplaceAll(name, "_", " ")
}
