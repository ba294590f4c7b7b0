package feature

import (
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// ExperienceGenerator emits features under the exp_ prefix: years-in-range
// fit, education requirement fit and required-language coverage.
type ExperienceGenerator struct{}

// NewExperienceGenerator builds the generator.
func NewExperienceGenerator() *ExperienceGenerator { return &ExperienceGenerator{} }

// Name implements Generator.
func (g *ExperienceGenerator) Name() string { return "experience" }

// proficiencyOrder ranks language proficiency labels.
var proficiencyOrder = map[string]int{
	"basic": 0, "conversational": 1, "fluent": 2, "native": 3,
}

// Generate implements Generator.
func (g *ExperienceGenerator) Generate(_ domain.Context, req domain.MatchRequest) (map[string]float64, error) {
	feats := make(map[string]float64, 3)
	cand, job := req.Candidate, req.Job

	if job.MinYearsExperience > 0 || job.MaxYearsExperience > 0 {
		feats["exp_years"] = yearsScore(cand.TotalYears(), job.MinYearsExperience, job.MaxYearsExperience)
	}
	if job.RequiredEducationLevel != domain.EduNone {
		feats["exp_education"] = educationScore(cand.HighestEducation(), job.RequiredEducationLevel)
	}
	if len(job.RequiredLanguages) > 0 {
		feats["exp_language"] = languageScore(cand.Languages, job.RequiredLanguages)
	}
	return feats, nil
}

// yearsScore is 1.0 inside [min,max], a 0.25-per-missing-year ramp below, and
// a gentle over-qualification taper above (floored at 0.6).
func yearsScore(years float64, minYears, maxYears int) float64 {
	lo := float64(minYears)
	if years < lo {
		short := lo - years
		return Clamp01(1.0 - 0.25*short)
	}
	if maxYears <= 0 || years <= float64(maxYears) {
		return 1.0
	}
	over := years - float64(maxYears)
	score := 1.0 - 0.05*over
	if score < 0.6 {
		score = 0.6
	}
	return score
}

// educationScore is 1.0 at or above the requirement, 0.5 one rank short,
// 0.2 further below.
func educationScore(have, want domain.EducationLevel) float64 {
	d := want.Rank() - have.Rank()
	switch {
	case d <= 0:
		return 1.0
	case d == 1:
		return 0.5
	default:
		return 0.2
	}
}

// languageScore is the mean per-required-language fit. Proficiency at or
// above the bar scores 1.0; each rank of shortfall costs 0.4; a missing
// language scores 0.
func languageScore(have []domain.Language, required []domain.Language) float64 {
	prof := make(map[string]int, len(have))
	for _, l := range have {
		name := strings.ToLower(strings.TrimSpace(l.Name))
		rank := proficiencyOrder[strings.ToLower(l.Proficiency)]
		if cur, ok := prof[name]; !ok || rank > cur {
			prof[name] = rank
		}
	}
	var sum float64
	for _, req := range required {
		name := strings.ToLower(strings.TrimSpace(req.Name))
		rank, ok := prof[name]
		if !ok {
			continue
		}
		want := proficiencyOrder[strings.ToLower(req.Proficiency)]
		if rank >= want {
			sum += 1.0
		} else {
			sum += Clamp01(1.0 - 0.4*float64(want-rank))
		}
	}
	return sum / float64(len(required))
}
