// Package domain defines the entities, ports and error taxonomy shared by all
// matching components.
package domain

import (
	"context"
	"time"
)

// Context is an alias so ports read cleanly without importing std context at
// every call site. Adapters pass context.Context through unchanged.
type Context = context.Context

// SkillLevel orders proficiency from beginner to expert.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelJunior       SkillLevel = "junior"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
	LevelExpert       SkillLevel = "expert"
)

// levelWeights maps proficiency to the multiplier used in coverage scoring.
var levelWeights = map[SkillLevel]float64{
	LevelBeginner:     0.5,
	LevelJunior:       0.6,
	LevelIntermediate: 0.8,
	LevelAdvanced:     0.9,
	LevelExpert:       1.0,
}

// Weight returns the ordinal weight of a level; unknown levels rank as
// intermediate.
func (l SkillLevel) Weight() float64 {
	if w, ok := levelWeights[l]; ok {
		return w
	}
	return 0.8
}

// Skill is one named competence with proficiency and importance.
type Skill struct {
	Name     string     `json:"name"`
	Level    SkillLevel `json:"level,omitempty"`
	Weight   float64    `json:"weight,omitempty"` // default 1.0
	Required bool       `json:"required,omitempty"`
}

// EffectiveWeight returns Weight, defaulting to 1.0 when unset.
func (s Skill) EffectiveWeight() float64 {
	if s.Weight <= 0 {
		return 1.0
	}
	return s.Weight
}

// Experience is one professional engagement on a candidate profile.
type Experience struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date,omitempty"` // zero = ongoing
}

// Years returns the duration of the experience in fractional years.
func (e Experience) Years() float64 {
	end := e.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if end.Before(e.StartDate) {
		return 0
	}
	return end.Sub(e.StartDate).Hours() / (24 * 365.25)
}

// EducationLevel orders degrees for requirement comparison.
type EducationLevel string

// Education levels, lowest to highest.
const (
	EduNone       EducationLevel = ""
	EduHighSchool EducationLevel = "high_school"
	EduAssociate  EducationLevel = "associate"
	EduBachelor   EducationLevel = "bachelor"
	EduMaster     EducationLevel = "master"
	EduDoctorate  EducationLevel = "doctorate"
)

var eduRank = map[EducationLevel]int{
	EduNone: 0, EduHighSchool: 1, EduAssociate: 2, EduBachelor: 3, EduMaster: 4, EduDoctorate: 5,
}

// Rank returns the ordinal rank of the education level.
func (l EducationLevel) Rank() int { return eduRank[l] }

// Education is one completed degree or certification.
type Education struct {
	Degree      string         `json:"degree"`
	Level       EducationLevel `json:"level,omitempty"`
	Institution string         `json:"institution,omitempty"`
	Field       string         `json:"field,omitempty"`
}

// Language pairs a language with a proficiency label.
type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"` // basic|conversational|fluent|native
}

// WorkMode enumerates where work happens.
type WorkMode string

const (
	WorkRemote WorkMode = "remote"
	WorkHybrid WorkMode = "hybrid"
	WorkOffice WorkMode = "office"
)

// ContractType enumerates engagement shapes.
type ContractType string

const (
	ContractPermanent  ContractType = "permanent"
	ContractFixedTerm  ContractType = "fixed_term"
	ContractFreelance  ContractType = "freelance"
	ContractInternship ContractType = "internship"
)

// SalaryRange is an annual gross range; Max==0 means unbounded above.
type SalaryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// IsZero reports whether the range is unset.
func (r SalaryRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// Preferences captures what a candidate wants from their next role.
type Preferences struct {
	ExpectedSalary    SalaryRange       `json:"expected_salary,omitempty"`
	WorkMode          WorkMode          `json:"work_mode,omitempty"`
	ContractType      ContractType      `json:"contract_type,omitempty"`
	CompanySize       string            `json:"company_size,omitempty"` // startup|small|medium|large|enterprise
	Industries        []string          `json:"industries,omitempty"`
	TravelWillingness string            `json:"travel_willingness,omitempty"` // none|low|medium|high
	ManagementStyle   string            `json:"management_style,omitempty"`   // directive|democratic|delegative|coaching|situational
	Pace              string            `json:"pace,omitempty"`               // calm|balanced|fast
	Formality         string            `json:"formality,omitempty"`          // casual|business_casual|formal
	Hierarchy         string            `json:"hierarchy,omitempty"`          // flat|moderate|strict
	Questionnaire     map[string]string `json:"questionnaire,omitempty"`
}

// CandidateProfile is the canonical candidate shape consumed by the feature
// generators. Slices may be empty but are never nil after store normalization.
type CandidateProfile struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Skills      []Skill      `json:"skills"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education"`
	Languages   []Language   `json:"languages"`
	Location    string       `json:"location"`
	Preferences Preferences  `json:"preferences"`
	Values      []string     `json:"values"`
	FreeText    string       `json:"free_text"`
}

// TotalYears sums experience durations.
func (c CandidateProfile) TotalYears() float64 {
	var y float64
	for _, e := range c.Experiences {
		y += e.Years()
	}
	return y
}

// HighestEducation returns the candidate's top education level.
func (c CandidateProfile) HighestEducation() EducationLevel {
	best := EduNone
	for _, e := range c.Education {
		if e.Level.Rank() > best.Rank() {
			best = e.Level
		}
	}
	return best
}

// JobPosting is the canonical job shape.
type JobPosting struct {
	ID                     string         `json:"id"`
	Title                  string         `json:"title"`
	Company                string         `json:"company"`
	RequiredSkills         []Skill        `json:"required_skills"`
	PreferredSkills        []Skill        `json:"preferred_skills"`
	Location               string         `json:"location"`
	MinYearsExperience     int            `json:"min_years_experience"`
	MaxYearsExperience     int            `json:"max_years_experience"` // 0 = unbounded
	RequiredEducationLevel EducationLevel `json:"required_education_level,omitempty"`
	RequiredLanguages      []Language     `json:"required_languages,omitempty"`
	SalaryRange            SalaryRange    `json:"salary_range"`
	WorkMode               WorkMode       `json:"work_mode,omitempty"`
	ContractType           ContractType   `json:"contract_type,omitempty"`
	CompanySize            string         `json:"company_size,omitempty"`
	Industry               string         `json:"industry,omitempty"`
	TravelRequirement      string         `json:"travel_requirement,omitempty"`
	Values                 []string       `json:"values,omitempty"`
	ManagementStyle        string         `json:"management_style,omitempty"`
	Pace                   string         `json:"pace,omitempty"`
	Formality              string         `json:"formality,omitempty"`
	Hierarchy              string         `json:"hierarchy,omitempty"`
	FreeText               string         `json:"free_text"`
}

// MatchOptions tunes a single match request.
type MatchOptions struct {
	MaxResults      int           `json:"max_results,omitempty" validate:"gte=0,lte=1000"`
	MinScore        float64       `json:"min_score,omitempty" validate:"gte=0,lte=1"`
	WithCommuteTime bool          `json:"with_commute_time,omitempty"`
	AlgorithmHint   string        `json:"algorithm_hint,omitempty"`
	EnableFallback  bool          `json:"enable_fallback,omitempty"`
	CacheTTL        time.Duration `json:"cache_ttl,omitempty"`
}

// MatchRequest pairs one candidate with one posting.
type MatchRequest struct {
	Candidate CandidateProfile `json:"candidate"`
	Job       JobPosting       `json:"job"`
	Options   MatchOptions     `json:"options"`
}

// MatchCategory labels an overall score band. Thresholds are part of the
// external contract: excellent >= 0.80, good >= 0.60, average >= 0.40.
type MatchCategory string

const (
	CategoryExcellent MatchCategory = "excellent"
	CategoryGood      MatchCategory = "good"
	CategoryAverage   MatchCategory = "average"
	CategoryPoor      MatchCategory = "poor"
)

// CategoryFor derives the band from an overall score.
func CategoryFor(score float64) MatchCategory {
	switch {
	case score >= 0.80:
		return CategoryExcellent
	case score >= 0.60:
		return CategoryGood
	case score >= 0.40:
		return CategoryAverage
	default:
		return CategoryPoor
	}
}

// SkillMatch records one matched skill with its match strength.
type SkillMatch struct {
	Skill     string  `json:"skill"`
	Candidate string  `json:"candidate_skill"`
	Kind      string  `json:"kind"` // exact|partial|taxonomy
	Score     float64 `json:"score"`
}

// MissingRequirement records a job skill the candidate lacks.
type MissingRequirement struct {
	Skill    string `json:"skill"`
	Required bool   `json:"required"`
}

// Factor is one named contribution surfaced by the explainer.
type Factor struct {
	Feature string  `json:"feature"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Impact  float64 `json:"impact,omitempty"`
}

// MatchResult is the scored outcome of one candidate/job pair.
type MatchResult struct {
	CandidateID    string               `json:"candidate_id"`
	JobID          string               `json:"job_id"`
	OverallScore   float64              `json:"overall_score"`
	Category       MatchCategory        `json:"category"`
	CategoryScores map[string]float64   `json:"category_scores"`
	Features       map[string]float64   `json:"features,omitempty"`
	Matches        []SkillMatch         `json:"matches"`
	Missing        []MissingRequirement `json:"missing"`
	Strengths      []Factor             `json:"strengths"`
	Gaps           []Factor             `json:"gaps"`
	Suggestions    []string             `json:"suggestions,omitempty"`
	CommuteMinutes *int                 `json:"commute_minutes,omitempty"`
	AlgorithmUsed  string               `json:"algorithm_used"`
	Latency        time.Duration        `json:"latency"`
}
