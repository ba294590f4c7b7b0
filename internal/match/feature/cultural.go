package feature

import (
	"sort"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// CulturalGenerator emits features under the cultural_ prefix: explicit value
// alignment, per-dimension alignment, implicit text similarity and the work
// environment matrices.
type CulturalGenerator struct {
	embeddings domain.EmbeddingsProvider // nil means implicit similarity uses TF-IDF
}

// NewCulturalGenerator builds the generator; embeddings may be nil.
func NewCulturalGenerator(emb domain.EmbeddingsProvider) *CulturalGenerator {
	return &CulturalGenerator{embeddings: emb}
}

// Name implements Generator.
func (g *CulturalGenerator) Name() string { return "cultural" }

// valueSynonyms canonicalizes common phrasings of the same company value.
var valueSynonyms = map[string]string{
	"honesty":              "integrity",
	"transparency":         "integrity",
	"ethics":               "integrity",
	"excellence":           "quality",
	"craftsmanship":        "quality",
	"results":              "performance",
	"achievement":          "performance",
	"ambition":             "performance",
	"teamwork":             "collaboration",
	"cooperation":          "collaboration",
	"community":            "collaboration",
	"learning":             "growth",
	"development":          "growth",
	"curiosity":            "growth",
	"creativity":           "innovation",
	"experimentation":      "innovation",
	"work-life balance":    "balance",
	"work life balance":    "balance",
	"wellbeing":            "balance",
	"stability":            "security",
	"sustainability":       "responsibility",
	"social responsibility": "responsibility",
	"giving back":          "responsibility",
	"diversity":            "inclusion",
	"belonging":            "inclusion",
	"customer focus":       "customer",
	"customer obsession":   "customer",
	"ownership":            "autonomy",
	"independence":         "autonomy",
	"trust":                "autonomy",
}

// valueDimension groups canonical values into the alignment dimensions
// reported as cultural_<dimension> features.
var valueDimension = map[string]string{
	"integrity":      "ethics",
	"responsibility": "ethics",
	"performance":    "performance",
	"quality":        "performance",
	"innovation":     "performance",
	"customer":       "performance",
	"collaboration":  "relationships",
	"inclusion":      "relationships",
	"growth":         "growth",
	"autonomy":       "growth",
	"balance":        "social",
	"security":       "stability",
}

// managementMatrix scores candidate preference (rows) against the team's
// style (columns). Situational managers adapt, so they score well broadly.
var managementMatrix = map[string]map[string]float64{
	"directive":   {"directive": 1.0, "democratic": 0.4, "delegative": 0.2, "coaching": 0.5, "situational": 0.7},
	"democratic":  {"directive": 0.4, "democratic": 1.0, "delegative": 0.6, "coaching": 0.8, "situational": 0.8},
	"delegative":  {"directive": 0.2, "democratic": 0.6, "delegative": 1.0, "coaching": 0.5, "situational": 0.7},
	"coaching":    {"directive": 0.5, "democratic": 0.8, "delegative": 0.5, "coaching": 1.0, "situational": 0.8},
	"situational": {"directive": 0.7, "democratic": 0.8, "delegative": 0.7, "coaching": 0.8, "situational": 1.0},
}

var paceOrder = map[string]int{"calm": 0, "balanced": 1, "fast": 2}

var formalityOrder = map[string]int{"casual": 0, "business_casual": 1, "formal": 2}

var hierarchyOrder = map[string]int{"flat": 0, "moderate": 1, "strict": 2}

// Generate implements Generator.
func (g *CulturalGenerator) Generate(ctx domain.Context, req domain.MatchRequest) (map[string]float64, error) {
	feats := make(map[string]float64, 8)
	cand, job := req.Candidate, req.Job

	candVals := canonicalValues(cand.Values)
	jobVals := canonicalValues(job.Values)
	if len(candVals) > 0 && len(jobVals) > 0 {
		feats["cultural_values_explicit"] = valueF1(candVals, jobVals)
		for dim, score := range dimensionAlignment(candVals, jobVals) {
			feats["cultural_"+dim] = score
		}
	}

	if sim, ok := g.implicitSimilarity(ctx, cand, job); ok {
		feats["cultural_implicit"] = sim
	}

	if cand.Preferences.ManagementStyle != "" && job.ManagementStyle != "" {
		feats["cultural_management_style"] = managementScore(cand.Preferences.ManagementStyle, job.ManagementStyle)
	}
	if cand.Preferences.Pace != "" && job.Pace != "" {
		feats["cultural_environment_pace"] = ordinalScore(paceOrder, cand.Preferences.Pace, job.Pace, 0.4)
	}
	if cand.Preferences.Formality != "" && job.Formality != "" {
		feats["cultural_environment_formality"] = ordinalScore(formalityOrder, cand.Preferences.Formality, job.Formality, 0.4)
	}
	if cand.Preferences.Hierarchy != "" && job.Hierarchy != "" {
		feats["cultural_environment_hierarchy"] = ordinalScore(hierarchyOrder, cand.Preferences.Hierarchy, job.Hierarchy, 0.4)
	}
	return feats, nil
}

// canonicalValues lowercases, trims and folds synonyms into canonical values,
// dropping duplicates. Order is stable for deterministic output.
func canonicalValues(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		c := strings.ToLower(strings.TrimSpace(v))
		if c == "" {
			continue
		}
		if canon, ok := valueSynonyms[c]; ok {
			c = canon
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// valueF1 is the harmonic mean of precision and recall over canonical value
// sets.
func valueF1(cand, job []string) float64 {
	candSet := make(map[string]bool, len(cand))
	for _, v := range cand {
		candSet[v] = true
	}
	var inter int
	for _, v := range job {
		if candSet[v] {
			inter++
		}
	}
	if inter == 0 {
		return 0
	}
	p := float64(inter) / float64(len(cand))
	r := float64(inter) / float64(len(job))
	return f1(p, r)
}

// dimensionAlignment reports, per dimension the job exhibits, whether the
// candidate shares at least one value in that dimension.
func dimensionAlignment(cand, job []string) map[string]float64 {
	candDims := make(map[string]bool)
	for _, v := range cand {
		if d, ok := valueDimension[v]; ok {
			candDims[d] = true
		}
	}
	out := make(map[string]float64)
	for _, v := range job {
		d, ok := valueDimension[v]
		if !ok {
			continue
		}
		if candDims[d] {
			out[d] = 1.0
		} else if _, set := out[d]; !set {
			out[d] = 0.0
		}
	}
	return out
}

// implicitSimilarity compares the prose sides of the pair: embeddings cosine
// when a provider is wired, TF-IDF cosine otherwise. The bool reports whether
// there was anything to compare.
func (g *CulturalGenerator) implicitSimilarity(ctx domain.Context, cand domain.CandidateProfile, job domain.JobPosting) (float64, bool) {
	candDoc := strings.TrimSpace(cand.FreeText)
	jobDoc := strings.TrimSpace(job.FreeText)
	if candDoc == "" || jobDoc == "" {
		return 0, false
	}
	if g.embeddings != nil {
		vecs, err := g.embeddings.Embed(ctx, []string{candDoc, jobDoc})
		if err == nil && len(vecs) == 2 {
			return Clamp01(cosine32(vecs[0], vecs[1])), true
		}
		// fall through to the lexical path on provider failure
	}
	return tfidfCosine(textx.Tokenize(candDoc), textx.Tokenize(jobDoc)), true
}

func managementScore(pref, offered string) float64 {
	row, ok := managementMatrix[strings.ToLower(pref)]
	if !ok {
		return 0.5
	}
	if v, ok2 := row[strings.ToLower(offered)]; ok2 {
		return v
	}
	return 0.5
}
