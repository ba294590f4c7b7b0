package feature

import (
	"context"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
)

// SkillsGenerator emits features under the skills_ prefix: exact F1, weighted
// coverage, taxonomy proximity, per-category coverage and (when an embeddings
// provider is present) semantic similarity of the two skill lists.
type SkillsGenerator struct {
	tax        *taxonomy.Taxonomy
	embeddings domain.EmbeddingsProvider // nil disables skills_semantic
}

// NewSkillsGenerator builds the generator; embeddings may be nil.
func NewSkillsGenerator(tax *taxonomy.Taxonomy, embeddings domain.EmbeddingsProvider) *SkillsGenerator {
	return &SkillsGenerator{tax: tax, embeddings: embeddings}
}

// Name implements Generator.
func (g *SkillsGenerator) Name() string { return "skills" }

// MatchKind labels how a job skill was satisfied.
const (
	matchExact    = "exact"
	matchPartial  = "partial"
	matchTaxonomy = "taxonomy"
)

// Generate implements Generator.
func (g *SkillsGenerator) Generate(ctx context.Context, req domain.MatchRequest) (map[string]float64, error) {
	feats := make(map[string]float64, 8+len(taxonomy.Categories))
	jobSkills := append(append([]domain.Skill{}, req.Job.RequiredSkills...), req.Job.PreferredSkills...)

	feats["skills_exact_f1"] = g.exactF1(req.Candidate.Skills, jobSkills)
	coverage, perCat := g.coverage(req.Candidate.Skills, jobSkills)
	feats["skills_coverage"] = coverage
	// only categories the job actually asks about are emitted
	for cat, v := range perCat {
		feats["skills_"+string(cat)+"_coverage"] = v
	}
	feats["skills_taxonomy"] = g.taxonomyScore(req.Candidate.Skills, jobSkills)
	if g.embeddings != nil {
		feats["skills_semantic"] = g.semantic(ctx, req.Candidate.Skills, jobSkills)
	}
	return feats, nil
}

// exactF1 is 2PR/(P+R) over canonical-equality set intersection. An empty job
// skill list scores 1 (nothing to miss); an empty candidate list against a
// non-empty job list scores 0.
func (g *SkillsGenerator) exactF1(candidate, job []domain.Skill) float64 {
	if len(job) == 0 {
		return 1
	}
	if len(candidate) == 0 {
		return 0
	}
	candSet := make(map[string]struct{}, len(candidate))
	for _, s := range candidate {
		candSet[g.tax.Canonical(s.Name)] = struct{}{}
	}
	jobSet := make(map[string]struct{}, len(job))
	for _, s := range job {
		jobSet[g.tax.Canonical(s.Name)] = struct{}{}
	}
	var inter int
	for k := range jobSet {
		if _, ok := candSet[k]; ok {
			inter++
		}
	}
	precision := float64(inter) / float64(len(candSet))
	recall := float64(inter) / float64(len(jobSet))
	return f1(precision, recall)
}

// bestMatch finds the strongest way a candidate satisfies one job skill.
func (g *SkillsGenerator) bestMatch(jobSkill domain.Skill, candidate []domain.Skill) (domain.SkillMatch, bool) {
	jc := g.tax.Canonical(jobSkill.Name)
	best := domain.SkillMatch{Skill: jobSkill.Name}
	found := false
	for _, cs := range candidate {
		cc := g.tax.Canonical(cs.Name)
		var kind string
		var score float64
		switch {
		case cc == jc:
			kind, score = matchExact, 1.0
		case strings.Contains(cc, jc) || strings.Contains(jc, cc):
			kind, score = matchPartial, 0.8
		default:
			if d := g.tax.Distance(cs.Name, jobSkill.Name); d >= 0.5 {
				kind, score = matchTaxonomy, d
			} else {
				continue
			}
		}
		// level mismatch penalty applies whenever the matched skill is below
		// the required level
		if jobSkill.Level != "" && cs.Level != "" && cs.Level.Weight() < jobSkill.Level.Weight() {
			score *= cs.Level.Weight() / jobSkill.Level.Weight()
		}
		if !found || score > best.Score {
			best = domain.SkillMatch{Skill: jobSkill.Name, Candidate: cs.Name, Kind: kind, Score: score}
			found = true
		}
	}
	return best, found
}

// coverage is the weighted fraction of job skills covered by exact, partial
// or taxonomy matches, with the level penalty folded into each contribution.
// Also returns coverage per category appearing among the job skills.
func (g *SkillsGenerator) coverage(candidate, job []domain.Skill) (float64, map[taxonomy.Category]float64) {
	perCat := make(map[taxonomy.Category]float64)
	catNum := make(map[taxonomy.Category]float64)
	catDen := make(map[taxonomy.Category]float64)
	if len(job) == 0 {
		return 1, perCat
	}
	var num, den float64
	for _, js := range job {
		w := js.EffectiveWeight()
		cat := g.tax.Category(js.Name)
		den += w
		catDen[cat] += w
		if m, ok := g.bestMatch(js, candidate); ok {
			num += w * m.Score
			catNum[cat] += w * m.Score
		}
	}
	for cat, d := range catDen {
		perCat[cat] = Clamp01(catNum[cat] / d)
	}
	if den == 0 {
		return 1, perCat
	}
	return Clamp01(num / den), perCat
}

// taxonomyScore is the mean over job skills of the max taxonomy distance to
// any candidate skill.
func (g *SkillsGenerator) taxonomyScore(candidate, job []domain.Skill) float64 {
	if len(job) == 0 {
		return 1
	}
	if len(candidate) == 0 {
		return 0
	}
	var sum float64
	for _, js := range job {
		var best float64
		for _, cs := range candidate {
			if d := g.tax.Distance(cs.Name, js.Name); d > best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(job))
}

// semantic is the cosine of mean-pooled skill-name embeddings, 0 when
// embeddings are disabled or either list is empty.
func (g *SkillsGenerator) semantic(ctx context.Context, candidate, job []domain.Skill) float64 {
	if g.embeddings == nil || len(candidate) == 0 || len(job) == 0 {
		return 0
	}
	texts := make([]string, 0, len(candidate)+len(job))
	for _, s := range candidate {
		texts = append(texts, g.tax.Canonical(s.Name))
	}
	for _, s := range job {
		texts = append(texts, g.tax.Canonical(s.Name))
	}
	vecs, err := g.embeddings.Embed(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		return 0
	}
	cv := meanPool(vecs[:len(candidate)])
	jv := meanPool(vecs[len(candidate):])
	return Clamp01(cosine32(cv, jv))
}

// Details computes the matched and missing skill records surfaced on
// MatchResult. Preferred skills appear in missing with Required=false.
func (g *SkillsGenerator) Details(candidate domain.CandidateProfile, job domain.JobPosting) ([]domain.SkillMatch, []domain.MissingRequirement) {
	var matches []domain.SkillMatch
	var missing []domain.MissingRequirement
	consider := func(skills []domain.Skill, required bool) {
		for _, js := range skills {
			if m, ok := g.bestMatch(js, candidate.Skills); ok {
				matches = append(matches, m)
			} else {
				missing = append(missing, domain.MissingRequirement{Skill: js.Name, Required: required || js.Required})
			}
		}
	}
	consider(job.RequiredSkills, true)
	consider(job.PreferredSkills, false)
	return matches, missing
}
