package feature

import (
	"math"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// TextualGenerator emits features under the text_ prefix, all derived from
// the free-text sides of the pair. When neither side carries prose the
// generator emits nothing so the category drops out of aggregation.
type TextualGenerator struct{}

// NewTextualGenerator builds the generator.
func NewTextualGenerator() *TextualGenerator { return &TextualGenerator{} }

// Name implements Generator.
func (g *TextualGenerator) Name() string { return "textual" }

// bm25K1 and bm25B are the stock Okapi parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// actionVerbs is the lexicon of achievement verbs scanned for in both texts,
// in lemma form.
var actionVerbs = map[string]bool{
	"lead": true, "manag": true, "build": true, "design": true, "develop": true,
	"launch": true, "deliver": true, "improv": true, "reduc": true, "increas": true,
	"migrat": true, "automat": true, "optimiz": true, "scal": true, "mentor": true,
	"deploy": true, "maintain": true, "architect": true, "coordinat": true,
	"implement": true, "refactor": true, "ship": true, "own": true, "drive": true,
}

// Generate implements Generator.
func (g *TextualGenerator) Generate(_ domain.Context, req domain.MatchRequest) (map[string]float64, error) {
	candDoc := candidateText(req.Candidate)
	jobDoc := jobText(req.Job)

	feats := make(map[string]float64, 5)
	if candDoc != "" && jobDoc != "" {
		candTokens := textx.Tokenize(candDoc)
		jobTokens := textx.Tokenize(jobDoc)
		feats["text_tfidf"] = tfidfCosine(candTokens, jobTokens)
		feats["text_bm25"] = bm25Normalized(jobTokens, candTokens)
		feats["text_action_verbs"] = verbOverlap(candTokens, jobTokens)
	}
	if title := recentTitles(req.Candidate); title != "" && req.Job.Title != "" {
		feats["text_title"] = titleSimilarity(title, req.Job.Title)
	}
	if ent := entityOverlap(req.Candidate, req.Job); ent >= 0 {
		feats["text_entity"] = ent
	}
	return feats, nil
}

// candidateText concatenates the candidate's prose surfaces.
func candidateText(c domain.CandidateProfile) string {
	var b strings.Builder
	b.WriteString(c.FreeText)
	for _, e := range c.Experiences {
		if e.Description != "" {
			b.WriteString(" ")
			b.WriteString(e.Description)
		}
	}
	return strings.TrimSpace(b.String())
}

func jobText(j domain.JobPosting) string {
	return strings.TrimSpace(j.FreeText)
}

// recentTitles joins the candidate's two most recent role titles; experiences
// are assumed newest-first per store normalization.
func recentTitles(c domain.CandidateProfile) string {
	var parts []string
	for i, e := range c.Experiences {
		if i >= 2 {
			break
		}
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
	}
	return strings.Join(parts, " ")
}

// tfidfCosine computes TF-IDF vectors over the two-document corpus and takes
// their cosine. Smoothed IDF keeps shared terms from vanishing.
func tfidfCosine(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	tfA := textx.TermFreq(a)
	tfB := textx.TermFreq(b)

	df := make(map[string]int, len(tfA)+len(tfB))
	for t := range tfA {
		df[t]++
	}
	for t := range tfB {
		df[t]++
	}
	idf := func(t string) float64 {
		return math.Log(1.0 + 2.0/float64(df[t]))
	}
	va := make(map[string]float64, len(tfA))
	for t, f := range tfA {
		va[t] = float64(f) * idf(t)
	}
	vb := make(map[string]float64, len(tfB))
	for t, f := range tfB {
		vb[t] = float64(f) * idf(t)
	}
	return Clamp01(cosine(va, vb))
}

// bm25Normalized scores the job tokens as a query against the candidate
// document, then squashes the unbounded Okapi sum into [0,1].
func bm25Normalized(query, doc []string) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	docTF := make(map[string]int, len(doc))
	for _, t := range doc {
		docTF[t]++
	}
	docLen := float64(len(doc))
	// single-document collection: treat average length as the doc's own
	avgLen := docLen

	seen := make(map[string]bool, len(query))
	var score float64
	for _, t := range query {
		if seen[t] {
			continue
		}
		seen[t] = true
		f := float64(docTF[t])
		if f == 0 {
			continue
		}
		// IDF degenerates with one document; weight every hit equally
		num := f * (bm25K1 + 1)
		den := f + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
		score += num / den
	}
	return Clamp01(score / (score + 5.0))
}

// titleSimilarity keeps stopwords: "head of data" vs "data engineer" should
// not collapse to identical bags.
func titleSimilarity(a, b string) float64 {
	ta := textx.TokenizeAll(a)
	tb := textx.TokenizeAll(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return Clamp01(cosine(toFloatTF(textx.TermFreq(ta)), toFloatTF(textx.TermFreq(tb))))
}

func toFloatTF(tf map[string]int) map[string]float64 {
	out := make(map[string]float64, len(tf))
	for t, f := range tf {
		out[t] = float64(f)
	}
	return out
}

// entityOverlap compares the organizations and roles named on the candidate's
// history against the posting's company and title. Returns -1 when either
// side has no entities to compare.
func entityOverlap(c domain.CandidateProfile, j domain.JobPosting) float64 {
	cand := make(map[string]bool)
	for _, e := range c.Experiences {
		for _, t := range textx.Tokenize(e.Company + " " + e.Title) {
			cand[t] = true
		}
	}
	job := make(map[string]bool)
	for _, t := range textx.Tokenize(j.Company + " " + j.Title) {
		job[t] = true
	}
	if len(cand) == 0 || len(job) == 0 {
		return -1
	}
	var inter, union int
	for t := range cand {
		if job[t] {
			inter++
		}
	}
	union = len(cand) + len(job) - inter
	if union == 0 {
		return -1
	}
	return float64(inter) / float64(union)
}

// verbOverlap measures shared achievement verbs after lemmatization.
func verbOverlap(a, b []string) float64 {
	va := verbSet(a)
	vb := verbSet(b)
	if len(vb) == 0 {
		// job text names no action verbs; nothing to align against
		return 0.5
	}
	if len(va) == 0 {
		return 0
	}
	var inter int
	for v := range vb {
		if va[v] {
			inter++
		}
	}
	return float64(inter) / float64(len(vb))
}

func verbSet(tokens []string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tokens {
		if l := textx.Lemma(t); actionVerbs[l] {
			out[l] = true
		}
	}
	return out
}
