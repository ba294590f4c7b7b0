// Package match implements the scoring algorithms and the selector that
// routes each request to one of them.
package match

import (
	"context"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match/feature"
	"github.com/fairyhunter13/talent-matcher/internal/match/score"
)

// Algorithm names used in hints, metrics and the algorithmUsed field.
const (
	AlgorithmRule     = "rule"
	AlgorithmML       = "ml"
	AlgorithmSemantic = "semantic"
)

// Matcher scores one candidate/job pair. Implementations are safe for
// concurrent use.
type Matcher interface {
	Name() string
	// Healthy reports whether the matcher can currently serve requests.
	Healthy() bool
	Score(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error)
}

// scorer is the shared scoring pipeline: generate features, aggregate,
// explain, attach skill details and optional commute time.
type scorer struct {
	name      string
	runner    *feature.Runner
	agg       *score.Aggregator
	explainer *score.Explainer
	skills    *feature.SkillsGenerator
	geo       feature.TravelTimer // nil disables commute computation
	now       func() time.Time
}

func (s *scorer) score(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	start := s.now()
	feats := s.runner.Run(ctx, req)
	overall, cats := s.agg.Aggregate(feats)

	res := domain.MatchResult{
		CandidateID:    req.Candidate.ID,
		JobID:          req.Job.ID,
		OverallScore:   overall,
		Category:       domain.CategoryFor(overall),
		CategoryScores: cats,
		Features:       feats,
		AlgorithmUsed:  s.name,
	}
	res.Matches, res.Missing = s.skills.Details(req.Candidate, req.Job)
	s.explainer.Explain(&res)

	if req.Options.WithCommuteTime {
		res.CommuteMinutes = s.commute(ctx, req)
	}
	res.Latency = s.now().Sub(start)
	return res, nil
}

// commute resolves door-to-door driving minutes; any geo failure leaves the
// field unset rather than failing the match.
func (s *scorer) commute(ctx context.Context, req domain.MatchRequest) *int {
	if s.geo == nil || req.Candidate.Location == "" || req.Job.Location == "" {
		return nil
	}
	if req.Job.WorkMode == domain.WorkRemote {
		return nil
	}
	minutes, err := s.geo.TravelTime(ctx, req.Candidate.Location, req.Job.Location, domain.ModeDriving)
	if err != nil {
		return nil
	}
	return &minutes
}
