package match

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// stubMatcher lets selector tests control health without real dependencies.
type stubMatcher struct {
	name    string
	healthy bool
}

func (s *stubMatcher) Name() string  { return s.name }
func (s *stubMatcher) Healthy() bool { return s.healthy }
func (s *stubMatcher) Score(context.Context, domain.MatchRequest) (domain.MatchResult, error) {
	return domain.MatchResult{AlgorithmUsed: s.name}, nil
}

func fullSelector(mlHealthy, semHealthy bool) *Selector {
	return NewSelector(
		&stubMatcher{name: AlgorithmRule, healthy: true},
		&stubMatcher{name: AlgorithmML, healthy: mlHealthy},
		&stubMatcher{name: AlgorithmSemantic, healthy: semHealthy},
	)
}

func TestSelectorHonorsHint(t *testing.T) {
	s := fullSelector(true, true)
	req := domain.MatchRequest{Options: domain.MatchOptions{AlgorithmHint: AlgorithmSemantic}}
	assert.Equal(t, AlgorithmSemantic, s.Select(req).Name())
}

func TestSelectorIgnoresUnknownHint(t *testing.T) {
	s := fullSelector(true, true)
	req := domain.MatchRequest{Options: domain.MatchOptions{AlgorithmHint: "quantum"}}
	assert.Equal(t, AlgorithmRule, s.Select(req).Name())
}

func TestSelectorIgnoresUnhealthyHint(t *testing.T) {
	s := fullSelector(false, true)
	req := domain.MatchRequest{Options: domain.MatchOptions{AlgorithmHint: AlgorithmML}}
	assert.Equal(t, AlgorithmRule, s.Select(req).Name())
}

func TestSelectorQuestionnaireRoutesToML(t *testing.T) {
	s := fullSelector(true, true)
	req := domain.MatchRequest{Candidate: domain.CandidateProfile{
		Preferences: domain.Preferences{Questionnaire: map[string]string{"pace": "fast"}},
	}}
	assert.Equal(t, AlgorithmML, s.Select(req).Name())
}

func TestSelectorLongTextsRouteToSemantic(t *testing.T) {
	s := fullSelector(true, true)
	long := strings.Repeat("experienced platform engineer ", 30)
	require.Greater(t, len(long), longTextThreshold)
	req := domain.MatchRequest{
		Candidate: domain.CandidateProfile{FreeText: long},
		Job:       domain.JobPosting{FreeText: long},
	}
	assert.Equal(t, AlgorithmSemantic, s.Select(req).Name())
}

func TestSelectorLongTextOnOneSideStaysRule(t *testing.T) {
	s := fullSelector(true, true)
	long := strings.Repeat("experienced platform engineer ", 30)
	req := domain.MatchRequest{
		Candidate: domain.CandidateProfile{FreeText: long},
		Job:       domain.JobPosting{FreeText: "short"},
	}
	assert.Equal(t, AlgorithmRule, s.Select(req).Name())
}

func TestSelectorDefaultsToRule(t *testing.T) {
	s := fullSelector(true, true)
	assert.Equal(t, AlgorithmRule, s.Select(domain.MatchRequest{}).Name())
}

func TestChainAlwaysEndsAtRule(t *testing.T) {
	s := fullSelector(true, true)

	mlFirst := s.Chain(s.registered[AlgorithmML])
	names := make([]string, len(mlFirst))
	for i, m := range mlFirst {
		names[i] = m.Name()
	}
	assert.Equal(t, []string{AlgorithmML, AlgorithmSemantic, AlgorithmRule}, names)

	semFirst := s.Chain(s.registered[AlgorithmSemantic])
	require.Len(t, semFirst, 2)
	assert.Equal(t, AlgorithmRule, semFirst[1].Name())

	ruleFirst := s.Chain(s.registered[AlgorithmRule])
	require.Len(t, ruleFirst, 1)
	assert.Equal(t, AlgorithmRule, ruleFirst[0].Name())
}
