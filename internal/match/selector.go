package match

import (
	"log/slog"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// longTextThreshold is the free-text length (runes on both sides) above which
// the selector prefers the semantic matcher.
const longTextThreshold = 500

// Selector routes requests to a primary matcher and produces the fallback
// chain. Routing is deterministic for a given request and registration set.
type Selector struct {
	registered map[string]Matcher
}

// NewSelector builds a selector over the available matchers. The rule matcher
// must always be among them; every chain terminates there.
func NewSelector(matchers ...Matcher) *Selector {
	reg := make(map[string]Matcher, len(matchers))
	for _, m := range matchers {
		reg[m.Name()] = m
	}
	return &Selector{registered: reg}
}

// Registered reports whether an algorithm name is available.
func (s *Selector) Registered(name string) bool {
	_, ok := s.registered[name]
	return ok
}

// Select returns the primary matcher for the request:
//  1. a valid, healthy algorithm hint wins;
//  2. a filled questionnaire routes to the ML matcher;
//  3. long free text on both sides routes to the semantic matcher;
//  4. everything else scores by rules.
func (s *Selector) Select(req domain.MatchRequest) Matcher {
	if hint := req.Options.AlgorithmHint; hint != "" {
		if m, ok := s.registered[hint]; ok && m.Healthy() {
			return m
		}
		slog.Debug("ignoring algorithm hint",
			slog.String("hint", hint),
			slog.String("candidate_id", req.Candidate.ID))
	}
	if len(req.Candidate.Preferences.Questionnaire) > 0 {
		if m, ok := s.registered[AlgorithmML]; ok && m.Healthy() {
			return m
		}
	}
	if len([]rune(req.Candidate.FreeText)) > longTextThreshold &&
		len([]rune(req.Job.FreeText)) > longTextThreshold {
		if m, ok := s.registered[AlgorithmSemantic]; ok && m.Healthy() {
			return m
		}
	}
	return s.registered[AlgorithmRule]
}

// Chain returns the fallback order: the primary, then the matchers after it
// in the fixed ml, semantic, rule order. Every chain ends at the rule
// matcher; a rule primary has no fallback.
func (s *Selector) Chain(primary Matcher) []Matcher {
	order := []string{AlgorithmML, AlgorithmSemantic, AlgorithmRule}
	chain := []Matcher{primary}
	past := false
	for _, name := range order {
		if name == primary.Name() {
			past = true
			continue
		}
		if !past {
			continue
		}
		if m, ok := s.registered[name]; ok {
			chain = append(chain, m)
		}
	}
	return chain
}
