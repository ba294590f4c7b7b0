package match

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
)

// bagEmbedder counts occurrences of a fixed vocabulary, giving proportional
// cosine similarity for overlapping texts.
type bagEmbedder struct {
	vocab []string
}

func (b *bagEmbedder) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(b.vocab))
		lower := strings.ToLower(t)
		for j, w := range b.vocab {
			vec[j] = float32(strings.Count(lower, w))
		}
		out[i] = vec
	}
	return out, nil
}

func testEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: []string{
		"python", "go", "sql", "data", "pipeline", "team", "accounting", "audit",
	}}
}

func TestNewSemanticMatcherRequiresEmbeddings(t *testing.T) {
	tax, err := taxonomy.Load()
	require.NoError(t, err)

	_, err = NewSemanticMatcher(SemanticDeps{Taxonomy: tax})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSemanticMatcherPrefersOverlappingProse(t *testing.T) {
	tax, err := taxonomy.Load()
	require.NoError(t, err)
	m, err := NewSemanticMatcher(SemanticDeps{Taxonomy: tax, Embeddings: testEmbedder()})
	require.NoError(t, err)

	cand := domain.CandidateProfile{
		ID: "c1",
		Skills: []domain.Skill{
			{Name: "python", Level: domain.LevelExpert},
			{Name: "sql", Level: domain.LevelAdvanced},
		},
		FreeText: "built python data pipeline tooling for the data team",
	}
	aligned := domain.JobPosting{
		ID: "j-data",
		RequiredSkills: []domain.Skill{
			{Name: "python", Level: domain.LevelAdvanced, Required: true},
		},
		FreeText: "python data pipeline work inside a small data team",
	}
	unrelated := domain.JobPosting{
		ID: "j-audit",
		RequiredSkills: []domain.Skill{
			{Name: "accounting", Level: domain.LevelAdvanced, Required: true},
		},
		FreeText: "accounting and audit responsibilities",
	}

	ctx := context.Background()
	good, err := m.Score(ctx, domain.MatchRequest{Candidate: cand, Job: aligned})
	require.NoError(t, err)
	bad, err := m.Score(ctx, domain.MatchRequest{Candidate: cand, Job: unrelated})
	require.NoError(t, err)

	assert.Equal(t, AlgorithmSemantic, good.AlgorithmUsed)
	assert.Greater(t, good.OverallScore, bad.OverallScore)
	assert.Contains(t, good.Features, "skills_semantic")
}

func TestSemanticMatcherDeterministic(t *testing.T) {
	tax, err := taxonomy.Load()
	require.NoError(t, err)
	m, err := NewSemanticMatcher(SemanticDeps{Taxonomy: tax, Embeddings: testEmbedder()})
	require.NoError(t, err)

	req := domain.MatchRequest{
		Candidate: domain.CandidateProfile{
			ID:       "c1",
			Skills:   []domain.Skill{{Name: "go", Level: domain.LevelAdvanced}},
			FreeText: "go services",
		},
		Job: domain.JobPosting{
			ID:             "j1",
			RequiredSkills: []domain.Skill{{Name: "go", Level: domain.LevelIntermediate, Required: true}},
			FreeText:       "go services team",
		},
	}
	ctx := context.Background()
	first, err := m.Score(ctx, req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := m.Score(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.OverallScore, again.OverallScore)
		assert.Equal(t, first.Features, again.Features)
	}
}
