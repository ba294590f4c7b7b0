package match

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

func TestNewMLMatcherMissingModel(t *testing.T) {
	_, err := NewMLMatcher(MLDeps{ModelPath: "testdata/does-not-exist.json", Taxonomy: mustTaxonomy(t)})
	require.Error(t, err)
}

func TestNewMLMatcherMalformedModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"features":["x"],"trees":[{"nodes":[{"feature":5,"threshold":0.1,"left":0,"right":0}]}]}`), 0o600))

	_, err := NewMLMatcher(MLDeps{ModelPath: path, Taxonomy: mustTaxonomy(t)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMLMatcherSeparatesStrongAndWeak(t *testing.T) {
	m, err := NewMLMatcher(MLDeps{ModelPath: "testdata/model.json", Taxonomy: mustTaxonomy(t)})
	require.NoError(t, err)
	assert.True(t, m.Healthy())

	strong, err := m.Score(context.Background(), strongRequest())
	require.NoError(t, err)

	weak := strongRequest()
	weak.Candidate.Skills = []domain.Skill{{Name: "Go"}}
	weakRes, err := m.Score(context.Background(), weak)
	require.NoError(t, err)

	assert.Greater(t, strong.OverallScore, 0.6)
	assert.Less(t, weakRes.OverallScore, 0.3)
	assert.Equal(t, AlgorithmML, strong.AlgorithmUsed)
}

func TestMLMatcherAttributionOnFactors(t *testing.T) {
	m, err := NewMLMatcher(MLDeps{ModelPath: "testdata/model.json", Taxonomy: mustTaxonomy(t)})
	require.NoError(t, err)

	res, err := m.Score(context.Background(), strongRequest())
	require.NoError(t, err)

	var found bool
	for _, s := range res.Strengths {
		if s.Feature == "skills_coverage" {
			found = true
			// path attribution, not the static aggregation weight
			assert.Greater(t, s.Impact, 0.5)
		}
	}
	assert.True(t, found, "skills_coverage should appear among strengths")
}
