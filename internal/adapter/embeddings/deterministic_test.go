package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedIsDeterministic(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	a, err := p.Embed(ctx, []string{"distributed systems engineer"})
	require.NoError(t, err)
	b, err := p.Embed(ctx, []string{"distributed systems engineer"})
	require.NoError(t, err)
	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[0], defaultDims)
}

func TestEmbedReflectsVocabularyOverlap(t *testing.T) {
	p := New(0)
	vecs, err := p.Embed(context.Background(), []string{
		"python data pipelines and sql reporting",
		"python data pipelines with sql dashboards",
		"watercolor painting and pottery classes",
	})
	require.NoError(t, err)

	similar := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	assert.Greater(t, similar, unrelated)
	assert.Greater(t, similar, 0.5)
}

func TestEmbedUnitNorm(t *testing.T) {
	p := New(64)
	vecs, err := p.Embed(context.Background(), []string{"backend services in go"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestEmbedEmptyText(t *testing.T) {
	p := New(16)
	vecs, err := p.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}
