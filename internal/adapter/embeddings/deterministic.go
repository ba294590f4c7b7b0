// Package embeddings provides a deterministic offline EmbeddingsProvider.
// It backs mock mode and tests; production deployments plug in a real
// provider behind the same port.
package embeddings

import (
	"hash/fnv"
	"math"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

const defaultDims = 256

// Deterministic hashes token counts into a fixed-dimensional vector. Texts
// sharing vocabulary get high cosine similarity, so semantic features behave
// sensibly offline. The same text always yields the same vector.
type Deterministic struct {
	dims int
}

// New returns a Deterministic provider. dims <= 0 selects the default.
func New(dims int) *Deterministic {
	if dims <= 0 {
		dims = defaultDims
	}
	return &Deterministic{dims: dims}
}

// Embed never fails; empty texts map to zero vectors.
func (d *Deterministic) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embed(t)
	}
	return out, nil
}

func (d *Deterministic) embed(text string) []float32 {
	vec := make([]float32, d.dims)
	for _, tok := range textx.Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(textx.Lemma(tok)))
		sum := h.Sum32()
		idx := int(sum % uint32(d.dims))
		// Sign bit from the hash keeps buckets from only accumulating,
		// which would make all long texts look alike.
		if sum&(1<<31) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
