// Package feature implements the independent feature generator families that
// feed the score aggregator: skills, textual, preference, cultural and
// experience signals, each emitting labeled values in [0,1] under its prefix.
package feature

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Generator produces a labeled feature map for one request. Generators are
// deterministic and stateless after construction; failures degrade to the
// zero feature vector at the runner.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req domain.MatchRequest) (map[string]float64, error)
}

// Runner fans generators out in parallel and joins their feature maps. A
// generator that errors (or is cancelled) contributes zeros and is logged
// once per request.
type Runner struct {
	generators []Generator
}

// NewRunner builds a runner over a fixed generator set.
func NewRunner(gens ...Generator) *Runner {
	return &Runner{generators: gens}
}

// Generators returns the configured generator set.
func (r *Runner) Generators() []Generator { return r.generators }

// Run executes all generators concurrently and merges their outputs. The
// merged map is the union of all prefixed features; values are clamped to
// [0,1].
func (r *Runner) Run(ctx context.Context, req domain.MatchRequest) map[string]float64 {
	type outcome struct {
		name     string
		features map[string]float64
		err      error
	}
	results := make([]outcome, len(r.generators))
	var wg sync.WaitGroup
	for i, g := range r.generators {
		wg.Add(1)
		go func(i int, g Generator) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = outcome{name: g.Name(), err: domain.ErrInternal}
				}
			}()
			feats, err := g.Generate(ctx, req)
			results[i] = outcome{name: g.Name(), features: feats, err: err}
		}(i, g)
	}
	wg.Wait()

	merged := make(map[string]float64)
	for _, res := range results {
		if res.err != nil {
			slog.Warn("feature generator degraded to zeros",
				slog.String("generator", res.name),
				slog.String("candidate_id", req.Candidate.ID),
				slog.String("job_id", req.Job.ID),
				slog.Any("error", res.err))
			continue
		}
		for k, v := range res.features {
			merged[k] = Clamp01(v)
		}
	}
	return merged
}

// Clamp01 clips v into [0,1] and zeros NaN.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// cosine computes the cosine similarity of two sparse vectors. Callers clamp
// the result; empty vectors yield 0.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, av := range a {
		na += av * av
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// cosine32 computes cosine similarity over dense float32 vectors.
func cosine32(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
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

// meanPool averages a batch of vectors element-wise.
func meanPool(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	out := make([]float32, dim)
	for _, v := range vecs {
		if len(v) != dim {
			return nil
		}
		for i := range v {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float32(len(vecs))
	}
	return out
}

// f1 computes the harmonic mean of precision and recall.
func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
