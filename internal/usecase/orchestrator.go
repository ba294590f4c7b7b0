// Package usecase ties the selector, matchers, cache and profile store into
// the application-facing match operations.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/talent-matcher/internal/cache"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/match"
	"github.com/fairyhunter13/talent-matcher/internal/match/score"
	"github.com/fairyhunter13/talent-matcher/internal/observability"
)

const defaultResultTTL = time.Hour

// Orchestrator is the public entry point for matching. It routes a request
// through the selector, applies the fallback chain, and caches results under
// a request fingerprint.
type Orchestrator struct {
	store    domain.ProfileStore
	selector *match.Selector
	results  *cache.Tier
	validate *validator.Validate
	tracer   trace.Tracer
	// featureVersion is folded into the fingerprint so weight or taxonomy
	// changes invalidate cached results.
	featureVersion string
}

// OrchestratorDeps carries the orchestrator's collaborators.
type OrchestratorDeps struct {
	Store          domain.ProfileStore
	Selector       *match.Selector
	Results        *cache.Tier
	FeatureVersion string
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	fv := deps.FeatureVersion
	if fv == "" {
		fv = "v1"
	}
	return &Orchestrator{
		store:          deps.Store,
		selector:       deps.Selector,
		results:        deps.Results,
		validate:       validator.New(),
		tracer:         otel.Tracer("usecase.orchestrator"),
		featureVersion: fv,
	}
}

var ulidEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // Weak random is sufficient for ULID entropy.

func newRequestID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulidEntropy)
	if err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}

// Match scores one candidate against one posting. Results are cached by
// fingerprint; a hit returns the stored result with a "+cache" marker on the
// algorithm name.
func (o *Orchestrator) Match(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Match")
	defer span.End()

	reqID := newRequestID()
	span.SetAttributes(
		attribute.String("match.request_id", reqID),
		attribute.String("match.candidate_id", req.Candidate.ID),
		attribute.String("match.job_id", req.Job.ID),
	)

	if err := o.validate.Struct(req.Options); err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.Match: %w: %v", domain.ErrInvalidArgument, err)
	}
	if req.Candidate.ID == "" || req.Job.ID == "" {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.Match: %w: candidate and job ids required", domain.ErrInvalidArgument)
	}

	fp := o.fingerprint(req)
	if res, ok := o.cachedResult(ctx, fp); ok {
		observability.RecordMatch(res.AlgorithmUsed, "cache_hit")
		slog.Debug("match served from cache",
			slog.String("request_id", reqID),
			slog.String("candidate_id", req.Candidate.ID),
			slog.String("job_id", req.Job.ID))
		res.AlgorithmUsed += "+cache"
		return res, nil
	}

	res, err := o.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		return domain.MatchResult{}, err
	}

	ttl := req.Options.CacheTTL
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	o.storeResult(ctx, fp, res, ttl)
	span.SetAttributes(
		attribute.String("match.algorithm", res.AlgorithmUsed),
		attribute.Float64("match.overall_score", res.OverallScore),
	)
	return res, nil
}

// run selects the primary matcher and walks the fallback chain on typed,
// non-validation failures.
func (o *Orchestrator) run(ctx context.Context, req domain.MatchRequest) (domain.MatchResult, error) {
	primary := o.selector.Select(req)
	chain := []match.Matcher{primary}
	if req.Options.EnableFallback {
		chain = o.selector.Chain(primary)
	}

	var lastErr error
	for i, m := range chain {
		start := time.Now()
		res, err := m.Score(ctx, req)
		if err == nil {
			observability.RecordMatch(m.Name(), "ok")
			observability.RecordMatchLatency(m.Name(), time.Since(start).Seconds())
			if i > 0 {
				res.AlgorithmUsed = primary.Name() + "/" + m.Name()
			}
			return res, nil
		}
		observability.RecordMatch(m.Name(), "error")
		class := domain.Classify(err)
		if class == domain.ClassValidation || class == domain.ClassCancelled {
			return domain.MatchResult{}, err
		}
		slog.Warn("matcher failed, trying fallback",
			slog.String("algorithm", m.Name()),
			slog.String("class", string(class)),
			slog.Any("error", err))
		lastErr = err
	}
	return domain.MatchResult{}, fmt.Errorf("op=usecase.run: all matchers failed: %w", lastErr)
}

// MatchByID loads both profiles through the store and matches them.
func (o *Orchestrator) MatchByID(ctx context.Context, candidateID, jobID string, opts domain.MatchOptions) (domain.MatchResult, error) {
	cand, err := o.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.MatchByID: candidate %s: %w", candidateID, err)
	}
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.MatchByID: job %s: %w", jobID, err)
	}
	return o.Match(ctx, domain.MatchRequest{Candidate: cand, Job: job, Options: opts})
}

// RankJobs scores a candidate against many postings and returns them sorted
// best-first, filtered by MinScore and truncated to MaxResults. Postings that
// fail to load or to score are skipped with a warning rather than failing the
// whole batch.
func (o *Orchestrator) RankJobs(ctx context.Context, candidateID string, jobIDs []string, opts domain.MatchOptions) ([]domain.MatchResult, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.RankJobs")
	defer span.End()
	span.SetAttributes(
		attribute.String("match.candidate_id", candidateID),
		attribute.Int("match.job_count", len(jobIDs)),
	)

	cand, err := o.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=usecase.RankJobs: candidate %s: %w", candidateID, err)
	}
	if len(jobIDs) == 0 {
		jobs, err := o.store.ListActiveJobs(ctx)
		if err != nil {
			return nil, fmt.Errorf("op=usecase.RankJobs: list jobs: %w", err)
		}
		for _, j := range jobs {
			jobIDs = append(jobIDs, j.ID)
		}
	}

	results := make([]domain.MatchResult, 0, len(jobIDs))
	for _, id := range jobIDs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("op=usecase.RankJobs: %w: %v", domain.ErrCancelled, err)
		}
		job, err := o.store.GetJob(ctx, id)
		if err != nil {
			slog.Warn("skipping unknown posting", slog.String("job_id", id), slog.Any("error", err))
			continue
		}
		res, err := o.Match(ctx, domain.MatchRequest{Candidate: cand, Job: job, Options: opts})
		if err != nil {
			slog.Warn("skipping failed match", slog.String("job_id", id), slog.Any("error", err))
			continue
		}
		if res.OverallScore < opts.MinScore {
			continue
		}
		results = append(results, res)
	}
	score.Rank(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

// fingerprint is stable across option fields that do not change the score.
func (o *Orchestrator) fingerprint(req domain.MatchRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", req.Candidate.ID, req.Job.ID, req.Options.AlgorithmHint, o.featureVersion)
	return hex.EncodeToString(h.Sum(nil))
}

func (o *Orchestrator) cachedResult(ctx context.Context, fp string) (domain.MatchResult, bool) {
	if o.results == nil {
		return domain.MatchResult{}, false
	}
	data, ok := o.results.Get(ctx, cache.Key("result", fp))
	if !ok {
		return domain.MatchResult{}, false
	}
	var res domain.MatchResult
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Warn("dropping undecodable cached result", slog.Any("error", err))
		return domain.MatchResult{}, false
	}
	return res, true
}

func (o *Orchestrator) storeResult(ctx context.Context, fp string, res domain.MatchResult, ttl time.Duration) {
	if o.results == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		slog.Error("result marshal failed", slog.Any("error", err))
		return
	}
	o.results.Set(ctx, cache.Key("result", fp), data, ttl)
}
