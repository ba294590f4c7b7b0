// Package app wires configuration into a running core: cache, geo, matchers,
// queue, worker pool and webhook dispatcher. The transport layer (out of
// scope here) consumes the assembled Core.
package app

import (
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/talent-matcher/internal/cache"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/geo"
	"github.com/fairyhunter13/talent-matcher/internal/match"
	"github.com/fairyhunter13/talent-matcher/internal/observability"
	"github.com/fairyhunter13/talent-matcher/internal/queue"
	"github.com/fairyhunter13/talent-matcher/internal/resilience"
	"github.com/fairyhunter13/talent-matcher/internal/taxonomy"
	"github.com/fairyhunter13/talent-matcher/internal/usecase"
	"github.com/fairyhunter13/talent-matcher/internal/webhook"
	"github.com/fairyhunter13/talent-matcher/internal/worker"
)

// Deps are the external collaborators the core consumes. Store is required;
// the rest are optional and gate the features that need them.
type Deps struct {
	Store       domain.ProfileStore
	GeoUpstream domain.GeoUpstream       // nil forces simulation mode
	Extractor   domain.DocumentExtractor // nil disables parse task kinds
	Embeddings  domain.EmbeddingsProvider
}

// Core is the assembled application.
type Core struct {
	Config       config.Config
	Taxonomy     *taxonomy.Taxonomy
	Cache        *cache.Tier
	Geo          *geo.Client
	Selector     *match.Selector
	Orchestrator *usecase.Orchestrator
	Tasks        *usecase.TaskService
	Queue        *queue.Queue
	Pool         *worker.Pool
	Webhooks     *webhook.Dispatcher
	// Metrics serves stats snapshots to transports without a prometheus
	// scraper.
	Metrics *observability.Registry
}

// New assembles the core from configuration.
func New(cfg config.Config, deps Deps) (*Core, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("op=app.New: %w: profile store required", domain.ErrInvalidArgument)
	}

	tax, err := taxonomy.Load()
	if err != nil {
		return nil, fmt.Errorf("op=app.New: %w", err)
	}

	cacheOpts := []cache.Option{cache.WithDefaultTTL(cfg.CacheDefaultTTL), cache.WithWriteBudget(cfg.SharedCacheBudget)}
	if cfg.RedisURL != "" {
		backend, err := cache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("op=app.New: %w", err)
		}
		cacheOpts = append(cacheOpts, cache.WithShared(backend))
	}
	tier := cache.New(cfg.CacheLocalSize, cacheOpts...)

	breakerGauge := resilience.WithStateChange(func(name string, s resilience.State) {
		observability.RecordCircuitState(name, float64(s))
	})
	geoCC := cfg.CircuitFor("geo")
	geoBreaker := resilience.NewBreaker("geo", geoCC.Threshold, geoCC.Timeout, geoCC.SuccessesNeeded, breakerGauge)
	observability.RecordCircuitState("geo", float64(resilience.StateClosed))
	if deps.GeoUpstream == nil && cfg.GeoMode != config.GeoSimulation {
		slog.Warn("no geo upstream configured, forcing simulation mode")
		cfg.GeoMode = config.GeoSimulation
	}
	geoClient := geo.New(cfg, deps.GeoUpstream, tier, geoBreaker)

	matchers, err := buildMatchers(cfg, tax, geoClient, deps.Embeddings)
	if err != nil {
		return nil, err
	}
	selector := match.NewSelector(matchers...)

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Store:    deps.Store,
		Selector: selector,
		Results:  tier,
	})

	perPriority := map[domain.Priority]config.QueueConfig{}
	for _, p := range domain.Priorities {
		perPriority[p] = cfg.QueueFor(string(p))
	}
	q := queue.New(queue.Options{
		PerPriority:    perPriority,
		HighWaterMark:  cfg.QueueHighWaterMark,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
	})

	hookCC := cfg.CircuitFor("webhook")
	dispatcher := webhook.NewDispatcher(webhook.Options{
		Breakers: resilience.NewBreakerSet(func(name string) *resilience.Breaker {
			observability.RecordCircuitState("webhook:"+name, float64(resilience.StateClosed))
			return resilience.NewBreaker("webhook:"+name, hookCC.Threshold, hookCC.Timeout, hookCC.SuccessesNeeded, breakerGauge)
		}),
		MaxRetries: cfg.WebhookMaxRetries,
		Timeout:    cfg.WebhookTimeout,
	})

	tasks := usecase.NewTaskService(orch, q, deps.Extractor)
	pool := worker.NewPool(worker.PoolOptions{
		Queue:       q,
		Runner:      tasks,
		Results:     tier,
		Notify:      dispatcher,
		PerPriority: perPriority,
		Priorities:  workerProfile(cfg.WorkerPriorities),
		Size:        cfg.WorkerPoolSize,
		Grace:       cfg.ShutdownGrace,
	})

	return &Core{
		Config:       cfg,
		Taxonomy:     tax,
		Cache:        tier,
		Geo:          geoClient,
		Selector:     selector,
		Orchestrator: orch,
		Tasks:        tasks,
		Queue:        q,
		Pool:         pool,
		Webhooks:     dispatcher,
		Metrics:      observability.Default,
	}, nil
}

// workerProfile maps configured priority names onto the pool's read list,
// dropping anything unrecognized.
func workerProfile(names []string) []domain.Priority {
	var out []domain.Priority
	for _, n := range names {
		p := domain.Priority(n)
		if !p.Valid() {
			slog.Warn("ignoring unknown worker priority", slog.String("priority", n))
			continue
		}
		out = append(out, p)
	}
	return out
}

// buildMatchers constructs every enabled algorithm whose dependencies are
// satisfied. The rule matcher is unconditional; every fallback chain ends
// there.
func buildMatchers(cfg config.Config, tax *taxonomy.Taxonomy, geoClient *geo.Client, emb domain.EmbeddingsProvider) ([]match.Matcher, error) {
	matchers := []match.Matcher{
		match.NewRuleMatcher(match.RuleDeps{
			Taxonomy:        tax,
			Geo:             geoClient,
			CategoryWeights: cfg.CategoryWeights,
			FeatureWeights:  cfg.FeatureWeights,
		}),
	}
	if cfg.AlgorithmEnabled(match.AlgorithmML) && cfg.MLModelPath != "" {
		ml, err := match.NewMLMatcher(match.MLDeps{
			ModelPath:       cfg.MLModelPath,
			Taxonomy:        tax,
			Embeddings:      emb,
			Geo:             geoClient,
			CategoryWeights: cfg.CategoryWeights,
			FeatureWeights:  cfg.FeatureWeights,
		})
		if err != nil {
			return nil, fmt.Errorf("op=app.buildMatchers: %w", err)
		}
		matchers = append(matchers, ml)
	}
	if cfg.AlgorithmEnabled(match.AlgorithmSemantic) && cfg.EmbeddingsEnabled && emb != nil {
		sem, err := match.NewSemanticMatcher(match.SemanticDeps{
			Taxonomy:        tax,
			Embeddings:      emb,
			Geo:             geoClient,
			CategoryWeights: cfg.CategoryWeights,
			FeatureWeights:  cfg.FeatureWeights,
		})
		if err != nil {
			return nil, fmt.Errorf("op=app.buildMatchers: %w", err)
		}
		matchers = append(matchers, sem)
	}
	return matchers, nil
}
