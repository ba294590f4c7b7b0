// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// GeoMode selects how the geo client answers queries.
type GeoMode string

const (
	GeoAPIOnly    GeoMode = "api-only"
	GeoSimulation GeoMode = "simulation"
	GeoHybrid     GeoMode = "hybrid"
)

// QueueConfig carries per-priority queue attributes.
type QueueConfig struct {
	JobTimeout time.Duration
	ResultTTL  time.Duration
	MaxRetries int
}

// CircuitConfig carries per-dependency breaker settings.
type CircuitConfig struct {
	Threshold       int
	Timeout         time.Duration
	SuccessesNeeded int
}

// Config holds all application configuration parsed from environment
// variables. Every key has a default; the core also accepts a fully built
// struct.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"talent-matcher"`

	// Cache
	CacheLocalSize  int           `env:"CACHE_LOCAL_SIZE" envDefault:"10000"`
	CacheDefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"1h"`
	RedisURL        string        `env:"REDIS_URL"`
	// SharedCacheBudget bounds shared-tier writes on the request path.
	SharedCacheBudget time.Duration `env:"SHARED_CACHE_BUDGET" envDefault:"50ms"`

	// Geo
	GeoMode       GeoMode `env:"GEO_MODE" envDefault:"hybrid"`
	GeoDailyQuota int     `env:"GEO_DAILY_QUOTA" envDefault:"2000"`
	GeoRatePerSec float64 `env:"GEO_RATE_PER_SEC" envDefault:"10"`
	GeoTimeout    time.Duration `env:"GEO_TIMEOUT" envDefault:"5s"`

	// Queue (per-priority overrides; defaults match the fixed attribute table)
	QueuePremiumTimeout     time.Duration `env:"QUEUE_PREMIUM_TIMEOUT" envDefault:"10m"`
	QueuePremiumResultTTL   time.Duration `env:"QUEUE_PREMIUM_RESULT_TTL" envDefault:"24h"`
	QueuePremiumMaxRetries  int           `env:"QUEUE_PREMIUM_MAX_RETRIES" envDefault:"5"`
	QueueStandardTimeout    time.Duration `env:"QUEUE_STANDARD_TIMEOUT" envDefault:"5m"`
	QueueStandardResultTTL  time.Duration `env:"QUEUE_STANDARD_RESULT_TTL" envDefault:"12h"`
	QueueStandardMaxRetries int           `env:"QUEUE_STANDARD_MAX_RETRIES" envDefault:"3"`
	QueueBatchTimeout       time.Duration `env:"QUEUE_BATCH_TIMEOUT" envDefault:"30m"`
	QueueBatchResultTTL     time.Duration `env:"QUEUE_BATCH_RESULT_TTL" envDefault:"48h"`
	QueueBatchMaxRetries    int           `env:"QUEUE_BATCH_MAX_RETRIES" envDefault:"2"`
	QueueHighWaterMark      int           `env:"QUEUE_HIGH_WATER_MARK" envDefault:"10000"`

	// Worker
	WorkerPoolSize   int      `env:"WORKER_POOL_SIZE"`
	WorkerPriorities []string `env:"WORKER_PRIORITIES" envSeparator:"," envDefault:"premium,standard,batch"`
	ShutdownGrace    time.Duration `env:"SHUTDOWN_GRACE" envDefault:"30s"`

	// Circuit breaker defaults (per-dep overrides via Circuit map below)
	CircuitThreshold       int           `env:"CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitTimeout         time.Duration `env:"CIRCUIT_TIMEOUT" envDefault:"30s"`
	CircuitSuccessesNeeded int           `env:"CIRCUIT_SUCCESSES_NEEDED" envDefault:"2"`

	// Retry defaults
	RetryMaxRetries int           `env:"RETRY_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay  time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RetryMaxDelay   time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	// Algorithms
	AlgorithmsEnabled []string `env:"ALGORITHMS_ENABLED" envSeparator:"," envDefault:"rule,ml,semantic"`
	MLModelPath       string   `env:"ML_MODEL_PATH"`
	EmbeddingsEnabled bool     `env:"EMBEDDINGS_ENABLED" envDefault:"true"`

	// Webhooks
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"5"`

	// WeightsFile optionally overlays category/feature weights from YAML.
	WeightsFile string `env:"WEIGHTS_FILE"`

	// Weights are populated from defaults, then the YAML overlay. Not
	// env-parsed; maps are awkward in env tags, so structured overrides
	// come from a file.
	CategoryWeights map[string]float64 `env:"-"`
	FeatureWeights  map[string]float64 `env:"-"`

	// Per-dependency circuit overrides keyed by dependency name.
	Circuit map[string]CircuitConfig `env:"-"`
}

// DefaultCategoryWeights is the authoritative category weighting.
func DefaultCategoryWeights() map[string]float64 {
	return map[string]float64{
		"skills":     0.40,
		"cultural":   0.20,
		"text":       0.20,
		"pref":       0.15,
		"experience": 0.05,
	}
}

// weightsOverlay is the YAML shape of WeightsFile.
type weightsOverlay struct {
	Categories map[string]float64 `yaml:"categories"`
	Features   map[string]float64 `yaml:"features"`
}

// Load parses environment variables into a Config and applies the optional
// weights overlay.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	cfg.applyDefaults()
	if cfg.WeightsFile != "" {
		if err := cfg.loadWeights(cfg.WeightsFile); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = runtime.NumCPU()
	}
	if c.CategoryWeights == nil {
		c.CategoryWeights = DefaultCategoryWeights()
	}
	if c.FeatureWeights == nil {
		c.FeatureWeights = map[string]float64{}
	}
	if c.Circuit == nil {
		c.Circuit = map[string]CircuitConfig{}
	}
}

func (c *Config) loadWeights(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=config.loadWeights: %w", err)
	}
	var ov weightsOverlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("op=config.loadWeights: %w", err)
	}
	for k, v := range ov.Categories {
		c.CategoryWeights[k] = v
	}
	for k, v := range ov.Features {
		c.FeatureWeights[k] = v
	}
	return nil
}

// QueueFor returns the attribute set for a priority name.
func (c Config) QueueFor(priority string) QueueConfig {
	switch priority {
	case "premium":
		return QueueConfig{JobTimeout: c.QueuePremiumTimeout, ResultTTL: c.QueuePremiumResultTTL, MaxRetries: c.QueuePremiumMaxRetries}
	case "batch":
		return QueueConfig{JobTimeout: c.QueueBatchTimeout, ResultTTL: c.QueueBatchResultTTL, MaxRetries: c.QueueBatchMaxRetries}
	default:
		return QueueConfig{JobTimeout: c.QueueStandardTimeout, ResultTTL: c.QueueStandardResultTTL, MaxRetries: c.QueueStandardMaxRetries}
	}
}

// CircuitFor returns breaker settings for a dependency, falling back to the
// global defaults.
func (c Config) CircuitFor(dep string) CircuitConfig {
	if cc, ok := c.Circuit[dep]; ok {
		if cc.SuccessesNeeded <= 0 {
			cc.SuccessesNeeded = c.CircuitSuccessesNeeded
		}
		return cc
	}
	return CircuitConfig{Threshold: c.CircuitThreshold, Timeout: c.CircuitTimeout, SuccessesNeeded: c.CircuitSuccessesNeeded}
}

// AlgorithmEnabled reports whether a matcher name is enabled.
func (c Config) AlgorithmEnabled(name string) bool {
	for _, a := range c.AlgorithmsEnabled {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
