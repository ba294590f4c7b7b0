package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Total number of match requests by algorithm and result",
		},
		[]string{"algorithm", "result"},
	)
	MatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_latency_seconds",
			Help:    "Match request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"algorithm"},
	)

	QueueJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Total number of queue jobs reaching a terminal status",
		},
		[]string{"priority", "terminal_status"},
	)
	QueueWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_wait_seconds",
			Help:    "Time jobs spend queued before a worker picks them up",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"priority"},
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Pending jobs per priority queue",
		},
		[]string{"priority"},
	)

	ExternalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Total calls to external dependencies by result",
		},
		[]string{"dep", "result"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_latency_seconds",
			Help:    "External dependency call latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"dep"},
	)
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_state",
			Help: "Circuit breaker state per dependency (0=closed 1=half-open 2=open)",
		},
		[]string{"dep"},
	)
)

// Default is the process-wide snapshot registry. The recorder helpers below
// feed it alongside the prometheus collectors so transports without a
// prometheus scraper can still serve stats from Snapshot.
var Default = NewRegistry()

// RecordMatch counts one match request outcome.
func RecordMatch(algorithm, result string) {
	MatchRequestsTotal.WithLabelValues(algorithm, result).Inc()
	Default.IncCounter("match_requests", algorithm+":"+result)
}

// RecordMatchLatency observes one match duration in seconds.
func RecordMatchLatency(algorithm string, seconds float64) {
	MatchLatency.WithLabelValues(algorithm).Observe(seconds)
	Default.ObserveLatency("match_latency", algorithm, seconds)
}

// RecordQueueTerminal counts a job reaching a terminal status.
func RecordQueueTerminal(priority, status string) {
	QueueJobsTotal.WithLabelValues(priority, status).Inc()
	Default.IncCounter("queue_jobs", priority+":"+status)
}

// RecordQueueWait observes time spent queued before pickup.
func RecordQueueWait(priority string, seconds float64) {
	QueueWaitSeconds.WithLabelValues(priority).Observe(seconds)
	Default.ObserveLatency("queue_wait", priority, seconds)
}

// RecordQueueDepth sets the pending depth of one priority queue.
func RecordQueueDepth(priority string, depth float64) {
	QueueDepth.WithLabelValues(priority).Set(depth)
	Default.SetGauge("queue_depth", priority, depth)
}

// RecordExternalCall counts a call to an external dependency.
func RecordExternalCall(dep, result string) {
	ExternalCallsTotal.WithLabelValues(dep, result).Inc()
	Default.IncCounter("external_calls", dep+":"+result)
}

// RecordExternalLatency observes an external call duration in seconds.
func RecordExternalLatency(dep string, seconds float64) {
	ExternalLatency.WithLabelValues(dep).Observe(seconds)
	Default.ObserveLatency("external_latency", dep, seconds)
}

// RecordCircuitState sets a breaker's state gauge
// (0=closed 1=half-open 2=open).
func RecordCircuitState(dep string, state float64) {
	CircuitState.WithLabelValues(dep).Set(state)
	Default.SetGauge("circuit_state", dep, state)
}

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(MatchRequestsTotal)
		prometheus.MustRegister(MatchLatency)
		prometheus.MustRegister(QueueJobsTotal)
		prometheus.MustRegister(QueueWaitSeconds)
		prometheus.MustRegister(QueueDepth)
		prometheus.MustRegister(ExternalCallsTotal)
		prometheus.MustRegister(ExternalLatency)
		prometheus.MustRegister(CircuitState)
	})
}

// Registry mirrors the prometheus collectors into a read-only snapshot map so
// the transport layer can serialize stats however it likes.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]map[string]float64
	gauges    map[string]map[string]float64
	latencies map[string]map[string][]float64
}

// NewRegistry constructs an empty snapshot registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]map[string]float64),
		gauges:    make(map[string]map[string]float64),
		latencies: make(map[string]map[string][]float64),
	}
}

// IncCounter bumps a named counter with a label key.
func (r *Registry) IncCounter(name, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.counters[name]
	if m == nil {
		m = make(map[string]float64)
		r.counters[name] = m
	}
	m[label]++
}

// SetGauge records a gauge value with a label key.
func (r *Registry) SetGauge(name, label string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.gauges[name]
	if m == nil {
		m = make(map[string]float64)
		r.gauges[name] = m
	}
	m[label] = v
}

// ObserveLatency appends an observation (seconds) with a label key. Only the
// last 1000 observations per series are retained.
func (r *Registry) ObserveLatency(name, label string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.latencies[name]
	if m == nil {
		m = make(map[string][]float64)
		r.latencies[name] = m
	}
	s := append(m[label], seconds)
	if len(s) > 1000 {
		s = s[len(s)-1000:]
	}
	m[label] = s
}

// Snapshot returns a deep copy of all recorded series.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, 3)
	counters := make(map[string]map[string]float64, len(r.counters))
	for name, m := range r.counters {
		cp := make(map[string]float64, len(m))
		for k, v := range m {
			cp[k] = v
		}
		counters[name] = cp
	}
	gauges := make(map[string]map[string]float64, len(r.gauges))
	for name, m := range r.gauges {
		cp := make(map[string]float64, len(m))
		for k, v := range m {
			cp[k] = v
		}
		gauges[name] = cp
	}
	latencies := make(map[string]map[string][]float64, len(r.latencies))
	for name, m := range r.latencies {
		cp := make(map[string][]float64, len(m))
		for k, v := range m {
			s := make([]float64, len(v))
			copy(s, v)
			cp[k] = s
		}
		latencies[name] = cp
	}
	out["counters"] = counters
	out["gauges"] = gauges
	out["latencies"] = latencies
	return out
}
