// Package cache implements the two-tier cache: a local in-process LRU backed
// by an optional shared backend (Redis). Values are raw bytes; callers bring
// their own encoding.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Tier is the keyed get/set surface used across the core.
type Tier struct {
	local       *LRU
	shared      domain.SharedBackend // may be nil
	writeBudget time.Duration
	defaultTTL  time.Duration
}

// Option tunes a Tier.
type Option func(*Tier)

// WithShared attaches a shared backend behind the local tier.
func WithShared(b domain.SharedBackend) Option {
	return func(t *Tier) { t.shared = b }
}

// WithWriteBudget bounds how long a shared-tier write may hold the request
// path. Default 50ms.
func WithWriteBudget(d time.Duration) Option {
	return func(t *Tier) { t.writeBudget = d }
}

// WithDefaultTTL sets the TTL used when Set is called with ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(t *Tier) { t.defaultTTL = d }
}

// New builds a Tier with a local LRU of localSize entries.
func New(localSize int, opts ...Option) *Tier {
	t := &Tier{
		local:       NewLRU(localSize),
		writeBudget: 50 * time.Millisecond,
		defaultTTL:  time.Hour,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Get consults local first, then shared; a shared hit populates local.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := t.local.Get(key); ok {
		return v, true
	}
	if t.shared == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, t.writeBudget)
	defer cancel()
	v, ok, err := t.shared.Get(cctx, key)
	if err != nil {
		slog.Debug("shared cache get failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	if ok {
		// Backfill without a TTL hint; the shared tier owns expiry and the
		// local copy ages out by capacity pressure.
		t.local.Set(key, v, t.defaultTTL)
	}
	return v, ok
}

// Set writes to both tiers. A shared-backend timeout never loses the local
// write and never blocks past the write budget.
func (t *Tier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	t.local.Set(key, value, ttl)
	if t.shared == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, t.writeBudget)
	defer cancel()
	if err := t.shared.Set(cctx, key, value, ttl); err != nil {
		slog.Debug("shared cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Delete removes the key from the local tier. Shared entries expire by TTL.
func (t *Tier) Delete(key string) { t.local.Delete(key) }

// Key builds a namespaced cache key by joining the parts with "|" in caller
// order and SHA-256 hashing the result. Order matters: origin/destination
// pairs and other positional arguments must not collapse onto one key.
// Callers hashing map-shaped input sort the keys themselves before calling.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
