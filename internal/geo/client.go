// Package geo provides travel-time and geocoding lookups with caching, daily
// quota accounting and a deterministic simulation fallback.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fairyhunter13/talent-matcher/internal/cache"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/resilience"
)

const (
	upstreamTTL   = 7 * 24 * time.Hour
	simulationTTL = 24 * time.Hour
)

// Client answers travel-time, geocode and matrix queries. Every call consults
// the cache tier first; upstream calls are quota-checked, rate-limited and
// guarded by the geo circuit breaker.
type Client struct {
	mode     config.GeoMode
	upstream domain.GeoUpstream // may be nil in simulation mode
	tier     *cache.Tier
	guard    resilience.Guard
	limiter  *rate.Limiter

	quotaMu    sync.Mutex
	quotaLimit int
	quotaUsed  int
	quotaDay   string // local calendar day the counter belongs to
	now        func() time.Time
}

// New constructs a geo client. upstream may be nil when mode is simulation.
func New(cfg config.Config, upstream domain.GeoUpstream, tier *cache.Tier, breaker *resilience.Breaker) *Client {
	retry := resilience.RetryPolicy{
		MaxRetries: cfg.RetryMaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
		RetryOn:    []domain.ErrorClass{domain.ClassTransient, domain.ClassRateLimited},
	}
	return &Client{
		mode:       cfg.GeoMode,
		upstream:   upstream,
		tier:       tier,
		guard:      resilience.Guard{Breaker: breaker, Retry: retry, Budget: cfg.GeoTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.GeoRatePerSec), 1),
		quotaLimit: cfg.GeoDailyQuota,
		now:        time.Now,
	}
}

// TravelTime returns door-to-door minutes between two addresses.
func (c *Client) TravelTime(ctx context.Context, origin, destination string, mode domain.TravelMode) (int, error) {
	key := cache.Key("geo", "travel", origin, destination, string(mode))
	if v, ok := c.tier.Get(ctx, key); ok {
		if minutes, err := strconv.Atoi(string(v)); err == nil {
			return minutes, nil
		}
	}

	minutes, simulated, err := c.resolveTravel(ctx, origin, destination, mode)
	if err != nil {
		return 0, err
	}
	ttl := upstreamTTL
	if simulated {
		ttl = simulationTTL
	}
	c.tier.Set(ctx, key, []byte(strconv.Itoa(minutes)), ttl)
	return minutes, nil
}

func (c *Client) resolveTravel(ctx context.Context, origin, destination string, mode domain.TravelMode) (minutes int, simulated bool, err error) {
	if c.mode == config.GeoSimulation {
		return simulateTravelTime(origin, destination, mode), true, nil
	}
	if !c.takeQuota() {
		if c.mode == config.GeoHybrid {
			return simulateTravelTime(origin, destination, mode), true, nil
		}
		return 0, false, fmt.Errorf("op=geo.TravelTime: daily quota exhausted: %w", domain.ErrRateLimited)
	}
	var res domain.DirectionsResult
	callErr := c.callUpstream(ctx, func(ctx context.Context) error {
		r, err := c.upstream.Directions(ctx, origin, destination, mode)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if callErr != nil {
		if c.mode == config.GeoHybrid {
			slog.Debug("geo upstream failed, simulating",
				slog.String("origin", origin), slog.String("destination", destination), slog.Any("error", callErr))
			return simulateTravelTime(origin, destination, mode), true, nil
		}
		return 0, false, callErr
	}
	return res.Minutes, false, nil
}

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Location, error) {
	key := cache.Key("geo", "geocode", address)
	if v, ok := c.tier.Get(ctx, key); ok {
		var loc domain.Location
		if err := json.Unmarshal(v, &loc); err == nil {
			return loc, nil
		}
	}

	var loc domain.Location
	simulated := false
	switch {
	case c.mode == config.GeoSimulation:
		loc, simulated = simulateGeocode(address), true
	case !c.takeQuota():
		if c.mode != config.GeoHybrid {
			return domain.Location{}, fmt.Errorf("op=geo.Geocode: daily quota exhausted: %w", domain.ErrRateLimited)
		}
		loc, simulated = simulateGeocode(address), true
	default:
		err := c.callUpstream(ctx, func(ctx context.Context) error {
			l, err := c.upstream.Geocode(ctx, address)
			if err != nil {
				return err
			}
			loc = l
			return nil
		})
		if err != nil {
			if c.mode != config.GeoHybrid {
				return domain.Location{}, err
			}
			loc, simulated = simulateGeocode(address), true
		}
	}

	if b, err := json.Marshal(loc); err == nil {
		ttl := upstreamTTL
		if simulated {
			ttl = simulationTTL
		}
		c.tier.Set(ctx, key, b, ttl)
	}
	return loc, nil
}

// DistanceMatrix answers an origins x destinations grid of travel results.
func (c *Client) DistanceMatrix(ctx context.Context, origins, destinations []string, mode domain.TravelMode) ([][]domain.DirectionsResult, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, fmt.Errorf("op=geo.DistanceMatrix: empty origins or destinations: %w", domain.ErrInvalidArgument)
	}
	parts := append([]string{"matrix", string(mode)}, origins...)
	parts = append(parts, "->")
	parts = append(parts, destinations...)
	key := cache.Key("geo", parts...)
	if v, ok := c.tier.Get(ctx, key); ok {
		var m [][]domain.DirectionsResult
		if err := json.Unmarshal(v, &m); err == nil {
			return m, nil
		}
	}

	m, simulated, err := c.resolveMatrix(ctx, origins, destinations, mode)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(m); err == nil {
		ttl := upstreamTTL
		if simulated {
			ttl = simulationTTL
		}
		c.tier.Set(ctx, key, b, ttl)
	}
	return m, nil
}

func (c *Client) resolveMatrix(ctx context.Context, origins, destinations []string, mode domain.TravelMode) ([][]domain.DirectionsResult, bool, error) {
	simulate := func() [][]domain.DirectionsResult {
		m := make([][]domain.DirectionsResult, len(origins))
		for i, o := range origins {
			row := make([]domain.DirectionsResult, len(destinations))
			for j, d := range destinations {
				row[j] = domain.DirectionsResult{Minutes: simulateTravelTime(o, d, mode)}
			}
			m[i] = row
		}
		return m
	}
	if c.mode == config.GeoSimulation {
		return simulate(), true, nil
	}
	if !c.takeQuota() {
		if c.mode == config.GeoHybrid {
			return simulate(), true, nil
		}
		return nil, false, fmt.Errorf("op=geo.DistanceMatrix: daily quota exhausted: %w", domain.ErrRateLimited)
	}
	var m [][]domain.DirectionsResult
	err := c.callUpstream(ctx, func(ctx context.Context) error {
		res, err := c.upstream.Matrix(ctx, origins, destinations, mode)
		if err != nil {
			return err
		}
		m = res
		return nil
	})
	if err != nil {
		if c.mode == config.GeoHybrid {
			return simulate(), true, nil
		}
		return nil, false, err
	}
	return m, false, nil
}

func (c *Client) callUpstream(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.upstream == nil {
		return fmt.Errorf("op=geo.callUpstream: no upstream configured: %w", domain.ErrUnavailable)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("op=geo.callUpstream: %w", err)
	}
	return c.guard.Do(ctx, fn)
}

// takeQuota consumes one unit of the daily quota, resetting the counter when
// the local calendar day rolls over.
func (c *Client) takeQuota() bool {
	if c.quotaLimit <= 0 {
		return true
	}
	c.quotaMu.Lock()
	defer c.quotaMu.Unlock()
	day := c.now().Local().Format("2006-01-02")
	if day != c.quotaDay {
		c.quotaDay = day
		c.quotaUsed = 0
	}
	if c.quotaUsed >= c.quotaLimit {
		return false
	}
	c.quotaUsed++
	return true
}

// QuotaRemaining reports how many upstream calls are left today.
func (c *Client) QuotaRemaining() int {
	c.quotaMu.Lock()
	defer c.quotaMu.Unlock()
	day := c.now().Local().Format("2006-01-02")
	if day != c.quotaDay {
		return c.quotaLimit
	}
	if rem := c.quotaLimit - c.quotaUsed; rem > 0 {
		return rem
	}
	return 0
}
