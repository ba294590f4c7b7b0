package geo

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// modeBounds bounds simulated travel minutes per mode.
var modeBounds = map[domain.TravelMode][2]int{
	domain.ModeDriving: {15, 120},
	domain.ModeTransit: {20, 150},
	domain.ModeCycling: {30, 180},
	domain.ModeWalking: {60, 400},
}

// seedFor derives a stable PRNG seed from the simulation inputs.
func seedFor(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

// simulateTravelTime returns a plausible minute count within mode-specific
// bounds. Deterministic per (origin, destination, mode).
func simulateTravelTime(origin, destination string, mode domain.TravelMode) int {
	bounds, ok := modeBounds[mode]
	if !ok {
		bounds = modeBounds[domain.ModeDriving]
	}
	rng := rand.New(rand.NewSource(seedFor("travel", origin, destination, string(mode))))
	return bounds[0] + rng.Intn(bounds[1]-bounds[0]+1)
}

// simulateGeocode places an address deterministically on a plausible
// European-ish latitude/longitude band.
func simulateGeocode(address string) domain.Location {
	rng := rand.New(rand.NewSource(seedFor("geocode", address)))
	return domain.Location{
		Lat: 36.0 + rng.Float64()*24.0,  // 36..60
		Lng: -10.0 + rng.Float64()*35.0, // -10..25
	}
}

// HaversineKM returns the great-circle distance between two points.
func HaversineKM(a, b domain.Location) float64 {
	const earthRadiusKM = 6371.0
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
