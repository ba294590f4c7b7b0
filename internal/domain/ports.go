package domain

import "time"

// Ports consumed by the core. The transport layer supplies implementations.

// ProfileStore reads canonical candidate and job records. The core never owns
// these records; it reads through this port and returns scored results.
type ProfileStore interface {
	GetCandidate(ctx Context, id string) (CandidateProfile, error)
	GetJob(ctx Context, id string) (JobPosting, error)
	ListActiveJobs(ctx Context) ([]JobPosting, error)
	ListActiveCandidates(ctx Context) ([]CandidateProfile, error)
}

// DocumentExtractor turns an uploaded document into a structured profile.
// Implementations handle PDF, DOCX and plain text.
type DocumentExtractor interface {
	Extract(ctx Context, data []byte, filename string) (CandidateProfile, error)
}

// EmbeddingsProvider returns fixed-dimensional vectors for texts. Optional:
// absence disables semantic features at construction time, not per call.
type EmbeddingsProvider interface {
	Embed(ctx Context, texts []string) ([][]float32, error)
}

// TravelMode enumerates transportation modes for travel time queries.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeTransit TravelMode = "transit"
	ModeCycling TravelMode = "cycling"
	ModeWalking TravelMode = "walking"
)

// Location is a geocoded point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DirectionsResult is a travel time answer from the geo upstream.
type DirectionsResult struct {
	Minutes    int     `json:"minutes"`
	DistanceKM float64 `json:"distance_km"`
}

// GeoUpstream is the raw geocoding/directions dependency.
type GeoUpstream interface {
	Directions(ctx Context, origin, destination string, mode TravelMode) (DirectionsResult, error)
	Geocode(ctx Context, address string) (Location, error)
	Matrix(ctx Context, origins, destinations []string, mode TravelMode) ([][]DirectionsResult, error)
}

// SharedBackend is an optional shared key/value tier behind the local cache.
type SharedBackend interface {
	Get(ctx Context, key string) ([]byte, bool, error)
	Set(ctx Context, key string, value []byte, ttl time.Duration) error
}
