// Package store provides ProfileStore implementations. The in-memory store
// backs tests and the dev seed path; production deployments supply their own
// persistence behind the same port.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Memory is a mutex-guarded in-memory ProfileStore.
type Memory struct {
	mu         sync.RWMutex
	candidates map[string]domain.CandidateProfile
	jobs       map[string]domain.JobPosting
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		candidates: make(map[string]domain.CandidateProfile),
		jobs:       make(map[string]domain.JobPosting),
	}
}

// PutCandidate inserts or replaces a candidate. Experiences are normalized
// newest-first so feature generators can rely on the order.
func (m *Memory) PutCandidate(p domain.CandidateProfile) error {
	if p.ID == "" {
		return fmt.Errorf("op=store.PutCandidate: %w: id required", domain.ErrInvalidArgument)
	}
	sort.SliceStable(p.Experiences, func(i, j int) bool {
		return p.Experiences[i].StartDate.After(p.Experiences[j].StartDate)
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[p.ID] = p
	return nil
}

// PutJob inserts or replaces a posting.
func (m *Memory) PutJob(j domain.JobPosting) error {
	if j.ID == "" {
		return fmt.Errorf("op=store.PutJob: %w: id required", domain.ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

// GetCandidate implements domain.ProfileStore.
func (m *Memory) GetCandidate(_ domain.Context, id string) (domain.CandidateProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.candidates[id]
	if !ok {
		return domain.CandidateProfile{}, fmt.Errorf("op=store.GetCandidate: %w: candidate %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// GetJob implements domain.ProfileStore.
func (m *Memory) GetJob(_ domain.Context, id string) (domain.JobPosting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.JobPosting{}, fmt.Errorf("op=store.GetJob: %w: job %s", domain.ErrNotFound, id)
	}
	return j, nil
}

// ListActiveJobs implements domain.ProfileStore; order is stable by ID.
func (m *Memory) ListActiveJobs(_ domain.Context) ([]domain.JobPosting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.JobPosting, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListActiveCandidates implements domain.ProfileStore; order is stable by ID.
func (m *Memory) ListActiveCandidates(_ domain.Context) ([]domain.CandidateProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CandidateProfile, 0, len(m.candidates))
	for _, p := range m.candidates {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
