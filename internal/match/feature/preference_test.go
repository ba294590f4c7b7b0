package feature

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// stubGeo answers geocoding with fixed points and fails travel time.
type stubGeo struct {
	points map[string]domain.Location
	err    error
}

func (s *stubGeo) TravelTime(_ context.Context, _, _ string, _ domain.TravelMode) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 25, nil
}

func (s *stubGeo) Geocode(_ context.Context, address string) (domain.Location, error) {
	if s.err != nil {
		return domain.Location{}, s.err
	}
	if loc, ok := s.points[address]; ok {
		return loc, nil
	}
	return domain.Location{}, domain.ErrNotFound
}

func prefReq(cand domain.CandidateProfile, job domain.JobPosting) domain.MatchRequest {
	return domain.MatchRequest{Candidate: cand, Job: job}
}

func TestPreferenceSameCityLocation(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Location: "Paris"},
		domain.JobPosting{Location: "paris", WorkMode: domain.WorkOffice},
	))
	require.NoError(t, err)
	assert.Equal(t, 1.0, feats["pref_location"])
}

func TestPreferenceRemoteJobIgnoresLocation(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Location: "Lisbon"},
		domain.JobPosting{Location: "Oslo", WorkMode: domain.WorkRemote},
	))
	require.NoError(t, err)
	assert.Equal(t, 1.0, feats["pref_location"])
}

func TestPreferenceLocationDistanceDecay(t *testing.T) {
	geo := &stubGeo{points: map[string]domain.Location{
		// roughly 20km apart on the same latitude
		"Saint-Denis": {Lat: 48.94, Lng: 2.36},
		"Versailles":  {Lat: 48.80, Lng: 2.13},
	}}
	g := NewPreferenceGenerator(geo)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Location: "Saint-Denis"},
		domain.JobPosting{Location: "Versailles", WorkMode: domain.WorkOffice},
	))
	require.NoError(t, err)
	assert.Equal(t, 0.7, feats["pref_location"])
}

func TestPreferenceLocationGeoFailureFallsBack(t *testing.T) {
	g := NewPreferenceGenerator(&stubGeo{err: domain.ErrCircuitOpen})
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Location: "Lyon"},
		domain.JobPosting{Location: "Marseille", WorkMode: domain.WorkOffice},
	))
	require.NoError(t, err)
	assert.Equal(t, 0.3, feats["pref_location"])
}

func TestPreferenceSalaryDominated(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Preferences: domain.Preferences{
			ExpectedSalary: domain.SalaryRange{Min: 50_000, Max: 60_000},
		}},
		domain.JobPosting{SalaryRange: domain.SalaryRange{Min: 70_000, Max: 90_000}},
	))
	require.NoError(t, err)
	assert.Equal(t, 0.9, feats["pref_salary"])
}

func TestPreferenceSalaryFarBelowAsk(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Preferences: domain.Preferences{
			ExpectedSalary: domain.SalaryRange{Min: 80_000, Max: 100_000},
		}},
		domain.JobPosting{SalaryRange: domain.SalaryRange{Min: 40_000, Max: 50_000}},
	))
	require.NoError(t, err)
	assert.LessOrEqual(t, feats["pref_salary"], 0.20)
}

func TestPreferenceSalaryOverlap(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Preferences: domain.Preferences{
			ExpectedSalary: domain.SalaryRange{Min: 50_000, Max: 70_000},
		}},
		domain.JobPosting{SalaryRange: domain.SalaryRange{Min: 60_000, Max: 80_000}},
	))
	require.NoError(t, err)
	// half the ask range is reachable
	assert.InDelta(t, 0.75, feats["pref_salary"], 1e-9)
}

func TestPreferenceWorkModeMatrix(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	cases := []struct {
		pref, offer domain.WorkMode
		want        float64
	}{
		{domain.WorkRemote, domain.WorkRemote, 1.0},
		{domain.WorkRemote, domain.WorkOffice, 0.2},
		{domain.WorkOffice, domain.WorkRemote, 0.2},
		{domain.WorkHybrid, domain.WorkOffice, 0.7},
		{domain.WorkRemote, domain.WorkHybrid, 0.7},
	}
	for _, tt := range cases {
		feats, err := g.Generate(context.Background(), prefReq(
			domain.CandidateProfile{Preferences: domain.Preferences{WorkMode: tt.pref}},
			domain.JobPosting{WorkMode: tt.offer},
		))
		require.NoError(t, err)
		assert.Equal(t, tt.want, feats["pref_work_mode"], "%s vs %s", tt.pref, tt.offer)
	}
}

func TestPreferenceAbsentSignalsEmitNothing(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{}, domain.JobPosting{},
	))
	require.NoError(t, err)
	assert.Empty(t, feats)
}

func TestPreferenceTravelWillingness(t *testing.T) {
	g := NewPreferenceGenerator(nil)
	feats, err := g.Generate(context.Background(), prefReq(
		domain.CandidateProfile{Preferences: domain.Preferences{TravelWillingness: "none"}},
		domain.JobPosting{TravelRequirement: "high"},
	))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, feats["pref_travel_willingness"], 1e-9)
}
