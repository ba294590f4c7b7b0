package feature

import (
	"context"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/geo"
)

// TravelTimer is the slice of the geo client the preference generator needs.
type TravelTimer interface {
	TravelTime(ctx context.Context, origin, destination string, mode domain.TravelMode) (int, error)
	Geocode(ctx context.Context, address string) (domain.Location, error)
}

// PreferenceGenerator emits features under the pref_ prefix. Features are
// emitted only when both sides provide the underlying signal, so absent
// preferences never drag the category mean.
type PreferenceGenerator struct {
	geo TravelTimer // nil disables geodesic decay; heuristics still apply
}

// NewPreferenceGenerator builds the generator; geo may be nil.
func NewPreferenceGenerator(g TravelTimer) *PreferenceGenerator {
	return &PreferenceGenerator{geo: g}
}

// Name implements Generator.
func (g *PreferenceGenerator) Name() string { return "preference" }

// workModeMatrix scores candidate preference (rows) against job offer
// (columns); hybrid pivots at 0.7, remote vs office at 0.2.
var workModeMatrix = map[domain.WorkMode]map[domain.WorkMode]float64{
	domain.WorkRemote: {domain.WorkRemote: 1.0, domain.WorkHybrid: 0.7, domain.WorkOffice: 0.2},
	domain.WorkHybrid: {domain.WorkRemote: 0.7, domain.WorkHybrid: 1.0, domain.WorkOffice: 0.7},
	domain.WorkOffice: {domain.WorkRemote: 0.2, domain.WorkHybrid: 0.7, domain.WorkOffice: 1.0},
}

// contractMatrix scores candidate contract preference against the offer.
var contractMatrix = map[domain.ContractType]map[domain.ContractType]float64{
	domain.ContractPermanent:  {domain.ContractPermanent: 1.0, domain.ContractFixedTerm: 0.5, domain.ContractFreelance: 0.3, domain.ContractInternship: 0.1},
	domain.ContractFixedTerm:  {domain.ContractPermanent: 0.8, domain.ContractFixedTerm: 1.0, domain.ContractFreelance: 0.5, domain.ContractInternship: 0.2},
	domain.ContractFreelance:  {domain.ContractPermanent: 0.4, domain.ContractFixedTerm: 0.6, domain.ContractFreelance: 1.0, domain.ContractInternship: 0.1},
	domain.ContractInternship: {domain.ContractPermanent: 0.6, domain.ContractFixedTerm: 0.5, domain.ContractFreelance: 0.2, domain.ContractInternship: 1.0},
}

// companySizeOrder ranks company sizes for adjacency scoring.
var companySizeOrder = map[string]int{
	"startup": 0, "small": 1, "medium": 2, "large": 3, "enterprise": 4,
}

// travelOrder ranks travel appetite none < low < medium < high.
var travelOrder = map[string]int{"none": 0, "low": 1, "medium": 2, "high": 3}

// Generate implements Generator.
func (g *PreferenceGenerator) Generate(ctx context.Context, req domain.MatchRequest) (map[string]float64, error) {
	feats := make(map[string]float64, 7)
	cand, job := req.Candidate, req.Job

	if cand.Location != "" && job.Location != "" {
		feats["pref_location"] = g.locationScore(ctx, cand.Location, job.Location, job.WorkMode)
	}
	if !cand.Preferences.ExpectedSalary.IsZero() && !job.SalaryRange.IsZero() {
		feats["pref_salary"] = salaryScore(cand.Preferences.ExpectedSalary, job.SalaryRange)
	}
	if cand.Preferences.WorkMode != "" && job.WorkMode != "" {
		feats["pref_work_mode"] = matrixScore(workModeMatrix[cand.Preferences.WorkMode], job.WorkMode)
	}
	if cand.Preferences.ContractType != "" && job.ContractType != "" {
		feats["pref_contract"] = contractScore(cand.Preferences.ContractType, job.ContractType)
	}
	if cand.Preferences.CompanySize != "" && job.CompanySize != "" {
		feats["pref_company_size"] = ordinalScore(companySizeOrder, cand.Preferences.CompanySize, job.CompanySize, 0.3)
	}
	if len(cand.Preferences.Industries) > 0 && job.Industry != "" {
		feats["pref_industry"] = industryScore(cand.Preferences.Industries, job.Industry)
	}
	if cand.Preferences.TravelWillingness != "" && job.TravelRequirement != "" {
		feats["pref_travel_willingness"] = travelScore(cand.Preferences.TravelWillingness, job.TravelRequirement)
	}
	return feats, nil
}

// locationScore: 1.0 same city, 0.9 substring match, otherwise geodesic
// distance decay. Remote jobs make location moot. Geo failures fall back to
// the substring heuristic floor.
func (g *PreferenceGenerator) locationScore(ctx context.Context, candLoc, jobLoc string, mode domain.WorkMode) float64 {
	if mode == domain.WorkRemote {
		return 1.0
	}
	c := strings.ToLower(strings.TrimSpace(candLoc))
	j := strings.ToLower(strings.TrimSpace(jobLoc))
	if c == j {
		return 1.0
	}
	if strings.Contains(c, j) || strings.Contains(j, c) {
		return 0.9
	}
	if g.geo == nil {
		return 0.3
	}
	from, err1 := g.geo.Geocode(ctx, candLoc)
	to, err2 := g.geo.Geocode(ctx, jobLoc)
	if err1 != nil || err2 != nil {
		// substring heuristic already failed above; degrade conservatively
		return 0.3
	}
	km := geo.HaversineKM(from, to)
	switch {
	case km < 10:
		return 0.9
	case km < 30:
		return 0.7
	case km < 100:
		return 0.5
	case km < 300:
		return 0.3
	default:
		return 0.1
	}
}

// salaryScore follows the overlap contract: 0.9 when the offer strictly
// dominates the ask, overlap ratio when ranges intersect, steep decay below.
func salaryScore(ask, offer domain.SalaryRange) float64 {
	askMax := ask.Max
	if askMax == 0 {
		askMax = ask.Min
	}
	offerMax := offer.Max
	if offerMax == 0 {
		offerMax = offer.Min
	}
	if offer.Min >= askMax && askMax > 0 {
		return 0.9
	}
	lo := maxInt(ask.Min, offer.Min)
	hi := minInt(askMax, offerMax)
	if hi >= lo {
		span := askMax - ask.Min
		if span <= 0 {
			return 1.0
		}
		overlap := float64(hi-lo) / float64(span)
		return Clamp01(0.5 + 0.5*overlap)
	}
	// offer entirely below the ask: decay with how far short it falls
	if ask.Min <= 0 {
		return 0.1
	}
	ratio := float64(offerMax) / float64(ask.Min)
	return Clamp01(0.1 * ratio)
}

func matrixScore(row map[domain.WorkMode]float64, offered domain.WorkMode) float64 {
	if row == nil {
		return 0.5
	}
	if v, ok := row[offered]; ok {
		return v
	}
	return 0.5
}

func contractScore(pref, offered domain.ContractType) float64 {
	if row, ok := contractMatrix[pref]; ok {
		if v, ok2 := row[offered]; ok2 {
			return v
		}
	}
	return 0.5
}

// ordinalScore compares two ordered labels; each rank of distance costs
// `step`.
func ordinalScore(order map[string]int, a, b string, step float64) float64 {
	ra, okA := order[strings.ToLower(a)]
	rb, okB := order[strings.ToLower(b)]
	if !okA || !okB {
		return 0.5
	}
	d := ra - rb
	if d < 0 {
		d = -d
	}
	return Clamp01(1.0 - step*float64(d))
}

func industryScore(wanted []string, offered string) float64 {
	o := strings.ToLower(strings.TrimSpace(offered))
	for _, w := range wanted {
		lw := strings.ToLower(strings.TrimSpace(w))
		if lw == o {
			return 1.0
		}
		if strings.Contains(o, lw) || strings.Contains(lw, o) {
			return 0.8
		}
	}
	return 0.2
}

// travelScore: willingness at or above the requirement is a full match;
// shortfall costs 0.3 per rank.
func travelScore(willing, required string) float64 {
	w, okW := travelOrder[strings.ToLower(willing)]
	r, okR := travelOrder[strings.ToLower(required)]
	if !okW || !okR {
		return 0.5
	}
	if w >= r {
		return 1.0
	}
	return Clamp01(1.0 - 0.3*float64(r-w))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
