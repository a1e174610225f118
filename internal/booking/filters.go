package booking

import (
	"strings"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Bounds of the maximum hourly price filter, in cents.
const (
	MinPriceCeilingCents int64 = 500
	MaxPriceCeilingCents int64 = 5000
)

// Filters are the search-screen constraints.  A zero value constrains
// nothing; MaxHourlyCents of 0 means no price ceiling.
type Filters struct {
	SecureOnly     bool  `json:"secure_only"`
	CoveredOnly    bool  `json:"covered_only"`
	EVOnly         bool  `json:"ev_only"`
	MaxHourlyCents int64 `json:"max_hourly_cents"`
}

// Normalize clamps a set price ceiling into [MinPriceCeilingCents, MaxPriceCeilingCents].
func (f Filters) Normalize() Filters {
	if f.MaxHourlyCents == 0 {
		return f
	}
	if f.MaxHourlyCents < MinPriceCeilingCents {
		f.MaxHourlyCents = MinPriceCeilingCents
	}
	if f.MaxHourlyCents > MaxPriceCeilingCents {
		f.MaxHourlyCents = MaxPriceCeilingCents
	}
	return f
}

// ApplyFilters returns the locations matching every active constraint, in
// catalog order: price ceiling, secure, covered, EV, then a
// case-insensitive substring match of query against name or address.
func ApplyFilters(locs []model.Location, f Filters, query string) []model.Location {
	f = f.Normalize()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Location, 0, len(locs))
	for _, l := range locs {
		if f.MaxHourlyCents > 0 && l.HourlyRateCents > f.MaxHourlyCents {
			continue
		}
		if f.SecureOnly && !l.Secure {
			continue
		}
		if f.CoveredOnly && !l.Covered() {
			continue
		}
		if f.EVOnly && !l.HasEV() {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.Address), q) {
			continue
		}
		out = append(out, l)
	}
	return out
}
