package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/spot-saver/internal/model"
)

func catalog() []model.Location {
	return []model.Location{
		{ID: "loc1", Name: "Downtown Parking Garage", Address: "123 Main St", HourlyRateCents: 699, Secure: true, Amenities: "Covered, EV Charging"},
		{ID: "loc2", Name: "Airport Long-Term", Address: "1 Terminal Rd", HourlyRateCents: 450, Amenities: "Shuttle"},
		{ID: "loc3", Name: "Stadium Lot", Address: "9 Main St", HourlyRateCents: 1200, Secure: true,
			Slots: []model.Slot{{ID: "e1", Type: model.SlotEV}}},
	}
}

func ids(locs []model.Location) []string {
	out := []string{}
	for _, l := range locs {
		out = append(out, l.ID)
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	cases := []struct {
		name  string
		f     Filters
		query string
		want  []string
	}{
		{"none", Filters{}, "", []string{"loc1", "loc2", "loc3"}},
		{"secure", Filters{SecureOnly: true}, "", []string{"loc1", "loc3"}},
		{"covered", Filters{CoveredOnly: true}, "", []string{"loc1"}},
		{"ev by tag or slot", Filters{EVOnly: true}, "", []string{"loc1", "loc3"}},
		{"price ceiling", Filters{MaxHourlyCents: 700}, "", []string{"loc1", "loc2"}},
		{"ceiling clamped up", Filters{MaxHourlyCents: 100}, "", []string{"loc2"}},
		{"query address", Filters{}, "MAIN", []string{"loc1", "loc3"}},
		{"query name", Filters{}, "airport", []string{"loc2"}},
		{"combined", Filters{SecureOnly: true, MaxHourlyCents: 1000}, "main", []string{"loc1"}},
		{"no matches", Filters{CoveredOnly: true}, "airport", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(ApplyFilters(catalog(), tc.f, tc.query)))
		})
	}
}

func TestNormalizeCeiling(t *testing.T) {
	assert.Equal(t, int64(0), Filters{}.Normalize().MaxHourlyCents)
	assert.Equal(t, MinPriceCeilingCents, Filters{MaxHourlyCents: 1}.Normalize().MaxHourlyCents)
	assert.Equal(t, MaxPriceCeilingCents, Filters{MaxHourlyCents: 99999}.Normalize().MaxHourlyCents)
}
