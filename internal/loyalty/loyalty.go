// Package loyalty derives the rewards programme status from bookings.
package loyalty

import (
	"strings"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Tier is a membership level.
type Tier string

const (
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
)

// tiers are ordered from lowest to highest.
var tiers = []struct {
	tier     Tier
	min      int
	benefits []string
}{
	{Bronze, 0, []string{
		"5% off standard parking rates",
		"Earn 1 point per $1 spent",
		"Basic customer support",
	}},
	{Silver, 500, []string{
		"10% off standard parking rates",
		"Earn 1.5 points per $1 spent",
		"Priority customer support",
		"Free cancellation up to 2 hours before",
	}},
	{Gold, 1000, []string{
		"15% off standard parking rates",
		"Earn 2 points per $1 spent",
		"Premium customer support",
		"Free cancellation up to 1 hour before",
		"Guaranteed spot availability",
	}},
	{Platinum, 2000, []string{
		"20% off standard parking rates",
		"Earn 3 points per $1 spent",
		"VIP customer support",
		"Free cancellation any time",
		"Guaranteed spot availability",
		"Free EV charging at selected locations",
	}},
}

// Reward is a redeemable item.
type Reward struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Available bool   `json:"available"`
}

var rewards = []Reward{
	{Name: "Free Parking Day", Points: 500},
	{Name: "Premium Spot Upgrade", Points: 300},
	{Name: "Extended Parking (2h)", Points: 200},
	{Name: "$10 Discount Coupon", Points: 400},
}

// Status is a member's standing.
type Status struct {
	Points         int      `json:"points"`
	Tier           Tier     `json:"tier"`
	TierName       string   `json:"tier_name"`
	NextTier       Tier     `json:"next_tier,omitempty"`
	NextTierPoints int      `json:"next_tier_points,omitempty"`
	PointsToNext   int      `json:"points_to_next,omitempty"`
	Progress       int      `json:"progress"`
	Benefits       []string `json:"benefits"`
	Rewards        []Reward `json:"rewards"`
}

// Points is one point per whole dollar spent on bookings that were not
// cancelled.
func Points(rows []model.Booking) int {
	var cents int64
	for _, b := range rows {
		if b.StatusOrUnknown() == model.BookingCancelled {
			continue
		}
		cents += b.TotalCents
	}
	return int(cents / 100)
}

// TierFor returns the highest tier whose threshold points reaches.
func TierFor(points int) Tier {
	t := Bronze
	for _, tr := range tiers {
		if points >= tr.min {
			t = tr.tier
		}
	}
	return t
}

// Benefits lists the perks of t.
func Benefits(t Tier) []string {
	for _, tr := range tiers {
		if tr.tier == t {
			return append([]string(nil), tr.benefits...)
		}
	}
	return []string{}
}

// Compute derives the full status for points.
func Compute(points int) Status {
	if points < 0 {
		points = 0
	}
	st := Status{Points: points, Tier: TierFor(points)}
	st.TierName = strings.ToUpper(string(st.Tier[:1])) + string(st.Tier[1:])
	st.Benefits = Benefits(st.Tier)

	st.Progress = 100
	for i, tr := range tiers {
		if tr.tier == st.Tier && i+1 < len(tiers) {
			next := tiers[i+1]
			st.NextTier = next.tier
			st.NextTierPoints = next.min
			st.PointsToNext = next.min - points
			st.Progress = points * 100 / next.min
			if st.Progress > 100 {
				st.Progress = 100
			}
		}
	}

	st.Rewards = make([]Reward, len(rewards))
	for i, r := range rewards {
		r.Available = points >= r.Points
		st.Rewards[i] = r
	}
	return st
}

// FromBookings computes the status earned by rows.
func FromBookings(rows []model.Booking) Status {
	return Compute(Points(rows))
}
