package booking

import "sort"

// AddOn is an optional fixed-price service attached to a selection.
type AddOn string

const (
	CarWash           AddOn = "carWash"
	Valet             AddOn = "valet"
	ExtendedInsurance AddOn = "extendedInsurance"
)

// surcharges holds the fixed price of every add-on in cents.
var surcharges = map[AddOn]int64{
	CarWash:           1500,
	Valet:             1000,
	ExtendedInsurance: 500,
}

// Surcharge returns the price of a in cents and whether a is known.
func Surcharge(a AddOn) (int64, bool) {
	c, ok := surcharges[a]
	return c, ok
}

// AddOns lists every known add-on in a stable order.
func AddOns() []AddOn {
	out := make([]AddOn, 0, len(surcharges))
	for a := range surcharges {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
