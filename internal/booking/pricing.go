package booking

// Duration bounds in whole hours.
const (
	MinDurationHours = 1
	MaxDurationHours = 24
)

// ClampDuration bounds h to [MinDurationHours, MaxDurationHours].
func ClampDuration(h int) int {
	if h < MinDurationHours {
		return MinDurationHours
	}
	if h > MaxDurationHours {
		return MaxDurationHours
	}
	return h
}

// Quote returns hourly × hours plus the surcharge of every active add-on.
// Unknown add-ons contribute nothing.
func Quote(hourlyCents int64, hours int, addOns map[AddOn]bool) int64 {
	total := hourlyCents * int64(hours)
	for a, on := range addOns {
		if !on {
			continue
		}
		if c, ok := surcharges[a]; ok {
			total += c
		}
	}
	return total
}
