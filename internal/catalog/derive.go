package catalog

import (
	"fmt"
	"math"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Rating bounds.  Unrated locations get MinRating and a zero ReviewCount.
const (
	MinRating = 3.5
	MaxRating = 5.0
)

// Derive validates l and fills its derived fields: hourly rate, rating and
// available slot count.  The result depends only on l.
func Derive(l model.Location) (model.Location, error) {
	if l.ID == "" {
		return l, fmt.Errorf("%w: empty id", ErrInvalidLocation)
	}
	if l.RateCents <= 0 {
		return l, fmt.Errorf("%w: %s has non-positive rate", ErrInvalidLocation, l.ID)
	}
	switch l.RateUnit {
	case model.RateHourly, "":
		l.RateUnit = model.RateHourly
		l.HourlyRateCents = l.RateCents
	case model.RateDaily:
		l.HourlyRateCents = (l.RateCents + 12) / 24
		if l.HourlyRateCents == 0 {
			l.HourlyRateCents = 1
		}
	default:
		return l, fmt.Errorf("%w: %s has unknown rate unit %q", ErrInvalidLocation, l.ID, l.RateUnit)
	}

	l.Rating = rating(l.Reviews)
	l.ReviewCount = len(l.Reviews)
	l.AvailableSlots = 0
	for _, s := range l.Slots {
		if s.Available {
			l.AvailableSlots++
		}
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Slots == nil {
		l.Slots = []model.Slot{}
	}
	if l.Reviews == nil {
		l.Reviews = []model.Review{}
	}
	return l, nil
}

// rating is the mean review score rounded to one decimal and clamped to
// [MinRating, MaxRating], or MinRating without reviews.
func rating(rs []model.Review) float64 {
	if len(rs) == 0 {
		return MinRating
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	mean := math.Round(float64(sum)/float64(len(rs))*10) / 10
	return math.Min(MaxRating, math.Max(MinRating, mean))
}

// deriveAll derives every location and rejects duplicate ids.
func deriveAll(in []model.Location) ([]model.Location, error) {
	out := make([]model.Location, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, l := range in {
		d, err := Derive(l)
		if err != nil {
			return nil, err
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidLocation, d.ID)
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}
