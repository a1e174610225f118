package history

import (
	"time"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Stats summarises a user's bookings for the profile page.
type Stats struct {
	Total            int    `json:"total"`
	ThisMonth        int    `json:"this_month"`
	Upcoming         int    `json:"upcoming"`
	NextDate         string `json:"next_date,omitempty"`
	FavoriteLocation string `json:"favorite_location,omitempty"`
	FavoriteCount    int    `json:"favorite_count"`
	TotalSpentCents  int64  `json:"total_spent_cents"`
}

// Summarize computes Stats as of now.  Cancelled bookings count towards
// the total but not towards spending, upcoming or favourites.
func Summarize(rows []model.Booking, now time.Time) Stats {
	today := now.Format("2006-01-02")
	month := now.Format("2006-01")

	var st Stats
	counts := map[string]int{}
	for _, b := range rows {
		st.Total++
		if len(b.BookingDate) >= 7 && b.BookingDate[:7] == month {
			st.ThisMonth++
		}
		if b.StatusOrUnknown() == model.BookingCancelled {
			continue
		}
		st.TotalSpentCents += b.TotalCents
		counts[b.LocationName]++
		if b.StatusOrUnknown() == model.BookingConfirmed && b.BookingDate >= today {
			st.Upcoming++
			if st.NextDate == "" || b.BookingDate < st.NextDate {
				st.NextDate = b.BookingDate
			}
		}
	}
	for name, n := range counts {
		if n > st.FavoriteCount || (n == st.FavoriteCount && name < st.FavoriteLocation) {
			st.FavoriteLocation, st.FavoriteCount = name, n
		}
	}
	return st
}
