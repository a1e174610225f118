package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/spot-saver/internal/model"
)

type listerFunc func(ctx context.Context, userID string) ([]model.Booking, error)

func (f listerFunc) ListBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return f(ctx, userID)
}

func rows() []model.Booking {
	return []model.Booking{
		{ID: "b1", LocationName: "Riverside Transit Hub", SlotNumber: "R2", BookingDate: "2026-01-10", TotalCents: 998, Status: null.StringFrom("completed")},
		{ID: "b2", LocationName: "Premium Downtown Garage", SlotNumber: "A1", BookingDate: "2026-03-20", TotalCents: 2097, Status: null.StringFrom("confirmed")},
		{ID: "b3", LocationName: "Premium Downtown Garage", SlotNumber: "D1", BookingDate: "2026-02-02", TotalCents: 4597, Status: null.StringFrom("cancelled")},
		{ID: "b4", LocationName: "Central Park Executive Lot", SlotNumber: "P1", BookingDate: "2026-03-20", TotalCents: 999},
	}
}

func itemIDs(r Result) []string {
	out := []string{}
	for _, b := range r.Items {
		out = append(out, b.ID)
	}
	return out
}

func TestLoadSortsByDateDescending(t *testing.T) {
	v := NewView(listerFunc(func(context.Context, string) ([]model.Booking, error) { return rows(), nil }))
	res, err := v.Load(context.Background(), "u-1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b4", "b3", "b1"}, itemIDs(res))
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, NotEmpty, res.Empty)
}

func TestLoadWithoutBookings(t *testing.T) {
	v := NewView(listerFunc(func(context.Context, string) ([]model.Booking, error) { return []model.Booking{}, nil }))
	res, err := v.Load(context.Background(), "u-1", Filter{Query: "garage"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, NoBookings, res.Empty)
}

func TestFilter(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		want []string
		kind EmptyKind
	}{
		{"location name", Filter{Query: "downtown"}, []string{"b2", "b3"}, NotEmpty},
		{"slot number", Filter{Query: "r2"}, []string{"b1"}, NotEmpty},
		{"status", Filter{Status: "confirmed"}, []string{"b2"}, NotEmpty},
		{"all", Filter{Status: "all"}, []string{"b1", "b2", "b3", "b4"}, NotEmpty},
		{"unknown status", Filter{Status: "unknown"}, []string{"b4"}, NotEmpty},
		{"both", Filter{Query: "garage", Status: "cancelled"}, []string{"b3"}, NotEmpty},
		{"no matches", Filter{Query: "airport"}, []string{}, NoMatches},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Apply(rows(), tc.f)
			assert.Equal(t, tc.want, itemIDs(res))
			assert.Equal(t, tc.kind, res.Empty)
		})
	}
}

func TestLoadFailure(t *testing.T) {
	boom := errors.New("connection reset")
	v := NewView(listerFunc(func(context.Context, string) ([]model.Booking, error) { return nil, boom }))
	_, err := v.Load(context.Background(), "u-1", Filter{})
	var he *BookingHistoryError
	require.ErrorAs(t, err, &he)
	assert.ErrorIs(t, err, boom)
}

func TestLoadAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := NewView(listerFunc(func(context.Context, string) ([]model.Booking, error) {
		cancel()
		return rows(), nil
	}))
	_, err := v.Load(ctx, "u-1", Filter{})
	assert.ErrorIs(t, err, ErrAbandoned)
}

func TestLoadTimeoutIsHistoryError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	v := NewView(listerFunc(func(ctx context.Context, _ string) ([]model.Booking, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	_, err := v.Load(ctx, "u-1", Filter{})
	var he *BookingHistoryError
	require.ErrorAs(t, err, &he)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrAbandoned)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	st := Summarize(rows(), now)

	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.ThisMonth)
	assert.Equal(t, 1, st.Upcoming)
	assert.Equal(t, "2026-03-20", st.NextDate)
	assert.Equal(t, int64(998+2097+999), st.TotalSpentCents)
	// one non-cancelled visit each; ties resolve alphabetically
	assert.Equal(t, "Central Park Executive Lot", st.FavoriteLocation)
	assert.Equal(t, 1, st.FavoriteCount)

	assert.Equal(t, Stats{}, Summarize(nil, now))
}
