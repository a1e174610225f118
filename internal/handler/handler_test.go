package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/auth"
	"github.com/iliyamo/spot-saver/internal/booking"
	"github.com/iliyamo/spot-saver/internal/catalog"
	"github.com/iliyamo/spot-saver/internal/middleware"
	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/queue"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/store"
	"github.com/iliyamo/spot-saver/internal/utils"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// dropScheduler discards deferred work so profile fetches never reach
// the mocked database.
type dropScheduler struct{}

func (dropScheduler) Defer(func()) {}

type capturePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	sent   chan struct{}
}

func (p *capturePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.sent <- struct{}{}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

// flakyStore fails the next failSaves writes.
type flakyStore struct {
	booking.Store
	failSaves int
}

func (f *flakyStore) Save(ctx context.Context, clientID string, s *booking.Session) error {
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("redis: connection refused")
	}
	return f.Store.Save(ctx, clientID, s)
}

type fakeLister struct {
	rows []model.Booking
	err  error
}

func (f fakeLister) ListBookings(context.Context, string) ([]model.Booking, error) {
	return f.rows, f.err
}

func (f fakeLister) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	if userID == "u-none" {
		return nil, store.ErrNoRows
	}
	return &model.Profile{ID: userID, FullName: "Ana Lima"}, nil
}

type bearer map[string]model.AuthUser

func (b bearer) Authenticate(_ context.Context, raw string) (model.AuthUser, error) {
	u, ok := b[raw]
	if !ok {
		return model.AuthUser{}, errors.New("invalid")
	}
	return u, nil
}

type testEnv struct {
	t        *testing.T
	e        *echo.Echo
	mock     sqlmock.Sqlmock
	pub      *capturePublisher
	sessions *flakyStore
	clock    *time.Time
	cookie   *http.Cookie
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backend := &store.Backend{
		Users:          repository.NewUserRepo(db),
		Profiles:       repository.NewProfileRepo(db),
		Tokens:         repository.NewTokenRepo(db),
		Bookings:       repository.NewBookingRepo(db),
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
	reg := app.NewRegistry(backend, func() auth.Scheduler { return dropScheduler{} }, nil, time.Hour)
	t.Cleanup(reg.Close)

	provider := catalog.NewProvider(catalog.NewStaticSource())
	pub := &capturePublisher{sent: make(chan struct{}, 4)}
	sessions := &flakyStore{Store: booking.NewMemoryStore()}
	bs := NewBookingSessionHandler(sessions, provider, pub, 3*time.Second)
	clock := testNow
	bs.Now = func() time.Time { return clock }
	bs.after = func(_ time.Duration, fn func()) { fn() }

	rows := fakeLister{rows: []model.Booking{
		{ID: "b1", LocationName: "Downtown Parking Garage", SlotNumber: "A1", BookingDate: "2026-03-20", TotalCents: 2097, Status: null.StringFrom("confirmed")},
		{ID: "b2", LocationName: "Riverside Commuter Lot", SlotNumber: "R2", BookingDate: "2026-02-01", TotalCents: 1000, Status: null.StringFrom("cancelled")},
	}}
	ph := NewProfileHandler(rows, rows)
	ph.Now = func() time.Time { return testNow }

	e := echo.New()
	chain := []echo.MiddlewareFunc{
		middleware.ClientSession(reg, false),
		middleware.JWTAuth(bearer{"tok": {ID: "u-1", Email: "ana@example.com"}}),
	}
	signedIn := append(append([]echo.MiddlewareFunc{}, chain...), middleware.RequireSignedIn())

	lh := NewLocationHandler(provider, nil)
	e.GET("/healthz", Health)
	e.GET("/v1/locations", lh.List)
	e.GET("/v1/locations/:id", lh.Get)

	ah := NewAuthHandler(rows)
	e.POST("/v1/auth/sign-in", ah.SignIn, chain...)
	e.POST("/v1/auth/sign-out", ah.SignOut, chain...)
	e.GET("/v1/auth/state", ah.State, chain...)
	e.GET("/v1/me", ah.Me, signedIn...)

	e.GET("/v1/booking-session", bs.Get, chain...)
	e.DELETE("/v1/booking-session", bs.Reset, chain...)
	e.PUT("/v1/booking-session/search", bs.Search, chain...)
	e.POST("/v1/booking-session/location", bs.ChooseLocation, chain...)
	e.PATCH("/v1/booking-session/selection", bs.UpdateSelection, chain...)
	e.POST("/v1/booking-session/addons/:addon", bs.ToggleAddOn, chain...)
	e.POST("/v1/booking-session/slot", bs.SelectSlot, chain...)
	e.POST("/v1/booking-session/confirmation", bs.OpenConfirmation, chain...)
	e.POST("/v1/booking-session/confirm", bs.Confirm, chain...)

	e.GET("/v1/bookings", NewBookingHandler(rows).List, signedIn...)
	e.GET("/v1/profile", ph.Get, signedIn...)

	return &testEnv{t: t, e: e, mock: mock, pub: pub, sessions: sessions, clock: &clock}
}

func (env *testEnv) call(method, path, body string, hdr ...string) (int, map[string]any) {
	env.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	if env.cookie != nil {
		req.AddCookie(env.cookie)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == app.CookieName {
			env.cookie = c
		}
	}
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(env.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (env *testEnv) signIn() map[string]any {
	env.t.Helper()
	hash, err := utils.HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(env.t, err)
	now := time.Now()
	env.mock.ExpectQuery(`FROM users WHERE email`).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "email_confirmed_at", "is_active", "created_at", "updated_at"}).
			AddRow("u-1", "ana@example.com", hash, now, true, now, now))
	env.mock.ExpectExec(`INSERT INTO refresh_tokens`).WillReturnResult(sqlmock.NewResult(1, 1))

	code, body := env.call(http.MethodPost, "/v1/auth/sign-in", `{"email":"Ana@Example.com","password":"hunter22"}`)
	require.Equal(env.t, http.StatusOK, code, body)
	return body
}

func selection(body map[string]any) map[string]any {
	s, _ := body["session"].(map[string]any)
	sel, _ := s["selection"].(map[string]any)
	return sel
}

func noticeTitles(body map[string]any) []string {
	out := []string{}
	list, _ := body["notices"].([]any)
	for _, n := range list {
		out = append(out, n.(map[string]any)["title"].(string))
	}
	return out
}

func navPaths(body map[string]any) []string {
	out := []string{}
	list, _ := body["navigations"].([]any)
	for _, n := range list {
		out = append(out, n.(map[string]any)["path"].(string))
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLocations(t *testing.T) {
	env := newEnv(t)

	code, body := env.call(http.MethodGet, "/v1/locations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["total"])

	code, body = env.call(http.MethodGet, "/v1/locations?secure=true", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["total"])

	code, body = env.call(http.MethodGet, "/v1/locations/loc1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(699), body["hourly_rate_cents"])

	code, _ = env.call(http.MethodGet, "/v1/locations/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBookingFlowPricing(t *testing.T) {
	env := newEnv(t)

	code, body := env.call(http.MethodGet, "/v1/booking-session", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.cookie)
	assert.Len(t, body["locations"], 3)
	assert.Equal(t, false, body["can_confirm"])

	code, body = env.call(http.MethodPut, "/v1/booking-session/search", `{"duration_hours":3,"filters":{"secure_only":true}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["locations"], 2)

	code, body = env.call(http.MethodPost, "/v1/booking-session/location", `{"location_id":"loc1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"/booking/loc1"}, navPaths(body))
	assert.Equal(t, float64(2097), selection(body)["total_cents"])
	assert.Nil(t, body["locations"])

	code, body = env.call(http.MethodPost, "/v1/booking-session/slot", `{"slot_id":"B2"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["selected"])
	assert.Equal(t, false, body["can_confirm"])

	code, body = env.call(http.MethodPost, "/v1/booking-session/slot", `{"slot_id":"A1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["selected"])
	assert.Equal(t, true, body["can_confirm"])

	for _, a := range []string{"carWash", "valet"} {
		code, body = env.call(http.MethodPost, "/v1/booking-session/addons/"+a, "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["active"])
	}
	assert.Equal(t, float64(4597), selection(body)["total_cents"])

	code, _ = env.call(http.MethodPost, "/v1/booking-session/addons/jetpack", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.call(http.MethodPut, "/v1/booking-session/search", `{"query":"main"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, body = env.call(http.MethodPost, "/v1/booking-session/confirm", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "not_signed_in", body["error"])

	code, body = env.call(http.MethodDelete, "/v1/booking-session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, selection(body))
	assert.Len(t, body["locations"], 3)
}

func TestChooseUnknownLocationReturnsToSearch(t *testing.T) {
	env := newEnv(t)
	code, body := env.call(http.MethodPost, "/v1/booking-session/location", `{"location_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, []string{SearchPath}, navPaths(body))
}

func TestConfirmWithoutSlot(t *testing.T) {
	env := newEnv(t)
	env.call(http.MethodPost, "/v1/booking-session/location", `{"location_id":"loc1"}`)
	code, body := env.call(http.MethodPost, "/v1/booking-session/confirmation", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "please select a parking slot to continue", body["error"])
}

func TestSignInAndConfirm(t *testing.T) {
	env := newEnv(t)
	body := env.signIn()
	assert.Equal(t, []string{"Signed In"}, noticeTitles(body))
	assert.Equal(t, []string{"/"}, navPaths(body))

	code, body := env.call(http.MethodGet, "/v1/auth/state", "")
	require.Equal(t, http.StatusOK, code)
	state := body["state"].(map[string]any)
	assert.Equal(t, "u-1", state["user"].(map[string]any)["id"])

	assert.Empty(t, noticeTitles(body))

	env.call(http.MethodPut, "/v1/booking-session/search", `{"duration_hours":3}`)

	env.call(http.MethodPost, "/v1/booking-session/location", `{"location_id":"loc1"}`)
	env.call(http.MethodPost, "/v1/booking-session/slot", `{"slot_id":"A1"}`)
	_, body = env.call(http.MethodPost, "/v1/booking-session/confirmation", "")
	assert.Equal(t, float64(2097), body["summary"].(map[string]any)["total_cents"])

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT available FROM slots`).WithArgs("loc1", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(false))
	env.mock.ExpectRollback()
	code, body = env.call(http.MethodPost, "/v1/booking-session/confirm", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, []string{"Booking Failed"}, noticeTitles(body))
	s := body["session"].(map[string]any)
	assert.Equal(t, string(booking.StateReadyToConfirm), s["state"])
	assert.Equal(t, true, s["confirm_open"])

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT available FROM slots`).WithArgs("loc1", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(true))
	env.mock.ExpectQuery(`FROM bookings WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "created_at"}))
	env.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()
	code, body = env.call(http.MethodPost, "/v1/booking-session/confirm", "")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, string(booking.StateCompleted), body["session"].(map[string]any)["state"])
	assert.Equal(t, []string{"Booking Confirmed!"}, noticeTitles(body))
	assert.Equal(t, []string{booking.HistoryPath}, navPaths(body))

	select {
	case <-env.pub.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("booking event not published")
	}
	env.pub.mu.Lock()
	assert.Equal(t, int64(2097), env.pub.events[0].TotalCents)
	assert.Equal(t, "u-1", env.pub.events[0].UserID)
	env.pub.mu.Unlock()
	assert.NoError(t, env.mock.ExpectationsWereMet())

	// once the redirect is due the next read starts a fresh search
	*env.clock = testNow.Add(3 * time.Second)
	code, body = env.call(http.MethodGet, "/v1/booking-session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(booking.StateBrowsing), body["session"].(map[string]any)["state"])
}

func TestConfirmRetryAfterFailedSaveReusesBooking(t *testing.T) {
	env := newEnv(t)
	env.signIn()
	env.call(http.MethodPost, "/v1/booking-session/location", `{"location_id":"loc1"}`)
	_, body := env.call(http.MethodPost, "/v1/booking-session/slot", `{"slot_id":"A1"}`)
	bookingID, _ := selection(body)["booking_id"].(string)
	require.NotEmpty(t, bookingID)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT available FROM slots`).WithArgs("loc1", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(true))
	env.mock.ExpectQuery(`FROM bookings WHERE id`).WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "created_at"}))
	env.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()
	env.sessions.failSaves = 1

	code, body := env.call(http.MethodPost, "/v1/booking-session/confirm", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Empty(t, noticeTitles(body))
	assert.Empty(t, navPaths(body))
	select {
	case <-env.pub.sent:
		t.Fatal("booking event published before the session was saved")
	case <-time.After(50 * time.Millisecond):
	}

	// the stored session is still ready to confirm; the retry finds the row
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT available FROM slots`).WithArgs("loc1", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(true))
	env.mock.ExpectQuery(`FROM bookings WHERE id`).WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "created_at"}).
			AddRow("u-1", "confirmed", testNow))
	env.mock.ExpectRollback()

	code, body = env.call(http.MethodPost, "/v1/booking-session/confirm", "")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, bookingID, body["booking"].(map[string]any)["id"])
	assert.Equal(t, []string{"Booking Confirmed!"}, noticeTitles(body))

	select {
	case <-env.pub.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("booking event not published")
	}
	env.pub.mu.Lock()
	require.Len(t, env.pub.events, 1)
	assert.Equal(t, bookingID, env.pub.events[0].BookingID)
	env.pub.mu.Unlock()
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSignInFailure(t *testing.T) {
	env := newEnv(t)
	env.mock.ExpectQuery(`FROM users WHERE email`).WillReturnError(sql.ErrNoRows)
	code, body := env.call(http.MethodPost, "/v1/auth/sign-in", `{"email":"x@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid login credentials", body["error"])
	assert.Equal(t, []string{"Sign In Error"}, noticeTitles(body))

	code, _ = env.call(http.MethodPost, "/v1/auth/sign-in", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSignOutNavigatesToAuth(t *testing.T) {
	env := newEnv(t)
	env.signIn()
	env.mock.ExpectExec(`UPDATE refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))

	code, body := env.call(http.MethodPost, "/v1/auth/sign-out", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, noticeTitles(body), "Signed Out")
	assert.Contains(t, navPaths(body), "/auth")
	assert.Nil(t, body["state"].(map[string]any)["user"])
}

func TestHistoryRequiresSignIn(t *testing.T) {
	env := newEnv(t)
	code, body := env.call(http.MethodGet, "/v1/bookings", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "not_signed_in", body["error"])
}

func TestHistoryWithBearer(t *testing.T) {
	env := newEnv(t)
	code, body := env.call(http.MethodGet, "/v1/bookings?status=cancelled", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["items"], 1)

	code, body = env.call(http.MethodGet, "/v1/bookings?q=airport", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string("no_matches"), body["empty"])
}

func TestProfileWithBearer(t *testing.T) {
	env := newEnv(t)
	code, body := env.call(http.MethodGet, "/v1/profile", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ana Lima", body["profile"].(map[string]any)["full_name"])

	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["upcoming"])
	assert.Equal(t, float64(2097), stats["total_spent_cents"])

	loyalty := body["loyalty"].(map[string]any)
	assert.Equal(t, float64(20), loyalty["points"])
	assert.Equal(t, "bronze", loyalty["tier"])

	code, body = env.call(http.MethodGet, "/v1/me", "", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bearer", body["via"])
}
