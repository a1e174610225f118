package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/utils"
)

var userCols = []string{"id", "email", "password_hash", "email_confirmed_at", "is_active", "created_at", "updated_at"}

type recorded struct {
	events []Event
}

func newBackend(t *testing.T) (*Backend, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Backend{
		Users:          repository.NewUserRepo(db),
		Profiles:       repository.NewProfileRepo(db),
		Tokens:         repository.NewTokenRepo(db),
		Bookings:       repository.NewBookingRepo(db),
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}, mock, db
}

func userRow(t *testing.T, id, email, password string, confirmed bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	var confirmedAt interface{}
	if confirmed {
		confirmedAt = time.Now()
	}
	now := time.Now()
	return sqlmock.NewRows(userCols).AddRow(id, email, hash, confirmedAt, true, now, now)
}

func listen(c *Client) *recorded {
	r := &recorded{}
	c.OnSessionChange(func(ev Event, _ *model.Session) { r.events = append(r.events, ev) })
	return r
}

func signIn(t *testing.T, c *Client, mock sqlmock.Sqlmock) *model.Session {
	t.Helper()
	mock.ExpectQuery(`FROM users WHERE email`).WithArgs("ana@example.com").
		WillReturnRows(userRow(t, "u-1", "ana@example.com", "hunter22", true))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).WillReturnResult(sqlmock.NewResult(1, 1))
	s, err := c.SignInWithPassword(context.Background(), " Ana@Example.com ", "hunter22")
	require.NoError(t, err)
	return s
}

func TestSignInWithPassword(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	rec := listen(c)

	s := signIn(t, c, mock)
	assert.Equal(t, "u-1", s.User.ID)
	assert.Equal(t, 1, s.User.Identities)
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Equal(t, []Event{EventSignedIn}, rec.events)

	mock.ExpectQuery(`FROM users WHERE id`).WithArgs("u-1").
		WillReturnRows(userRow(t, "u-1", "ana@example.com", "hunter22", true))
	u, err := b.Authenticate(context.Background(), s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = b.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	rec := listen(c)

	mock.ExpectQuery(`FROM users WHERE email`).WillReturnError(sql.ErrNoRows)
	_, err := c.SignInWithPassword(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid login credentials", err.Error())

	mock.ExpectQuery(`FROM users WHERE email`).
		WillReturnRows(userRow(t, "u-1", "ana@example.com", "hunter22", true))
	_, err = c.SignInWithPassword(context.Background(), "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignInRequiresConfirmation(t *testing.T) {
	b, mock, _ := newBackend(t)
	b.RequireConfirmation = true
	c := b.NewClient()

	mock.ExpectQuery(`FROM users WHERE email`).
		WillReturnRows(userRow(t, "u-1", "ana@example.com", "hunter22", false))
	_, err := c.SignInWithPassword(context.Background(), "ana@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpExistingAddress(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	rec := listen(c)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	res, err := c.SignUp(context.Background(), "ana@example.com", "hunter22", "Ana")
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Equal(t, 0, res.User.Identities)
	assert.Nil(t, res.Session)
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpStartsSession(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	rec := listen(c)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO profiles`).WithArgs(sqlmock.AnyArg(), "ana@example.com", "Ana Lima").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM users WHERE id`).
		WillReturnRows(userRow(t, "u-9", "ana@example.com", "hunter22", true))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := c.SignUp(context.Background(), "ana@example.com", "hunter22", " Ana Lima ")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "u-9", res.User.ID)
	assert.Equal(t, []Event{EventSignedIn}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpPendingConfirmation(t *testing.T) {
	b, mock, _ := newBackend(t)
	b.RequireConfirmation = true
	c := b.NewClient()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM users WHERE id`).
		WillReturnRows(userRow(t, "u-9", "ana@example.com", "hunter22", false))

	res, err := c.SignUp(context.Background(), "ana@example.com", "hunter22", "Ana")
	require.NoError(t, err)
	assert.Equal(t, 1, res.User.Identities)
	assert.Nil(t, res.Session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpValidatesInput(t *testing.T) {
	b, _, _ := newBackend(t)
	c := b.NewClient()

	_, err := c.SignUp(context.Background(), "not-an-email", "hunter22", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = c.SignUp(context.Background(), "ana@example.com", "123", "")
	assert.ErrorIs(t, err, utils.ErrWeakPassword)
}

func TestGetCurrentSessionRefreshes(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	s := signIn(t, c, mock)
	rec := listen(c)

	got, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Same(t, s, got)

	b.Now = func() time.Time { return s.ExpiresAt.Add(time.Minute) }
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(utils.HashRefreshRaw(s.RefreshToken)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow("u-1", time.Now().Add(time.Hour), nil))
	mock.ExpectQuery(`FROM users WHERE id`).
		WillReturnRows(userRow(t, "u-1", "ana@example.com", "hunter22", true))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	got, err = c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEqual(t, s.RefreshToken, got.RefreshToken)
	assert.Equal(t, []Event{EventTokenRefreshed}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpiredRefreshSignsOut(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	s := signIn(t, c, mock)
	rec := listen(c)

	b.Now = func() time.Time { return s.ExpiresAt.Add(time.Minute) }
	mock.ExpectQuery(`FROM refresh_tokens`).WillReturnError(sql.ErrNoRows)

	got, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []Event{EventSignedOut}, rec.events)
}

func TestSignOut(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	s := signIn(t, c, mock)
	rec := listen(c)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).WithArgs(utils.HashRefreshRaw(s.RefreshToken)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.SignOut(context.Background()))

	got, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []Event{EventSignedOut}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribe(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	calls := 0
	unsubscribe := c.OnSessionChange(func(Event, *model.Session) { calls++ })
	unsubscribe()
	signIn(t, c, mock)
	assert.Zero(t, calls)
}

func TestGetProfileMissingRow(t *testing.T) {
	b, mock, _ := newBackend(t)
	mock.ExpectQuery(`FROM profiles`).WillReturnError(sql.ErrNoRows)
	_, err := b.NewClient().GetProfile(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrNoRows)

	mock.ExpectQuery(`FROM profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name"}).AddRow("u-1", "ana@example.com", nil))
	p, err := b.NewClient().GetProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Empty(t, p.FullName)
}

func TestBookingsRequireSession(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()

	_, err := c.CreateBooking(context.Background(), model.Booking{LocationID: "loc1", SlotID: "A1"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = c.ListBookings(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	signIn(t, c, mock)
	_, err = c.ListBookings(context.Background(), "u-2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateBooking(t *testing.T) {
	b, mock, _ := newBackend(t)
	c := b.NewClient()
	signIn(t, c, mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT available FROM slots`).WithArgs("loc1", "A1").
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(true))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bk, err := c.CreateBooking(context.Background(), model.Booking{
		LocationID: "loc1", SlotID: "A1", BookingDate: "2026-03-14", DurationHours: 3, TotalCents: 2097,
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", bk.UserID)
	assert.NotEmpty(t, bk.ID)
	assert.Equal(t, model.BookingConfirmed, bk.StatusOrUnknown())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT available FROM slots`).
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(false))
	mock.ExpectRollback()
	_, err = c.CreateBooking(context.Background(), model.Booking{LocationID: "loc1", SlotID: "B2"})
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT available FROM slots`).
		WillReturnRows(sqlmock.NewRows([]string{"available"}).AddRow(true))
	mock.ExpectQuery(`FROM bookings WHERE id`).WithArgs("bk-7").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "created_at"}).
			AddRow("u-2", "confirmed", time.Now()))
	mock.ExpectRollback()
	_, err = c.CreateBooking(context.Background(), model.Booking{ID: "bk-7", LocationID: "loc1", SlotID: "A1"})
	assert.ErrorIs(t, err, repository.ErrBookingIDTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
