package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/utils"
)

// Event names a session change.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives session changes.  It is called synchronously on the
// goroutine that caused the change and must not call back into the Client.
type Listener func(ev Event, s *model.Session)

// SignUpResult is the outcome of SignUp.  Session is nil when the account
// needs confirmation or when the address already belongs to an account,
// in which case User.Identities is zero.
type SignUpResult struct {
	User    *model.AuthUser
	Session *model.Session
}

// Client is one browser's view of the store.
type Client struct {
	b *Backend

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]Listener
	nextID    int
}

// OnSessionChange registers fn and returns a function that removes it.
func (c *Client) OnSessionChange(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// set stores s and notifies listeners outside the lock.
func (c *Client) set(ev Event, s *model.Session) {
	c.mu.Lock()
	c.session = s
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

func (c *Client) current() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SignInWithPassword authenticates and starts a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := c.b.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if c.b.RequireConfirmation && !u.EmailConfirmedAt.Valid {
		return nil, ErrEmailNotConfirmed
	}
	s, err := c.b.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, s)
	return s, nil
}

// SignUp registers an account.  An address that is already registered is
// not an error: the returned user has no identities and no session.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return SignUpResult{}, ErrInvalidEmail
	}
	if err := utils.CheckPassword(password); err != nil {
		return SignUpResult{}, err
	}
	id, err := c.b.Users.Create(ctx, email, password, fullName, c.b.BcryptCost, !c.b.RequireConfirmation)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return SignUpResult{User: &model.AuthUser{Email: email, Identities: 0}}, nil
		}
		return SignUpResult{}, err
	}
	u, err := c.b.Users.GetByID(ctx, id)
	if err != nil {
		return SignUpResult{}, err
	}
	au := authUser(u)
	if c.b.RequireConfirmation {
		return SignUpResult{User: &au}, nil
	}
	s, err := c.b.issue(ctx, u)
	if err != nil {
		return SignUpResult{}, err
	}
	c.set(EventSignedIn, s)
	return SignUpResult{User: &au, Session: s}, nil
}

// SignOut ends the session.  The local session is cleared even when the
// refresh token cannot be revoked.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.current()
	c.set(EventSignedOut, nil)
	if s == nil {
		return nil
	}
	return c.b.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(s.RefreshToken))
}

// GetCurrentSession returns the session, refreshing it when the access
// token has expired.  A nil session means signed out.
func (c *Client) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	s := c.current()
	if s == nil {
		return nil, nil
	}
	if c.b.now().Before(s.ExpiresAt) {
		return s, nil
	}
	ns, err := c.b.refresh(ctx, s)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			c.set(EventSignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	c.set(EventTokenRefreshed, ns)
	return ns, nil
}

// GetProfile returns the profile row of userID, or ErrNoRows.
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return c.b.GetProfile(ctx, userID)
}

// ListBookings returns the signed-in user's bookings.
func (c *Client) ListBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	s := c.current()
	if s == nil {
		return nil, ErrNotSignedIn
	}
	if s.User.ID != userID {
		return nil, ErrForbidden
	}
	return c.b.ListBookings(ctx, userID)
}

// CreateBooking inserts b for the signed-in user.
func (c *Client) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	s := c.current()
	if s == nil {
		return model.Booking{}, ErrNotSignedIn
	}
	if b.UserID == "" {
		b.UserID = s.User.ID
	}
	if b.UserID != s.User.ID {
		return model.Booking{}, ErrForbidden
	}
	if err := c.b.Bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}
