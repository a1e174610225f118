// Package store is the session store: email/password authentication,
// session issue and refresh, and the profile and booking rows the
// application reads and writes on behalf of a signed-in user.
//
// A Backend is shared by the process.  Each browser gets its own Client,
// which holds at most one session and notifies listeners when it changes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/spot-saver/internal/config"
	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/utils"
)

// Backend bundles the repositories and token settings.
type Backend struct {
	Users    *repository.UserRepo
	Profiles *repository.ProfileRepo
	Tokens   *repository.TokenRepo
	Bookings *repository.BookingRepo

	JWTSecret           string
	AccessTTLMin        int
	RefreshTTLDays      int
	BcryptCost          int
	RequireConfirmation bool

	// Now is used for expiry checks; it defaults to time.Now.
	Now func() time.Time
}

// NewBackend wires repositories over db using cfg.
func NewBackend(db *sql.DB, cfg config.Config) *Backend {
	return &Backend{
		Users:               repository.NewUserRepo(db),
		Profiles:            repository.NewProfileRepo(db),
		Tokens:              repository.NewTokenRepo(db),
		Bookings:            repository.NewBookingRepo(db),
		JWTSecret:           cfg.JWTSecret,
		AccessTTLMin:        cfg.AccessTTLMin,
		RefreshTTLDays:      cfg.RefreshTTLDays,
		BcryptCost:          cfg.BcryptCost,
		RequireConfirmation: cfg.RequireEmailConfirmation,
	}
}

func (b *Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}

// NewClient returns a signed-out client.
func (b *Backend) NewClient() *Client {
	return &Client{b: b, listeners: make(map[int]Listener)}
}

// Authenticate resolves a bearer access token to its user.
func (b *Backend) Authenticate(ctx context.Context, raw string) (model.AuthUser, error) {
	claims, err := utils.ParseAccessToken(b.JWTSecret, raw)
	if err != nil {
		return model.AuthUser{}, err
	}
	u, err := b.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AuthUser{}, utils.ErrInvalidToken
		}
		return model.AuthUser{}, err
	}
	if !u.IsActive {
		return model.AuthUser{}, utils.ErrInvalidToken
	}
	return authUser(u), nil
}

// GetProfile returns the profile row of userID, or ErrNoRows.
func (b *Backend) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := b.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}

// ListBookings returns the bookings of userID, newest date first.
func (b *Backend) ListBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return b.Bookings.ListByUser(ctx, userID)
}

// issue creates a fresh access/refresh pair for u.
func (b *Backend) issue(ctx context.Context, u model.User) (*model.Session, error) {
	at, err := utils.NewAccessToken(b.JWTSecret, u.ID, u.Email, b.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	rt, err := utils.NewRefreshToken(b.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := b.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return nil, err
	}
	return &model.Session{
		AccessToken:  at.Token,
		RefreshToken: rt.Raw,
		ExpiresAt:    at.Exp,
		User:         authUser(u),
	}, nil
}

// refresh rotates the refresh token of s and returns a new session.
func (b *Backend) refresh(ctx context.Context, s *model.Session) (*model.Session, error) {
	oldHash := utils.HashRefreshRaw(s.RefreshToken)
	userID, err := b.Tokens.ValidateRefresh(ctx, oldHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	u, err := b.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	at, err := utils.NewAccessToken(b.JWTSecret, u.ID, u.Email, b.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	rt, err := utils.NewRefreshToken(b.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := b.Tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return &model.Session{
		AccessToken:  at.Token,
		RefreshToken: rt.Raw,
		ExpiresAt:    at.Exp,
		User:         authUser(u),
	}, nil
}

func authUser(u model.User) model.AuthUser {
	return model.AuthUser{ID: u.ID, Email: u.Email, Identities: 1, CreatedAt: u.CreatedAt}
}
