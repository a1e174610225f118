package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/auth"
	"github.com/iliyamo/spot-saver/internal/middleware"
	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/store"
	"github.com/iliyamo/spot-saver/internal/utils"
)

// AuthHandler drives the per-client auth manager.
type AuthHandler struct {
	Profiles auth.ProfileFetcher
}

func NewAuthHandler(p auth.ProfileFetcher) *AuthHandler {
	return &AuthHandler{Profiles: p}
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignIn: POST /v1/auth/sign-in
func (h *AuthHandler) SignIn(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := cl.Auth.SignInWithEmail(ctx, req.Email, req.Password); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrInvalidCredentials) || errors.Is(err, store.ErrEmailNotConfirmed) {
			status = http.StatusUnauthorized
		}
		return fail(c, status, err.Error())
	}
	return respond(c, http.StatusOK, echo.Map{"state": cl.Auth.State()})
}

// SignUp: POST /v1/auth/sign-up
func (h *AuthHandler) SignUp(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	outcome, err := cl.Auth.SignUpWithEmail(ctx, req.Email, req.Password, req.FullName)
	switch outcome {
	case auth.SignUpIdentityExists:
		return respond(c, http.StatusConflict, echo.Map{"error": err.Error(), "outcome": outcome})
	case auth.SignUpFailed:
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrInvalidEmail) || errors.Is(err, utils.ErrWeakPassword) {
			status = http.StatusBadRequest
		}
		return respond(c, status, echo.Map{"error": err.Error(), "outcome": outcome})
	case auth.SignUpConfirmationPending:
		return respond(c, http.StatusAccepted, echo.Map{"outcome": outcome, "state": cl.Auth.State()})
	}
	return respond(c, http.StatusCreated, echo.Map{"outcome": outcome, "state": cl.Auth.State()})
}

// SignOut: POST /v1/auth/sign-out
func (h *AuthHandler) SignOut(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := cl.Auth.SignOut(ctx); err != nil {
		c.Logger().Errorf("sign out client %s: %v", cl.ID, err)
		return respond(c, http.StatusBadGateway, echo.Map{"error": err.Error(), "state": cl.Auth.State()})
	}
	return respond(c, http.StatusOK, echo.Map{"state": cl.Auth.State()})
}

// State: GET /v1/auth/state.  An expired access token is refreshed first;
// the manager picks the new session up through the store's listener.
func (h *AuthHandler) State(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := cl.Store.GetCurrentSession(ctx); err != nil {
		c.Logger().Warnf("refresh session of client %s: %v", cl.ID, err)
	}
	return respond(c, http.StatusOK, echo.Map{"state": cl.Auth.State()})
}

// Me: GET /v1/me, for bearer or client-session callers.
func (h *AuthHandler) Me(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	var profile *model.Profile
	p, err := h.Profiles.GetProfile(ctx, u.ID)
	switch {
	case err == nil:
		profile = p
	case errors.Is(err, store.ErrNoRows):
	default:
		c.Logger().Errorf("profile %s: %v", u.ID, err)
		return fail(c, http.StatusBadGateway, "could not fetch profile")
	}
	return respond(c, http.StatusOK, echo.Map{"user": u, "profile": profile, "via": middleware.AuthVia(c)})
}
