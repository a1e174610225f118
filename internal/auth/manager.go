// Package auth mirrors the session store's current session into a state
// object owned by a single Manager per client.  Pages read the state and
// subscribe to changes; only the Manager writes it.
package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/store"
)

// Navigation targets.
const (
	LandingPath = "/"
	AuthPath    = "/auth"
)

// Kind classifies a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// SessionStore is the authentication half of the store.
type SessionStore interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (store.SignUpResult, error)
	SignOut(ctx context.Context) error
	GetCurrentSession(ctx context.Context) (*model.Session, error)
	OnSessionChange(fn store.Listener) (unsubscribe func())
}

// ProfileFetcher reads a profile row.  A missing row is store.ErrNoRows.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// Navigator moves the client to another page.
type Navigator interface {
	NavigateTo(path string, state map[string]any)
}

// Notifier shows a fire-and-forget message.
type Notifier interface {
	Notify(kind Kind, title, message string)
}

// State is a snapshot of the mirrored session.
type State struct {
	Session      *model.Session  `json:"session"`
	User         *model.AuthUser `json:"user"`
	Profile      *model.Profile  `json:"profile"`
	Loading      bool            `json:"loading"`
	ProfileError string          `json:"profile_error,omitempty"`
}

// SignedIn reports whether a user is present.
func (s State) SignedIn() bool { return s.User != nil }

// SignUpOutcome distinguishes the results of a sign-up.
type SignUpOutcome string

const (
	SignUpFailed              SignUpOutcome = "failed"
	SignUpIdentityExists      SignUpOutcome = "identity_exists"
	SignUpSignedIn            SignUpOutcome = "signed_in"
	SignUpConfirmationPending SignUpOutcome = "confirmation_pending"
)

// Deps are the collaborators of a Manager.
type Deps struct {
	Store     SessionStore
	Profiles  ProfileFetcher
	Navigator Navigator
	Notifier  Notifier
	Scheduler Scheduler
	// ProfileTimeout bounds a deferred profile fetch; 5s when zero.
	ProfileTimeout time.Duration
}

// Manager owns one client's auth state.
type Manager struct {
	d Deps

	mu    sync.Mutex
	state State
	gen   uint64

	// pub is taken before mu and serializes delivery.
	pub     sync.Mutex
	subs    map[int]func(State)
	nextSub int

	unsubscribe func()
}

// NewManager returns a Manager in the loading state.  Call Start to
// restore the current session.
func NewManager(d Deps) *Manager {
	if d.ProfileTimeout <= 0 {
		d.ProfileTimeout = 5 * time.Second
	}
	return &Manager{d: d, state: State{Loading: true}, subs: make(map[int]func(State))}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every state change and returns a function
// that removes it.  fn must not call the Manager's mutating methods.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.pub.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.pub.Unlock()
	return func() {
		m.pub.Lock()
		delete(m.subs, id)
		m.pub.Unlock()
	}
}

// update mutates the state under the lock and publishes the result.
func (m *Manager) update(fn func(s *State)) State {
	m.pub.Lock()
	defer m.pub.Unlock()
	m.mu.Lock()
	fn(&m.state)
	snap := m.state
	m.mu.Unlock()
	for _, sub := range m.subs {
		sub(snap)
	}
	return snap
}

// Start subscribes to session changes and restores the current session.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.unsubscribe == nil {
		m.unsubscribe = m.d.Store.OnSessionChange(m.onSessionChange)
	}
	m.mu.Unlock()

	s, err := m.d.Store.GetCurrentSession(ctx)
	if err != nil {
		m.update(func(st *State) { st.Loading = false })
		return &AuthError{Op: "get_session", Err: err}
	}
	m.apply(s)
	return nil
}

// Close stops following session changes.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (m *Manager) onSessionChange(_ store.Event, s *model.Session) {
	m.apply(s)
}

// apply mirrors s and schedules the profile fetch.  It never calls the
// store directly since it runs inside session-change delivery.
func (m *Manager) apply(s *model.Session) {
	var gen uint64
	m.update(func(st *State) {
		m.gen++
		gen = m.gen
		st.Session = s
		st.ProfileError = ""
		if s == nil {
			st.User = nil
			st.Profile = nil
		} else {
			u := s.User
			st.User = &u
		}
		st.Loading = false
	})
	if s != nil {
		userID := s.User.ID
		m.d.Scheduler.Defer(func() { m.fetchProfile(gen, userID) })
	}
}

func (m *Manager) fetchProfile(gen uint64, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.d.ProfileTimeout)
	defer cancel()
	p, err := m.d.Profiles.GetProfile(ctx, userID)

	var fetchErr *ProfileFetchError
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		fetchErr = &ProfileFetchError{UserID: userID, Err: err}
	}

	stale := false
	m.update(func(st *State) {
		if m.gen != gen {
			stale = true
			return
		}
		st.Profile = nil
		if err == nil {
			st.Profile = p
		}
		if fetchErr != nil {
			st.ProfileError = fetchErr.Error()
		}
	})
	if !stale && fetchErr != nil {
		log.Printf("auth: %v", fetchErr)
		m.d.Notifier.Notify(KindError, "Profile Error", "Could not fetch your profile.")
	}
}

// mirrorIfMissed applies s when the store did not deliver it through
// OnSessionChange, as happens before Start.
func (m *Manager) mirrorIfMissed(s *model.Session) {
	m.mu.Lock()
	missed := m.state.Session != s
	m.mu.Unlock()
	if missed {
		m.apply(s)
	}
}

// SignInWithEmail signs in.  On success the landing page is opened; on
// failure the state stays signed out and the store's message is shown.
func (m *Manager) SignInWithEmail(ctx context.Context, email, password string) error {
	m.update(func(st *State) { st.Loading = true })
	s, err := m.d.Store.SignInWithPassword(ctx, email, password)
	m.update(func(st *State) { st.Loading = false })
	if err != nil {
		m.d.Notifier.Notify(KindError, "Sign In Error", err.Error())
		return &AuthError{Op: "sign_in", Err: err}
	}
	m.mirrorIfMissed(s)
	m.d.Notifier.Notify(KindSuccess, "Signed In", "Welcome back!")
	m.d.Navigator.NavigateTo(LandingPath, nil)
	return nil
}

// SignUpWithEmail registers an account with fullName as profile metadata.
func (m *Manager) SignUpWithEmail(ctx context.Context, email, password, fullName string) (SignUpOutcome, error) {
	m.update(func(st *State) { st.Loading = true })
	res, err := m.d.Store.SignUp(ctx, email, password, fullName)
	m.update(func(st *State) { st.Loading = false })

	switch {
	case err != nil:
		m.d.Notifier.Notify(KindError, "Sign Up Error", err.Error())
		return SignUpFailed, &AuthError{Op: "sign_up", Err: err}
	case res.User != nil && res.User.Identities == 0:
		m.d.Notifier.Notify(KindError, "Sign Up Error",
			"This email address is already in use with a different sign-in method.")
		return SignUpIdentityExists, &AuthError{Op: "sign_up", Err: ErrEmailInUse}
	case res.Session != nil:
		m.mirrorIfMissed(res.Session)
		m.d.Notifier.Notify(KindSuccess, "Signed Up Successfully!", "Welcome! Your account is created.")
		m.d.Navigator.NavigateTo(LandingPath, nil)
		return SignUpSignedIn, nil
	default:
		m.d.Notifier.Notify(KindInfo, "Confirmation Email Sent", "Please check your email to confirm your account.")
		m.d.Navigator.NavigateTo(AuthPath, nil)
		return SignUpConfirmationPending, nil
	}
}

// SignOut clears the state, ends the store session and opens the auth
// page.  The state is cleared even when the store call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.update(func(st *State) {
		m.gen++
		*st = State{Loading: true}
	})
	err := m.d.Store.SignOut(ctx)
	m.update(func(st *State) { st.Loading = false })
	m.d.Navigator.NavigateTo(AuthPath, nil)
	if err != nil {
		m.d.Notifier.Notify(KindError, "Sign Out Error", err.Error())
		return &AuthError{Op: "sign_out", Err: err}
	}
	m.d.Notifier.Notify(KindSuccess, "Signed Out", "You have been successfully signed out.")
	return nil
}
