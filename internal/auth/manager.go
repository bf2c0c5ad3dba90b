// Package auth owns the client-side session lifecycle: the credential pair,
// its persistence, proactive access-token renewal, and the cached user
// profile. Every other component asks this package for the current token and
// user identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/calendarik-app/calendarik/internal/api"
)

// Backend is the slice of the API client the session manager needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.TokenPair, error)
	Register(ctx context.Context, data api.RegisterRequest) (*api.User, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Me(ctx context.Context, token string) (*api.User, error)
}

const (
	// renewLead is how long before expiry the renewal timer fires.
	renewLead = time.Minute

	// refreshTimeout bounds a timer-triggered refresh, which has no caller
	// context to inherit from.
	refreshTimeout = 30 * time.Second
)

// Manager maintains exactly one authoritative session. Session state is only
// mutated under mu; the generation counter invalidates in-flight refreshes
// when a logout or a new login supersedes them.
type Manager struct {
	backend Backend
	store   Store
	log     *slog.Logger

	lead time.Duration
	now  func() time.Time

	// onSessionEnd runs after logout tears the session down (the CLI's
	// equivalent of the SPA redirect to the entry route).
	onSessionEnd func()

	mu    sync.Mutex
	creds *Credentials
	user  *api.User
	timer *time.Timer
	gen   uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithRenewLead overrides the one-minute renewal lead (tests).
func WithRenewLead(d time.Duration) ManagerOption {
	return func(m *Manager) { m.lead = d }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithSessionEndHook registers a callback invoked after every logout.
func WithSessionEndHook(fn func()) ManagerOption {
	return func(m *Manager) { m.onSessionEnd = fn }
}

// NewManager creates a session manager. It performs no I/O; call Restore to
// pick up a previously stored session.
func NewManager(backend Backend, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend: backend,
		store:   store,
		log:     slog.Default(),
		lead:    renewLead,
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ── Accessors ────────────────────────────────────────────────────────────────

// LoggedIn reports whether a credential pair is present.
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds != nil
}

// AccessToken returns the current access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ""
	}
	return m.creds.AccessToken
}

// User returns a copy of the cached profile, or nil when none is loaded.
func (m *Manager) User() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// SetUser applies an optimistic local mutation to the cached profile, e.g.
// after a personality change succeeded, without a full re-fetch.
func (m *Manager) SetUser(fn func(*api.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		fn(m.user)
	}
}

// ── Lifecycle operations ─────────────────────────────────────────────────────

// Login exchanges credentials for a token pair, persists it, arms the renewal
// timer, and fetches the user profile. A rejected login surfaces as
// ErrInvalidCredentials; nothing is retried.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	pair, err := m.backend.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("login: %w", err)
	}

	m.mu.Lock()
	// A new login supersedes any session and any refresh still in flight.
	m.gen++
	err = m.storeTokensLocked(pair)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := m.CurrentUser(ctx); err != nil {
		return err
	}
	return nil
}

// Register creates an account and immediately logs in with the same
// credentials to bootstrap the session. No partial state survives a failure.
func (m *Manager) Register(ctx context.Context, data api.RegisterRequest) error {
	if _, err := m.backend.Register(ctx, data); err != nil {
		var ae *api.APIError
		if errors.As(err, &ae) && ae.Status == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(ae.Detail), "already registered") {
			return ErrEmailTaken
		}
		return fmt.Errorf("register: %w", err)
	}
	return m.Login(ctx, data.Email, data.Password)
}

// Logout cancels the pending renewal timer, clears both tokens from storage,
// drops the in-memory user, and invokes the session-end hook. It is
// idempotent; with no active session only the hook runs.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.creds = nil
	m.user = nil
	err := m.store.Clear()
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("clearing stored session failed", "err", err)
	}
	if m.onSessionEnd != nil {
		m.onSessionEnd()
	}
}

// Restore loads a previously stored credential pair and optimistically fetches
// the profile, refreshing if the access token is no longer accepted. With no
// stored pair it returns ErrNotAuthenticated.
func (m *Manager) Restore(ctx context.Context) error {
	creds, err := m.store.Load()
	if err != nil {
		return err
	}
	if creds == nil {
		return ErrNotAuthenticated
	}

	m.mu.Lock()
	m.gen++
	m.creds = creds
	m.mu.Unlock()

	_, err = m.CurrentUser(ctx)
	return err
}

// Refresh exchanges the stored refresh token for a new pair. With no stored
// refresh token it logs out without touching the network. Any backend or
// transport failure also fails closed into logout; there is no retry loop.
// A refresh completing after logout or a newer login is discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	snapshot := m.gen
	var refreshToken string
	if m.creds != nil {
		refreshToken = m.creds.RefreshToken
	}
	m.mu.Unlock()

	if refreshToken == "" {
		m.log.Debug("refresh requested with no stored refresh token")
		m.Logout()
		return ErrNotAuthenticated
	}

	pair, err := m.backend.Refresh(ctx, refreshToken)
	if err != nil {
		m.log.Warn("token refresh failed, logging out", "err", err)
		m.logoutIfCurrent(snapshot)
		return fmt.Errorf("refresh: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != snapshot {
		// Logged out (or re-logged-in) while the request was in flight;
		// the late success must not repopulate tokens.
		m.log.Debug("discarding superseded refresh result")
		return nil
	}
	m.gen++
	return m.storeTokensLocked(pair)
}

// CurrentUser fetches the profile with the current access token. On a 401 it
// performs one refresh and one re-fetch; a second rejection is returned to
// the caller. Non-auth failures leave cached state unchanged.
func (m *Manager) CurrentUser(ctx context.Context) (*api.User, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	u, err := m.backend.Me(ctx, token)
	if errors.Is(err, api.ErrUnauthorized) {
		if rerr := m.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		token = m.AccessToken()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		u, err = m.backend.Me(ctx, token)
	}
	if err != nil {
		m.log.Warn("fetching user profile failed", "err", err)
		return nil, err
	}

	m.mu.Lock()
	m.user = u
	// The token proved valid; make sure a renewal timer is standing.
	if m.timer == nil && m.creds != nil {
		m.armTimerLocked(m.creds.AccessToken)
	}
	uc := *u
	m.mu.Unlock()
	return &uc, nil
}

// ── Internals ────────────────────────────────────────────────────────────────

// storeTokensLocked writes the pair through to persistent storage before
// anything depends on it, then re-arms the renewal timer. Caller holds mu.
func (m *Manager) storeTokensLocked(pair *api.TokenPair) error {
	creds := &Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if err := m.store.Save(creds); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.creds = creds
	m.armTimerLocked(creds.AccessToken)
	return nil
}

// armTimerLocked schedules a refresh shortly before the access token expires.
// At most one timer is pending: arming cancels the previous one. A token that
// is already (or nearly) expired arms nothing; the next 401 drives the
// refresh instead. Caller holds mu.
func (m *Manager) armTimerLocked(accessToken string) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	exp, err := TokenExpiry(accessToken)
	if err != nil {
		m.log.Warn("cannot schedule token renewal", "err", err)
		return
	}

	delay := exp.Sub(m.now()) - m.lead
	if delay <= 0 {
		m.log.Debug("access token at or past renewal point, not arming timer",
			"exp", exp)
		return
	}

	gen := m.gen
	m.timer = time.AfterFunc(delay, func() {
		m.scheduledRefresh(gen)
	})
	m.log.Debug("renewal timer armed", "delay", delay)
}

// scheduledRefresh is the timer callback. It re-checks the generation so a
// timer that fires just after logout does nothing.
func (m *Manager) scheduledRefresh(gen uint64) {
	m.mu.Lock()
	current := m.gen == gen
	if current {
		m.timer = nil
	}
	m.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := m.Refresh(ctx); err != nil {
		m.log.Warn("scheduled refresh failed", "err", err)
	}
}

// logoutIfCurrent logs out only when the session generation is still the one
// the failing operation started with, so a failure from a superseded session
// cannot tear down its successor.
func (m *Manager) logoutIfCurrent(gen uint64) {
	m.mu.Lock()
	current := m.gen == gen
	m.mu.Unlock()
	if current {
		m.Logout()
	}
}
