package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calendarik-app/calendarik/internal/api"
)

// makeToken builds a signed token whose only interesting claim is exp.
func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}

// memStore is an in-memory Store for tests.
type memStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func (s *memStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

func (s *memStore) Save(c *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.creds = &cp
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

func (s *memStore) stored() *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// fakeBackend scripts the four auth endpoints and counts calls.
type fakeBackend struct {
	mu sync.Mutex

	loginFunc   func(email, password string) (*api.TokenPair, error)
	refreshFunc func(refreshToken string) (*api.TokenPair, error)
	meFunc      func(token string) (*api.User, error)

	loginCalls   int
	refreshCalls int
	meCalls      int
}

func (b *fakeBackend) Login(_ context.Context, email, password string) (*api.TokenPair, error) {
	b.mu.Lock()
	b.loginCalls++
	fn := b.loginFunc
	b.mu.Unlock()
	if fn == nil {
		return nil, errors.New("login not scripted")
	}
	return fn(email, password)
}

func (b *fakeBackend) Register(_ context.Context, _ api.RegisterRequest) (*api.User, error) {
	return &api.User{ID: 1}, nil
}

func (b *fakeBackend) Refresh(_ context.Context, refreshToken string) (*api.TokenPair, error) {
	b.mu.Lock()
	b.refreshCalls++
	fn := b.refreshFunc
	b.mu.Unlock()
	if fn == nil {
		return nil, errors.New("refresh not scripted")
	}
	return fn(refreshToken)
}

func (b *fakeBackend) Me(_ context.Context, token string) (*api.User, error) {
	b.mu.Lock()
	b.meCalls++
	fn := b.meFunc
	b.mu.Unlock()
	if fn == nil {
		return &api.User{ID: 1, Email: "a@x.com"}, nil
	}
	return fn(token)
}

func (b *fakeBackend) counts() (login, refresh, me int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls, b.refreshCalls, b.meCalls
}

func newTestManager(t *testing.T, backend *fakeBackend, opts ...ManagerOption) (*Manager, *memStore) {
	t.Helper()
	store := &memStore{}
	m := NewManager(backend, store, opts...)
	t.Cleanup(m.Logout)
	return m, store
}

func (m *Manager) timerArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

func TestLoginStoresTokensAndFetchesUser(t *testing.T) {
	access := makeToken(t, time.Now().Add(30*time.Minute))
	backend := &fakeBackend{
		loginFunc: func(email, password string) (*api.TokenPair, error) {
			if email != "a@x.com" || password != "pw" {
				return nil, api.ErrUnauthorized
			}
			return &api.TokenPair{AccessToken: access, RefreshToken: "r1"}, nil
		},
	}
	m, store := newTestManager(t, backend)

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	creds := store.stored()
	if creds == nil || creds.AccessToken != access || creds.RefreshToken != "r1" {
		t.Fatalf("stored credentials = %+v, want pair from login", creds)
	}
	if u := m.User(); u == nil || u.ID != 1 {
		t.Errorf("User() = %+v, want id 1", u)
	}
	if !m.timerArmed() {
		t.Error("renewal timer should be armed after login")
	}
}

func TestLoginRejected(t *testing.T) {
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return nil, api.ErrUnauthorized
		},
	}
	m, store := newTestManager(t, backend)

	err := m.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
	if store.stored() != nil {
		t.Error("no credentials should be stored after a rejected login")
	}
	if m.LoggedIn() {
		t.Error("manager should remain logged out")
	}
}

func TestLogoutClearsEverythingAndIsIdempotent(t *testing.T) {
	access := makeToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: access, RefreshToken: "r1"}, nil
		},
	}
	ends := 0
	m, store := newTestManager(t, backend, WithSessionEndHook(func() { ends++ }))

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m.Logout()
	if store.stored() != nil {
		t.Error("logout must clear stored credentials")
	}
	if m.AccessToken() != "" || m.User() != nil {
		t.Error("logout must clear in-memory session state")
	}
	if m.timerArmed() {
		t.Error("logout must cancel the renewal timer")
	}

	// Already logged out: a no-op beyond the hook.
	m.Logout()
	if ends != 2 {
		t.Errorf("session-end hook ran %d times, want 2", ends)
	}
}

func TestRefreshWithoutStoredTokenMakesNoNetworkCall(t *testing.T) {
	backend := &fakeBackend{}
	m, _ := newTestManager(t, backend)

	err := m.Refresh(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Refresh error = %v, want ErrNotAuthenticated", err)
	}
	if _, refresh, _ := backend.counts(); refresh != 0 {
		t.Errorf("refresh endpoint called %d times, want 0", refresh)
	}
}

func TestRefreshFailureFailsClosed(t *testing.T) {
	access := makeToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: access, RefreshToken: "expired-token"}, nil
		},
		refreshFunc: func(string) (*api.TokenPair, error) {
			return nil, api.ErrUnauthorized
		},
	}
	m, store := newTestManager(t, backend)

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh with a rejected refresh token should error")
	}
	if store.stored() != nil || m.LoggedIn() {
		t.Error("a failed refresh must log out (tokens cleared)")
	}
	if _, refresh, _ := backend.counts(); refresh != 1 {
		t.Errorf("refresh endpoint called %d times, want exactly 1 (no retry)", refresh)
	}
}

func TestExpiredTokenArmsNoTimer(t *testing.T) {
	access := makeToken(t, time.Now().Add(-time.Minute))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: access, RefreshToken: "r1"}, nil
		},
	}
	m, _ := newTestManager(t, backend)

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.timerArmed() {
		t.Error("a token past its renewal point must not arm a timer")
	}
}

func TestScheduledRefreshReplacesTokens(t *testing.T) {
	oldAccess := makeToken(t, time.Now().Add(250*time.Millisecond))
	newAccess := makeToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: oldAccess, RefreshToken: "r1"}, nil
		},
		refreshFunc: func(rt string) (*api.TokenPair, error) {
			if rt != "r1" {
				return nil, api.ErrUnauthorized
			}
			return &api.TokenPair{AccessToken: newAccess, RefreshToken: "r2"}, nil
		},
	}
	// Lead of 100ms puts the timer ~150ms out.
	m, store := newTestManager(t, backend, WithRenewLead(100*time.Millisecond))

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if c := store.stored(); c != nil && c.RefreshToken == "r2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduled refresh did not replace the token pair")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := m.AccessToken(); got != newAccess {
		t.Errorf("AccessToken() = %q, want refreshed token", got)
	}
	if _, refresh, _ := backend.counts(); refresh != 1 {
		t.Errorf("refresh endpoint called %d times, want 1", refresh)
	}
}

func TestRefreshCompletingAfterLogoutIsDiscarded(t *testing.T) {
	access := makeToken(t, time.Now().Add(time.Hour))
	release := make(chan struct{})
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: access, RefreshToken: "r1"}, nil
		},
		refreshFunc: func(string) (*api.TokenPair, error) {
			<-release
			return &api.TokenPair{AccessToken: access, RefreshToken: "r2"}, nil
		},
	}
	m, store := newTestManager(t, backend)

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Refresh(context.Background()) }()

	// Let the refresh request get in flight, then log out underneath it.
	time.Sleep(20 * time.Millisecond)
	m.Logout()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("superseded refresh should be silently discarded, got %v", err)
	}
	if store.stored() != nil {
		t.Error("late refresh success must not repopulate cleared tokens")
	}
	if m.LoggedIn() {
		t.Error("manager must remain logged out after the race")
	}
}

func TestCurrentUserRefreshesOnceOn401(t *testing.T) {
	oldAccess := makeToken(t, time.Now().Add(time.Hour))
	newAccess := makeToken(t, time.Now().Add(2*time.Hour))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: oldAccess, RefreshToken: "r1"}, nil
		},
		refreshFunc: func(string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: newAccess, RefreshToken: "r2"}, nil
		},
		meFunc: func(token string) (*api.User, error) {
			if token != newAccess {
				return nil, api.ErrUnauthorized
			}
			return &api.User{ID: 7, Email: "a@x.com"}, nil
		},
	}
	m, _ := newTestManager(t, backend)

	// Login's profile fetch already exercises the 401 → refresh → retry path.
	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	u := m.User()
	if u == nil || u.ID != 7 {
		t.Fatalf("User() = %+v, want id 7 after refresh-then-retry", u)
	}
	_, refresh, me := backend.counts()
	if refresh != 1 {
		t.Errorf("refresh endpoint called %d times, want 1", refresh)
	}
	if me != 2 {
		t.Errorf("profile endpoint called %d times, want 2 (401 then retry)", me)
	}
}

func TestDoubleLoginLeavesSecondPair(t *testing.T) {
	first := makeToken(t, time.Now().Add(time.Hour))
	second := makeToken(t, time.Now().Add(2*time.Hour))
	calls := 0
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			calls++
			if calls == 1 {
				return &api.TokenPair{AccessToken: first, RefreshToken: "r1"}, nil
			}
			return &api.TokenPair{AccessToken: second, RefreshToken: "r2"}, nil
		},
	}
	m, store := newTestManager(t, backend)

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("first Login: %v", err)
	}
	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("second Login: %v", err)
	}

	creds := store.stored()
	if creds == nil || creds.AccessToken != second || creds.RefreshToken != "r2" {
		t.Errorf("stored credentials = %+v, want the second login's pair", creds)
	}
	if !m.timerArmed() {
		t.Error("exactly one renewal timer should remain armed")
	}
}

func TestRestore(t *testing.T) {
	access := makeToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{}
	store := &memStore{}
	m := NewManager(backend, store)
	t.Cleanup(m.Logout)

	if err := m.Restore(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Restore with empty store = %v, want ErrNotAuthenticated", err)
	}

	if err := store.Save(&Credentials{AccessToken: access, RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if u := m.User(); u == nil || u.ID != 1 {
		t.Errorf("User() = %+v, want restored profile", u)
	}
	if !m.timerArmed() {
		t.Error("restore of a valid session should arm the renewal timer")
	}
}

func TestSetUser(t *testing.T) {
	access := makeToken(t, time.Now().Add(time.Hour))
	backend := &fakeBackend{
		loginFunc: func(string, string) (*api.TokenPair, error) {
			return &api.TokenPair{AccessToken: access, RefreshToken: "r1"}, nil
		},
	}
	m, _ := newTestManager(t, backend)

	// No profile cached yet: mutation is a no-op, not a panic.
	m.SetUser(func(u *api.User) { u.ChatPersonality = "coach" })

	if err := m.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	m.SetUser(func(u *api.User) { u.ChatPersonality = "coach" })
	if got := m.User().ChatPersonality; got != "coach" {
		t.Errorf("ChatPersonality = %q, want coach", got)
	}
}
