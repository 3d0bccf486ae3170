package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/tdstream-go/internal/registry"
	"github.com/tonimelisma/tdstream-go/internal/tokenfile"
)

// fakeClock is a settable clock shared by every store in a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mockTokenServer counts grants and hands out numbered access tokens.
type mockTokenServer struct {
	srv       *httptest.Server
	refreshes atomic.Int32
	codes     atomic.Int32
	issued    atomic.Int32

	mu       sync.Mutex
	lastForm map[string][]string

	// fail, when set, makes every grant return this status.
	fail atomic.Int32
	// delay slows each response to widen race windows.
	delay time.Duration
	// omitRefresh drops refresh_token fields from refresh responses.
	omitRefresh bool
}

func newMockTokenServer(t *testing.T) *mockTokenServer {
	t.Helper()

	m := &mockTokenServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", m.handle)

	m.srv = httptest.NewServer(mux)
	t.Cleanup(m.srv.Close)

	return m
}

func (m *mockTokenServer) URL() string {
	return m.srv.URL + "/v1/oauth2/token"
}

func (m *mockTokenServer) LastForm() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastForm
}

func (m *mockTokenServer) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.lastForm = r.PostForm
	m.mu.Unlock()

	grant := r.PostForm.Get("grant_type")
	switch grant {
	case "refresh_token":
		m.refreshes.Add(1)
	case "authorization_code":
		m.codes.Add(1)
	}

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if status := m.fail.Load(); status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status))
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

		return
	}

	n := m.issued.Add(1)
	resp := map[string]any{
		"access_token": fmt.Sprintf("access-%d", n),
		"token_type":   "Bearer",
		"expires_in":   1800,
		"scope":        "PlaceTrades AccountAccess MoveMoney",
	}

	if grant == "authorization_code" || !m.omitRefresh {
		resp["refresh_token"] = fmt.Sprintf("refresh-%d", n)
		resp["refresh_token_expires_in"] = 7776000
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// writeToken saves a token document whose expirations are relative to now.
func writeToken(t *testing.T, path string, now time.Time, accessIn, refreshIn time.Duration) {
	t.Helper()

	require.NoError(t, tokenfile.Save(path, &tokenfile.Document{
		AccessToken:           "saved-access",
		RefreshToken:          "saved-refresh",
		Scope:                 "PlaceTrades",
		ExpiresIn:             1800,
		RefreshTokenExpiresIn: 7776000,
		TokenType:             "Bearer",
		AccessExpiration:      tokenfile.Timestamp{Time: now.Add(accessIn)},
		RefreshExpiration:     tokenfile.Timestamp{Time: now.Add(refreshIn)},
	}))
}

type storeFixture struct {
	server    *mockTokenServer
	clock     *fakeClock
	reg       registry.Registry
	tokenPath string
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	return &storeFixture{
		server:    newMockTokenServer(t),
		clock:     newFakeClock(),
		reg:       registry.NewMemory(),
		tokenPath: filepath.Join(t.TempDir(), "test-app", "td_credentials.json"),
	}
}

func (f *storeFixture) options(authz Authorizer) Options {
	return Options{
		AppName:     "test-app",
		ClientID:    "CONSUMERKEY",
		RedirectURI: "https://localhost",
		TokenPath:   f.tokenPath,
		TokenURL:    f.server.URL(),
		AuthURL:     "https://auth.example.com/auth",
		Registry:    f.reg,
		Authorizer:  authz,
		Logger:      slog.Default(),
		Now:         f.clock.Now,
	}
}

func (f *storeFixture) open(t *testing.T, authz Authorizer) *Store {
	t.Helper()

	s, err := Open(context.Background(), f.options(authz))
	require.NoError(t, err)

	return s
}

// staticAuthorizer returns a fixed code and counts invocations.
type staticAuthorizer struct {
	code  string
	calls atomic.Int32

	mu   sync.Mutex
	last AuthorizationRequest
}

func (a *staticAuthorizer) Authorize(_ context.Context, req AuthorizationRequest) (string, error) {
	a.calls.Add(1)

	a.mu.Lock()
	a.last = req
	a.mu.Unlock()

	return a.code, nil
}

// interleavingRegistry runs hook just before the at-th Acquire, standing in
// for another process that takes the app lock first.
type interleavingRegistry struct {
	registry.Registry

	at   int
	hook func()

	mu       sync.Mutex
	acquires int
}

func (r *interleavingRegistry) Acquire(ctx context.Context, app string) error {
	r.mu.Lock()
	r.acquires++
	n := r.acquires
	r.mu.Unlock()

	if n == r.at {
		r.hook()
	}

	return r.Registry.Acquire(ctx, app)
}

func newTestLogger() *slog.Logger {
	return slog.Default()
}
