package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/tdstream-go/internal/registry"
	"github.com/tonimelisma/tdstream-go/internal/tokenfile"
)

// Options configures a Store. AppName, ClientID, TokenPath and Registry are
// required.
type Options struct {
	AppName     string
	ClientID    string
	RedirectURI string
	TokenPath   string

	TokenURL string // defaults to DefaultTokenURL
	AuthURL  string // defaults to DefaultAuthURL

	Registry   registry.Registry
	Authorizer Authorizer // nil disables reauthorization
	Login      LoginCredentials

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Now is the clock. Defaults to time.Now; tests override it.
	Now func() time.Time
}

// Store keeps one app's credential valid. Every method is safe for
// concurrent use; network repairs are serialized per app name through the
// registry, with a re-check after the lock is taken so racing callers
// never spend the same refresh token twice.
type Store struct {
	app        string
	tokenPath  string
	reg        registry.Registry
	authorizer Authorizer
	login      LoginCredentials
	endpoint   *tokenEndpoint
	logger     *slog.Logger
	nowFunc    func() time.Time

	mu   sync.RWMutex
	cred *Credential
}

// Open builds a Store: it loads the token file at opts.TokenPath, or runs
// the full authorization when there is none, repairs whatever has expired,
// and writes the token file once.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}

	doc, err := tokenfile.Load(s.tokenPath)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		s.logger.Info("no saved token, starting authorization",
			slog.String("app", s.app),
			slog.String("path", s.tokenPath),
		)

		if err := s.withLock(ctx, s.initLocked); err != nil {
			return nil, err
		}
	} else {
		cred := CredentialFromDocument(doc, opts.ClientID, opts.RedirectURI, s.nowFunc())
		if err := s.adoptLoaded(ctx, cred); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(ctx); err != nil {
		return nil, err
	}

	// First pass: persist once so computed expirations reach disk.
	if err := s.withLock(ctx, s.firstPassLocked); err != nil {
		return nil, err
	}

	return s, nil
}

// firstPassLocked writes the in-memory credential unless another store
// sharing the app name published a newer one since Validate, in which case
// that store's file is adopted and left as is.
func (s *Store) firstPassLocked(ctx context.Context) error {
	exp, err := s.reg.State(ctx, s.app)
	if err != nil {
		return err
	}

	if cur := s.Credential(); exp.Access.After(cur.AccessExpiry) {
		s.logger.Debug("token refreshed elsewhere during open, skipping save",
			slog.String("app", s.app),
		)

		return s.reloadIfNewer()
	}

	if err := tokenfile.Save(s.tokenPath, s.Credential().Document()); err != nil {
		return fmt.Errorf("auth: saving token: %w", err)
	}

	return nil
}

func newStore(opts Options) (*Store, error) {
	switch {
	case opts.AppName == "":
		return nil, errors.New("auth: app name is required")
	case opts.ClientID == "":
		return nil, errors.New("auth: client id is required")
	case opts.TokenPath == "":
		return nil, errors.New("auth: token path is required")
	case opts.Registry == nil:
		return nil, errors.New("auth: registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	authURL := opts.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	return &Store{
		app:        opts.AppName,
		tokenPath:  opts.TokenPath,
		reg:        opts.Registry,
		authorizer: opts.Authorizer,
		login:      opts.Login,
		endpoint: &tokenEndpoint{
			clientID:    opts.ClientID,
			redirectURI: opts.RedirectURI,
			endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			httpClient: httpClient,
		},
		logger:  logger,
		nowFunc: now,
	}, nil
}

// AccessToken runs the check-and-repair pass and returns a usable access
// token. When nothing has expired it makes no network call.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	if err := s.Validate(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred.AccessToken, nil
}

// Credential returns a copy of the current credential, or nil before the
// store has one.
func (s *Store) Credential() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		return nil
	}

	c := *s.cred

	return &c
}

// AppName returns the registry key this store coordinates on.
func (s *Store) AppName() string {
	return s.app
}

// TokenPath returns the path of the persisted token document.
func (s *Store) TokenPath() string {
	return s.tokenPath
}

// State reports the lifecycle position from the shared registry expiry.
func (s *Store) State(ctx context.Context) (CredentialState, error) {
	if s.Credential() == nil {
		return Unauthenticated, nil
	}

	exp, err := s.reg.State(ctx, s.app)
	if err != nil {
		return Unauthenticated, err
	}

	return state(exp, s.nowFunc()), nil
}

// IsAccessExpired reads the shared access expiry against now.
func (s *Store) IsAccessExpired(ctx context.Context) (bool, error) {
	exp, err := s.reg.State(ctx, s.app)
	if err != nil {
		return false, err
	}

	return accessExpired(exp, s.nowFunc()), nil
}

// IsRefreshExpired reads the shared refresh expiry against now.
func (s *Store) IsRefreshExpired(ctx context.Context) (bool, error) {
	exp, err := s.reg.State(ctx, s.app)
	if err != nil {
		return false, err
	}

	return refreshExpired(exp, s.nowFunc()), nil
}

// Validate is the check-and-repair pass run before every dispatched call:
// RefreshExpired is repaired by Reauthorize, AccessExpired by Refresh. Each
// repair double-checks under the app lock.
func (s *Store) Validate(ctx context.Context) error {
	exp, err := s.reg.State(ctx, s.app)
	if err != nil {
		return err
	}

	if refreshExpired(exp, s.nowFunc()) {
		if err := s.repair(ctx, refreshExpired, s.reauthorizeLocked); err != nil {
			return err
		}

		if exp, err = s.reg.State(ctx, s.app); err != nil {
			return err
		}
	}

	if accessExpired(exp, s.nowFunc()) {
		return s.repair(ctx, accessExpired, s.refreshLocked)
	}

	return s.syncIfStale(exp)
}

// Refresh exchanges the refresh token for a new access token, unless another
// caller already did so while this one waited for the lock.
func (s *Store) Refresh(ctx context.Context) error {
	return s.repair(ctx, accessExpired, s.refreshLocked)
}

// Reauthorize obtains a new authorization code from the Authorizer and
// exchanges it, unless the refresh token turned out to be valid once the
// lock was held.
func (s *Store) Reauthorize(ctx context.Context) error {
	return s.repair(ctx, refreshExpired, s.reauthorizeLocked)
}

// repair takes the app lock, re-checks the shared expiry, and runs fix only
// if it is still expired. Otherwise the winner's tokens are adopted.
func (s *Store) repair(
	ctx context.Context,
	expired func(registry.Expiry, time.Time) bool,
	fix func(context.Context) error,
) error {
	return s.withLock(ctx, func(ctx context.Context) error {
		exp, err := s.reg.State(ctx, s.app)
		if err != nil {
			return err
		}

		if !expired(exp, s.nowFunc()) {
			s.logger.Debug("credential repaired by another holder",
				slog.String("app", s.app),
			)

			return s.syncIfStale(exp)
		}

		return fix(ctx)
	})
}

func (s *Store) withLock(ctx context.Context, fn func(context.Context) error) error {
	if err := s.reg.Acquire(ctx, s.app); err != nil {
		return fmt.Errorf("auth: locking %s: %w", s.app, err)
	}

	defer func() {
		if err := s.reg.Release(context.WithoutCancel(ctx), s.app); err != nil {
			s.logger.Warn("registry release failed",
				slog.String("app", s.app),
				slog.String("error", err.Error()),
			)
		}
	}()

	return fn(ctx)
}

// initLocked runs the first authorization, unless another process sharing
// the app name wrote a token file while this one waited for the lock.
func (s *Store) initLocked(ctx context.Context) error {
	doc, err := tokenfile.Load(s.tokenPath)
	if err != nil {
		return err
	}

	if doc == nil {
		return s.reauthorizeLocked(ctx)
	}

	cred := CredentialFromDocument(doc, s.endpoint.clientID, s.endpoint.redirectURI, s.nowFunc())

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	return s.reg.SetState(ctx, s.app, cred.Expiry())
}

// refreshLocked performs the refresh_token grant. Caller holds the lock.
func (s *Store) refreshLocked(ctx context.Context) error {
	prev := s.Credential()
	if prev == nil || prev.RefreshToken == "" {
		return ErrNotLoggedIn
	}

	s.logger.Info("access token expired, refreshing",
		slog.String("app", s.app),
		slog.Time("access_expiry", prev.AccessExpiry),
	)

	tok, err := s.endpoint.refresh(ctx, prev.RefreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed",
			slog.String("app", s.app),
			slog.String("error", err.Error()),
		)

		return err
	}

	return s.commitLocked(ctx, grantRefresh, s.credentialFromToken(tok, prev))
}

// reauthorizeLocked runs the authorization_code grant with a code from the
// Authorizer. Caller holds the lock.
func (s *Store) reauthorizeLocked(ctx context.Context) error {
	prev := s.Credential()

	if s.authorizer == nil {
		if prev == nil {
			return ErrNotLoggedIn
		}

		return &AuthExpiredError{App: s.app, RefreshExpiry: prev.RefreshExpiry}
	}

	s.logger.Info("refresh token expired, starting authorization", slog.String("app", s.app))

	code, err := s.authorizer.Authorize(ctx, AuthorizationRequest{
		ClientID:    s.endpoint.clientID,
		RedirectURI: s.endpoint.redirectURI,
		AuthURL:     s.endpoint.authCodeURL(),
		Login:       s.login,
	})
	if err != nil {
		return fmt.Errorf("auth: obtaining authorization code: %w", err)
	}

	tok, err := s.endpoint.exchange(ctx, code)
	if err != nil {
		s.logger.Warn("authorization code exchange failed",
			slog.String("app", s.app),
			slog.String("error", err.Error()),
		)

		return err
	}

	return s.commitLocked(ctx, grantCode, s.credentialFromToken(tok, nil))
}

// commitLocked persists next, then publishes it locally and to the
// registry. A failed write leaves every copy of the old credential intact.
func (s *Store) commitLocked(ctx context.Context, grant string, next *Credential) error {
	if next.AccessToken == "" {
		return &TokenRefreshError{Grant: grant, Err: errMissingAccessToken}
	}

	if err := tokenfile.Save(s.tokenPath, next.Document()); err != nil {
		return fmt.Errorf("auth: saving token: %w", err)
	}

	s.mu.Lock()
	s.cred = next
	s.mu.Unlock()

	if err := s.reg.SetState(ctx, s.app, next.Expiry()); err != nil {
		return err
	}

	s.logger.Info("token saved",
		slog.String("app", s.app),
		slog.String("path", s.tokenPath),
		slog.Time("access_expiry", next.AccessExpiry),
		slog.Time("refresh_expiry", next.RefreshExpiry),
	)

	return nil
}

// credentialFromToken converts a token endpoint response. Fields the
// refresh grant omits (refresh token, its lifetime, scope) carry over from
// prev.
func (s *Store) credentialFromToken(tok *oauth2.Token, prev *Credential) *Credential {
	now := s.nowFunc()

	c := &Credential{
		ClientID:     s.endpoint.clientID,
		RedirectURI:  s.endpoint.redirectURI,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        extraString(tok, "scope"),
		ExpiresIn:    tok.ExpiresIn,
	}

	if c.ExpiresIn > 0 {
		c.AccessExpiry = addSeconds(now, c.ExpiresIn)
	} else {
		c.AccessExpiry = tok.Expiry.Round(0)
	}

	if refreshIn := extraInt(tok, "refresh_token_expires_in"); refreshIn > 0 {
		c.RefreshTokenExpiresIn = refreshIn
		c.RefreshExpiry = addSeconds(now, refreshIn)
	}

	if prev != nil {
		if c.RefreshToken == "" || c.RefreshToken == prev.RefreshToken {
			c.RefreshToken = prev.RefreshToken
			if c.RefreshExpiry.IsZero() {
				c.RefreshTokenExpiresIn = prev.RefreshTokenExpiresIn
				c.RefreshExpiry = prev.RefreshExpiry
			}
		}

		if c.Scope == "" {
			c.Scope = prev.Scope
		}
	}

	if c.RefreshExpiry.IsZero() {
		c.RefreshTokenExpiresIn = int64(defaultRefreshLifetime / time.Second)
		c.RefreshExpiry = now.Add(defaultRefreshLifetime).Round(0)
	}

	return c
}

// adoptLoaded installs a credential read from disk at startup and publishes
// its expiry unless the registry already holds a later one.
func (s *Store) adoptLoaded(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	s.logger.Info("loaded saved token",
		slog.String("app", s.app),
		slog.String("path", s.tokenPath),
		slog.Time("access_expiry", cred.AccessExpiry),
		slog.Bool("expired", cred.AccessExpired(s.nowFunc())),
	)

	return s.withLock(ctx, func(ctx context.Context) error {
		exp, err := s.reg.State(ctx, s.app)
		if err != nil {
			return err
		}

		if exp.Access.After(cred.AccessExpiry) {
			return s.syncIfStale(exp)
		}

		return s.reg.SetState(ctx, s.app, cred.Expiry())
	})
}

// syncIfStale reloads the token file when the registry advertises a newer
// access expiry than this store holds, meaning another store sharing the
// app name refreshed and persisted first.
func (s *Store) syncIfStale(exp registry.Expiry) error {
	cur := s.Credential()
	if cur != nil && !exp.Access.After(cur.AccessExpiry) {
		return nil
	}

	return s.reloadIfNewer()
}

// reloadIfNewer adopts the token file if it holds a later access expiry
// than the in-memory credential.
func (s *Store) reloadIfNewer() error {
	cur := s.Credential()

	doc, err := tokenfile.Load(s.tokenPath)
	if err != nil {
		return err
	}

	if doc == nil {
		return ErrNotLoggedIn
	}

	next := CredentialFromDocument(doc, s.endpoint.clientID, s.endpoint.redirectURI, s.nowFunc())
	if cur != nil && !next.AccessExpiry.After(cur.AccessExpiry) {
		return nil
	}

	s.mu.Lock()
	s.cred = next
	s.mu.Unlock()

	s.logger.Debug("adopted token refreshed elsewhere",
		slog.String("app", s.app),
		slog.Time("access_expiry", next.AccessExpiry),
	)

	return nil
}

// Logout removes the saved token file. A missing file is not an error.
func Logout(tokenPath string, logger *slog.Logger) error {
	if err := tokenfile.Remove(tokenPath); err != nil {
		return err
	}

	logger.Info("logout: removed token file", slog.String("path", tokenPath))

	return nil
}
