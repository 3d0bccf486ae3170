package auth

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Use errors.Is(err, auth.ErrAuthExpired) to check.
var (
	ErrAuthExpired = errors.New("auth: refresh token expired, reauthorization required")
	ErrNotLoggedIn = errors.New("auth: not logged in")
)

// AuthExpiredError reports that the refresh token is dead and no Authorizer
// was configured to obtain a new authorization code.
type AuthExpiredError struct {
	App           string
	RefreshExpiry time.Time
}

func (e *AuthExpiredError) Error() string {
	if e.RefreshExpiry.IsZero() {
		return fmt.Sprintf("auth: %s: refresh token expiry unknown, reauthorization required", e.App)
	}

	return fmt.Sprintf("auth: %s: refresh token expired at %s, reauthorization required",
		e.App, e.RefreshExpiry.Format(time.RFC3339))
}

func (e *AuthExpiredError) Unwrap() error {
	return ErrAuthExpired
}

// TokenRefreshError wraps a failed call to the token endpoint. Stored
// tokens are left untouched when it is returned; it is never retried
// automatically.
type TokenRefreshError struct {
	Grant      string // "refresh_token" or "authorization_code"
	StatusCode int    // 0 when no HTTP response was received
	Err        error
}

func (e *TokenRefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth: %s grant failed (HTTP %d): %v", e.Grant, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("auth: %s grant failed: %v", e.Grant, e.Err)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}
