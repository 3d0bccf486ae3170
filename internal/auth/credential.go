// Package auth owns the OAuth2 credential lifecycle: loading and persisting
// the token document, deciding when the access or refresh token needs
// repair, and serializing that repair across every store that shares an app
// name through a registry.Registry.
package auth

import (
	"time"

	"github.com/tonimelisma/tdstream-go/internal/registry"
	"github.com/tonimelisma/tdstream-go/internal/tokenfile"
)

// SafetyMargin is subtracted from every expiry before comparing with now,
// so a token is repaired before the broker would reject it.
const SafetyMargin = 20 * time.Second

// defaultRefreshLifetime is assumed when the token endpoint does not report
// refresh_token_expires_in after a code exchange (the broker issues 90-day
// refresh tokens).
const defaultRefreshLifetime = 90 * 24 * time.Hour

// CredentialState is the position of a store in its lifecycle.
type CredentialState int

const (
	Unauthenticated CredentialState = iota
	Authenticated
	AccessExpired
	RefreshExpired
)

func (s CredentialState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case AccessExpired:
		return "access-expired"
	case RefreshExpired:
		return "refresh-expired"
	default:
		return "unknown"
	}
}

// Credential is one OAuth token pair with its absolute expirations.
type Credential struct {
	ClientID              string
	RedirectURI           string
	AccessToken           string
	RefreshToken          string
	Scope                 string
	TokenType             string
	ExpiresIn             int64
	RefreshTokenExpiresIn int64
	AccessExpiry          time.Time
	RefreshExpiry         time.Time
}

// AccessExpired reports whether now is past the access expiry minus the
// safety margin. A zero expiry counts as expired.
func (c *Credential) AccessExpired(now time.Time) bool {
	return pastMargin(c.AccessExpiry, now)
}

// RefreshExpired reports whether now is past the refresh expiry minus the
// safety margin. A zero expiry counts as expired.
func (c *Credential) RefreshExpired(now time.Time) bool {
	return pastMargin(c.RefreshExpiry, now)
}

// Expiry returns the pair published to the registry.
func (c *Credential) Expiry() registry.Expiry {
	return registry.Expiry{Access: c.AccessExpiry, Refresh: c.RefreshExpiry}
}

// Document converts the credential to its persisted form.
func (c *Credential) Document() *tokenfile.Document {
	return &tokenfile.Document{
		AccessToken:           c.AccessToken,
		RefreshToken:          c.RefreshToken,
		Scope:                 tokenfile.Scope(c.Scope),
		ExpiresIn:             c.ExpiresIn,
		RefreshTokenExpiresIn: c.RefreshTokenExpiresIn,
		TokenType:             c.TokenType,
		RefreshExpiration:     tokenfile.Timestamp{Time: c.RefreshExpiry},
		AccessExpiration:      tokenfile.Timestamp{Time: c.AccessExpiry},
	}
}

// CredentialFromDocument rebuilds a credential from its persisted form.
// Expirations missing from the document are computed from the relative
// lifetimes, counted from now.
func CredentialFromDocument(doc *tokenfile.Document, clientID, redirectURI string, now time.Time) *Credential {
	c := &Credential{
		ClientID:              clientID,
		RedirectURI:           redirectURI,
		AccessToken:           doc.AccessToken,
		RefreshToken:          doc.RefreshToken,
		Scope:                 string(doc.Scope),
		TokenType:             doc.TokenType,
		ExpiresIn:             doc.ExpiresIn,
		RefreshTokenExpiresIn: doc.RefreshTokenExpiresIn,
		AccessExpiry:          doc.AccessExpiration.Time,
		RefreshExpiry:         doc.RefreshExpiration.Time,
	}

	if c.AccessExpiry.IsZero() {
		c.AccessExpiry = addSeconds(now, doc.ExpiresIn)
	}

	if c.RefreshExpiry.IsZero() {
		c.RefreshExpiry = addSeconds(now, doc.RefreshTokenExpiresIn)
	}

	return c
}

// state classifies an expiry pair. Refresh expiry dominates: a dead refresh
// token needs reauthorization whatever the access token says.
func state(exp registry.Expiry, now time.Time) CredentialState {
	switch {
	case pastMargin(exp.Refresh, now):
		return RefreshExpired
	case pastMargin(exp.Access, now):
		return AccessExpired
	default:
		return Authenticated
	}
}

func accessExpired(exp registry.Expiry, now time.Time) bool {
	return pastMargin(exp.Access, now)
}

func refreshExpired(exp registry.Expiry, now time.Time) bool {
	return pastMargin(exp.Refresh, now)
}

func pastMargin(expiry, now time.Time) bool {
	return now.After(expiry.Add(-SafetyMargin))
}

// addSeconds returns now+secs with the monotonic reading stripped, so the
// value compares equal after a trip through the token file or registry.
// Zero or negative lifetimes yield the zero time.
func addSeconds(now time.Time, secs int64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}

	return now.Add(time.Duration(secs) * time.Second).Round(0)
}
