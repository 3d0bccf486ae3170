package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/tdstream-go/internal/registry"
	"github.com/tonimelisma/tdstream-go/internal/tokenfile"
)

func TestCredential_DocumentRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	original := &Credential{
		ClientID:              "CONSUMERKEY",
		RedirectURI:           "https://localhost",
		AccessToken:           "access",
		RefreshToken:          "refresh",
		Scope:                 "PlaceTrades AccountAccess",
		TokenType:             "Bearer",
		ExpiresIn:             1800,
		RefreshTokenExpiresIn: 7776000,
		AccessExpiry:          now.Add(30 * time.Minute),
		RefreshExpiry:         now.Add(90 * 24 * time.Hour),
	}

	restored := CredentialFromDocument(original.Document(), "CONSUMERKEY", "https://localhost", now.Add(time.Hour))

	assert.Equal(t, original.AccessToken, restored.AccessToken)
	assert.Equal(t, original.RefreshToken, restored.RefreshToken)
	assert.Equal(t, original.Scope, restored.Scope)
	assert.True(t, original.AccessExpiry.Equal(restored.AccessExpiry))
	assert.True(t, original.RefreshExpiry.Equal(restored.RefreshExpiry))
}

func TestCredentialFromDocument_ComputesMissingExpirations(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	doc := &tokenfile.Document{
		AccessToken:           "a",
		RefreshToken:          "r",
		ExpiresIn:             1800,
		RefreshTokenExpiresIn: 7776000,
	}

	c := CredentialFromDocument(doc, "id", "uri", now)

	assert.True(t, c.AccessExpiry.Equal(now.Add(1800*time.Second)))
	assert.True(t, c.RefreshExpiry.Equal(now.Add(7776000*time.Second)))
}

func TestCredential_ExpiryHonorsSafetyMargin(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expiry  time.Time
		expired bool
	}{
		{"well before", now.Add(time.Minute), false},
		{"inside margin", now.Add(SafetyMargin - time.Second), true},
		{"exactly at margin", now.Add(SafetyMargin), false},
		{"past", now.Add(-30 * time.Second), true},
		{"unknown", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessExpiry: tt.expiry, RefreshExpiry: tt.expiry}
			assert.Equal(t, tt.expired, c.AccessExpired(now))
			assert.Equal(t, tt.expired, c.RefreshExpired(now))
		})
	}
}

func TestState_RefreshDominates(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, Authenticated, state(registry.Expiry{Access: now.Add(time.Hour), Refresh: now.Add(time.Hour)}, now))
	assert.Equal(t, AccessExpired, state(registry.Expiry{Access: now.Add(-time.Hour), Refresh: now.Add(time.Hour)}, now))
	assert.Equal(t, RefreshExpired, state(registry.Expiry{Access: now.Add(time.Hour), Refresh: now.Add(-time.Hour)}, now))
	assert.Equal(t, RefreshExpired, state(registry.Expiry{}, now))
}

func TestCredentialState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "access-expired", AccessExpired.String())
	assert.Equal(t, "refresh-expired", RefreshExpired.String())
	assert.Equal(t, "unknown", CredentialState(42).String())
}
