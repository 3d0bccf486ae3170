package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileNotFound(t *testing.T) {
	doc, err := Load("/nonexistent/path/token.json")
	assert.Nil(t, doc)
	assert.NoError(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", "td_credentials.json")

	access := time.Date(2099, 1, 1, 0, 30, 0, 0, time.UTC)
	refresh := time.Date(2099, 3, 31, 0, 0, 0, 0, time.UTC)
	original := &Document{
		AccessToken:           "access-123",
		RefreshToken:          "refresh-456",
		Scope:                 "PlaceTrades AccountAccess MoveMoney",
		ExpiresIn:             1800,
		RefreshTokenExpiresIn: 7776000,
		TokenType:             "Bearer",
		AccessExpiration:      Timestamp{access},
		RefreshExpiration:     Timestamp{refresh},
	}

	require.NoError(t, Save(path, original))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", doc.AccessToken)
	assert.Equal(t, "refresh-456", doc.RefreshToken)
	assert.Equal(t, Scope("PlaceTrades AccountAccess MoveMoney"), doc.Scope)
	assert.Equal(t, int64(1800), doc.ExpiresIn)
	assert.Equal(t, int64(7776000), doc.RefreshTokenExpiresIn)
	assert.True(t, doc.AccessExpiration.Equal(access))
	assert.True(t, doc.RefreshExpiration.Equal(refresh))
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, Save(path, &Document{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, &Document{AccessToken: "a"}))
	require.NoError(t, Save(path, &Document{AccessToken: "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.json", entries[0].Name())
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	doc, err := Load(path)
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestLoad_NoTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token_type":"Bearer"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-login required")
}

func TestLoad_LegacyFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	// Offset-less isoformat() strings and a scope list, as older clients wrote.
	legacy := `{
		"access_token": "a",
		"refresh_token": "r",
		"scope": ["PlaceTrades", "AccountAccess"],
		"expires_in": 1800,
		"refresh_token_expires_in": 7776000,
		"token_type": "Bearer",
		"refresh_token_expiration_time": "2021-07-08T17:38:07.973982",
		"access_token_expiration_time": 1617991687.5
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Scope("PlaceTrades AccountAccess"), doc.Scope)

	wantRefresh := time.Date(2021, 7, 8, 17, 38, 7, 973982000, time.Local)
	assert.True(t, doc.RefreshExpiration.Equal(wantRefresh))
	assert.Equal(t, int64(1617991687), doc.AccessExpiration.Unix())
	assert.Equal(t, 500*time.Millisecond, time.Duration(doc.AccessExpiration.Nanosecond()))
}

func TestLoad_MissingExpirations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"a","refresh_token":"r","expires_in":1800}`), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.True(t, doc.AccessExpiration.IsZero())
	assert.True(t, doc.RefreshExpiration.IsZero())
}

func TestTimestamp_ZeroEpochIsUnset(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.UnmarshalJSON([]byte(`0`)))
	assert.True(t, ts.IsZero())
}

func TestTimestamp_BadString(t *testing.T) {
	var ts Timestamp
	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, Save(path, &Document{AccessToken: "a"}))

	require.NoError(t, Remove(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second remove is a no-op.
	assert.NoError(t, Remove(path))
}
