// Package tokenfile reads and writes the persisted OAuth token document. It
// is a leaf package: auth/ owns the credential semantics, this package only
// owns the on-disk format and the atomic write.
package tokenfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// Document is the on-disk token format. It mirrors the broker's token
// endpoint response plus the two absolute expiration times computed when
// the response was received.
type Document struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	Scope                 Scope     `json:"scope"`
	ExpiresIn             int64     `json:"expires_in"`
	RefreshTokenExpiresIn int64     `json:"refresh_token_expires_in"`
	TokenType             string    `json:"token_type"`
	RefreshExpiration     Timestamp `json:"refresh_token_expiration_time"`
	AccessExpiration      Timestamp `json:"access_token_expiration_time"`
}

// Scope is a space-separated scope string. Older files stored it as a JSON
// list, which is accepted and joined on read.
type Scope string

// UnmarshalJSON accepts either a string or a list of strings.
func (s *Scope) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scope(str)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tokenfile: scope is neither string nor list: %w", err)
	}

	*s = Scope(strings.Join(list, " "))

	return nil
}

// Timestamp is an absolute expiration time. It is written as ISO-8601 and
// read from ISO-8601 (with or without offset), epoch seconds, or absent.
// The zero Timestamp means "not recorded".
type Timestamp struct {
	time.Time
}

// isoLayouts are tried in order when reading a string timestamp. The two
// offset-less layouts are interpreted in local time.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// MarshalJSON writes RFC 3339 with nanoseconds, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON reads an ISO-8601 string, an epoch number, or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return t.parseString(str)
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("tokenfile: timestamp %s is neither string nor number", data)
	}

	// 0 is what older writers stored for "unknown".
	if secs == 0 {
		t.Time = time.Time{}
		return nil
	}

	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(frac*float64(time.Second)))

	return nil
}

func (t *Timestamp) parseString(str string) error {
	if str == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range isoLayouts {
		parsed, err := time.ParseInLocation(layout, str, time.Local)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("tokenfile: unrecognized timestamp %q", str)
}

// Load reads a saved token document. Returns (nil, nil) if the file does
// not exist.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if doc.AccessToken == "" && doc.RefreshToken == "" {
		return nil, fmt.Errorf("tokenfile: %s has no tokens (re-login required)", path)
	}

	return &doc, nil
}

// Save writes a token document atomically (write-to-temp + rename) with
// 0600 permissions. Never logs token values.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// Flush before rename so a power loss cannot leave a partial token file
	// at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the token file. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}
