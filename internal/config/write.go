package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions is owner-only: the file may hold the client id.
const configFilePermissions = 0o600

// configDirPermissions is the permission mode for config directories.
const configDirPermissions = 0o700

// ErrConfigExists is returned by WriteTemplate when the file is present.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate lists every key as a commented-out default so users can
// discover each option without reading docs.
const configTemplate = `# tdstream configuration

# OAuth app registration. client_id may instead come from TDSTREAM_CLIENT_ID.
# app_name = "tdstream"
# client_id = ""
# redirect_uri = "https://localhost"

# Token file (default: <data dir>/<app_name>/td_credentials.json)
# token_path = ""

# Refresh coordination between processes: "sqlite" or "memory"
# registry = "sqlite"
# registry_path = ""

# Endpoint overrides, mostly for testing
# token_url = ""
# auth_url = ""
# api_url = ""
# stream_url = ""

# http_timeout = "30s"
# login_timeout = "10s"
# frame_timeout = "0"

# Log verbosity: debug, info, warn, error. Format: auto, text, json
# log_level = "info"
# log_format = "auto"
`

// WriteTemplate creates a commented config file at path. It never
// overwrites an existing file. The write is atomic (temp file + rename).
func WriteTemplate(path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := atomicWriteFile(path, []byte(configTemplate)); err != nil {
		return err
	}

	logger.Info("wrote config template", slog.String("path", path))

	return nil
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it into place, so readers never see a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}

	tmpPath := tmp.Name()
	success := false

	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp config file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp config file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}

	if err := os.Chmod(tmpPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting config file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming config file: %w", err)
	}

	success = true

	return nil
}
