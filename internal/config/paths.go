package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appDirName = "tdstream"

const (
	configFileName   = "config.toml"
	tokenFileName    = "td_credentials.json"
	registryFileName = "registry.db"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/tdstream).
// On macOS, uses ~/Library/Application Support/tdstream.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName)
		}

		return filepath.Join(home, ".config", appDirName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		return filepath.Join(home, ".config", appDirName)
	}
}

// DefaultDataDir returns the platform-specific directory for tokens and
// the registry database. On Linux, respects XDG_DATA_HOME (defaults to
// ~/.local/share/tdstream). macOS collapses config and data into one
// directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName)
		}

		return filepath.Join(home, ".local", "share", appDirName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		return filepath.Join(home, ".local", "share", appDirName)
	}
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultTokenPath returns <data dir>/<app>/td_credentials.json.
func DefaultTokenPath(app string) string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, app, tokenFileName)
}

// DefaultRegistryPath returns the shared registry database path. It is not
// per app: the database is keyed by app name.
func DefaultRegistryPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, registryFileName)
}

// expandTilde replaces a leading "~/" with the home directory.
func expandTilde(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
