// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for tdstream. Values come from a
// three-layer override chain: defaults, then the config file, then the
// environment, with CLI flags applied last by the caller through
// CLIOverrides.
package config

import "time"

// Config is the top-level configuration parsed from a TOML file. All keys
// are flat; the embedded sections only group them in code.
type Config struct {
	AuthConfig
	APIConfig
	RegistryConfig
	StreamConfig
	LoggingConfig
}

// AuthConfig identifies the OAuth app and where its token is kept.
type AuthConfig struct {
	AppName     string `toml:"app_name"`
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	TokenURL    string `toml:"token_url"`
	AuthURL     string `toml:"auth_url"`
	TokenPath   string `toml:"token_path"`
}

// APIConfig controls the REST client.
type APIConfig struct {
	APIURL      string `toml:"api_url"`
	HTTPTimeout string `toml:"http_timeout"`
}

// RegistryConfig selects how refreshes are coordinated between stores that
// share an app name. "memory" covers one process; "sqlite" covers every
// process pointing at the same database file.
type RegistryConfig struct {
	Registry     string `toml:"registry"`
	RegistryPath string `toml:"registry_path"`
}

// StreamConfig controls the streaming pipeline.
type StreamConfig struct {
	StreamURL    string `toml:"stream_url"`
	LoginTimeout string `toml:"login_timeout"`
	FrameTimeout string `toml:"frame_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Registry kinds.
const (
	RegistryMemory = "memory"
	RegistrySQLite = "sqlite"
)

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit empty value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	AppName    *string // --app flag
	TokenPath  *string // --token-path flag
	LogLevel   *string // --log-level flag
}

// Resolved is the fully merged, validated configuration with durations
// parsed and paths made absolute.
type Resolved struct {
	ConfigPath string

	AppName     string
	ClientID    string
	RedirectURI string
	TokenURL    string
	AuthURL     string
	TokenPath   string

	APIURL      string
	HTTPTimeout time.Duration

	Registry     string
	RegistryPath string

	StreamURL    string
	LoginTimeout time.Duration
	FrameTimeout time.Duration

	LogLevel  string
	LogFormat string
}
