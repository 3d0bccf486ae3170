package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file and validates it. Unknown keys
// are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain: defaults, config file, environment,
// CLI flags. The result has durations parsed, default paths filled in, and
// passes ValidateResolved.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.ClientID != "" {
		cfg.ClientID = env.ClientID
	}

	if env.AppName != "" {
		cfg.AppName = env.AppName
	}

	if cli.AppName != nil {
		cfg.AppName = *cli.AppName
	}

	if cli.TokenPath != nil {
		cfg.TokenPath = *cli.TokenPath
	}

	if cli.LogLevel != nil {
		cfg.LogLevel = *cli.LogLevel
	}

	// Overrides bypassed Load's validation.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved := resolve(cfg)
	resolved.ConfigPath = cfgPath

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// resolve converts a validated Config. Duration strings have already been
// checked by Validate, so parse errors cannot occur here.
func resolve(cfg *Config) *Resolved {
	r := &Resolved{
		AppName:      cfg.AppName,
		ClientID:     cfg.ClientID,
		RedirectURI:  cfg.RedirectURI,
		TokenURL:     cfg.TokenURL,
		AuthURL:      cfg.AuthURL,
		TokenPath:    expandTilde(cfg.TokenPath),
		APIURL:       cfg.APIURL,
		Registry:     cfg.Registry,
		RegistryPath: expandTilde(cfg.RegistryPath),
		StreamURL:    cfg.StreamURL,
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
	}

	r.HTTPTimeout, _ = parseDuration(cfg.HTTPTimeout)
	r.LoginTimeout, _ = parseDuration(cfg.LoginTimeout)
	r.FrameTimeout, _ = parseDuration(cfg.FrameTimeout)

	if r.TokenPath == "" {
		r.TokenPath = DefaultTokenPath(r.AppName)
	}

	if r.Registry == RegistrySQLite && r.RegistryPath == "" {
		r.RegistryPath = DefaultRegistryPath()
	}

	if r.TokenPath != "" {
		if abs, err := filepath.Abs(r.TokenPath); err == nil {
			r.TokenPath = abs
		}
	}

	return r
}
