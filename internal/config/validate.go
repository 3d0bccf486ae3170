package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Validation range constants.
const (
	minHTTPTimeout  = 1 * time.Second
	minLoginTimeout = 1 * time.Second
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
	validRegistries = []string{RegistryMemory, RegistrySQLite}
)

// Validate checks all configuration values and returns every error found,
// so users can fix the whole file in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.AuthConfig)...)
	errs = append(errs, validateAPI(&cfg.APIConfig)...)
	errs = append(errs, validateRegistry(&cfg.RegistryConfig)...)
	errs = append(errs, validateStream(&cfg.StreamConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense after every
// override layer has been applied.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if r.TokenPath == "" {
		errs = append(errs, errors.New("token_path: could not determine a default, set it explicitly"))
	} else if !filepath.IsAbs(r.TokenPath) {
		errs = append(errs, fmt.Errorf("token_path: must be absolute, got %q", r.TokenPath))
	}

	if r.Registry == RegistrySQLite && r.RegistryPath == "" {
		errs = append(errs, errors.New("registry_path: could not determine a default, set it explicitly"))
	}

	return errors.Join(errs...)
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if strings.TrimSpace(a.AppName) == "" {
		errs = append(errs, errors.New("app_name: must not be empty"))
	} else if strings.ContainsAny(a.AppName, `/\`) {
		errs = append(errs, fmt.Errorf("app_name: must not contain path separators, got %q", a.AppName))
	}

	errs = appendURLError(errs, "redirect_uri", a.RedirectURI)
	errs = appendURLError(errs, "token_url", a.TokenURL)
	errs = appendURLError(errs, "auth_url", a.AuthURL)

	return errs
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	errs = appendURLError(errs, "api_url", a.APIURL)

	if err := validateDurationMin("http_timeout", a.HTTPTimeout, minHTTPTimeout); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateRegistry(r *RegistryConfig) []error {
	if err := validateEnum("registry", r.Registry, validRegistries); err != nil {
		return []error{err}
	}

	return nil
}

func validateStream(s *StreamConfig) []error {
	var errs []error

	if s.StreamURL != "" {
		u, err := url.Parse(s.StreamURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("stream_url: must be a ws:// or wss:// URL, got %q", s.StreamURL))
		}
	}

	if err := validateDurationMin("login_timeout", s.LoginTimeout, minLoginTimeout); err != nil {
		errs = append(errs, err)
	}

	// frame_timeout may be 0 (wait forever).
	if _, err := parseDuration(s.FrameTimeout); err != nil {
		errs = append(errs, fmt.Errorf("frame_timeout: %w", err))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if err := validateEnum("log_level", l.LogLevel, validLogLevels); err != nil {
		errs = append(errs, err)
	}

	if err := validateEnum("log_format", l.LogFormat, validLogFormats); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func appendURLError(errs []error, key, value string) []error {
	if value == "" {
		return errs
	}

	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return append(errs, fmt.Errorf("%s: must be an http(s) URL, got %q", key, value))
	}

	return errs
}

func validateEnum(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return fmt.Errorf("%s: must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func validateDurationMin(key, value string, minimum time.Duration) error {
	d, err := parseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be at least %s, got %s", key, minimum, d)
	}

	return nil
}

// parseDuration accepts Go duration strings plus a bare "0".
func parseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}

	return d, nil
}
