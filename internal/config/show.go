package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration to w as annotated
// TOML-like text. The client id is masked.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)

	ew.printf("app_name      = %q\n", r.AppName)
	ew.printf("client_id     = %q\n", maskSecret(r.ClientID))
	ew.printf("redirect_uri  = %q\n", r.RedirectURI)
	ew.printf("token_path    = %q\n", r.TokenPath)
	ew.printf("token_url     = %q\n", orDefault(r.TokenURL))
	ew.printf("auth_url      = %q\n", orDefault(r.AuthURL))
	ew.printf("api_url       = %q\n", orDefault(r.APIURL))
	ew.printf("http_timeout  = %q\n", r.HTTPTimeout.String())
	ew.printf("registry      = %q\n", r.Registry)

	if r.RegistryPath != "" {
		ew.printf("registry_path = %q\n", r.RegistryPath)
	}

	ew.printf("stream_url    = %q\n", orDefault(r.StreamURL))
	ew.printf("login_timeout = %q\n", r.LoginTimeout.String())
	ew.printf("frame_timeout = %q\n", r.FrameTimeout.String())
	ew.printf("log_level     = %q\n", r.LogLevel)
	ew.printf("log_format    = %q\n", r.LogFormat)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}

	return s
}

// maskSecret keeps the last four characters.
func maskSecret(s string) string {
	const visible = 4

	if s == "" {
		return ""
	}

	if len(s) <= visible {
		return "****"
	}

	return "****" + s[len(s)-visible:]
}
