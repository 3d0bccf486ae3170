package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tonimelisma/tdstream-go/internal/auth"
	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

// statusf writes an informational message to w unless --quiet is set.
func statusf(w io.Writer, format string, args ...any) {
	if flagQuiet {
		return
	}

	fmt.Fprintf(w, format, args...)
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

// formatRemaining renders the time left until t, or "expired" once past.
func formatRemaining(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := t.Sub(now)
	if d <= 0 {
		return "expired"
	}

	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	if days > 0 {
		return fmt.Sprintf("%dd%s", days, (d - days*24*time.Hour).String())
	}

	return d.String()
}

// friendlyError adds a hint for the errors a user can act on.
func friendlyError(err error) error {
	var reqErr *tdapi.RequestError

	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		return fmt.Errorf("%w (run 'tdstream login')", err)
	case errors.Is(err, auth.ErrAuthExpired):
		return fmt.Errorf("%w (run 'tdstream login' again)", err)
	case errors.As(err, &reqErr) && errors.Is(err, tdapi.ErrUnauthorized):
		return fmt.Errorf("%w (token rejected, try 'tdstream login')", err)
	default:
		return err
	}
}
