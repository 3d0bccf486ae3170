// Package registry coordinates token refreshes between every credential
// store that shares an app name. A Registry holds one lock and one expiry
// pair per app name; stores acquire the lock before touching the network so
// that a single-use refresh token or authorization code is spent at most once.
//
// Two implementations are provided: Memory for goroutines inside one process,
// and SQLite for several processes sharing a database file.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld is returned by Release when the caller does not hold the lock.
var ErrNotHeld = errors.New("registry: lock not held")

// Expiry is the shared pair of absolute expiration times for an app name.
// The zero value means "unknown", which callers treat as expired.
type Expiry struct {
	Access  time.Time
	Refresh time.Time
}

// Registry is the process-wide (or machine-wide) view of an app name.
// Acquire blocks until the lock is held or ctx is done. Release must be
// called exactly once per successful Acquire.
type Registry interface {
	Acquire(ctx context.Context, app string) error
	Release(ctx context.Context, app string) error
	State(ctx context.Context, app string) (Expiry, error)
	SetState(ctx context.Context, app string, exp Expiry) error
}
