package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Lock polling and lease constants.
const (
	defaultLeaseTTL  = 2 * time.Minute
	pollBaseInterval = 10 * time.Millisecond
	pollMaxInterval  = 500 * time.Millisecond
)

const (
	sqlEnsureApp = `INSERT INTO app_registry (app_name) VALUES (?)
		ON CONFLICT(app_name) DO NOTHING`

	sqlTryLock = `UPDATE app_registry
		SET lock_owner = ?, lock_expires_at = ?
		WHERE app_name = ?
		  AND (lock_owner = '' OR lock_owner = ? OR lock_expires_at < ?)`

	sqlRenewLock = `UPDATE app_registry
		SET lock_expires_at = ?
		WHERE app_name = ? AND lock_owner = ?`

	sqlUnlock = `UPDATE app_registry
		SET lock_owner = '', lock_expires_at = 0
		WHERE app_name = ? AND lock_owner = ?`

	sqlLoadExpiry = `SELECT access_expiry, refresh_expiry
		FROM app_registry WHERE app_name = ?`

	sqlUpsertExpiry = `INSERT INTO app_registry (app_name, access_expiry, refresh_expiry)
		VALUES (?, ?, ?)
		ON CONFLICT(app_name) DO UPDATE SET
		 access_expiry = excluded.access_expiry,
		 refresh_expiry = excluded.refresh_expiry`
)

var errLockBusy = errors.New("registry: lock held by another owner")

// SQLite is a Registry backed by a SQLite file so that several processes
// using the same app name serialize their refreshes. Inside one process a
// per-app semaphore serializes goroutines before the database lease is
// taken, since all goroutines share the same owner id.
//
// While held, a lease is extended every third of its TTL, so a holder
// stuck in a long interactive authorization keeps it. A lease that stops
// being renewed (crashed holder) is taken over by the next caller once
// the TTL runs out.
type SQLite struct {
	db       *sql.DB
	owner    string
	leaseTTL time.Duration
	logger   *slog.Logger
	nowFunc  func() time.Time

	local *Memory

	mu      sync.Mutex
	renewal map[string]*leaseRenewal
}

// leaseRenewal is the keep-alive goroutine of one held lease.
type leaseRenewal struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenSQLite opens (creating if needed) the registry database at dbPath and
// applies migrations.
func OpenSQLite(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	r := &SQLite{
		db:       db,
		owner:    uuid.NewString(),
		leaseTTL: defaultLeaseTTL,
		logger:   logger,
		nowFunc:  time.Now,
		local:    NewMemory(),
		renewal:  make(map[string]*leaseRenewal),
	}

	logger.Info("registry opened",
		slog.String("db_path", dbPath),
		slog.String("owner", r.owner),
	)

	return r, nil
}

// Close stops every lease renewal and releases the database handle.
// Leases still held then expire after their TTL.
func (r *SQLite) Close() error {
	r.mu.Lock()
	apps := make([]string, 0, len(r.renewal))
	for app := range r.renewal {
		apps = append(apps, app)
	}
	r.mu.Unlock()

	for _, app := range apps {
		r.stopRenewal(app)
	}

	return r.db.Close()
}

// Acquire takes the in-process lock, then polls the database lease with
// capped exponential backoff until it is free or ctx is done.
func (r *SQLite) Acquire(ctx context.Context, app string) error {
	if err := r.local.Acquire(ctx, app); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, sqlEnsureApp, app); err != nil {
		_ = r.local.Release(ctx, app)
		return fmt.Errorf("registry: registering %s: %w", app, err)
	}

	backoff := retry.WithCappedDuration(pollMaxInterval, retry.NewExponential(pollBaseInterval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		now := r.nowFunc()

		res, err := r.db.ExecContext(ctx, sqlTryLock,
			r.owner, now.Add(r.leaseTTL).UnixNano(), app, r.owner, now.UnixNano())
		if err != nil {
			return fmt.Errorf("registry: locking %s: %w", app, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("registry: locking %s: %w", app, err)
		}

		if n == 0 {
			return retry.RetryableError(errLockBusy)
		}

		return nil
	})
	if err != nil {
		_ = r.local.Release(context.Background(), app)
		return fmt.Errorf("registry: acquiring %s: %w", app, err)
	}

	r.startRenewal(app)

	r.logger.Debug("registry lock acquired", slog.String("app", app))

	return nil
}

// startRenewal keeps app's lease alive until stopRenewal.
func (r *SQLite) startRenewal(app string) {
	ctx, cancel := context.WithCancel(context.Background())
	lr := &leaseRenewal{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.renewal[app] = lr
	r.mu.Unlock()

	go r.renewLease(ctx, app, lr.done)
}

func (r *SQLite) stopRenewal(app string) {
	r.mu.Lock()
	lr := r.renewal[app]
	delete(r.renewal, app)
	r.mu.Unlock()

	if lr == nil {
		return
	}

	lr.cancel()
	<-lr.done
}

// renewLease pushes the lease expiry forward every leaseTTL/3. It stops on
// cancel, or when the row shows another owner: the lease was lost and
// Release will report ErrNotHeld.
func (r *SQLite) renewLease(ctx context.Context, app string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.leaseTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := r.db.ExecContext(ctx, sqlRenewLock,
			r.nowFunc().Add(r.leaseTTL).UnixNano(), app, r.owner)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			r.logger.Warn("registry lease renewal failed",
				slog.String("app", app),
				slog.String("error", err.Error()),
			)

			continue
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			r.logger.Warn("registry lease lost to another owner", slog.String("app", app))
			return
		}
	}
}

// Release stops the lease renewal, then drops the database lease and the
// in-process lock.
func (r *SQLite) Release(ctx context.Context, app string) error {
	r.stopRenewal(app)

	res, err := r.db.ExecContext(ctx, sqlUnlock, app, r.owner)
	if err != nil {
		_ = r.local.Release(ctx, app)
		return fmt.Errorf("registry: unlocking %s: %w", app, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		_ = r.local.Release(ctx, app)
		return fmt.Errorf("registry: unlocking %s: %w", app, err)
	}

	if localErr := r.local.Release(ctx, app); localErr != nil {
		return localErr
	}

	if n == 0 {
		return ErrNotHeld
	}

	r.logger.Debug("registry lock released", slog.String("app", app))

	return nil
}

// State reads the shared expiry pair. Unknown apps return the zero Expiry.
func (r *SQLite) State(ctx context.Context, app string) (Expiry, error) {
	var access, refresh int64

	err := r.db.QueryRowContext(ctx, sqlLoadExpiry, app).Scan(&access, &refresh)
	if errors.Is(err, sql.ErrNoRows) {
		return Expiry{}, nil
	}

	if err != nil {
		return Expiry{}, fmt.Errorf("registry: reading %s: %w", app, err)
	}

	return Expiry{Access: fromNanos(access), Refresh: fromNanos(refresh)}, nil
}

// SetState writes the shared expiry pair.
func (r *SQLite) SetState(ctx context.Context, app string, exp Expiry) error {
	if _, err := r.db.ExecContext(ctx, sqlUpsertExpiry,
		app, toNanos(exp.Access), toNanos(exp.Refresh)); err != nil {
		return fmt.Errorf("registry: writing %s: %w", app, err)
	}

	return nil
}

// toNanos maps the zero time to 0 so "unknown" round-trips.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n)
}

var (
	_ Registry = (*SQLite)(nil)
	_ Registry = (*Memory)(nil)
)
