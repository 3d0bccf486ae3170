package auth

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher error backoff bounds.
const (
	watchErrInitBackoff = 1 * time.Second
	watchErrMaxBackoff  = 30 * time.Second
)

// Watch adopts token files written by other processes sharing this app
// name as soon as they land, instead of on the next Validate. It watches
// the parent directory because the file is replaced by rename. Blocks until
// ctx is canceled, returning nil.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("auth: creating token watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.tokenPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("auth: watching %s: %w", dir, err)
	}

	s.logger.Debug("watching token file", slog.String("path", s.tokenPath))

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != filepath.Clean(s.tokenPath) {
				continue
			}

			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			s.onTokenFileChanged()

			errBackoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("token watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := timeSleep(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff = min(errBackoff*2, watchErrMaxBackoff)
		}
	}
}

// onTokenFileChanged adopts the file if it is newer than what is held.
func (s *Store) onTokenFileChanged() {
	if err := s.reloadIfNewer(); err != nil {
		s.logger.Warn("reloading changed token file", slog.String("error", err.Error()))
	}
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
