// Package lock serializes commits of the same package name, in process and
// across processes sharing a store.
package lock

import (
	"context"
	"time"

	"github.com/arthur-debert/dopkg/pkg/config"
	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/paths"
)

// UnlockFunc releases a lock. Calling it more than once is harmless.
type UnlockFunc func()

// Locker hands out exclusive per-name locks. Lock blocks until the lock is
// held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, name string) (UnlockFunc, error)
}

// New returns the Locker selected by cfg
func New(cfg config.LockConfig, layout paths.Paths) (Locker, error) {
	switch cfg.Backend {
	case config.LockBackendRedis:
		return NewRedis(cfg.RedisURL, cfg.TTL)
	case config.LockBackendLocal, "":
		return NewLocal(layout.LocksDir()), nil
	default:
		return nil, errors.Newf(errors.ErrConfigValid, "unknown lock backend %q", cfg.Backend)
	}
}

const pollInterval = 50 * time.Millisecond

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Cancelled(ctx.Err(), "waiting for lock")
	case <-t.C:
		return nil
	}
}
