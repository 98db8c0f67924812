package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"golang.org/x/sys/unix"
)

// Local combines an in-process mutex per name with an advisory flock on
// <dir>/<name>.lock, which covers other dopkg processes on the same host.
type Local struct {
	dir string

	mu    sync.Mutex
	names map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns a Local keeping its lock files in dir
func NewLocal(dir string) *Local {
	return &Local{dir: dir, names: make(map[string]*entry)}
}

// Lock implements Locker
func (l *Local) Lock(ctx context.Context, name string) (UnlockFunc, error) {
	logger := logging.GetLogger("lock").With().Str("name", name).Logger()

	e := l.acquire(name)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(name, e, false)
		return nil, errors.Cancelled(ctx.Err(), "waiting for lock")
	}

	f, err := l.flock(ctx, name)
	if err != nil {
		l.release(name, e, true)
		return nil, err
	}
	logger.Trace().Msg("lock acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
			_ = f.Close()
			l.release(name, e, true)
			logger.Trace().Msg("lock released")
		})
	}, nil
}

func (l *Local) acquire(name string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.names[name]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.names[name] = e
	}
	e.refs++
	return e
}

func (l *Local) release(name string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.names, name)
	}
}

// flock polls a non-blocking flock so that ctx can interrupt the wait
func (l *Local) flock(ctx context.Context, name string) (*os.File, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrLock, "failed to create lock directory").
			WithDetail(errors.DetailPath, l.dir)
	}
	path := filepath.Join(l.dir, name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLock, "failed to open lock file").
			WithDetail(errors.DetailPath, path)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return f, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrLock, "failed to lock").
				WithDetail(errors.DetailPath, path)
		}
		if werr := wait(ctx, pollInterval); werr != nil {
			_ = f.Close()
			return nil, werr
		}
	}
}
