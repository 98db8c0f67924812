package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/hashutil"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/google/renameio"
	"golang.org/x/sync/singleflight"
)

// Fetcher returns the local path of a verified source archive
type Fetcher interface {
	Fetch(ctx context.Context, src types.Source) (string, error)
}

// Options configure a Cache
type Options struct {
	// Dir is the downloads root of the cache
	Dir string

	// Retries is how many times a transport fault is retried
	Retries int

	// Backoff is the delay before the first retry; it doubles each time
	Backoff time.Duration

	// Timeout bounds one download attempt; zero means no limit
	Timeout time.Duration

	// Transports maps URL schemes to transports
	Transports map[string]Transport
}

// Cache is the content-addressed download cache and the default Fetcher
type Cache struct {
	opts  Options
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller waiting on one download. It
// is cancelled only once all of them have given up.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a Cache
func New(opts Options) *Cache {
	if opts.Transports == nil {
		opts.Transports = map[string]Transport{"file": FileTransport{}}
	}
	return &Cache{opts: opts}
}

// Path returns where a verified archive for src lives in the cache.
func (c *Cache) Path(src types.Source) string {
	return filepath.Join(c.opts.Dir, string(src.Algorithm), hashutil.Normalize(src.Hash), basename(src.URL))
}

func basename(rawURL string) string {
	name := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if b := path.Base(u.Path); b != "." && b != "/" && b != "" {
			name = b
		}
	}
	return name
}

// Fetch returns the cached archive for src, downloading it first when the
// cache has no valid entry.
func (c *Cache) Fetch(ctx context.Context, src types.Source) (string, error) {
	if !src.Algorithm.Valid() {
		return "", errors.Newf(errors.ErrInvalidInput, "unsupported hash algorithm %q", src.Algorithm)
	}
	if !hashutil.ValidDigest(src.Algorithm, src.Hash) {
		return "", errors.Newf(errors.ErrInvalidInput, "malformed %s digest %q", src.Algorithm, src.Hash)
	}
	if err := errors.FromContext(ctx, "fetch cancelled"); err != nil {
		return "", err
	}

	key := string(src.Algorithm) + ":" + hashutil.Normalize(src.Hash) + " " + src.URL
	for {
		path, err := c.await(ctx, key, src)
		// Joining a download that every earlier caller abandoned yields
		// their cancellation; start over while this caller is still live.
		if err != nil && errors.IsCancellation(err) && ctx.Err() == nil {
			continue
		}
		return path, err
	}
}

func (c *Cache) await(ctx context.Context, key string, src types.Source) (string, error) {
	fl := c.join(ctx, key)
	defer c.leave(key, fl)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(fl.ctx, src)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", errors.Cancelled(ctx.Err(), "fetch cancelled")
	}
}

func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flights == nil {
		c.flights = make(map[string]*flight)
	}
	fl, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = fl
	}
	fl.waiters++
	return fl
}

func (c *Cache) leave(key string, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl.waiters--
	if fl.waiters == 0 {
		fl.cancel()
		if c.flights[key] == fl {
			delete(c.flights, key)
		}
	}
}

func (c *Cache) fetch(ctx context.Context, src types.Source) (string, error) {
	logger := logging.GetLogger("fetch").With().Str("url", src.URL).Logger()
	dest := c.Path(src)

	if _, err := os.Stat(dest); err == nil {
		actual, err := hashutil.CalculateFileChecksum(dest, src.Algorithm)
		if err == nil && hashutil.Equal(src.Hash, actual) {
			logger.Debug().Str("path", dest).Msg("cache hit")
			return dest, nil
		}
		logger.Warn().Str("path", dest).Msg("cached archive no longer verifies, fetching again")
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, errors.ErrCache, "failed to discard stale cache entry %s", dest)
		}
	}

	u, err := url.Parse(src.URL)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "invalid url %q", src.URL)
	}
	transport, ok := c.opts.Transports[strings.ToLower(u.Scheme)]
	if !ok {
		return "", errors.Newf(errors.ErrInvalidInput, "unsupported url scheme %q", u.Scheme).
			WithDetail(errors.DetailURL, src.URL)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Wrapf(err, errors.ErrCache, "failed to create cache directory for %s", dest)
	}

	done := logging.LogOperationStart(logger, "download")
	defer done()

	backoff := c.opts.Backoff
	for attempt := 0; ; attempt++ {
		err = c.download(ctx, transport, u, src, dest)
		if err == nil {
			return dest, nil
		}
		if !retryable(ctx, err) || attempt >= c.opts.Retries {
			return "", err
		}

		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("download failed, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", errors.Cancelled(ctx.Err(), "fetch cancelled")
		}
		backoff *= 2
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.IsErrorCode(err, errors.ErrNetwork) && !IsPermanent(err)
}

// download streams one attempt into a pending file next to dest and
// publishes it only when the digest matches.
func (c *Cache) download(parent context.Context, transport Transport, u *url.URL, src types.Source, dest string) error {
	ctx := parent
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	body, err := transport.Open(ctx, u)
	if err != nil {
		return transportError(parent, err, src.URL)
	}
	defer func() { _ = body.Close() }()

	pending, err := renameio.TempFile(filepath.Dir(dest), dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCache, "failed to create temporary download for %s", dest)
	}
	defer func() { _ = pending.Cleanup() }()

	h, err := hashutil.New(src.Algorithm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.MultiWriter(pending, h), body); err != nil {
		return transportError(parent, err, src.URL)
	}

	actual := hashutil.Encode(h)
	if !hashutil.Equal(src.Hash, actual) {
		return errors.HashMismatch(src.URL, string(src.Algorithm), hashutil.Normalize(src.Hash), actual)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, errors.ErrCache, "failed to publish %s", dest)
	}
	return nil
}

// transportError classifies a failed open or read. Only the caller's context
// counts as cancellation; an expired per-attempt timeout is a network fault.
func transportError(ctx context.Context, err error, rawURL string) error {
	if ctx.Err() != nil {
		return errors.Cancelled(ctx.Err(), "fetch cancelled")
	}
	return errors.Network(err, rawURL)
}
