package fetch

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"

	"github.com/arthur-debert/dopkg/pkg/config"
)

// Transport opens a byte stream for one URL scheme
type Transport interface {
	Open(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, u *url.URL) (io.ReadCloser, error)

// Open calls f
func (f TransportFunc) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	return f(ctx, u)
}

// permanentError marks a transport failure that retrying cannot fix, like a
// 404 or a missing local file.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the fetcher does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return stderrors.As(err, &p)
}

// DefaultTransports returns the transports for every supported scheme.
func DefaultTransports(cfg config.FetchConfig) map[string]Transport {
	httpT := NewHTTPTransport(nil)
	return map[string]Transport{
		"http":  httpT,
		"https": httpT,
		"file":  FileTransport{},
		"s3":    NewS3Transport(cfg.S3),
		"sftp":  NewSFTPTransport(cfg.SFTP),
	}
}
