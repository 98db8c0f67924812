package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
)

// FileTransport reads file:// URLs from the local filesystem
type FileTransport struct{}

// Open returns the file at u.Path. A missing file is permanent.
func (FileTransport) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return f, nil
}
