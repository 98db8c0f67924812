package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/arthur-debert/dopkg/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Transport reads s3://bucket/key URLs from an S3-compatible object store
type S3Transport struct {
	cfg config.S3Config

	once   sync.Once
	client *minio.Client
	err    error
}

// NewS3Transport returns a transport that connects lazily on first use
func NewS3Transport(cfg config.S3Config) *S3Transport {
	return &S3Transport{cfg: cfg}
}

func (t *S3Transport) connect() (*minio.Client, error) {
	t.once.Do(func() {
		if t.cfg.Endpoint == "" {
			t.err = Permanent(fmt.Errorf("fetch.s3.endpoint is not configured"))
			return
		}
		t.client, t.err = minio.New(t.cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(t.cfg.AccessKey, t.cfg.SecretKey, ""),
			Secure: t.cfg.UseSSL,
			Region: t.cfg.Region,
		})
		if t.err != nil {
			t.err = Permanent(t.err)
		}
	})
	return t.client, t.err
}

// Open streams the object. Missing buckets, keys and access denials are
// permanent.
func (t *S3Transport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, Permanent(fmt.Errorf("s3 url %q must be s3://bucket/key", u.String()))
	}

	client, err := t.connect()
	if err != nil {
		return nil, err
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyS3(err)
	}
	// GetObject is lazy; Stat surfaces missing keys before any bytes are read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, classifyS3(err)
	}
	return obj, nil
}

func classifyS3(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return Permanent(err)
	}
	return err
}
