package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// UserAgent is sent with every HTTP request
var UserAgent = "dopkg"

// HTTPTransport downloads http and https URLs
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a transport using client, or a client with
// sensible dial and TLS timeouts when client is nil. The overall request
// deadline comes from the context.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Transport: newHTTPRoundTripper()}
	}
	return &HTTPTransport{client: client}
}

func newHTTPRoundTripper() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Open issues a GET and returns the body. Server errors and 429 are
// retryable; any other non-200 status is permanent.
func (t *HTTPTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}

	_ = resp.Body.Close()
	statusErr := fmt.Errorf("unexpected status %s", resp.Status)
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, statusErr
	}
	return nil, Permanent(statusErr)
}
