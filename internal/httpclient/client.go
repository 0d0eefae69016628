// Package httpclient provides the shared outbound HTTP plumbing: client
// constructors, one retry/backoff policy used by every wire client and the
// attachment processor, and a per-domain politeness limiter.
package httpclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewCookieJarClient creates an HTTP client that keeps session cookies across
// requests. The exchanges hand out session and anti-bot cookies that must be
// replayed on subsequent calls.
func NewCookieJarClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}, nil
}
