package wallpaper

import (
	"net/http"
	"time"
)

// UserAgentTransport wraps an http.RoundTripper and adds a User-Agent header.
type UserAgentTransport struct {
	http.RoundTripper
	UserAgent string
}

// RoundTrip executes a single HTTP transaction, adding the User-Agent header.
func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())
	clonedReq.Header.Set("User-Agent", t.UserAgent)
	return t.RoundTripper.RoundTrip(clonedReq)
}

// NewHTTPClient returns the client used for remote image fetches.
// A zero timeout leaves the deadline to the caller's context.
func NewHTTPClient(userAgent string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &UserAgentTransport{
			RoundTripper: http.DefaultTransport,
			UserAgent:    userAgent,
		},
		Timeout: timeout,
	}
}
