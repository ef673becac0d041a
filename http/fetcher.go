// Package http implements the network side of crosspost: fetching pages and
// images from their origin and uploading images to target endpoints.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/crosspost"
)

// DefaultFetchTimeout bounds one page request.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxPageSize caps how much of a page is read.
const DefaultMaxPageSize = 5 << 20

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36"

var _ crosspost.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves editor page HTML so upload strategies can read CSRF
// tokens embedded in it. Sharing the uploader's cookie jar lets it see the
// page as the logged-in user.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	jar       http.CookieJar
	maxSize   int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithClient uses client for requests. The client's own timeout and jar
// are kept.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithJar sends cookies from jar with page requests.
func WithJar(jar http.CookieJar) Option {
	return func(f *Fetcher) {
		f.jar = jar
	}
}

// WithMaxPageSize caps how many bytes of a page are read.
func WithMaxPageSize(n int64) Option {
	return func(f *Fetcher) {
		f.maxSize = n
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		maxSize:   DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout, Jar: f.jar}
	}

	return f
}

// Fetch returns the HTML of the page at url. A page larger than the size
// cap is truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", crosspost.Errorf(crosspost.EINVALID, "invalid URL %q", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", crosspost.Errorf(crosspost.EFETCH, "fetch %s: %s", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", crosspost.Errorf(crosspost.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		return "", crosspost.Errorf(crosspost.EFETCH, "read %s: %s", url, err)
	}

	return string(body), nil
}

// Close is a no-op; http.Client needs no cleanup.
func (f *Fetcher) Close() error {
	return nil
}
