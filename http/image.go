package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/crosspost"
)

// DefaultMaxImageSize caps downloaded image bodies.
const DefaultMaxImageSize = 20 << 20

// NeutralReferrer is tried after the image's own origin.
const NeutralReferrer = "https://www.google.com/"

// KnownReferrers maps anti-hotlinking image hosts to the site whose pages
// embed them. Keys match the host or any of its subdomains.
var KnownReferrers = map[string]string{
	"sinaimg.cn":    "https://weibo.com/",
	"mmbiz.qpic.cn": "https://mp.weixin.qq.com/",
	"zhimg.com":     "https://www.zhihu.com/",
	"csdnimg.cn":    "https://blog.csdn.net/",
	"jianshu.io":    "https://www.jianshu.com/",
	"hdslb.com":     "https://www.bilibili.com/",
	"byteimg.com":   "https://juejin.cn/",
}

var _ crosspost.ImageFetcher = (*ImageFetcher)(nil)

// ImageFetcher downloads images from their origin. Hosts that reject
// hotlinking are retried with a sequence of Referer headers: the host's
// known site, the image's origin, a neutral search engine, and none.
// Only 401 and 403 responses move on to the next referrer.
type ImageFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxSize   int64
	referrers map[string]string
}

// ImageOption configures an ImageFetcher.
type ImageOption func(*ImageFetcher)

// WithImageTimeout sets the per-request timeout.
func WithImageTimeout(d time.Duration) ImageOption {
	return func(f *ImageFetcher) {
		f.timeout = d
	}
}

// WithImageClient uses client for downloads.
func WithImageClient(client *http.Client) ImageOption {
	return func(f *ImageFetcher) {
		f.client = client
	}
}

// WithMaxImageSize caps the accepted body size in bytes.
func WithMaxImageSize(n int64) ImageOption {
	return func(f *ImageFetcher) {
		f.maxSize = n
	}
}

// WithReferrers replaces the known host to referrer table.
func WithReferrers(m map[string]string) ImageOption {
	return func(f *ImageFetcher) {
		f.referrers = m
	}
}

// NewImageFetcher creates an ImageFetcher.
func NewImageFetcher(opts ...ImageOption) *ImageFetcher {
	f := &ImageFetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		maxSize:   DefaultMaxImageSize,
		referrers: KnownReferrers,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// FetchImage downloads rawURL, walking the referrer chain on 401/403.
func (f *ImageFetcher) FetchImage(ctx context.Context, rawURL string) (*crosspost.ImageData, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, crosspost.Errorf(crosspost.EFETCH, "not a remote image URL: %q", rawURL)
	}

	var lastStatus int
	for _, ref := range f.ReferrerChain(u) {
		img, status, err := f.get(ctx, rawURL, ref)
		if err != nil {
			return nil, err
		}
		if img != nil {
			return img, nil
		}
		lastStatus = status
	}
	return nil, crosspost.Errorf(crosspost.EFETCH, "HTTP %d for %s with every referrer", lastStatus, rawURL)
}

// ReferrerChain returns the Referer values tried for u, in order. The last
// entry is empty, meaning no Referer header.
func (f *ImageFetcher) ReferrerChain(u *url.URL) []string {
	var chain []string
	seen := map[string]bool{}
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			chain = append(chain, ref)
		}
	}

	// The most specific suffix wins.
	host := strings.ToLower(u.Hostname())
	var best string
	for suffix := range f.referrers {
		if (host == suffix || strings.HasSuffix(host, "."+suffix)) && len(suffix) > len(best) {
			best = suffix
		}
	}
	if best != "" {
		add(f.referrers[best])
	}
	add(u.Scheme + "://" + u.Host + "/")
	add(NeutralReferrer)
	add("")
	return chain
}

// get performs one attempt. A nil image with a nil error means the server
// refused this referrer and status holds the response code.
func (f *ImageFetcher) get(ctx context.Context, rawURL, referrer string) (*crosspost.ImageData, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, crosspost.Errorf(crosspost.EFETCH, "invalid image URL %q", rawURL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("fetch image %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, resp.StatusCode, crosspost.Errorf(crosspost.EFETCH, "HTTP %d for %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("read image %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, 0, crosspost.Errorf(crosspost.EFETCH, "image %s exceeds %d bytes", rawURL, f.maxSize)
	}
	if len(data) == 0 {
		return nil, 0, crosspost.Errorf(crosspost.EFETCH, "empty image body for %s", rawURL)
	}

	return &crosspost.ImageData{
		URL:      rawURL,
		Data:     data,
		MIMEType: resp.Header.Get("Content-Type"),
	}, resp.StatusCode, nil
}
