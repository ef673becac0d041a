package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"time"

	"github.com/fwojciec/crosspost"
	"golang.org/x/net/publicsuffix"
)

// DefaultUploadTimeout bounds one upload request.
const DefaultUploadTimeout = 60 * time.Second

// DefaultCSRFHeader carries a CSRF token when the strategy names no header.
const DefaultCSRFHeader = "X-CSRF-Token"

// maxResponseSize caps how much of an upload response is read.
const maxResponseSize = 1 << 20

// csrfCookies are cookie names probed when no CSRF source is declared,
// with the header each is usually echoed in.
var csrfCookies = []struct{ cookie, header string }{
	{"csrftoken", "X-CSRFToken"},
	{"XSRF-TOKEN", "X-XSRF-TOKEN"},
	{"_csrf", DefaultCSRFHeader},
	{"csrf_token", DefaultCSRFHeader},
}

// csrfMetaNames are meta tag names probed when no CSRF source is declared.
var csrfMetaNames = []string{"csrf-token", "_csrf", "csrf_token"}

var _ crosspost.ImageUploader = (*Uploader)(nil)

// Uploader sends images to DirectUpload endpoints as multipart requests.
// It keeps a cookie jar so sessions added with SetCookies are sent with
// uploads.
type Uploader struct {
	client    *http.Client
	pages     crosspost.Fetcher
	tokens    crosspost.TokenExtractor
	timeout   time.Duration
	userAgent string
	jar       http.CookieJar
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithUploadTimeout sets the per-request timeout.
func WithUploadTimeout(d time.Duration) UploaderOption {
	return func(u *Uploader) {
		u.timeout = d
	}
}

// WithUploadClient uses client for uploads. A client without a jar gets one.
func WithUploadClient(client *http.Client) UploaderOption {
	return func(u *Uploader) {
		u.client = client
	}
}

// WithUploadJar keeps sessions in jar, so a page Fetcher built with the
// same jar sees the same cookies.
func WithUploadJar(jar http.CookieJar) UploaderOption {
	return func(u *Uploader) {
		u.jar = jar
	}
}

// WithTokenSource reads CSRF meta tokens from pages fetched with pages.
func WithTokenSource(pages crosspost.Fetcher, tokens crosspost.TokenExtractor) UploaderOption {
	return func(u *Uploader) {
		u.pages = pages
		u.tokens = tokens
	}
}

// NewUploader creates an Uploader. Without WithTokenSource, meta CSRF
// tokens are unavailable.
func NewUploader(opts ...UploaderOption) *Uploader {
	u := &Uploader{
		timeout:   DefaultUploadTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.client == nil {
		u.client = &http.Client{Timeout: u.timeout}
	}
	if u.client.Jar == nil {
		u.client.Jar = u.jar
	}
	if u.client.Jar == nil {
		u.client.Jar = NewCookieJar()
	}
	return u
}

// NewCookieJar returns an empty cookie jar that scopes cookies by public
// suffix.
func NewCookieJar() http.CookieJar {
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// Jar returns the cookie jar holding the uploader's sessions.
func (u *Uploader) Jar() http.CookieJar {
	return u.client.Jar
}

// SetCookies adds cookies from a Cookie header value ("a=1; b=2") for rawURL.
func (u *Uploader) SetCookies(rawURL, header string) error {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return crosspost.Errorf(crosspost.EINVALID, "invalid cookie URL %q", rawURL)
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return crosspost.Errorf(crosspost.EINVALID, "invalid cookie header: %s", err)
	}
	u.client.Jar.SetCookies(target, cookies)
	return nil
}

// UploadImage uploads img and returns its hosted URL. The primary endpoint
// is tried first, then each alternate endpoint in order.
func (u *Uploader) UploadImage(ctx context.Context, img *crosspost.ImageData, s *crosspost.DirectUpload) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if img == nil || len(img.Data) == 0 {
		return "", crosspost.Errorf(crosspost.EUPLOAD, "no image bytes to upload")
	}

	header, token := u.csrfToken(ctx, s)

	var lastErr error
	for _, endpoint := range append([]string{s.Endpoint}, s.AlternateEndpoints...) {
		hosted, err := u.post(ctx, endpoint, img, s, header, token)
		if err == nil {
			return hosted, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", lastErr
}

func (u *Uploader) post(ctx context.Context, endpoint string, img *crosspost.ImageData, s *crosspost.DirectUpload, csrfHeader, token string) (string, error) {
	body, contentType, err := multipartBody(img, s)
	if err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, s.UploadMethod(), endpoint, body)
	if err != nil {
		return "", crosspost.Errorf(crosspost.EINVALID, "invalid upload endpoint %q", endpoint)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if s.PageURL != "" {
		req.Header.Set("Referer", s.PageURL)
		if p, err := url.Parse(s.PageURL); err == nil && p.Host != "" {
			req.Header.Set("Origin", p.Scheme+"://"+p.Host)
		}
	}
	if token != "" {
		req.Header.Set(csrfHeader, token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", crosspost.Errorf(crosspost.EUPLOAD, "HTTP %d from %s", resp.StatusCode, endpoint)
	}

	if hosted, ok := ExtractHostedURL(respBody, s, endpoint); ok {
		return hosted, nil
	}
	// Some endpoints answer with a redirect-style Location header only.
	if loc := resp.Header.Get("Location"); loc != "" {
		if hosted, ok := absolutize(loc, endpoint); ok {
			return hosted, nil
		}
	}
	return "", crosspost.Errorf(crosspost.EUPLOAD, "no image URL in response from %s", endpoint)
}

// multipartBody builds the upload body. Form uploads add the declared
// fields; binary uploads send the file part alone.
func multipartBody(img *crosspost.ImageData, s *crosspost.DirectUpload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if s.Mode() == crosspost.ModeFormUpload {
		for k, v := range s.Fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	format := img.Format
	if format == "" {
		format = crosspost.DefaultImageFormat
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = crosspost.MIMEType(format)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, s.FileField(), "image."+extension(format)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// csrfToken resolves the CSRF header and token for s. A declared source is
// used alone; otherwise common cookie names and then common meta names are
// probed. A missing token is not an error: the upload is sent without one.
func (u *Uploader) csrfToken(ctx context.Context, s *crosspost.DirectUpload) (header, token string) {
	if s.CSRF != nil {
		header = s.CSRF.HeaderName
		if header == "" {
			header = DefaultCSRFHeader
		}
		switch s.CSRF.Source {
		case crosspost.CSRFFromCookie:
			token = u.cookie(s, s.CSRF.Name)
		case crosspost.CSRFFromMeta:
			token = u.metaToken(ctx, s.PageURL, s.CSRF.Name)
		}
		return header, token
	}

	for _, c := range csrfCookies {
		if token = u.cookie(s, c.cookie); token != "" {
			return c.header, token
		}
	}
	if s.PageURL != "" {
		if token = u.metaToken(ctx, s.PageURL, csrfMetaNames...); token != "" {
			return DefaultCSRFHeader, token
		}
	}
	return "", ""
}

// cookie returns the named cookie visible to the endpoint or the page.
func (u *Uploader) cookie(s *crosspost.DirectUpload, name string) string {
	for _, raw := range []string{s.Endpoint, s.PageURL} {
		target, err := url.Parse(raw)
		if err != nil || target.Host == "" {
			continue
		}
		for _, c := range u.client.Jar.Cookies(target) {
			if c.Name == name {
				if v, err := url.QueryUnescape(c.Value); err == nil {
					return v
				}
				return c.Value
			}
		}
	}
	return ""
}

func (u *Uploader) metaToken(ctx context.Context, pageURL string, names ...string) string {
	if u.pages == nil || u.tokens == nil || pageURL == "" {
		return ""
	}
	html, err := u.pages.Fetch(ctx, pageURL)
	if err != nil {
		return ""
	}
	token, _ := u.tokens.ExtractToken(html, names...)
	return token
}
