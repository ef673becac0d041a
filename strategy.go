package crosspost

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// UploadMode names how a target gets images hosted.
type UploadMode string

// Upload modes.
const (
	ModeExternalURLOnly UploadMode = "externalUrlOnly"
	ModeDOMPasteUpload  UploadMode = "domPasteUpload"
	ModeBinaryUpload    UploadMode = "binaryUpload"
	ModeFormUpload      UploadMode = "formUpload"
)

// DefaultFileFieldName is the multipart field used when a strategy declares none.
const DefaultFileFieldName = "file"

// DefaultPasteTimeout bounds how long a delegated paste may take.
const DefaultPasteTimeout = 30 * time.Second

// UploadStrategy describes how, or whether, a target re-hosts images.
// Implementations are pure values: ExternalURLOnly, *DirectUpload and
// *DelegatedPaste.
type UploadStrategy interface {
	Mode() UploadMode

	// Validate returns EINVALID if the strategy is missing required fields.
	Validate() error
}

// ExternalURLOnly targets hotlink images as-is; nothing is uploaded.
type ExternalURLOnly struct{}

func (ExternalURLOnly) Mode() UploadMode { return ModeExternalURLOnly }
func (ExternalURLOnly) Validate() error  { return nil }

// CSRFSource says where a CSRF token is read from.
type CSRFSource string

// CSRF token sources.
const (
	CSRFFromCookie CSRFSource = "cookie"
	CSRFFromMeta   CSRFSource = "meta"
)

// CSRFToken declares a CSRF token to send with uploads.
type CSRFToken struct {
	Source     CSRFSource `json:"type" yaml:"type"`
	Name       string     `json:"name" yaml:"name"`
	HeaderName string     `json:"headerName" yaml:"headerName"`
}

// ResponseParser extracts the hosted URL from an upload response body.
type ResponseParser func(body []byte) (string, bool)

// DirectUpload uploads images over HTTP to a declared endpoint.
//
// Kind is ModeBinaryUpload (multipart body with the file part only) or
// ModeFormUpload (file part plus Fields). AlternateEndpoints are tried in
// order when the primary endpoint fails.
type DirectUpload struct {
	Kind               UploadMode
	Endpoint           string
	AlternateEndpoints []string
	FieldName          string
	Method             string
	Fields             map[string]string
	Headers            map[string]string

	// PageURL is a page whose HTML embeds the CSRF token for meta sources.
	PageURL string

	CSRF *CSRFToken

	// Parser is tried first when extracting the hosted URL. ResponsePath is a
	// dotted JSON path ("data.0.url") tried next.
	Parser       ResponseParser
	ResponsePath string
}

func (s *DirectUpload) Mode() UploadMode {
	if s.Kind == "" {
		return ModeFormUpload
	}
	return s.Kind
}

// Validate returns EINVALID if the strategy cannot be executed.
func (s *DirectUpload) Validate() error {
	switch s.Mode() {
	case ModeBinaryUpload, ModeFormUpload:
	default:
		return Errorf(EINVALID, "unsupported direct upload kind %q", s.Kind)
	}
	if s.Endpoint == "" {
		return Errorf(EINVALID, "upload endpoint required")
	}
	for _, ep := range append([]string{s.Endpoint}, s.AlternateEndpoints...) {
		u, err := url.Parse(ep)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return Errorf(EINVALID, "invalid upload endpoint %q", ep)
		}
	}
	switch s.UploadMethod() {
	case http.MethodPost, http.MethodPut:
	default:
		return Errorf(EINVALID, "unsupported upload method %q", s.Method)
	}
	if s.CSRF != nil {
		if s.CSRF.Name == "" {
			return Errorf(EINVALID, "csrf token name required")
		}
		switch s.CSRF.Source {
		case CSRFFromCookie:
		case CSRFFromMeta:
			if s.PageURL == "" {
				return Errorf(EINVALID, "csrf meta token requires a page URL")
			}
		default:
			return Errorf(EINVALID, "unsupported csrf source %q", s.CSRF.Source)
		}
	}
	return nil
}

// FileField returns the declared multipart field name or the default.
func (s *DirectUpload) FileField() string {
	if s.FieldName == "" {
		return DefaultFileFieldName
	}
	return s.FieldName
}

// UploadMethod returns the declared HTTP method or POST.
func (s *DirectUpload) UploadMethod() string {
	if s.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(s.Method)
}

// DOMPasteConfig configures an upload that happens inside a live editor page.
type DOMPasteConfig struct {
	PageURL        string        `json:"pageUrl" yaml:"pageUrl"`
	EditorSelector string        `json:"editorSelector" yaml:"editorSelector"`
	ResultSelector string        `json:"resultSelector" yaml:"resultSelector"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
}

// DelegatedPaste hands decoded image bytes to a PasteTarget and waits for
// the target to report the hosted URL.
type DelegatedPaste struct {
	Config DOMPasteConfig
}

func (s *DelegatedPaste) Mode() UploadMode { return ModeDOMPasteUpload }

// Validate returns EINVALID if the paste cannot be attempted.
func (s *DelegatedPaste) Validate() error {
	if s.Config.PageURL == "" {
		return Errorf(EINVALID, "paste page URL required")
	}
	if s.Config.Timeout < 0 {
		return Errorf(EINVALID, "paste timeout must not be negative")
	}
	return nil
}

// PasteTimeout returns the configured timeout or DefaultPasteTimeout.
func (s *DelegatedPaste) PasteTimeout() time.Duration {
	if s.Config.Timeout == 0 {
		return DefaultPasteTimeout
	}
	return s.Config.Timeout
}

// JSONPathParser returns a ResponseParser that follows a dotted path through
// a JSON response. Numeric segments index arrays. The value at the path must
// be a non-empty string.
func JSONPathParser(path string) ResponseParser {
	segments := strings.Split(path, ".")
	return func(body []byte) (string, bool) {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return "", false
		}
		for _, seg := range segments {
			switch node := v.(type) {
			case map[string]any:
				v = node[seg]
			case []any:
				i, err := strconv.Atoi(seg)
				if err != nil || i < 0 || i >= len(node) {
					return "", false
				}
				v = node[i]
			default:
				return "", false
			}
		}
		s, ok := v.(string)
		return s, ok && s != ""
	}
}
