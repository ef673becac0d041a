package crosspost_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/fwojciec/crosspost"
	"github.com/stretchr/testify/assert"
)

func TestDirectUpload_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy *crosspost.DirectUpload
		wantErr  bool
	}{
		{
			name:     "accepts a minimal form upload",
			strategy: &crosspost.DirectUpload{Endpoint: "https://example.com/upload"},
		},
		{
			name: "accepts a binary upload with cookie csrf",
			strategy: &crosspost.DirectUpload{
				Kind:     crosspost.ModeBinaryUpload,
				Endpoint: "https://example.com/upload",
				CSRF:     &crosspost.CSRFToken{Source: crosspost.CSRFFromCookie, Name: "csrftoken"},
			},
		},
		{
			name:     "rejects a missing endpoint",
			strategy: &crosspost.DirectUpload{},
			wantErr:  true,
		},
		{
			name:     "rejects a relative endpoint",
			strategy: &crosspost.DirectUpload{Endpoint: "/upload"},
			wantErr:  true,
		},
		{
			name: "rejects an invalid alternate endpoint",
			strategy: &crosspost.DirectUpload{
				Endpoint:           "https://example.com/upload",
				AlternateEndpoints: []string{"ftp://example.com"},
			},
			wantErr: true,
		},
		{
			name:     "rejects an unknown kind",
			strategy: &crosspost.DirectUpload{Kind: crosspost.ModeDOMPasteUpload, Endpoint: "https://example.com/upload"},
			wantErr:  true,
		},
		{
			name:     "rejects an unsupported method",
			strategy: &crosspost.DirectUpload{Endpoint: "https://example.com/upload", Method: "DELETE"},
			wantErr:  true,
		},
		{
			name: "rejects csrf without a name",
			strategy: &crosspost.DirectUpload{
				Endpoint: "https://example.com/upload",
				CSRF:     &crosspost.CSRFToken{Source: crosspost.CSRFFromCookie},
			},
			wantErr: true,
		},
		{
			name: "rejects a meta csrf token without a page",
			strategy: &crosspost.DirectUpload{
				Endpoint: "https://example.com/upload",
				CSRF:     &crosspost.CSRFToken{Source: crosspost.CSRFFromMeta, Name: "csrf-token"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.strategy.Validate()
			if tt.wantErr {
				assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDirectUpload_Defaults(t *testing.T) {
	t.Parallel()

	s := &crosspost.DirectUpload{Endpoint: "https://example.com/upload", Method: "put"}

	assert.Equal(t, crosspost.ModeFormUpload, s.Mode())
	assert.Equal(t, "file", s.FileField())
	assert.Equal(t, http.MethodPut, s.UploadMethod())
}

func TestDelegatedPaste(t *testing.T) {
	t.Parallel()

	t.Run("defaults the timeout to thirty seconds", func(t *testing.T) {
		t.Parallel()

		s := &crosspost.DelegatedPaste{Config: crosspost.DOMPasteConfig{PageURL: "https://example.com/editor"}}
		assert.NoError(t, s.Validate())
		assert.Equal(t, 30*time.Second, s.PasteTimeout())
		assert.Equal(t, crosspost.ModeDOMPasteUpload, s.Mode())
	})

	t.Run("rejects a missing page URL", func(t *testing.T) {
		t.Parallel()

		s := &crosspost.DelegatedPaste{}
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(s.Validate()))
	})
}

func TestExternalURLOnly(t *testing.T) {
	t.Parallel()

	var s crosspost.UploadStrategy = crosspost.ExternalURLOnly{}
	assert.Equal(t, crosspost.ModeExternalURLOnly, s.Mode())
	assert.NoError(t, s.Validate())
}

func TestJSONPathParser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		body   string
		want   string
		wantOK bool
	}{
		{"follows object keys", "data.url", `{"data":{"url":"https://cdn.example.com/a.png"}}`, "https://cdn.example.com/a.png", true},
		{"indexes arrays", "files.0.src", `{"files":[{"src":"/a.png"}]}`, "/a.png", true},
		{"rejects out of range indexes", "files.1.src", `{"files":[{"src":"/a.png"}]}`, "", false},
		{"rejects non-string values", "data.id", `{"data":{"id":7}}`, "", false},
		{"rejects empty strings", "url", `{"url":""}`, "", false},
		{"rejects invalid JSON", "url", `<xml/>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := crosspost.JSONPathParser(tt.path)([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTarget_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a markdown target without strategy", func(t *testing.T) {
		t.Parallel()

		target := &crosspost.Target{Name: "devto", Capabilities: crosspost.Capabilities{Markdown: true}}
		assert.NoError(t, target.Validate())
		assert.Equal(t, crosspost.ModeExternalURLOnly, target.UploadStrategy().Mode())
	})

	t.Run("rejects a target with no content format", func(t *testing.T) {
		t.Parallel()

		target := &crosspost.Target{Name: "x"}
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(target.Validate()))
	})

	t.Run("rejects an invalid strategy", func(t *testing.T) {
		t.Parallel()

		target := &crosspost.Target{
			Name:         "x",
			Capabilities: crosspost.Capabilities{HTML: true},
			Strategy:     &crosspost.DirectUpload{},
		}
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(target.Validate()))
	})

	t.Run("rejects unknown serializer options", func(t *testing.T) {
		t.Parallel()

		target := &crosspost.Target{
			Name:         "x",
			Capabilities: crosspost.Capabilities{HTML: true},
			Options:      crosspost.SerializeOptions{MathMode: "svg"},
		}
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(target.Validate()))
	})
}

func TestFindTarget(t *testing.T) {
	t.Parallel()

	targets := []*crosspost.Target{{Name: "a"}, {Name: "b"}}

	got, err := crosspost.FindTarget(targets, "b")
	assert.NoError(t, err)
	assert.Equal(t, "b", got.Name)

	_, err = crosspost.FindTarget(targets, "c")
	assert.Equal(t, crosspost.ENOTFOUND, crosspost.ErrorCode(err))
}
