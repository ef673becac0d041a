package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/crosspost"
	cphttp "github.com/fwojciec/crosspost/http"
	"github.com/fwojciec/crosspost/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// received is what an upload handler saw.
type received struct {
	method   string
	field    string
	filename string
	mime     string
	data     []byte
	fields   map[string]string
	headers  http.Header
}

func uploadServer(t *testing.T, status int, response string, got chan<- received) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := received{method: r.Method, headers: r.Header.Clone(), fields: map[string]string{}}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				rec.fields[k] = v[0]
			}
			for name, files := range r.MultipartForm.File {
				rec.field = name
				rec.filename = files[0].Filename
				rec.mime = files[0].Header.Get("Content-Type")
				f, err := files[0].Open()
				if err == nil {
					rec.data, _ = io.ReadAll(f)
					_ = f.Close()
				}
			}
		}
		if got != nil {
			got <- rec
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func testImage() *crosspost.ImageData {
	return &crosspost.ImageData{URL: "https://x.com/a.png", Data: []byte("PNGDATA"), MIMEType: "image/png", Format: "png"}
}

func TestUploader_UploadImage(t *testing.T) {
	t.Parallel()

	t.Run("sends multipart file and returns hosted url", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"data":{"url":"https://cdn.example.com/a.png"}}`, got)
		defer server.Close()

		hosted, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{
			Kind:     crosspost.ModeFormUpload,
			Endpoint: server.URL + "/upload",
			Fields:   map[string]string{"type": "article"},
			Headers:  map[string]string{"X-Client": "crosspost"},
		})

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", hosted)
		rec := <-got
		assert.Equal(t, http.MethodPost, rec.method)
		assert.Equal(t, "file", rec.field)
		assert.Equal(t, "image.png", rec.filename)
		assert.Equal(t, "image/png", rec.mime)
		assert.Equal(t, []byte("PNGDATA"), rec.data)
		assert.Equal(t, map[string]string{"type": "article"}, rec.fields)
		assert.Equal(t, "crosspost", rec.headers.Get("X-Client"))
	})

	t.Run("binary upload sends the file part only", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, got)
		defer server.Close()

		_, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{
			Kind:      crosspost.ModeBinaryUpload,
			Endpoint:  server.URL,
			FieldName: "image",
			Method:    "put",
			Fields:    map[string]string{"ignored": "yes"},
		})

		require.NoError(t, err)
		rec := <-got
		assert.Equal(t, http.MethodPut, rec.method)
		assert.Equal(t, "image", rec.field)
		assert.Empty(t, rec.fields)
	})

	t.Run("falls back to alternate endpoints in order", func(t *testing.T) {
		t.Parallel()

		broken := uploadServer(t, http.StatusInternalServerError, `oops`, nil)
		defer broken.Close()
		empty := uploadServer(t, http.StatusOK, `{"ok":true}`, nil)
		defer empty.Close()
		good := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/alt.png"}`, nil)
		defer good.Close()

		hosted, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{
			Endpoint:           broken.URL,
			AlternateEndpoints: []string{empty.URL, good.URL},
		})

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/alt.png", hosted)
	})

	t.Run("reports the last failure when every endpoint fails", func(t *testing.T) {
		t.Parallel()

		server := uploadServer(t, http.StatusBadGateway, ``, nil)
		defer server.Close()

		_, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{Endpoint: server.URL})

		require.Error(t, err)
		assert.Equal(t, crosspost.EUPLOAD, crosspost.ErrorCode(err))
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("rejects invalid strategy", func(t *testing.T) {
		t.Parallel()

		_, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{Endpoint: "ftp://x"})

		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))
	})

	t.Run("declared cookie csrf token is sent in declared header", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, got)
		defer server.Close()

		u := cphttp.NewUploader()
		require.NoError(t, u.SetCookies(server.URL, "session=s1; my_csrf=tok%3D1"))

		_, err := u.UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{
			Endpoint: server.URL,
			CSRF:     &crosspost.CSRFToken{Source: crosspost.CSRFFromCookie, Name: "my_csrf", HeaderName: "X-My-CSRF"},
		})

		require.NoError(t, err)
		rec := <-got
		assert.Equal(t, "tok=1", rec.headers.Get("X-My-CSRF"))
		assert.Contains(t, rec.headers.Get("Cookie"), "session=s1")
	})

	t.Run("common csrf cookie is probed without a declaration", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, got)
		defer server.Close()

		u := cphttp.NewUploader()
		require.NoError(t, u.SetCookies(server.URL, "XSRF-TOKEN=abc"))

		_, err := u.UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{Endpoint: server.URL})

		require.NoError(t, err)
		assert.Equal(t, "abc", (<-got).headers.Get("X-XSRF-TOKEN"))
	})

	t.Run("meta csrf token is read from the page", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, got)
		defer server.Close()

		var fetched atomic.Value
		pages := &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) {
				fetched.Store(url)
				return `<meta name="csrf-token" content="meta-tok">`, nil
			},
		}
		tokens := &mock.TokenExtractor{
			ExtractTokenFn: func(html string, names ...string) (string, bool) {
				assert.Equal(t, []string{"csrf-token"}, names)
				return "meta-tok", true
			},
		}

		_, err := cphttp.NewUploader(cphttp.WithTokenSource(pages, tokens)).UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{
			Endpoint: server.URL,
			PageURL:  "https://editor.example.com/write",
			CSRF:     &crosspost.CSRFToken{Source: crosspost.CSRFFromMeta, Name: "csrf-token"},
		})

		require.NoError(t, err)
		rec := <-got
		assert.Equal(t, "meta-tok", rec.headers.Get(cphttp.DefaultCSRFHeader))
		assert.Equal(t, "https://editor.example.com/write", rec.headers.Get("Referer"))
		assert.Equal(t, "https://editor.example.com", rec.headers.Get("Origin"))
		assert.Equal(t, "https://editor.example.com/write", fetched.Load())
	})

	t.Run("missing token uploads without one", func(t *testing.T) {
		t.Parallel()

		got := make(chan received, 1)
		server := uploadServer(t, http.StatusOK, `{"url":"https://cdn.example.com/a.png"}`, got)
		defer server.Close()

		_, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{Endpoint: server.URL})

		require.NoError(t, err)
		assert.Empty(t, (<-got).headers.Get(cphttp.DefaultCSRFHeader))
	})

	t.Run("location header is used when the body has no url", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "/files/a.png")
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		hosted, err := cphttp.NewUploader().UploadImage(context.Background(), testImage(), &crosspost.DirectUpload{Endpoint: server.URL})

		require.NoError(t, err)
		assert.Equal(t, server.URL+"/files/a.png", hosted)
	})

	t.Run("rejects empty image", func(t *testing.T) {
		t.Parallel()

		_, err := cphttp.NewUploader().UploadImage(context.Background(), &crosspost.ImageData{}, &crosspost.DirectUpload{Endpoint: "https://x.com/up"})

		assert.Equal(t, crosspost.EUPLOAD, crosspost.ErrorCode(err))
	})
}

func TestUploader_SetCookies(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative url", func(t *testing.T) {
		t.Parallel()

		err := cphttp.NewUploader().SetCookies("/path", "a=1")

		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))
	})
}
