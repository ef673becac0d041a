package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/crosspost"
	cphttp "github.com/fwojciec/crosspost/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns the editor page html", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><meta name="csrf-token" content="abc"></head></html>`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page))
		}))
		defer server.Close()

		html, err := cphttp.NewFetcher().Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, page, html)
	})

	t.Run("sends uploader session cookies", func(t *testing.T) {
		t.Parallel()

		got := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got <- r.Header.Get("Cookie")
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer server.Close()

		uploader := cphttp.NewUploader()
		require.NoError(t, uploader.SetCookies(server.URL, "session=s1"))

		_, err := cphttp.NewFetcher(cphttp.WithJar(uploader.Jar())).Fetch(context.Background(), server.URL+"/editor")

		require.NoError(t, err)
		assert.Equal(t, "session=s1", <-got)
	})

	t.Run("truncates pages over the size cap", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer server.Close()

		html, err := cphttp.NewFetcher(cphttp.WithMaxPageSize(10)).Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Len(t, html, 10)
	})

	t.Run("times out slow pages", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		}))
		defer server.Close()

		_, err := cphttp.NewFetcher(cphttp.WithTimeout(10*time.Millisecond)).Fetch(context.Background(), server.URL)

		assert.Equal(t, crosspost.EFETCH, crosspost.ErrorCode(err))
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := cphttp.NewFetcher().Fetch(ctx, server.URL)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("non-200 status is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := cphttp.NewFetcher().Fetch(context.Background(), server.URL)

		assert.Equal(t, crosspost.EFETCH, crosspost.ErrorCode(err))
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("sends the configured user agent", func(t *testing.T) {
		t.Parallel()

		got := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got <- r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer server.Close()

		_, err := cphttp.NewFetcher(cphttp.WithUserAgent("crosspost-test")).Fetch(context.Background(), server.URL)

		require.NoError(t, err)
		assert.Equal(t, "crosspost-test", <-got)
	})
}
