package goquery_test

import (
	"testing"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageScanner_ScanImages(t *testing.T) {
	t.Parallel()

	t.Run("finds image tags in document order", func(t *testing.T) {
		t.Parallel()

		html := `<p>Intro</p>
<img src="https://x.com/a.png" alt="first" title="A">
<figure><img alt="no source"></figure>
<div><img src='/local/b.jpg'></div>`

		tags, err := goquery.NewImageScanner().ScanImages(html)

		require.NoError(t, err)
		assert.Equal(t, []crosspost.ImageTag{
			{Src: "https://x.com/a.png", Alt: "first", Title: "A"},
			{Src: "/local/b.jpg"},
		}, tags)
	})

	t.Run("finds html images inside markdown", func(t *testing.T) {
		t.Parallel()

		md := "# Title\n\nSome *text*.\n\n<img src=\"https://x.com/c.png\" width=\"300\">\n\n![md](https://x.com/d.png)\n"

		tags, err := goquery.NewImageScanner().ScanImages(md)

		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "https://x.com/c.png", tags[0].Src)
	})

	t.Run("prefers data-src over a lazy placeholder", func(t *testing.T) {
		t.Parallel()

		html := `<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" data-src="https://x.com/real.png">
<img data-src="https://x.com/only-lazy.png">
<img src="https://x.com/keep.png" data-src="https://x.com/ignored.png">`

		tags, err := goquery.NewImageScanner().ScanImages(html)

		require.NoError(t, err)
		require.Len(t, tags, 3)
		assert.Equal(t, "https://x.com/real.png", tags[0].Src)
		assert.Equal(t, "https://x.com/only-lazy.png", tags[1].Src)
		assert.Equal(t, "https://x.com/keep.png", tags[2].Src)
	})

	t.Run("returns nothing for html without images", func(t *testing.T) {
		t.Parallel()

		tags, err := goquery.NewImageScanner().ScanImages("<p>no images</p>")

		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}

func TestTokenExtractor_ExtractToken(t *testing.T) {
	t.Parallel()

	html := `<html><head>
<meta name="viewport" content="width=device-width">
<meta name="_csrf" content="underscore-token">
<meta name="csrf-token" content="dash-token">
</head><body>
<form><input type="hidden" name="authenticity_token" value="form-token"></form>
</body></html>`

	t.Run("tries names in order", func(t *testing.T) {
		t.Parallel()

		token, ok := goquery.NewTokenExtractor().ExtractToken(html, "csrf-token", "_csrf")

		assert.True(t, ok)
		assert.Equal(t, "dash-token", token)
	})

	t.Run("falls through missing names", func(t *testing.T) {
		t.Parallel()

		token, ok := goquery.NewTokenExtractor().ExtractToken(html, "csrf_token", "_csrf")

		assert.True(t, ok)
		assert.Equal(t, "underscore-token", token)
	})

	t.Run("accepts hidden form inputs", func(t *testing.T) {
		t.Parallel()

		token, ok := goquery.NewTokenExtractor().ExtractToken(html, "authenticity_token")

		assert.True(t, ok)
		assert.Equal(t, "form-token", token)
	})

	t.Run("reports missing token", func(t *testing.T) {
		t.Parallel()

		token, ok := goquery.NewTokenExtractor().ExtractToken(html, "xsrf")

		assert.False(t, ok)
		assert.Empty(t, token)
	})
}
