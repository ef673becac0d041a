//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/crosspost/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestSummarizer_Integration_ReturnsSummary(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	require.NoError(t, err)

	summary, err := gemini.NewSummarizer(client).Summarize(ctx, "HTMX in practice",
		"HTMX is a library that allows you to access modern browser features directly from HTML.\n\nThis post walks through swapping fragments without writing JavaScript.")

	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}
