// Package gemini writes article summaries with Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/crosspost"
	"google.golang.org/genai"
)

// Model is the Gemini model used for summaries.
const Model = "gemini-2.5-flash"

// DefaultMaxPromptTokens bounds the article text sent for summarizing.
const DefaultMaxPromptTokens = 100_000

// Ensure Summarizer implements crosspost.Summarizer at compile time.
var _ crosspost.Summarizer = (*Summarizer)(nil)

// Summarizer implements crosspost.Summarizer using Google Gemini.
type Summarizer struct {
	client    *genai.Client
	counter   crosspost.TokenCounter
	maxTokens int
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithTokenBudget trims articles to max tokens, counted with counter,
// before they are sent.
func WithTokenBudget(counter crosspost.TokenCounter, max int) SummarizerOption {
	return func(s *Summarizer) {
		s.counter = counter
		s.maxTokens = max
	}
}

// NewSummarizer creates a new Summarizer.
func NewSummarizer(client *genai.Client, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{client: client, maxTokens: DefaultMaxPromptTokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns a short plain-text summary of the article.
func (s *Summarizer) Summarize(ctx context.Context, title, markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", crosspost.Errorf(crosspost.EINVALID, "article body required")
	}

	body, err := Fit(ctx, s.counter, markdown, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("count tokens: %w", err)
	}

	if s.client == nil {
		return "", crosspost.Errorf(crosspost.EINTERNAL, "gemini client not configured")
	}

	result, err := s.client.Models.GenerateContent(ctx, Model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildUserPrompt(title, body)}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", crosspost.Errorf(crosspost.EINTERNAL, "gemini returned nil result")
	}

	summary := strings.TrimSpace(result.Text())
	if summary == "" {
		return "", crosspost.Errorf(crosspost.EINTERNAL, "gemini returned an empty summary")
	}
	return summary, nil
}

// BuildConfig returns the GenerateContentConfig for summary requests.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.3)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You write summaries for blog post listings. Reply with one or two plain sentences in the language of the article. Do not use Markdown, quotes, or a preamble.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildUserPrompt builds the prompt holding the article.
func BuildUserPrompt(title, markdown string) string {
	var sb strings.Builder
	sb.WriteString("<article>\n")
	if title != "" {
		fmt.Fprintf(&sb, "<title>%s</title>\n", title)
	}
	fmt.Fprintf(&sb, "<content>%s</content>\n", markdown)
	sb.WriteString("</article>\n\n")
	sb.WriteString("Summarize this article.")
	return sb.String()
}
