package gemini

import (
	"context"
	"strings"

	"github.com/fwojciec/crosspost"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// TokenizerModel is the newest model the local tokenizer ships a vocabulary
// for. Its counts are close enough to budget prompts for Model.
const TokenizerModel = "gemini-2.0-flash"

var _ crosspost.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens locally, without an API call.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter creates a TokenCounter for model, or TokenizerModel when
// model is empty.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = TokenizerModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens counts the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, "user")}, nil)
	if err != nil {
		return 0, err
	}

	return int(result.TotalTokens), nil
}

// Fit drops trailing paragraphs of markdown until it counts at most max
// tokens. The first paragraph is always kept. A nil counter or a
// non-positive max returns markdown unchanged.
func Fit(ctx context.Context, counter crosspost.TokenCounter, markdown string, max int) (string, error) {
	if counter == nil || max <= 0 {
		return markdown, nil
	}

	paragraphs := strings.Split(markdown, "\n\n")
	for keep := len(paragraphs); keep > 0; {
		text := strings.Join(paragraphs[:keep], "\n\n")
		n, err := counter.CountTokens(ctx, text)
		if err != nil {
			return "", err
		}
		if n <= max || keep == 1 {
			return text, nil
		}
		// Scale the cut to the overshoot so long articles converge quickly.
		next := keep * max / n
		if next >= keep {
			next = keep - 1
		}
		if next < 1 {
			next = 1
		}
		keep = next
	}
	return "", nil
}
