package mock

import (
	"context"

	"github.com/fwojciec/crosspost"
)

var _ crosspost.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is a mock implementation of crosspost.ArtifactStore.
type ArtifactStore struct {
	SaveFn   func(ctx context.Context, artifact *crosspost.Artifact) error
	CommitFn func() error
	AbortFn  func() error
}

func (s *ArtifactStore) Save(ctx context.Context, artifact *crosspost.Artifact) error {
	return s.SaveFn(ctx, artifact)
}

func (s *ArtifactStore) Commit() error {
	return s.CommitFn()
}

func (s *ArtifactStore) Abort() error {
	return s.AbortFn()
}

var _ crosspost.Summarizer = (*Summarizer)(nil)

// Summarizer is a mock implementation of crosspost.Summarizer.
type Summarizer struct {
	SummarizeFn func(ctx context.Context, title, markdown string) (string, error)
}

func (s *Summarizer) Summarize(ctx context.Context, title, markdown string) (string, error) {
	return s.SummarizeFn(ctx, title, markdown)
}

var _ crosspost.TokenCounter = (*TokenCounter)(nil)

// TokenCounter is a mock implementation of crosspost.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (c *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return c.CountTokensFn(ctx, text)
}
