package crosspost

import "context"

// ArtifactMeta reports how an artifact was produced.
type ArtifactMeta struct {
	Platform string   `json:"platform" yaml:"platform"`
	Images   int      `json:"images" yaml:"images"`
	Uploaded int      `json:"uploaded" yaml:"uploaded"`
	Failed   int      `json:"failed" yaml:"failed"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Artifact is the publish-ready payload for one target. Only the content
// fields the target's capabilities ask for are filled.
type Artifact struct {
	Title           string       `json:"title" yaml:"title"`
	ContentMarkdown string       `json:"contentMarkdown,omitempty" yaml:"-"`
	ContentHTML     string       `json:"contentHtml,omitempty" yaml:"-"`
	Tags            []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Categories      []string     `json:"categories,omitempty" yaml:"categories,omitempty"`
	Summary         string       `json:"summary,omitempty" yaml:"summary,omitempty"`
	Cover           string       `json:"cover,omitempty" yaml:"cover,omitempty"`
	Meta            ArtifactMeta `json:"meta" yaml:"meta"`
}

// ArtifactStore persists artifacts with atomic semantics.
// Save writes to a temporary location; Commit makes changes permanent;
// Abort discards pending changes.
type ArtifactStore interface {
	Save(ctx context.Context, artifact *Artifact) error
	Commit() error
	Abort() error
}

// Summarizer produces a short plain-text summary of an article.
type Summarizer interface {
	Summarize(ctx context.Context, title, markdown string) (string, error)
}

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
