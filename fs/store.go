// Package fs writes publish artifacts to disk.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/crosspost"
	"github.com/goccy/go-yaml"
)

// File names written for each platform.
const (
	MarkdownFile = "index.md"
	HTMLFile     = "index.html"
)

// Ensure ArtifactStore implements crosspost.ArtifactStore at compile time.
var _ crosspost.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore implements crosspost.ArtifactStore with atomic update
// semantics. Each artifact is written to its own platform directory under
// baseDir/name.tmp, which replaces baseDir/name on Commit.
type ArtifactStore struct {
	baseDir string
	name    string
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(baseDir, name string) *ArtifactStore {
	return &ArtifactStore{
		baseDir: baseDir,
		name:    name,
	}
}

func (s *ArtifactStore) tempDir() string {
	return filepath.Join(s.baseDir, s.name+".tmp")
}

func (s *ArtifactStore) finalDir() string {
	return filepath.Join(s.baseDir, s.name)
}

// Save writes the artifact's Markdown, with front matter, and its HTML into
// a directory named after the platform. Saving the same platform twice
// replaces the earlier files.
func (s *ArtifactStore) Save(ctx context.Context, artifact *crosspost.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := PlatformDir(artifact.Meta.Platform)
	if err != nil {
		return err
	}
	if artifact.ContentMarkdown == "" && artifact.ContentHTML == "" {
		return crosspost.Errorf(crosspost.EINVALID, "artifact for %q has no content", artifact.Meta.Platform)
	}

	fullDir := filepath.Join(s.tempDir(), dir)
	if err := os.RemoveAll(fullDir); err != nil {
		return err
	}
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return err
	}

	if artifact.ContentMarkdown != "" {
		content, err := FormatArtifact(artifact)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(fullDir, MarkdownFile), []byte(content), 0644); err != nil {
			return err
		}
	}
	if artifact.ContentHTML != "" {
		if err := os.WriteFile(filepath.Join(fullDir, HTMLFile), []byte(artifact.ContentHTML), 0644); err != nil {
			return err
		}
	}
	return nil
}

// FormatArtifact formats the Markdown content with YAML front matter
// holding the artifact's metadata.
func FormatArtifact(artifact *crosspost.Artifact) (string, error) {
	front, err := yaml.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")
	b.WriteString(artifact.ContentMarkdown)
	if !strings.HasSuffix(artifact.ContentMarkdown, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// PlatformDir returns the directory name for platform, rejecting names
// that would escape the store.
func PlatformDir(platform string) (string, error) {
	if platform == "" {
		return "", crosspost.Errorf(crosspost.EINVALID, "artifact platform required")
	}
	if platform == "." || platform == ".." || strings.ContainsAny(platform, `/\`) || strings.ContainsRune(platform, 0) {
		return "", crosspost.Errorf(crosspost.EINVALID, "invalid platform name %q: path traversal", platform)
	}
	return platform, nil
}

// Commit replaces the final directory with everything saved so far.
func (s *ArtifactStore) Commit() error {
	if _, err := os.Stat(s.tempDir()); os.IsNotExist(err) {
		return crosspost.Errorf(crosspost.EINVALID, "nothing saved to commit")
	}

	if err := os.RemoveAll(s.finalDir()); err != nil {
		return err
	}

	return os.Rename(s.tempDir(), s.finalDir())
}

// Abort discards everything saved since the last Commit.
func (s *ArtifactStore) Abort() error {
	return os.RemoveAll(s.tempDir())
}
