package yaml

import (
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/fwojciec/crosspost"
	goyaml "github.com/goccy/go-yaml"
)

// frontMatterFormat is "---" delimited YAML decoded with go-yaml.
var frontMatterFormat = frontmatter.NewFormat("---", "---", func(data []byte, v any) error {
	return goyaml.Unmarshal(data, v)
})

// MaxArticleSize limits an article file to 8MB.
const MaxArticleSize = 8 << 20

// frontMatter is the YAML header of an article file.
type frontMatter struct {
	ID         string     `yaml:"id"`
	Title      string     `yaml:"title"`
	Tags       []string   `yaml:"tags"`
	Categories []string   `yaml:"categories"`
	Summary    string     `yaml:"summary"`
	Cover      string     `yaml:"cover"`
	Assets     []assetDoc `yaml:"assets"`
}

type assetDoc struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
	Alt string `yaml:"alt"`
}

// ParseJob reads a Markdown article with optional front matter into a Job.
// Without a title in the front matter, the first level-one heading is used
// and removed from the body.
func ParseJob(data []byte) (*crosspost.Job, error) {
	if len(data) > MaxArticleSize {
		return nil, crosspost.Errorf(crosspost.EINVALID, "article exceeds %d bytes", MaxArticleSize)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var fm frontMatter
	rest, err := frontmatter.Parse(strings.NewReader(text), &fm, frontMatterFormat)
	if err != nil {
		return nil, crosspost.Errorf(crosspost.EINVALID, "invalid front matter: %s", err)
	}
	body := string(rest)

	job := &crosspost.Job{
		ID:         fm.ID,
		Title:      fm.Title,
		Tags:       fm.Tags,
		Categories: fm.Categories,
		Summary:    fm.Summary,
		Cover:      fm.Cover,
	}
	for _, a := range fm.Assets {
		if a.URL == "" {
			return nil, crosspost.Errorf(crosspost.EINVALID, "asset %q has no url", a.ID)
		}
		job.Assets = append(job.Assets, crosspost.AssetInput{ID: a.ID, URL: a.URL, Alt: a.Alt})
	}
	if job.Title == "" {
		job.Title, body = takeHeading(body)
	}
	job.Body = strings.TrimSpace(body)
	return job, nil
}

// takeHeading returns the text of the first "# " heading and the body
// without it. Headings inside fenced code are ignored.
func takeHeading(body string) (string, string) {
	lines := strings.Split(body, "\n")
	fenced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
			continue
		}
		if fenced || !strings.HasPrefix(line, "# ") {
			continue
		}
		title := strings.TrimSpace(strings.TrimRight(strings.TrimPrefix(line, "# "), "#"))
		return title, strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
	}
	return "", body
}
