package manifest

import (
	"html"
	"regexp"
	"strings"

	"github.com/fwojciec/crosspost"
)

var imgSrcRe = regexp.MustCompile(`(?i)(<img\b[^>]*?\bsrc\s*=\s*)("([^"]*)"|'([^']*)')`)

// ReplaceImageURLs rewrites image destinations in markdown through mapping,
// keyed by normalized original URL. Markdown images keep their alt text,
// title and bracket shape; <img> tags keep every attribute except src.
// Images missing from mapping are left untouched.
func ReplaceImageURLs(markdown string, mapping map[string]string) string {
	if len(mapping) == 0 || markdown == "" {
		return markdown
	}

	var b strings.Builder
	last := 0
	for _, img := range findImages(markdown) {
		dest := parseDestination(img.dest)
		replacement, ok := lookup(mapping, dest.url)
		if !ok {
			continue
		}
		u := replacement
		if dest.angled {
			u = "<" + u + ">"
		}
		b.WriteString(markdown[last:img.start])
		b.WriteString("![" + img.alt + "](" + dest.lead + u + dest.rest + ")")
		last = img.end
	}
	b.WriteString(markdown[last:])

	return RewriteImageSources(b.String(), func(src string) string {
		if u, ok := lookup(mapping, src); ok {
			return u
		}
		return src
	})
}

// RewriteImageSources passes the src of every <img> tag in fragment through
// resolve. resolve receives the decoded attribute value; tags whose source
// it returns unchanged are left byte for byte as they were.
func RewriteImageSources(fragment string, resolve func(src string) string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	return imgSrcRe.ReplaceAllStringFunc(fragment, func(match string) string {
		m := imgSrcRe.FindStringSubmatch(match)
		quote, raw := `"`, m[3]
		if strings.HasPrefix(m[2], "'") {
			quote, raw = "'", m[4]
		}
		src := html.UnescapeString(raw)
		u := resolve(src)
		if u == "" || u == src {
			return match
		}
		return m[1] + quote + html.EscapeString(u) + quote
	})
}

func lookup(mapping map[string]string, raw string) (string, bool) {
	if v, ok := mapping[raw]; ok && v != "" {
		return v, true
	}
	v, ok := mapping[crosspost.NormalizeURL(raw)]
	return v, ok && v != ""
}
