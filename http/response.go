package http

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/crosspost"
)

// maxScanDepth bounds the generic scan of JSON responses.
const maxScanDepth = 4

// knownKeys are JSON keys and XML elements that commonly hold a hosted URL.
var knownKeys = []string{"url", "src", "path", "image_url", "imageUrl"}

// knownElements are XML elements that commonly hold a hosted URL.
var knownElements = []string{"Location", "url", "src"}

// ExtractHostedURL returns the hosted image URL from an upload response
// body. Strategies are tried in order: the declared parser, the declared
// JSON path, well-known JSON keys, well-known XML elements and finally a
// bounded scan of the whole JSON document. Protocol-relative URLs get an
// https scheme and root-relative paths are resolved against endpoint.
func ExtractHostedURL(body []byte, s *crosspost.DirectUpload, endpoint string) (string, bool) {
	for _, extract := range responseExtractors(s) {
		if u, ok := extract(body); ok {
			if abs, ok := absolutize(u, endpoint); ok {
				return abs, true
			}
		}
	}
	return "", false
}

func responseExtractors(s *crosspost.DirectUpload) []crosspost.ResponseParser {
	var chain []crosspost.ResponseParser
	if s != nil && s.Parser != nil {
		chain = append(chain, s.Parser)
	}
	if s != nil && s.ResponsePath != "" {
		chain = append(chain, crosspost.JSONPathParser(s.ResponsePath))
	}
	return append(chain, knownJSONKeys, knownXMLElements, scanJSON)
}

// knownJSONKeys looks for a well-known key at the top level, then one
// level under "data".
func knownJSONKeys(body []byte) (string, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "", false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	if u, ok := lookupKeys(obj); ok {
		return u, true
	}
	switch data := obj["data"].(type) {
	case map[string]any:
		return lookupKeys(data)
	case string:
		if looksLikeURL(data) {
			return data, true
		}
	}
	return "", false
}

func lookupKeys(obj map[string]any) (string, bool) {
	for _, k := range knownKeys {
		if s, ok := obj[k].(string); ok && looksLikeURL(s) {
			return s, true
		}
	}
	return "", false
}

// knownXMLElements handles S3-style and other XML upload responses.
func knownXMLElements(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return "", false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(trimmed); err != nil {
		return "", false
	}
	for _, name := range knownElements {
		if el := doc.FindElement("//" + name); el != nil {
			if s := strings.TrimSpace(el.Text()); looksLikeURL(s) {
				return s, true
			}
		}
	}
	return "", false
}

// scanJSON walks the JSON document breadth first up to maxScanDepth and
// returns the first string that looks like a URL.
func scanJSON(body []byte) (string, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "", false
	}
	level := []any{v}
	for depth := 0; depth <= maxScanDepth && len(level) > 0; depth++ {
		var next []any
		for _, node := range level {
			switch n := node.(type) {
			case string:
				if looksLikeURL(n) {
					return n, true
				}
			case []any:
				next = append(next, n...)
			case map[string]any:
				// Known keys first so "url" beats an unrelated link.
				for _, k := range knownKeys {
					if val, ok := n[k]; ok {
						next = append(next, val)
					}
				}
				for _, k := range slices.Sorted(maps.Keys(n)) {
					if !slices.Contains(knownKeys, k) {
						next = append(next, n[k])
					}
				}
			}
		}
		level = next
	}
	return "", false
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//") ||
		(strings.HasPrefix(s, "/") && len(s) > 1)
}

// absolutize makes u absolute. "//x" becomes "https://x" and "/x" is
// resolved against the endpoint's origin.
func absolutize(u, endpoint string) (string, bool) {
	u = strings.TrimSpace(u)
	switch {
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u, true
	case strings.HasPrefix(u, "//"):
		return "https:" + u, true
	case strings.HasPrefix(u, "/"):
		base, err := url.Parse(endpoint)
		if err != nil || base.Host == "" {
			return "", false
		}
		return base.Scheme + "://" + base.Host + u, true
	}
	return "", false
}
