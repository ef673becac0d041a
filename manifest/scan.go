package manifest

import "strings"

// imageSpan is one Markdown image: the byte range of the whole
// "![alt](dest)" in the source and its raw alt and destination text.
type imageSpan struct {
	start, end int
	alt        string
	dest       string
}

// findImages returns the Markdown images in s in source order.
func findImages(s string) []imageSpan {
	var spans []imageSpan
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], "![")
		if j < 0 {
			break
		}
		span, ok := imageAt(s, i+j)
		if !ok {
			i += j + 2
			continue
		}
		spans = append(spans, span)
		i = span.end
	}
	return spans
}

// imageAt parses the image starting at s[start:], which begins with "![".
// The alt text ends at the first unescaped "]" and must be followed by "(".
func imageAt(s string, start int) (imageSpan, bool) {
	i := start + 2
	for i < len(s) && s[i] != ']' {
		if s[i] == '\\' {
			i++
		}
		i++
	}
	if i+1 >= len(s) || s[i+1] != '(' {
		return imageSpan{}, false
	}
	alt := s[start+2 : i]

	destStart := i + 2
	end, ok := destinationEnd(s, destStart)
	if !ok {
		return imageSpan{}, false
	}
	return imageSpan{start: start, end: end + 1, alt: alt, dest: s[destStart:end]}, true
}

// destinationEnd returns the index of the ")" that closes the destination
// starting at s[i:]. Parentheses in a bare URL must balance. Those inside an
// angle-bracketed URL or a quoted title are not counted. A destination that
// never closes does not match.
func destinationEnd(s string, i int) (int, bool) {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '<' {
		if gt := strings.IndexByte(s[i:], '>'); gt > 0 {
			i += gt + 1
		}
	}

	depth := 0
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case (c == '"' || c == '\'') && isSpace(s[i-1]):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
