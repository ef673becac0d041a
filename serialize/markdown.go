package serialize

import (
	"strconv"
	"strings"

	"github.com/fwojciec/crosspost"
)

// markdownEscaper escapes only the characters that would otherwise start
// Markdown syntax inside plain text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
)

// EscapeMarkdown escapes \ * _ [ ] < > in text.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func (r *renderer) markdownBlocks(blocks []crosspost.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, r.markdownBlock(b))
	}
	return joinNonEmpty(parts, "\n\n")
}

func (r *renderer) markdownBlock(b crosspost.Block) string {
	switch n := b.(type) {
	case *crosspost.Paragraph:
		return r.markdownInlines(n.Children)
	case *crosspost.Heading:
		depth := min(max(n.Depth, 1), 6)
		return strings.Repeat("#", depth) + " " + r.markdownInlines(n.Children)
	case *crosspost.Blockquote:
		return prefixLines(r.markdownBlocks(n.Children), "> ", ">")
	case *crosspost.List:
		return r.markdownList(n)
	case *crosspost.CodeBlock:
		info := n.Lang
		if n.Meta != "" {
			info += " " + n.Meta
		}
		return fencedCode(info, n.Value)
	case *crosspost.MermaidBlock:
		return fencedCode("mermaid", n.Code)
	case *crosspost.MathBlock:
		r.mathGap(crosspost.NodeMath)
		return "$$\n" + n.TeX + "\n$$"
	case *crosspost.ThematicBreak:
		return "---"
	case *crosspost.ImageBlock:
		img := markdownImage(n.Alt, r.imageURL(n.AssetID, n.OriginalURL), n.Title)
		if n.Caption != "" {
			img += "\n" + r.opts.Emphasis() + EscapeMarkdown(n.Caption) + r.opts.Emphasis()
		}
		return img
	case *crosspost.Table:
		return r.markdownTable(n)
	case *crosspost.HTMLBlock:
		return r.rawHTML(crosspost.NodeHTML, n.Raw)
	case *crosspost.EmbedBlock:
		return r.markdownEmbed(n)
	case *crosspost.FootnoteDefinition:
		body := r.markdownBlocks(n.Children)
		return "[^" + footnoteLabel(n.Identifier, n.Label) + "]: " + indentContinuation(body, "    ")
	default:
		r.warn(WarningUnknownNode, b.Type(), "unknown block node rendered as nothing")
		return ""
	}
}

func (r *renderer) markdownList(l *crosspost.List) string {
	items := make([]string, 0, len(l.Children))
	for i, item := range l.Children {
		marker := r.opts.Bullet()
		if l.Ordered {
			marker = strconv.Itoa(l.Start+i) + "."
		}
		if item.Checked != nil {
			if *item.Checked {
				marker += " [x]"
			} else {
				marker += " [ ]"
			}
		}

		parts := make([]string, 0, len(item.Children))
		for _, b := range item.Children {
			parts = append(parts, r.markdownBlock(b))
		}
		body := joinNonEmpty(parts, "\n")
		if body == "" {
			items = append(items, marker)
			continue
		}
		items = append(items, marker+" "+indentContinuation(body, "  "))
	}
	return strings.Join(items, "\n")
}

func (r *renderer) markdownEmbed(n *crosspost.EmbedBlock) string {
	if n.HTML != "" {
		return r.rawHTML(crosspost.NodeEmbed, n.HTML)
	}
	if n.URL == "" {
		r.warn(WarningDroppedFeature, crosspost.NodeEmbed, "embed without url or html dropped")
		return ""
	}
	text := n.Provider
	if text == "" {
		text = n.URL
	}
	return "[" + EscapeMarkdown(text) + "](" + n.URL + ")"
}

// rawHTML renders raw HTML in Markdown output according to the raw HTML mode.
func (r *renderer) rawHTML(nodeType crosspost.NodeType, raw string) string {
	mode := r.opts.RawHTMLHandling()
	if mode == crosspost.RawHTMLDrop {
		return ""
	}
	raw = r.rawImages(raw)
	switch mode {
	case crosspost.RawHTMLConvert:
		if r.conv == nil {
			r.warn(WarningSerializationGap, nodeType, "raw html kept: no converter configured")
			return raw
		}
		md, err := r.conv.Convert(raw)
		if err != nil {
			r.warn(WarningSerializationGap, nodeType, "raw html kept: "+err.Error())
			return raw
		}
		return strings.TrimSpace(md)
	default:
		return raw
	}
}

func (r *renderer) markdownInlines(inlines []crosspost.Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		b.WriteString(r.markdownInline(in))
	}
	return b.String()
}

func (r *renderer) markdownInline(in crosspost.Inline) string {
	switch n := in.(type) {
	case *crosspost.Text:
		return EscapeMarkdown(n.Value)
	case *crosspost.Emphasis:
		m := r.opts.Emphasis()
		return m + r.markdownInlines(n.Children) + m
	case *crosspost.Strong:
		m := r.opts.Emphasis()
		return m + m + r.markdownInlines(n.Children) + m + m
	case *crosspost.Delete:
		return "~~" + r.markdownInlines(n.Children) + "~~"
	case *crosspost.InlineCode:
		return codeSpan(n.Value)
	case *crosspost.Link:
		return "[" + r.markdownInlines(n.Children) + "](" + n.URL + titleSuffix(n.Title) + ")"
	case *crosspost.Image:
		return markdownImage(n.Alt, r.imageURL(n.AssetID, n.OriginalURL), n.Title)
	case *crosspost.InlineMath:
		r.mathGap(crosspost.NodeInlineMath)
		return "$" + n.TeX + "$"
	case *crosspost.Break:
		return "  \n"
	case *crosspost.HTMLInline:
		return r.rawHTML(crosspost.NodeHTMLInline, n.Raw)
	case *crosspost.FootnoteRef:
		return "[^" + footnoteLabel(n.Identifier, n.Label) + "]"
	default:
		r.warn(WarningUnknownNode, in.Type(), "unknown inline node rendered as nothing")
		return ""
	}
}

func markdownImage(alt, url, title string) string {
	return "![" + EscapeMarkdown(alt) + "](" + url + titleSuffix(title) + ")"
}

func titleSuffix(title string) string {
	if title == "" {
		return ""
	}
	return ` "` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

func footnoteLabel(identifier, label string) string {
	if label != "" {
		return label
	}
	return identifier
}

// fencedCode wraps value in a fence longer than any backtick run inside it.
func fencedCode(info, value string) string {
	fence := strings.Repeat("`", max(3, longestRun(value, '`')+1))
	return fence + info + "\n" + strings.TrimSuffix(value, "\n") + "\n" + fence
}

func codeSpan(value string) string {
	ticks := strings.Repeat("`", longestRun(value, '`')+1)
	if strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`") {
		value = " " + value + " "
	}
	return ticks + value + ticks
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}

// indentContinuation indents every line after the first by indent. Blank
// lines stay blank.
func indentContinuation(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func prefixLines(s, prefix, blankPrefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = blankPrefix
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
