package serialize

import (
	"html"
	"strconv"
	"strings"

	"github.com/fwojciec/crosspost"
)

func (r *renderer) htmlBlocks(blocks []crosspost.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, r.htmlBlock(b))
	}
	return joinNonEmpty(parts, "\n")
}

func (r *renderer) htmlBlock(b crosspost.Block) string {
	switch n := b.(type) {
	case *crosspost.Paragraph:
		return "<p>" + r.htmlInlines(n.Children) + "</p>"
	case *crosspost.Heading:
		tag := "h" + strconv.Itoa(min(max(n.Depth, 1), 6))
		return "<" + tag + ">" + r.htmlInlines(n.Children) + "</" + tag + ">"
	case *crosspost.Blockquote:
		return "<blockquote>\n" + r.htmlBlocks(n.Children) + "\n</blockquote>"
	case *crosspost.List:
		return r.htmlList(n)
	case *crosspost.CodeBlock:
		class := ""
		if n.Lang != "" {
			class = ` class="language-` + html.EscapeString(n.Lang) + `"`
		}
		return "<pre><code" + class + ">" + html.EscapeString(n.Value) + "</code></pre>"
	case *crosspost.MermaidBlock:
		return `<pre class="mermaid">` + html.EscapeString(n.Code) + "</pre>"
	case *crosspost.MathBlock:
		r.mathGap(crosspost.NodeMath)
		return "<p>$$" + html.EscapeString(n.TeX) + "$$</p>"
	case *crosspost.ThematicBreak:
		return "<hr>"
	case *crosspost.ImageBlock:
		img := htmlImage(n.Alt, r.imageURL(n.AssetID, n.OriginalURL), n.Title)
		if n.Caption == "" {
			return "<p>" + img + "</p>"
		}
		return "<figure>" + img + "<figcaption>" + html.EscapeString(n.Caption) + "</figcaption></figure>"
	case *crosspost.Table:
		if len(n.Rows) == 0 {
			return ""
		}
		return r.htmlTable(n)
	case *crosspost.HTMLBlock:
		if r.opts.RawHTMLHandling() == crosspost.RawHTMLDrop {
			return ""
		}
		return r.rawImages(n.Raw)
	case *crosspost.EmbedBlock:
		return r.htmlEmbed(n)
	case *crosspost.FootnoteDefinition:
		id := footnoteLabel(n.Identifier, n.Label)
		return `<div class="footnote" id="fn-` + html.EscapeString(id) + `">` + "\n" + r.htmlBlocks(n.Children) + "\n</div>"
	default:
		r.warn(WarningUnknownNode, b.Type(), "unknown block node rendered as nothing")
		return ""
	}
}

func (r *renderer) htmlList(l *crosspost.List) string {
	tag := "ul"
	open := "<ul>"
	if l.Ordered {
		tag = "ol"
		open = "<ol>"
		if l.Start != 1 {
			open = `<ol start="` + strconv.Itoa(l.Start) + `">`
		}
	}

	var b strings.Builder
	b.WriteString(open + "\n")
	for _, item := range l.Children {
		b.WriteString("<li>")
		if item.Checked != nil {
			if *item.Checked {
				b.WriteString(`<input type="checkbox" checked disabled> `)
			} else {
				b.WriteString(`<input type="checkbox" disabled> `)
			}
		}
		// A single paragraph renders inline, like a tight list.
		if len(item.Children) == 1 {
			if p, ok := item.Children[0].(*crosspost.Paragraph); ok {
				b.WriteString(r.htmlInlines(p.Children))
				b.WriteString("</li>\n")
				continue
			}
		}
		b.WriteString(r.htmlBlocks(item.Children))
		b.WriteString("</li>\n")
	}
	b.WriteString("</" + tag + ">")
	return b.String()
}

func (r *renderer) htmlEmbed(n *crosspost.EmbedBlock) string {
	if n.HTML != "" {
		return r.rawImages(n.HTML)
	}
	if n.URL == "" {
		r.warn(WarningDroppedFeature, crosspost.NodeEmbed, "embed without url or html dropped")
		return ""
	}
	text := n.Provider
	if text == "" {
		text = n.URL
	}
	return `<p><a href="` + html.EscapeString(n.URL) + `">` + html.EscapeString(text) + "</a></p>"
}

func (r *renderer) htmlInlines(inlines []crosspost.Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		b.WriteString(r.htmlInline(in))
	}
	return b.String()
}

func (r *renderer) htmlInline(in crosspost.Inline) string {
	switch n := in.(type) {
	case *crosspost.Text:
		return html.EscapeString(n.Value)
	case *crosspost.Emphasis:
		return "<em>" + r.htmlInlines(n.Children) + "</em>"
	case *crosspost.Strong:
		return "<strong>" + r.htmlInlines(n.Children) + "</strong>"
	case *crosspost.Delete:
		return "<del>" + r.htmlInlines(n.Children) + "</del>"
	case *crosspost.InlineCode:
		return "<code>" + html.EscapeString(n.Value) + "</code>"
	case *crosspost.Link:
		title := ""
		if n.Title != "" {
			title = ` title="` + html.EscapeString(n.Title) + `"`
		}
		return `<a href="` + html.EscapeString(n.URL) + `"` + title + ">" + r.htmlInlines(n.Children) + "</a>"
	case *crosspost.Image:
		return htmlImage(n.Alt, r.imageURL(n.AssetID, n.OriginalURL), n.Title)
	case *crosspost.InlineMath:
		r.mathGap(crosspost.NodeInlineMath)
		return "$" + html.EscapeString(n.TeX) + "$"
	case *crosspost.Break:
		return "<br>"
	case *crosspost.HTMLInline:
		if r.opts.RawHTMLHandling() == crosspost.RawHTMLDrop {
			return ""
		}
		return r.rawImages(n.Raw)
	case *crosspost.FootnoteRef:
		id := html.EscapeString(footnoteLabel(n.Identifier, n.Label))
		return `<sup><a href="#fn-` + id + `">` + id + "</a></sup>"
	default:
		r.warn(WarningUnknownNode, in.Type(), "unknown inline node rendered as nothing")
		return ""
	}
}

func htmlImage(alt, src, title string) string {
	var b strings.Builder
	b.WriteString(`<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `"`)
	if title != "" {
		b.WriteString(` title="` + html.EscapeString(title) + `"`)
	}
	b.WriteString(">")
	return b.String()
}
