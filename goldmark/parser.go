// Package goldmark parses Markdown into the canonical document tree using
// the goldmark engine with GitHub Flavored Markdown and footnotes enabled.
package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/fwojciec/crosspost"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var _ crosspost.Parser = (*Parser)(nil)

// Parser converts Markdown into a crosspost.Root. It is stateless and safe
// for concurrent use.
//
// Fenced code blocks tagged "mermaid" become MermaidBlock nodes and those
// tagged "math" or "latex" become MathBlock nodes. A paragraph holding a
// single image becomes an ImageBlock.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
			),
		),
	}
}

// Parse parses markdown. goldmark accepts any input, so Parse never fails
// on content; the error return satisfies crosspost.Parser.
func (p *Parser) Parse(markdown string) (*crosspost.Root, error) {
	src := []byte(markdown)
	doc := p.md.Parser().Parse(text.NewReader(src))

	c := &converter{src: src, footnotes: map[int]string{}}
	c.indexFootnotes(doc)
	return &crosspost.Root{Children: c.blocks(doc)}, nil
}

type converter struct {
	src       []byte
	footnotes map[int]string
}

// indexFootnotes maps footnote indexes to their labels so references can
// name their definitions.
func (c *converter) indexFootnotes(doc ast.Node) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); ok && entering {
			c.footnotes[fn.Index] = string(fn.Ref)
		}
		return ast.WalkContinue, nil
	})
}

func (c *converter) blocks(parent ast.Node) []crosspost.Block {
	var out []crosspost.Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if list, ok := n.(*east.FootnoteList); ok {
			out = append(out, c.blocks(list)...)
			continue
		}
		if b := c.block(n); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) block(n ast.Node) crosspost.Block {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := n.FirstChild().(*ast.Image); ok && n.ChildCount() == 1 {
			return &crosspost.ImageBlock{
				OriginalURL: string(img.Destination),
				Alt:         c.plainText(img),
				Title:       string(img.Title),
			}
		}
		return &crosspost.Paragraph{Children: c.inlines(n)}
	case *ast.Heading:
		return &crosspost.Heading{Depth: n.Level, Children: c.inlines(n)}
	case *ast.Blockquote:
		return &crosspost.Blockquote{Children: c.blocks(n)}
	case *ast.List:
		return c.list(n)
	case *ast.FencedCodeBlock:
		return c.fenced(n)
	case *ast.CodeBlock:
		return &crosspost.CodeBlock{Value: c.lines(n)}
	case *ast.ThematicBreak:
		return &crosspost.ThematicBreak{}
	case *ast.HTMLBlock:
		raw := c.lines(n)
		if n.HasClosure() {
			raw += "\n" + strings.TrimRight(string(n.ClosureLine.Value(c.src)), "\n")
		}
		return &crosspost.HTMLBlock{Raw: strings.TrimSpace(raw)}
	case *east.Table:
		return c.table(n)
	case *east.Footnote:
		label := string(n.Ref)
		return &crosspost.FootnoteDefinition{Identifier: label, Label: label, Children: c.blocks(n)}
	}
	return nil
}

func (c *converter) list(n *ast.List) crosspost.Block {
	list := &crosspost.List{Ordered: n.IsOrdered(), Start: n.Start}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		li := &crosspost.ListItem{Children: c.blocks(item)}
		if first := item.FirstChild(); first != nil {
			if box, ok := first.FirstChild().(*east.TaskCheckBox); ok {
				checked := box.IsChecked
				li.Checked = &checked
			}
		}
		list.Children = append(list.Children, li)
	}
	return list
}

func (c *converter) fenced(n *ast.FencedCodeBlock) crosspost.Block {
	lang := string(n.Language(c.src))
	var meta string
	if n.Info != nil {
		info := strings.TrimSpace(string(n.Info.Segment.Value(c.src)))
		meta = strings.TrimSpace(strings.TrimPrefix(info, lang))
	}
	value := c.lines(n)

	switch strings.ToLower(lang) {
	case "mermaid":
		return &crosspost.MermaidBlock{Code: value}
	case "math", "latex":
		return &crosspost.MathBlock{TeX: value}
	}
	return &crosspost.CodeBlock{Lang: lang, Meta: meta, Value: value}
}

func (c *converter) table(n *east.Table) crosspost.Block {
	t := &crosspost.Table{}
	for _, a := range n.Alignments {
		t.Align = append(t.Align, align(a))
	}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		r := &crosspost.TableRow{}
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc, ok := cell.(*east.TableCell)
			if !ok {
				continue
			}
			r.Cells = append(r.Cells, &crosspost.TableCell{
				Header:   header,
				Align:    align(tc.Alignment),
				Children: c.inlines(tc),
			})
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func align(a east.Alignment) crosspost.Align {
	switch a {
	case east.AlignLeft:
		return crosspost.AlignLeft
	case east.AlignRight:
		return crosspost.AlignRight
	case east.AlignCenter:
		return crosspost.AlignCenter
	}
	return crosspost.AlignNone
}

func (c *converter) inlines(parent ast.Node) []crosspost.Inline {
	var out []crosspost.Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.inline(n)...)
	}
	return mergeText(out)
}

func (c *converter) inline(n ast.Node) []crosspost.Inline {
	switch n := n.(type) {
	case *ast.Text:
		value := n.Segment.Value(c.src)
		if !n.IsRaw() {
			value = unescape(value)
		}
		out := []crosspost.Inline{&crosspost.Text{Value: string(value)}}
		switch {
		case n.HardLineBreak():
			out = append(out, &crosspost.Break{})
		case n.SoftLineBreak():
			out = append(out, &crosspost.Text{Value: "\n"})
		}
		return out
	case *ast.String:
		return []crosspost.Inline{&crosspost.Text{Value: string(n.Value)}}
	case *ast.Emphasis:
		if n.Level >= 2 {
			return []crosspost.Inline{&crosspost.Strong{Children: c.inlines(n)}}
		}
		return []crosspost.Inline{&crosspost.Emphasis{Children: c.inlines(n)}}
	case *east.Strikethrough:
		return []crosspost.Inline{&crosspost.Delete{Children: c.inlines(n)}}
	case *ast.CodeSpan:
		return []crosspost.Inline{&crosspost.InlineCode{Value: c.rawText(n)}}
	case *ast.Link:
		return []crosspost.Inline{&crosspost.Link{
			URL:      string(n.Destination),
			Title:    string(n.Title),
			Children: c.inlines(n),
		}}
	case *ast.AutoLink:
		return []crosspost.Inline{&crosspost.Link{
			URL:      string(n.URL(c.src)),
			Children: []crosspost.Inline{&crosspost.Text{Value: string(n.Label(c.src))}},
		}}
	case *ast.Image:
		return []crosspost.Inline{&crosspost.Image{
			OriginalURL: string(n.Destination),
			Alt:         c.plainText(n),
			Title:       string(n.Title),
		}}
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(c.src))
		}
		return []crosspost.Inline{&crosspost.HTMLInline{Raw: buf.String()}}
	case *east.FootnoteLink:
		label := c.footnotes[n.Index]
		if label == "" {
			label = strconv.Itoa(n.Index)
		}
		return []crosspost.Inline{&crosspost.FootnoteRef{Identifier: label, Label: label}}
	case *east.TaskCheckBox, *east.FootnoteBacklink:
		return nil
	}
	return nil
}

// mergeText joins adjacent text nodes.
func mergeText(in []crosspost.Inline) []crosspost.Inline {
	var out []crosspost.Inline
	for _, n := range in {
		t, ok := n.(*crosspost.Text)
		if ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*crosspost.Text); ok {
				out[len(out)-1] = &crosspost.Text{Value: prev.Value + t.Value}
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

// plainText returns the text content below n, used for image alt text.
func (c *converter) plainText(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(unescape(t.Segment.Value(c.src)))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func (c *converter) rawText(n ast.Node) string {
	var sb strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(c.src))
		case *ast.String:
			sb.Write(t.Value)
		}
	}
	return sb.String()
}

// lines joins a block's source lines without the final newline.
func (c *converter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.src))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func unescape(b []byte) []byte {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	return util.ResolveEntityNames(b)
}
