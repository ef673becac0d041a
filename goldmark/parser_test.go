package goldmark_test

import (
	"testing"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/goldmark"
	"github.com/fwojciec/crosspost/serialize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, md string) *crosspost.Root {
	t.Helper()
	root, err := goldmark.NewParser().Parse(md)
	require.NoError(t, err)
	return root
}

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("headings and paragraphs", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "## Title\n\nHello *world* and **bold** ~~gone~~ `code`.\n")

		require.Len(t, root.Children, 2)
		assert.Equal(t, &crosspost.Heading{Depth: 2, Children: []crosspost.Inline{&crosspost.Text{Value: "Title"}}}, root.Children[0])
		assert.Equal(t, &crosspost.Paragraph{Children: []crosspost.Inline{
			&crosspost.Text{Value: "Hello "},
			&crosspost.Emphasis{Children: []crosspost.Inline{&crosspost.Text{Value: "world"}}},
			&crosspost.Text{Value: " and "},
			&crosspost.Strong{Children: []crosspost.Inline{&crosspost.Text{Value: "bold"}}},
			&crosspost.Text{Value: " "},
			&crosspost.Delete{Children: []crosspost.Inline{&crosspost.Text{Value: "gone"}}},
			&crosspost.Text{Value: " "},
			&crosspost.InlineCode{Value: "code"},
			&crosspost.Text{Value: "."},
		}}, root.Children[1])
	})

	t.Run("standalone image becomes an image block", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "![a *pic*](https://x.com/a.png \"T\")\n")

		require.Len(t, root.Children, 1)
		assert.Equal(t, &crosspost.ImageBlock{OriginalURL: "https://x.com/a.png", Alt: "a pic", Title: "T"}, root.Children[0])
	})

	t.Run("inline image stays inline", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "see ![i](https://x.com/i.png) here\n")

		p, ok := root.Children[0].(*crosspost.Paragraph)
		require.True(t, ok)
		assert.Equal(t, &crosspost.Image{OriginalURL: "https://x.com/i.png", Alt: "i"}, p.Children[1])
	})

	t.Run("ordered and task lists", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "3. three\n4. four\n\n- [x] done\n- [ ] todo\n")

		require.Len(t, root.Children, 2)
		ordered := root.Children[0].(*crosspost.List)
		assert.True(t, ordered.Ordered)
		assert.Equal(t, 3, ordered.Start)
		assert.Len(t, ordered.Children, 2)

		tasks := root.Children[1].(*crosspost.List)
		require.Len(t, tasks.Children, 2)
		require.NotNil(t, tasks.Children[0].Checked)
		assert.True(t, *tasks.Children[0].Checked)
		assert.False(t, *tasks.Children[1].Checked)
		assert.Equal(t, []crosspost.Block{&crosspost.Paragraph{Children: []crosspost.Inline{&crosspost.Text{Value: "done"}}}}, tasks.Children[0].Children)
	})

	t.Run("fenced code, mermaid and math", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "```go title=main.go\nfmt.Println(1)\n```\n\n```mermaid\ngraph TD\n```\n\n```math\nx^2\n```\n")

		require.Len(t, root.Children, 3)
		assert.Equal(t, &crosspost.CodeBlock{Lang: "go", Meta: "title=main.go", Value: "fmt.Println(1)"}, root.Children[0])
		assert.Equal(t, &crosspost.MermaidBlock{Code: "graph TD"}, root.Children[1])
		assert.Equal(t, &crosspost.MathBlock{TeX: "x^2"}, root.Children[2])
	})

	t.Run("tables keep alignment and header rows", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "| a | b |\n|:--|--:|\n| 1 | 2 |\n")

		table, ok := root.Children[0].(*crosspost.Table)
		require.True(t, ok)
		assert.Equal(t, []crosspost.Align{crosspost.AlignLeft, crosspost.AlignRight}, table.Align)
		require.Len(t, table.Rows, 2)
		assert.True(t, table.Rows[0].Cells[0].Header)
		assert.False(t, table.Rows[1].Cells[0].Header)
		assert.Equal(t, []crosspost.Inline{&crosspost.Text{Value: "2"}}, table.Rows[1].Cells[1].Children)
	})

	t.Run("footnotes keep their labels", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "Claim[^src].\n\n[^src]: The source.\n")

		require.Len(t, root.Children, 2)
		p := root.Children[0].(*crosspost.Paragraph)
		assert.Contains(t, p.Children, crosspost.Inline(&crosspost.FootnoteRef{Identifier: "src", Label: "src"}))
		def, ok := root.Children[1].(*crosspost.FootnoteDefinition)
		require.True(t, ok)
		assert.Equal(t, "src", def.Identifier)
	})

	t.Run("raw html blocks and inline html", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "<div class=\"note\">\nhi\n</div>\n\ntext <kbd>K</kbd>\n")

		require.Len(t, root.Children, 2)
		assert.Equal(t, &crosspost.HTMLBlock{Raw: "<div class=\"note\">\nhi\n</div>"}, root.Children[0])
		p := root.Children[1].(*crosspost.Paragraph)
		assert.Equal(t, &crosspost.HTMLInline{Raw: "<kbd>"}, p.Children[1])
	})

	t.Run("backslash escapes are resolved", func(t *testing.T) {
		t.Parallel()

		root := parse(t, "1 \\* 2 &amp; 3\n")

		assert.Equal(t, &crosspost.Paragraph{Children: []crosspost.Inline{&crosspost.Text{Value: "1 * 2 & 3"}}}, root.Children[0])
	})

	t.Run("round trips through the markdown serializer", func(t *testing.T) {
		t.Parallel()

		md := "# Title\n\nSome *text* with a [link](https://x.com).\n\n- one\n- two\n\n![pic](https://x.com/a.png)"

		out := serialize.Serialize(parse(t, md+"\n"), crosspost.SerializeOptions{})

		assert.Equal(t, md, out)
	})
}
