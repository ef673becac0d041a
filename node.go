package crosspost

import "encoding/json"

// NodeType identifies the kind of a node in the canonical document tree.
// Names follow mdast where mdast has an equivalent.
type NodeType string

// Block node types.
const (
	NodeRoot               NodeType = "root"
	NodeParagraph          NodeType = "paragraph"
	NodeHeading            NodeType = "heading"
	NodeBlockquote         NodeType = "blockquote"
	NodeList               NodeType = "list"
	NodeListItem           NodeType = "listItem"
	NodeCode               NodeType = "code"
	NodeMermaid            NodeType = "mermaid"
	NodeMath               NodeType = "math"
	NodeThematicBreak      NodeType = "thematicBreak"
	NodeImageBlock         NodeType = "imageBlock"
	NodeTable              NodeType = "table"
	NodeTableRow           NodeType = "tableRow"
	NodeTableCell          NodeType = "tableCell"
	NodeHTML               NodeType = "html"
	NodeEmbed              NodeType = "embed"
	NodeFootnoteDefinition NodeType = "footnoteDefinition"
)

// Inline node types.
const (
	NodeText        NodeType = "text"
	NodeEmphasis    NodeType = "emphasis"
	NodeStrong      NodeType = "strong"
	NodeDelete      NodeType = "delete"
	NodeInlineCode  NodeType = "inlineCode"
	NodeLink        NodeType = "link"
	NodeImage       NodeType = "image"
	NodeInlineMath  NodeType = "inlineMath"
	NodeBreak       NodeType = "break"
	NodeHTMLInline  NodeType = "htmlInline"
	NodeFootnoteRef NodeType = "footnoteReference"
)

// Node is implemented by every node in the document tree.
type Node interface {
	Type() NodeType
}

// Block is a node that can appear at block level.
type Block interface {
	Node
	block()
}

// Inline is a node that can appear inside a paragraph, heading or table cell.
type Inline interface {
	Node
	inline()
}

// Align is the horizontal alignment of a table column or cell.
type Align string

// Alignment values. AlignNone leaves alignment to the target.
const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// Root is the top of a document tree. Trees are immutable once built.
type Root struct {
	Children []Block
}

func (*Root) Type() NodeType { return NodeRoot }

// Paragraph is a block of inline content.
type Paragraph struct {
	Children []Inline
}

// Heading is a section heading; Depth ranges from 1 to 6.
type Heading struct {
	Depth    int
	Children []Inline
}

// Blockquote wraps quoted block content.
type Blockquote struct {
	Children []Block
}

// List is an ordered or unordered list. Start is the number of the first
// item of an ordered list.
type List struct {
	Ordered  bool
	Start    int
	Children []*ListItem
}

// ListItem is one entry of a List. Checked is non-nil for task list items.
type ListItem struct {
	Checked  *bool
	Children []Block
}

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Lang  string
	Meta  string
	Value string
}

// MermaidBlock holds mermaid diagram source.
type MermaidBlock struct {
	Code string
}

// MathBlock holds display math in TeX.
type MathBlock struct {
	TeX string
}

// ThematicBreak is a horizontal rule.
type ThematicBreak struct{}

// ImageBlock is a standalone image. AssetID links it to a manifest entry.
type ImageBlock struct {
	AssetID     string
	OriginalURL string
	Alt         string
	Title       string
	Caption     string
}

// Table is a table whose rows may carry spanning cells. HasRowspan and
// HasColspan are set by the producer when any cell spans.
type Table struct {
	Align      []Align
	HasRowspan bool
	HasColspan bool
	Rows       []*TableRow
}

// TableRow is one row of a Table.
type TableRow struct {
	Cells []*TableCell
}

// TableCell is one cell of a TableRow. Span values below 2 mean no span.
type TableCell struct {
	Header   bool
	Rowspan  int
	Colspan  int
	Align    Align
	Children []Inline
}

// HTMLBlock is raw block-level HTML.
type HTMLBlock struct {
	Raw string
}

// EmbedBlock is third-party embedded content known by URL, HTML or both.
type EmbedBlock struct {
	URL      string
	HTML     string
	Provider string
}

// FootnoteDefinition holds the content referenced by FootnoteRef nodes.
type FootnoteDefinition struct {
	Identifier string
	Label      string
	Children   []Block
}

// Text is literal text.
type Text struct {
	Value string
}

// Emphasis is emphasized (usually italic) content.
type Emphasis struct {
	Children []Inline
}

// Strong is strongly emphasized (usually bold) content.
type Strong struct {
	Children []Inline
}

// Delete is struck-through content.
type Delete struct {
	Children []Inline
}

// InlineCode is a code span.
type InlineCode struct {
	Value string
}

// Link is a hyperlink.
type Link struct {
	URL      string
	Title    string
	Children []Inline
}

// Image is an inline image.
type Image struct {
	AssetID     string
	OriginalURL string
	Alt         string
	Title       string
}

// InlineMath holds inline math in TeX.
type InlineMath struct {
	TeX string
}

// Break is a hard line break.
type Break struct{}

// HTMLInline is raw inline HTML.
type HTMLInline struct {
	Raw string
}

// FootnoteRef references a FootnoteDefinition by identifier.
type FootnoteRef struct {
	Identifier string
	Label      string
}

// UnknownNode stands in for a node type this version does not know.
// Consumers render it as nothing.
type UnknownNode struct {
	Kind string
	Raw  json.RawMessage
}

func (*Paragraph) Type() NodeType          { return NodeParagraph }
func (*Heading) Type() NodeType            { return NodeHeading }
func (*Blockquote) Type() NodeType         { return NodeBlockquote }
func (*List) Type() NodeType               { return NodeList }
func (*ListItem) Type() NodeType           { return NodeListItem }
func (*CodeBlock) Type() NodeType          { return NodeCode }
func (*MermaidBlock) Type() NodeType       { return NodeMermaid }
func (*MathBlock) Type() NodeType          { return NodeMath }
func (*ThematicBreak) Type() NodeType      { return NodeThematicBreak }
func (*ImageBlock) Type() NodeType         { return NodeImageBlock }
func (*Table) Type() NodeType              { return NodeTable }
func (*TableRow) Type() NodeType           { return NodeTableRow }
func (*TableCell) Type() NodeType          { return NodeTableCell }
func (*HTMLBlock) Type() NodeType          { return NodeHTML }
func (*EmbedBlock) Type() NodeType         { return NodeEmbed }
func (*FootnoteDefinition) Type() NodeType { return NodeFootnoteDefinition }
func (*Text) Type() NodeType               { return NodeText }
func (*Emphasis) Type() NodeType           { return NodeEmphasis }
func (*Strong) Type() NodeType             { return NodeStrong }
func (*Delete) Type() NodeType             { return NodeDelete }
func (*InlineCode) Type() NodeType         { return NodeInlineCode }
func (*Link) Type() NodeType               { return NodeLink }
func (*Image) Type() NodeType              { return NodeImage }
func (*InlineMath) Type() NodeType         { return NodeInlineMath }
func (*Break) Type() NodeType              { return NodeBreak }
func (*HTMLInline) Type() NodeType         { return NodeHTMLInline }
func (*FootnoteRef) Type() NodeType        { return NodeFootnoteRef }
func (n *UnknownNode) Type() NodeType      { return NodeType(n.Kind) }

func (*Paragraph) block()          {}
func (*Heading) block()            {}
func (*Blockquote) block()         {}
func (*List) block()               {}
func (*CodeBlock) block()          {}
func (*MermaidBlock) block()       {}
func (*MathBlock) block()          {}
func (*ThematicBreak) block()      {}
func (*ImageBlock) block()         {}
func (*Table) block()              {}
func (*HTMLBlock) block()          {}
func (*EmbedBlock) block()         {}
func (*FootnoteDefinition) block() {}
func (*UnknownNode) block()        {}

func (*Text) inline()        {}
func (*Emphasis) inline()    {}
func (*Strong) inline()      {}
func (*Delete) inline()      {}
func (*InlineCode) inline()  {}
func (*Link) inline()        {}
func (*Image) inline()       {}
func (*InlineMath) inline()  {}
func (*Break) inline()       {}
func (*HTMLInline) inline()  {}
func (*FootnoteRef) inline() {}
func (*UnknownNode) inline() {}

// WalkFunc is called for every node visited by Walk. Returning false skips
// the node's children.
type WalkFunc func(n Node) bool

// Walk visits root and its descendants depth-first in document order.
// It never modifies the tree.
func Walk(root *Root, fn WalkFunc) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, b := range root.Children {
		walkNode(b, fn)
	}
}

func walkNode(n Node, fn WalkFunc) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Paragraph:
		walkInlines(n.Children, fn)
	case *Heading:
		walkInlines(n.Children, fn)
	case *Blockquote:
		walkBlocks(n.Children, fn)
	case *List:
		for _, item := range n.Children {
			walkNode(item, fn)
		}
	case *ListItem:
		walkBlocks(n.Children, fn)
	case *Table:
		for _, row := range n.Rows {
			walkNode(row, fn)
		}
	case *TableRow:
		for _, cell := range n.Cells {
			walkNode(cell, fn)
		}
	case *TableCell:
		walkInlines(n.Children, fn)
	case *FootnoteDefinition:
		walkBlocks(n.Children, fn)
	case *Emphasis:
		walkInlines(n.Children, fn)
	case *Strong:
		walkInlines(n.Children, fn)
	case *Delete:
		walkInlines(n.Children, fn)
	case *Link:
		walkInlines(n.Children, fn)
	}
}

func walkBlocks(blocks []Block, fn WalkFunc) {
	for _, b := range blocks {
		walkNode(b, fn)
	}
}

func walkInlines(inlines []Inline, fn WalkFunc) {
	for _, in := range inlines {
		walkNode(in, fn)
	}
}
