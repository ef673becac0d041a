package crosspost

import "encoding/json"

// rawNode is the JSON interchange shape of any tree node. Fields not used
// by a node type are ignored.
type rawNode struct {
	Type       string            `json:"type"`
	Children   []json.RawMessage `json:"children"`
	Value      string            `json:"value"`
	Depth      int               `json:"depth"`
	Ordered    bool              `json:"ordered"`
	Start      *int              `json:"start"`
	Checked    *bool             `json:"checked"`
	Lang       string            `json:"lang"`
	Meta       string            `json:"meta"`
	AssetID    string            `json:"assetId"`
	URL        string            `json:"url"`
	Alt        string            `json:"alt"`
	Title      string            `json:"title"`
	Caption    string            `json:"caption"`
	Align      json.RawMessage   `json:"align"`
	HasRowspan bool              `json:"hasRowspan"`
	HasColspan bool              `json:"hasColspan"`
	Header     bool              `json:"header"`
	Rowspan    int               `json:"rowspan"`
	Colspan    int               `json:"colspan"`
	HTML       string            `json:"html"`
	Provider   string            `json:"provider"`
	Identifier string            `json:"identifier"`
	Label      string            `json:"label"`
}

// DecodeTree decodes an mdast-like JSON document into a tree.
// Node types it does not recognize become UnknownNode values rather than
// errors, so producers can add node types without breaking older readers.
func DecodeTree(data []byte) (*Root, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Errorf(EINVALID, "invalid document tree: %v", err)
	}
	if raw.Type != string(NodeRoot) {
		return nil, Errorf(EINVALID, "document tree must start with a root node, got %q", raw.Type)
	}
	children, err := decodeBlocks(raw.Children)
	if err != nil {
		return nil, err
	}
	return &Root{Children: children}, nil
}

func decodeRaw(data json.RawMessage) (*rawNode, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Errorf(EINVALID, "invalid document node: %v", err)
	}
	return &raw, nil
}

func decodeBlocks(items []json.RawMessage) ([]Block, error) {
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		raw, err := decodeRaw(item)
		if err != nil {
			return nil, err
		}
		b, err := decodeBlock(raw, item)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func decodeBlock(raw *rawNode, data json.RawMessage) (Block, error) {
	switch NodeType(raw.Type) {
	case NodeParagraph:
		children, err := decodeInlines(raw.Children)
		return &Paragraph{Children: children}, err
	case NodeHeading:
		children, err := decodeInlines(raw.Children)
		return &Heading{Depth: raw.Depth, Children: children}, err
	case NodeBlockquote:
		children, err := decodeBlocks(raw.Children)
		return &Blockquote{Children: children}, err
	case NodeList:
		return decodeList(raw)
	case NodeCode:
		return &CodeBlock{Lang: raw.Lang, Meta: raw.Meta, Value: raw.Value}, nil
	case NodeMermaid:
		return &MermaidBlock{Code: raw.Value}, nil
	case NodeMath:
		return &MathBlock{TeX: raw.Value}, nil
	case NodeThematicBreak:
		return &ThematicBreak{}, nil
	case NodeImageBlock:
		return &ImageBlock{
			AssetID:     raw.AssetID,
			OriginalURL: raw.URL,
			Alt:         raw.Alt,
			Title:       raw.Title,
			Caption:     raw.Caption,
		}, nil
	case NodeTable:
		return decodeTable(raw)
	case NodeHTML:
		return &HTMLBlock{Raw: raw.Value}, nil
	case NodeEmbed:
		return &EmbedBlock{URL: raw.URL, HTML: raw.HTML, Provider: raw.Provider}, nil
	case NodeFootnoteDefinition:
		children, err := decodeBlocks(raw.Children)
		return &FootnoteDefinition{Identifier: raw.Identifier, Label: raw.Label, Children: children}, err
	default:
		return &UnknownNode{Kind: raw.Type, Raw: data}, nil
	}
}

func decodeList(raw *rawNode) (Block, error) {
	list := &List{Ordered: raw.Ordered, Start: 1}
	if raw.Start != nil {
		list.Start = *raw.Start
	}
	for _, item := range raw.Children {
		itemRaw, err := decodeRaw(item)
		if err != nil {
			return nil, err
		}
		// Lists only hold list items.
		if NodeType(itemRaw.Type) != NodeListItem {
			continue
		}
		children, err := decodeBlocks(itemRaw.Children)
		if err != nil {
			return nil, err
		}
		list.Children = append(list.Children, &ListItem{Checked: itemRaw.Checked, Children: children})
	}
	return list, nil
}

func decodeTable(raw *rawNode) (Block, error) {
	table := &Table{HasRowspan: raw.HasRowspan, HasColspan: raw.HasColspan}
	if len(raw.Align) > 0 {
		var aligns []*string
		if err := json.Unmarshal(raw.Align, &aligns); err != nil {
			return nil, Errorf(EINVALID, "invalid table alignment: %v", err)
		}
		for _, a := range aligns {
			if a == nil {
				table.Align = append(table.Align, AlignNone)
				continue
			}
			table.Align = append(table.Align, Align(*a))
		}
	}
	for _, rowData := range raw.Children {
		rowRaw, err := decodeRaw(rowData)
		if err != nil {
			return nil, err
		}
		if NodeType(rowRaw.Type) != NodeTableRow {
			continue
		}
		row := &TableRow{}
		for _, cellData := range rowRaw.Children {
			cellRaw, err := decodeRaw(cellData)
			if err != nil {
				return nil, err
			}
			if NodeType(cellRaw.Type) != NodeTableCell {
				continue
			}
			children, err := decodeInlines(cellRaw.Children)
			if err != nil {
				return nil, err
			}
			cell := &TableCell{
				Header:   cellRaw.Header,
				Rowspan:  cellRaw.Rowspan,
				Colspan:  cellRaw.Colspan,
				Children: children,
			}
			if len(cellRaw.Align) > 0 {
				var a string
				if json.Unmarshal(cellRaw.Align, &a) == nil {
					cell.Align = Align(a)
				}
			}
			if cell.Rowspan > 1 {
				table.HasRowspan = true
			}
			if cell.Colspan > 1 {
				table.HasColspan = true
			}
			row.Cells = append(row.Cells, cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func decodeInlines(items []json.RawMessage) ([]Inline, error) {
	inlines := make([]Inline, 0, len(items))
	for _, item := range items {
		raw, err := decodeRaw(item)
		if err != nil {
			return nil, err
		}
		in, err := decodeInline(raw, item)
		if err != nil {
			return nil, err
		}
		inlines = append(inlines, in)
	}
	return inlines, nil
}

func decodeInline(raw *rawNode, data json.RawMessage) (Inline, error) {
	switch NodeType(raw.Type) {
	case NodeText:
		return &Text{Value: raw.Value}, nil
	case NodeEmphasis:
		children, err := decodeInlines(raw.Children)
		return &Emphasis{Children: children}, err
	case NodeStrong:
		children, err := decodeInlines(raw.Children)
		return &Strong{Children: children}, err
	case NodeDelete:
		children, err := decodeInlines(raw.Children)
		return &Delete{Children: children}, err
	case NodeInlineCode:
		return &InlineCode{Value: raw.Value}, nil
	case NodeLink:
		children, err := decodeInlines(raw.Children)
		return &Link{URL: raw.URL, Title: raw.Title, Children: children}, err
	case NodeImage:
		return &Image{AssetID: raw.AssetID, OriginalURL: raw.URL, Alt: raw.Alt, Title: raw.Title}, nil
	case NodeInlineMath:
		return &InlineMath{TeX: raw.Value}, nil
	case NodeBreak:
		return &Break{}, nil
	case NodeHTMLInline, NodeHTML:
		return &HTMLInline{Raw: raw.Value}, nil
	case NodeFootnoteRef:
		return &FootnoteRef{Identifier: raw.Identifier, Label: raw.Label}, nil
	default:
		return &UnknownNode{Kind: raw.Type, Raw: data}, nil
	}
}
