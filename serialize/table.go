package serialize

import (
	"html"
	"strconv"
	"strings"

	"github.com/fwojciec/crosspost"
)

// markdownTable renders t as a pipe table, or as an HTML table when it has
// spanning cells and the complex table mode asks for HTML.
func (r *renderer) markdownTable(t *crosspost.Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	if hasSpans(t) {
		if r.opts.ComplexTables() == crosspost.ComplexTableHTML {
			return r.htmlTable(t)
		}
		r.warn(WarningDroppedFeature, crosspost.NodeTable, "table cell spans flattened for markdown")
	}

	rows := make([][]string, 0, len(t.Rows))
	cols := 0
	for _, row := range t.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, r.markdownCell(c.Children))
			// A spanning cell keeps its content in the first column it covers.
			for i := 1; i < c.Colspan; i++ {
				cells = append(cells, "")
			}
		}
		cols = max(cols, len(cells))
		rows = append(rows, cells)
	}
	if cols == 0 {
		return ""
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, pipeRow(rows[0], cols))
	lines = append(lines, separatorRow(t.Align, cols))
	for _, cells := range rows[1:] {
		lines = append(lines, pipeRow(cells, cols))
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) markdownCell(inlines []crosspost.Inline) string {
	s := r.markdownInlines(inlines)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "  \n", "<br>")
	return strings.ReplaceAll(s, "\n", " ")
}

// pipeRow renders cells padded with empty cells up to cols.
func pipeRow(cells []string, cols int) string {
	var b strings.Builder
	b.WriteString("|")
	for i := 0; i < cols; i++ {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(" " + cell + " |")
	}
	return b.String()
}

// separatorRow renders the header separator. Columns beyond the alignment
// list get plain dashes.
func separatorRow(aligns []crosspost.Align, cols int) string {
	var b strings.Builder
	b.WriteString("|")
	for i := 0; i < cols; i++ {
		a := crosspost.AlignNone
		if i < len(aligns) {
			a = aligns[i]
		}
		b.WriteString(" " + alignMarker(a) + " |")
	}
	return b.String()
}

func alignMarker(a crosspost.Align) string {
	switch a {
	case crosspost.AlignLeft:
		return ":---"
	case crosspost.AlignRight:
		return "---:"
	case crosspost.AlignCenter:
		return ":---:"
	default:
		return "---"
	}
}

// htmlTable renders t as an HTML table. Leading rows whose cells are all
// header cells form the thead; the rest form the tbody.
func (r *renderer) htmlTable(t *crosspost.Table) string {
	headRows := 0
	for _, row := range t.Rows {
		if !isHeaderRow(row) {
			break
		}
		headRows++
	}

	var b strings.Builder
	b.WriteString("<table>\n")
	if headRows > 0 {
		b.WriteString("<thead>\n")
		for _, row := range t.Rows[:headRows] {
			r.htmlRow(&b, row, t.Align)
		}
		b.WriteString("</thead>\n")
	}
	if headRows < len(t.Rows) {
		b.WriteString("<tbody>\n")
		for _, row := range t.Rows[headRows:] {
			r.htmlRow(&b, row, t.Align)
		}
		b.WriteString("</tbody>\n")
	}
	b.WriteString("</table>")
	return b.String()
}

func isHeaderRow(row *crosspost.TableRow) bool {
	if len(row.Cells) == 0 {
		return false
	}
	for _, c := range row.Cells {
		if !c.Header {
			return false
		}
	}
	return true
}

func (r *renderer) htmlRow(b *strings.Builder, row *crosspost.TableRow, aligns []crosspost.Align) {
	b.WriteString("<tr>")
	col := 0
	for _, c := range row.Cells {
		tag := "td"
		if c.Header {
			tag = "th"
		}
		b.WriteString("<" + tag)
		if c.Rowspan > 1 {
			b.WriteString(` rowspan="` + strconv.Itoa(c.Rowspan) + `"`)
		}
		if c.Colspan > 1 {
			b.WriteString(` colspan="` + strconv.Itoa(c.Colspan) + `"`)
		}
		align := c.Align
		if align == crosspost.AlignNone && col < len(aligns) {
			align = aligns[col]
		}
		if align != crosspost.AlignNone {
			b.WriteString(` style="text-align: ` + html.EscapeString(string(align)) + `"`)
		}
		b.WriteString(">")
		b.WriteString(r.htmlInlines(c.Children))
		b.WriteString("</" + tag + ">")
		col += max(c.Colspan, 1)
	}
	b.WriteString("</tr>\n")
}
