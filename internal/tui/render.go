package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"school-tables/internal/datatable"
)

const (
	maxCellWidth = 32
	minCellWidth = 4
	columnGap    = "  "
	// rowPrefixWidth covers the cursor and selection markers in front of every row.
	rowPrefixWidth = 6
)

// RenderText renders a table view for a terminal of the given width. A width of zero or less
// leaves lines unbounded.
func RenderText(v datatable.View, width int) string {
	return renderView(v, width, -1, newStyles())
}

func renderView(v datatable.View, width int, cursor int, st styles) string {
	widths := columnWidths(v, width)

	lines := []string{renderHeader(v.Columns, widths, st)}

	switch {
	case v.State == datatable.StateErrored:
		msg := v.Message
		if v.Err != nil {
			msg += "\n" + v.Err.Error()
		}
		lines = append(lines, st.errText.Render(msg))
	case len(v.Rows) == 0:
		lines = append(lines, st.message.Render(v.Message))
	default:
		for i, row := range v.Rows {
			lines = append(lines, renderRow(row, widths, i == cursor, st))
		}
	}

	lines = append(lines, renderFooter(v, st))
	return strings.Join(lines, "\n")
}

func renderHeader(cols []datatable.HeaderCell, widths []int, st styles) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		label := col.Label
		style := st.header
		switch col.Sort {
		case datatable.Ascending:
			label += " ▲"
			style = st.headerSorted
		case datatable.Descending:
			label += " ▼"
			style = st.headerSorted
		}
		parts[i] = style.Render(fit(label, widths[i], false))
	}
	return strings.Repeat(" ", rowPrefixWidth) + strings.Join(parts, columnGap)
}

func renderRow(row datatable.RowView, widths []int, atCursor bool, st styles) string {
	marker := "  "
	if atCursor {
		marker = "> "
	}
	check := "[ ] "
	if row.Selected {
		check = "[x] "
	}

	parts := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		text := fit(cell.Text, widths[i], rightAligned(cell.Kind))
		if cell.Kind == datatable.ColumnBadge {
			text = st.badge(cell.Badge).Render(text)
		}
		parts[i] = text
	}

	line := marker + check + strings.Join(parts, columnGap)
	if len(row.Actions) > 0 {
		line += columnGap + st.action.Render(actionHints(row.Actions))
	}

	switch {
	case atCursor:
		return st.cursor.Render(line)
	case row.Selected:
		return st.selected.Render(line)
	default:
		return line
	}
}

func renderFooter(v datatable.View, st styles) string {
	p := v.Pagination

	var parts []string
	if p.Total > 0 && p.From > 0 {
		parts = append(parts, fmt.Sprintf("Showing %d-%d of %d", p.From, p.To, p.Total))
	} else {
		parts = append(parts, fmt.Sprintf("%d records", p.Total))
	}
	parts = append(parts, pageLinks(p, st))

	if v.State == datatable.StateLoading && len(v.Rows) > 0 {
		parts = append(parts, datatable.MessageLoading)
	}
	if v.SelectedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", v.SelectedCount))
	}
	if len(v.BulkActions) > 0 {
		labels := make([]string, len(v.BulkActions))
		for i, action := range v.BulkActions {
			labels[i] = action.Label
		}
		parts = append(parts, st.bulk.Render("bulk: "+strings.Join(labels, ", ")))
	}

	return st.footer.Render(strings.Join(parts, " · "))
}

func pageLinks(p datatable.Pagination, st styles) string {
	links := make([]string, 0, len(p.Links)+2)
	if p.HasPrev {
		links = append(links, "«")
	}
	for _, link := range p.Links {
		switch {
		case link.Gap:
			links = append(links, st.gap.Render("…"))
		case link.Current:
			links = append(links, st.pageCurrent.Render(fmt.Sprintf("[%d]", link.Page)))
		default:
			links = append(links, fmt.Sprint(link.Page))
		}
	}
	if p.HasNext {
		links = append(links, "»")
	}
	return strings.Join(links, " ")
}

func actionHints(actions []datatable.ActionView) string {
	hints := make([]string, 0, len(actions))
	for i, action := range actions {
		if i >= 9 {
			break
		}
		hints = append(hints, fmt.Sprintf("%d:%s", i+1, action.Label))
	}
	return strings.Join(hints, " ")
}

// columnWidths sizes every column to its widest value, capped, then shrinks the widest columns
// until the row fits into width.
func columnWidths(v datatable.View, width int) []int {
	widths := make([]int, len(v.Columns))
	for i, col := range v.Columns {
		w := lipgloss.Width(col.Label)
		if col.Sortable {
			w += 2
		}
		widths[i] = w
	}
	for _, row := range v.Rows {
		for i, cell := range row.Cells {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell.Text))
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], minCellWidth), maxCellWidth)
	}

	if width <= 0 || len(widths) == 0 {
		return widths
	}

	available := width - rowPrefixWidth - len(columnGap)*(len(widths)-1)
	for sum(widths) > available {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minCellWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

// fit pads or truncates text to exactly width cells.
func fit(text string, width int, right bool) string {
	if lipgloss.Width(text) > width {
		runes := []rune(text)
		for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
			runes = runes[:len(runes)-1]
		}
		text = string(runes) + "…"
	}

	pad := strings.Repeat(" ", max(0, width-lipgloss.Width(text)))
	if right {
		return pad + text
	}
	return text + pad
}

func rightAligned(kind datatable.ColumnType) bool {
	switch kind {
	case datatable.ColumnNumber, datatable.ColumnCurrency, datatable.ColumnPercentage:
		return true
	default:
		return false
	}
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
