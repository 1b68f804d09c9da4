package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"school-tables/internal/datatable"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputFilter
)

// viewMsg reports that the pane holds a newer view.
type viewMsg struct{}

// releasedMsg reports that the table was destroyed.
type releasedMsg struct{}

type opDoneMsg struct {
	op  string
	err error
}

// Model is the interactive browser for one mounted table. Table operations that fetch run as
// commands; the view is picked up from the pane once the table renders.
type Model struct {
	ctx   context.Context
	title string
	table *datatable.Table
	pane  *Pane

	keys    keyMap
	help    help.Model
	input   textinput.Model
	mode    inputMode
	spinner spinner.Model
	styles  styles

	cursor int
	width  int
	status string
	detail string
}

func NewModel(ctx context.Context, title string, table *datatable.Table, pane *Pane) *Model {
	input := textinput.New()
	input.CharLimit = 200
	input.Cursor.SetMode(cursor.CursorStatic)

	m := &Model{
		ctx:     ctx,
		title:   title,
		table:   table,
		pane:    pane,
		keys:    newKeyMap(),
		help:    help.New(),
		input:   input,
		spinner: spinner.New(),
		styles:  newStyles(),
	}

	table.RegisterHandler("view", m.showDetail)
	table.SetFallbackHandler(m.acknowledge)

	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForView(m.pane), m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case viewMsg:
		m.clampCursor()
		return m, waitForView(m.pane)

	case releasedMsg:
		return m, tea.Quit

	case opDoneMsg:
		m.finish(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	view, _ := m.pane.View()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.table.Destroy()
		return tea.Quit
	case key.Matches(msg, m.keys.Close):
		m.detail = ""
		m.status = ""
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(view.Rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Prev):
		return m.run("previous page", m.table.PrevPage)
	case key.Matches(msg, m.keys.Next):
		return m.run("next page", m.table.NextPage)
	case key.Matches(msg, m.keys.First):
		return m.run("first page", func(ctx context.Context) error { return m.table.GoToPage(ctx, 1) })
	case key.Matches(msg, m.keys.Last):
		last := view.Pagination.TotalPages
		return m.run("last page", func(ctx context.Context) error { return m.table.GoToPage(ctx, last) })
	case key.Matches(msg, m.keys.Refresh):
		return m.run("refresh", m.table.Refresh)
	case key.Matches(msg, m.keys.Sort):
		field, ok := nextSortField(view.Columns)
		if !ok {
			m.status = "no sortable columns"
			return nil
		}
		return m.run("sort", func(ctx context.Context) error { return m.table.SortBy(ctx, field) })
	case key.Matches(msg, m.keys.Reverse):
		field, ok := currentSortField(view.Columns)
		if !ok {
			m.status = "table is not sorted"
			return nil
		}
		return m.run("sort", func(ctx context.Context) error { return m.table.SortBy(ctx, field) })
	case key.Matches(msg, m.keys.Search):
		return m.openInput(inputSearch, "search: ", view.Query.Search)
	case key.Matches(msg, m.keys.Filter):
		return m.openInput(inputFilter, "filter: ", "")
	case key.Matches(msg, m.keys.Select):
		if row, ok := m.cursorRow(view); ok {
			m.table.ToggleSelect(row.ID)
		}
	case key.Matches(msg, m.keys.SelectAll):
		if view.SelectedCount > 0 {
			m.table.ClearSelection()
		} else {
			m.table.SelectAll()
		}
	case key.Matches(msg, m.keys.Bulk):
		if len(view.BulkActions) == 0 {
			m.status = "no bulk actions available"
			return nil
		}
		m.report(m.table.InvokeBulk(view.BulkActions[0].ID))
	case key.Matches(msg, m.keys.Detail):
		if row, ok := m.cursorRow(view); ok {
			if data, found := m.table.Row(row.ID); found {
				m.report(m.showDetail("view", []string{row.ID}, data))
			}
		}
	case key.Matches(msg, m.keys.Action):
		row, ok := m.cursorRow(view)
		if !ok {
			return nil
		}
		idx := int(msg.Runes[0] - '1')
		if idx >= len(row.Actions) {
			m.status = fmt.Sprintf("row has no action %d", idx+1)
			return nil
		}
		m.report(m.table.InvokeAction(row.Actions[idx].ID, row.ID))
	}

	return nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		mode := m.mode
		m.closeInput()
		return m, m.submit(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(mode inputMode, value string) tea.Cmd {
	switch mode {
	case inputSearch:
		return m.run("search", func(ctx context.Context) error { return m.table.Search(ctx, value) })
	case inputFilter:
		filters, err := parseFilters(value)
		if err != nil {
			m.status = err.Error()
			return nil
		}
		return m.run("filter", func(ctx context.Context) error { return m.table.ApplyFilters(ctx, filters) })
	default:
		return nil
	}
}

func (m *Model) openInput(mode inputMode, prompt string, value string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode = inputNone
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) finish(msg opDoneMsg) {
	switch {
	case msg.err == nil:
		m.status = ""
	case errors.Is(msg.err, datatable.ErrDestroyed), errors.Is(msg.err, context.Canceled):
	case datatable.IsLoadError(msg.err):
		m.status = msg.op + " failed"
	default:
		m.status = msg.op + ": " + msg.err.Error()
	}
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

// showDetail is the handler of the "view" row action.
func (m *Model) showDetail(_ string, ids []string, row datatable.Row) error {
	if row == nil {
		return fmt.Errorf("view needs a single row, got %d selected", len(ids))
	}
	out, err := yaml.Marshal(plainValue(map[string]any(row)))
	if err != nil {
		return fmt.Errorf("render row: %w", err)
	}
	m.detail = strings.TrimRight(string(out), "\n")
	return nil
}

// acknowledge handles actions the terminal has no dedicated handler for.
func (m *Model) acknowledge(actionID string, ids []string, _ datatable.Row) error {
	m.status = fmt.Sprintf("%s requested for %s", actionID, strings.Join(ids, ", "))
	return nil
}

func (m *Model) cursorRow(view datatable.View) (datatable.RowView, bool) {
	if m.cursor < 0 || m.cursor >= len(view.Rows) {
		return datatable.RowView{}, false
	}
	return view.Rows[m.cursor], true
}

func (m *Model) clampCursor() {
	view, _ := m.pane.View()
	if m.cursor >= len(view.Rows) {
		m.cursor = max(0, len(view.Rows)-1)
	}
}

func (m *Model) View() string {
	view, ok := m.pane.View()

	heading := m.title
	if ok && view.State == datatable.StateLoading {
		heading += " " + m.spinner.View()
	}
	if summary := querySummary(view.Query); summary != "" {
		heading += "  " + m.styles.footer.Render(summary)
	}

	sections := []string{m.styles.title.Render(heading)}
	if ok {
		sections = append(sections, renderView(view, m.width, m.cursor, m.styles))
	} else {
		sections = append(sections, m.styles.message.Render(datatable.MessageLoading))
	}
	if m.detail != "" {
		sections = append(sections, m.styles.detail.Render(m.detail))
	}
	if m.mode != inputNone {
		sections = append(sections, m.input.View())
	}
	if m.status != "" {
		sections = append(sections, m.styles.status.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// plainValue turns decoded JSON numbers into ints or floats so they print unquoted.
func plainValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	default:
		return value
	}
}

func waitForView(p *Pane) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.Updates():
			return viewMsg{}
		case <-p.Done():
			return releasedMsg{}
		}
	}
}

// parseFilters reads "key=value" pairs separated by commas. An empty value clears the key.
func parseFilters(raw string) (map[string]any, error) {
	filters := map[string]any{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q is not key=value", part)
		}
		filters[k] = strings.TrimSpace(v)
	}
	if len(filters) == 0 {
		return nil, errors.New("no filters given")
	}
	return filters, nil
}

func nextSortField(cols []datatable.HeaderCell) (string, bool) {
	var sortable []string
	current := -1
	for _, col := range cols {
		if !col.Sortable {
			continue
		}
		if col.Sort != "" {
			current = len(sortable)
		}
		sortable = append(sortable, col.Field)
	}
	if len(sortable) == 0 {
		return "", false
	}
	return sortable[(current+1)%len(sortable)], true
}

func currentSortField(cols []datatable.HeaderCell) (string, bool) {
	for _, col := range cols {
		if col.Sort != "" {
			return col.Field, true
		}
	}
	return "", false
}

func querySummary(q datatable.QueryState) string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", q.Search))
	}
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, q.Filters[k]))
	}
	return strings.Join(parts, " ")
}
