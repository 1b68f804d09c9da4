package datatable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"school-tables/internal/auth"
)

// Host resolves render targets by container id.
type Host interface {
	Surface(containerID string) (Surface, error)
}

// Surface displays views for one table. Render is called with the table lock held, so it must
// not call back into the table.
type Surface interface {
	Render(View)
	Release()
}

// Table is a list view bound to one container. It owns its query state and the latest page.
type Table struct {
	mu          sync.Mutex
	containerID string
	cfg         Config
	surface     Surface
	adapter     *Adapter
	dispatcher  *Dispatcher

	query    QueryState
	result   PageResult
	loaded   bool
	state    State
	lastErr  error
	selected map[string]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	destroyed bool
}

// Mount validates cfg, binds the table to containerID and issues the first fetch. A failed
// first fetch leaves the table mounted in the errored state; only configuration problems make
// Mount fail.
func Mount(ctx context.Context, host Host, containerID string, cfg Config, transport Transport, authCtx auth.Context) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, &ConfigError{Field: "transport", Message: "is required"}
	}
	if host == nil {
		return nil, &ConfigError{Field: "host", Message: "is required"}
	}

	surface, err := host.Surface(containerID)
	if err != nil {
		return nil, &ConfigError{Field: "container", Message: fmt.Sprintf("%q: %v", containerID, err)}
	}

	lifetime, cancel := context.WithCancel(context.Background())
	t := &Table{
		containerID: containerID,
		cfg:         cfg,
		surface:     surface,
		adapter:     NewAdapter(transport, cfg.DataField),
		dispatcher:  NewDispatcher(cfg.RowActions, cfg.BulkActions, cfg.Handlers, cfg.OnRowAction, authCtx, cfg.PermissionPolicy),
		query:       newQueryState(cfg.PageSize, cfg.DefaultSort, cfg.Filters),
		state:       StateIdle,
		selected:    map[string]struct{}{},
		ctx:         lifetime,
		cancel:      cancel,
	}

	slog.Debug("datatable mounted", "container", containerID, "endpoint", cfg.Endpoint, "columns", len(cfg.Columns))

	if err := t.reload(ctx); err != nil && !IsLoadError(err) {
		return t, err
	}

	return t, nil
}

func (t *Table) ContainerID() string {
	return t.containerID
}

// Search sets the search term, rewinds to the first page and reloads.
func (t *Table) Search(ctx context.Context, term string) error {
	if err := t.mutate(func(q *QueryState) { q.setSearch(term) }); err != nil {
		return err
	}
	return t.reload(ctx)
}

// ApplyFilters merges filters into the current filter set, rewinds to the first page and
// reloads. Empty string and nil values clear their key.
func (t *Table) ApplyFilters(ctx context.Context, filters map[string]any) error {
	err := t.mutate(func(q *QueryState) {
		if skipped := q.mergeFilters(filters); len(skipped) > 0 {
			slog.Warn("datatable ignored reserved filter keys", "container", t.containerID, "keys", skipped)
		}
		q.Page = 1
	})
	if err != nil {
		return err
	}
	return t.reload(ctx)
}

// SortBy sorts by field ascending, or flips the direction when field is already the sort key.
func (t *Table) SortBy(ctx context.Context, field string) error {
	col, ok := t.cfg.column(field)
	if !ok || !col.Sortable {
		return fmt.Errorf("%w: %q", ErrNotSortable, field)
	}

	if err := t.mutate(func(q *QueryState) { q.toggleSort(field) }); err != nil {
		return err
	}
	return t.reload(ctx)
}

// GoToPage moves to page n, clamped to the available pages. Staying on the current page does
// not reload.
func (t *Table) GoToPage(ctx context.Context, n int) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrDestroyed
	}
	target := t.query.ClampPage(n, t.result.Total)
	if target == t.query.Page {
		t.mu.Unlock()
		return nil
	}
	t.query.Page = target
	t.mu.Unlock()

	return t.reload(ctx)
}

func (t *Table) NextPage(ctx context.Context) error {
	return t.GoToPage(ctx, t.Query().Page+1)
}

func (t *Table) PrevPage(ctx context.Context) error {
	return t.GoToPage(ctx, t.Query().Page-1)
}

// Refresh reloads the current page, e.g. after rows were changed elsewhere on the page.
func (t *Table) Refresh(ctx context.Context) error {
	return t.reload(ctx)
}

// Rerender pushes the current view again without fetching. Action visibility is recomputed,
// so permission changes show up immediately.
func (t *Table) Rerender() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.renderLocked()
}

// Destroy releases the surface and invalidates in-flight requests. Responses arriving later
// are ignored and further operations return ErrDestroyed.
func (t *Table) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return
	}

	t.destroyed = true
	t.adapter.Cancel()
	t.cancel()
	t.state = StateIdle
	t.surface.Release()

	slog.Debug("datatable destroyed", "container", t.containerID)
}

func (t *Table) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err is the failure behind the errored state, or nil.
func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Table) Query() QueryState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.query.Clone()
}

// Total is the row count of the last successful load. It survives a failed reload.
func (t *Table) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result.Total
}

// Rows returns a copy of the rows of the last successful load.
func (t *Table) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]Row, len(t.result.Rows))
	for i, row := range t.result.Rows {
		rows[i] = cloneRow(row)
	}
	return rows
}

func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked()
}

// InvokeAction runs a row action for the row with rowID on the current page. The handler gets
// a copy of the row as it was at invocation time.
func (t *Table) InvokeAction(actionID string, rowID string) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrDestroyed
	}
	row, ok := t.findRowLocked(rowID)
	if ok {
		row = cloneRow(row)
	}
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrRowNotFound, rowID)
	}

	return t.dispatcher.Invoke(actionID, []string{rowID}, row)
}

// InvokeBulk runs a bulk action over the selected row ids.
func (t *Table) InvokeBulk(actionID string) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrDestroyed
	}
	ids := t.selectedIDsLocked()
	t.mu.Unlock()

	return t.dispatcher.Invoke(actionID, ids, nil)
}

// RegisterHandler binds a handler to an action id after mount.
func (t *Table) RegisterHandler(actionID string, handler ActionFunc) {
	t.dispatcher.Register(actionID, handler)
}

// SetFallbackHandler replaces the handler for actions that have none of their own.
func (t *Table) SetFallbackHandler(handler ActionFunc) {
	t.dispatcher.SetFallback(handler)
}

// Row returns a copy of the row with rowID on the current page.
func (t *Table) Row(rowID string) (Row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.findRowLocked(rowID)
	if !ok {
		return nil, false
	}
	return cloneRow(row), true
}

// ToggleSelect flips the selection of rowID and reports whether it is now selected.
func (t *Table) ToggleSelect(rowID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, selected := t.selected[rowID]
	if selected {
		delete(t.selected, rowID)
	} else if rowID != "" {
		t.selected[rowID] = struct{}{}
	}
	t.renderLocked()

	return !selected && rowID != ""
}

// SelectAll selects every row on the current page.
func (t *Table) SelectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, row := range t.result.Rows {
		if id := row.ID(t.cfg.RowKey); id != "" {
			t.selected[id] = struct{}{}
		}
	}
	t.renderLocked()
}

func (t *Table) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.selected)
	t.renderLocked()
}

// SelectedIDs lists selected row ids in ascending order. Selection survives page changes.
func (t *Table) SelectedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selectedIDsLocked()
}

// SelectedRows returns copies of the selected rows present on the current page.
func (t *Table) SelectedRows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rows []Row
	for _, row := range t.result.Rows {
		if _, ok := t.selected[row.ID(t.cfg.RowKey)]; ok {
			rows = append(rows, cloneRow(row))
		}
	}
	return rows
}

func (t *Table) mutate(fn func(q *QueryState)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return ErrDestroyed
	}

	fn(&t.query)
	return nil
}

// reload fetches the page described by the current query. Only the newest request may change
// the table; older responses are dropped.
func (t *Table) reload(ctx context.Context) error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return ErrDestroyed
	}
	ticket := t.adapter.Next()
	query := t.query.Clone()
	t.state = StateLoading
	t.renderLocked()
	t.mu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.ctx, cancel)
	defer stop()

	slog.Debug("datatable loading", "container", t.containerID, "endpoint", t.cfg.Endpoint, "query", query.Values().Encode())
	result, err := t.adapter.Fetch(reqCtx, ticket, t.cfg.Endpoint, query)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return ErrDestroyed
	}
	if errors.Is(err, ErrSuperseded) || !t.adapter.Current(ticket) {
		return nil
	}

	if err != nil {
		t.state = StateErrored
		t.lastErr = err
		slog.Warn("datatable load failed", "container", t.containerID, "endpoint", t.cfg.Endpoint, "error", err)
		t.renderLocked()
		return err
	}

	t.result = result
	t.loaded = true
	t.state = StateRendered
	t.lastErr = nil
	t.renderLocked()

	return nil
}

func (t *Table) renderLocked() {
	t.surface.Render(t.viewLocked())
}

func (t *Table) viewLocked() View {
	view := View{
		ContainerID:   t.containerID,
		State:         t.state,
		Columns:       t.headerLocked(),
		BulkActions:   actionViews(t.dispatcher.BulkActions()),
		SelectedCount: len(t.selected),
		Query:         t.query.Clone(),
	}

	switch {
	case t.state == StateErrored:
		view.Message = MessageLoadError
		view.Err = t.lastErr
		view.Pagination = buildPagination(t.query, t.result.Total, 0)
		return view
	case !t.loaded:
		view.Message = MessageLoading
		view.Pagination = buildPagination(t.query, 0, 0)
		return view
	}

	view.Rows = make([]RowView, 0, len(t.result.Rows))
	for _, row := range t.result.Rows {
		id := row.ID(t.cfg.RowKey)
		cells := make([]Cell, len(t.cfg.Columns))
		for i, col := range t.cfg.Columns {
			cells[i] = RenderCell(col, row, t.cfg.Render)
		}
		_, selected := t.selected[id]
		view.Rows = append(view.Rows, RowView{
			ID:       id,
			Cells:    cells,
			Actions:  actionViews(t.dispatcher.RowActions(row)),
			Selected: selected,
		})
	}

	if len(view.Rows) == 0 {
		view.Message = MessageNoRecords
	} else if t.state == StateLoading {
		view.Message = MessageLoading
	}
	view.Pagination = buildPagination(t.query, t.result.Total, len(view.Rows))

	return view
}

func (t *Table) headerLocked() []HeaderCell {
	header := make([]HeaderCell, len(t.cfg.Columns))
	for i, col := range t.cfg.Columns {
		label := col.Label
		if label == "" {
			label = col.Field
		}
		header[i] = HeaderCell{Field: col.Field, Label: label, Sortable: col.Sortable}
		if t.query.Sort != nil && t.query.Sort.Field == col.Field {
			header[i].Sort = t.query.Sort.Direction
		}
	}
	return header
}

func (t *Table) findRowLocked(rowID string) (Row, bool) {
	idx := slices.IndexFunc(t.result.Rows, func(row Row) bool {
		return row.ID(t.cfg.RowKey) == rowID
	})
	if idx < 0 {
		return nil, false
	}
	return t.result.Rows[idx], true
}

func (t *Table) selectedIDsLocked() []string {
	ids := make([]string, 0, len(t.selected))
	for id := range t.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
