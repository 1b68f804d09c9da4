package datatable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"school-tables/internal/auth"
)

type fakeSurface struct {
	mu       sync.Mutex
	views    []View
	released bool
}

func (s *fakeSurface) Render(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

func (s *fakeSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

func (s *fakeSurface) last() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[len(s.views)-1]
}

func (s *fakeSurface) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

type fakeHost struct {
	surfaces map[string]*fakeSurface
}

func newFakeHost(ids ...string) *fakeHost {
	h := &fakeHost{surfaces: map[string]*fakeSurface{}}
	for _, id := range ids {
		h.surfaces[id] = &fakeSurface{}
	}
	return h
}

func (h *fakeHost) Surface(containerID string) (Surface, error) {
	s, ok := h.surfaces[containerID]
	if !ok {
		return nil, errors.New("no such container")
	}
	return s, nil
}

// pagedTransport serves total generated rows, sliced by the page and pageSize params.
type pagedTransport struct {
	mu    sync.Mutex
	total int
	fail  error
	calls []url.Values
}

func (p *pagedTransport) Get(_ context.Context, _ string, params url.Values) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, params)
	if p.fail != nil {
		return nil, p.fail
	}

	page, _ := strconv.Atoi(params.Get("page"))
	size, _ := strconv.Atoi(params.Get("pageSize"))
	items := []map[string]any{}
	for i := (page-1)*size + 1; i <= min(page*size, p.total); i++ {
		items = append(items, map[string]any{"id": i, "name": fmt.Sprintf("Student %d", i), "status": "active"})
	}

	return json.Marshal(map[string]any{
		"success": true,
		"data":    map[string]any{"items": items, "total": p.total},
	})
}

func (p *pagedTransport) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *pagedTransport) lastCall() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func (p *pagedTransport) setFail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

type gatedResponse struct {
	body []byte
	err  error
}

// gatedTransport blocks every request until the test releases it, so responses can be
// delivered in any order.
type gatedTransport struct {
	mu      sync.Mutex
	gates   []chan gatedResponse
	started chan int
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{started: make(chan int, 16)}
}

func (g *gatedTransport) Get(ctx context.Context, _ string, _ url.Values) ([]byte, error) {
	g.mu.Lock()
	gate := make(chan gatedResponse, 1)
	g.gates = append(g.gates, gate)
	idx := len(g.gates) - 1
	g.mu.Unlock()

	g.started <- idx

	select {
	case r := <-gate:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedTransport) release(t *testing.T, idx int, body string) {
	t.Helper()
	g.mu.Lock()
	gate := g.gates[idx]
	g.mu.Unlock()
	gate <- gatedResponse{body: []byte(body)}
}

func (g *gatedTransport) waitStarted(t *testing.T) int {
	t.Helper()
	select {
	case idx := <-g.started:
		return idx
	case <-time.After(2 * time.Second):
		t.Fatal("request was not issued")
		return -1
	}
}

func studentsConfig() Config {
	return Config{
		Endpoint: "/api/v1/students",
		Columns: []Column{
			{Field: "name", Label: "Name", Sortable: true},
			{Field: "status", Label: "Status", Type: ColumnBadge, BadgeMap: map[string]string{"active": "success"}},
		},
		PageSize: 10,
	}
}

func mountPaged(t *testing.T, total int, cfg Config) (*Table, *pagedTransport, *fakeSurface) {
	t.Helper()

	host := newFakeHost("students")
	transport := &pagedTransport{total: total}
	table, err := Mount(context.Background(), host, "students", cfg, transport, nil)
	require.NoError(t, err)
	t.Cleanup(table.Destroy)

	return table, transport, host.surfaces["students"]
}

func TestMount(t *testing.T) {
	t.Parallel()

	t.Run("first page is rendered", func(t *testing.T) {
		table, transport, surface := mountPaged(t, 25, studentsConfig())

		require.Equal(t, StateRendered, table.State())
		require.Equal(t, 1, transport.callCount())
		require.GreaterOrEqual(t, surface.count(), 2)

		view := surface.last()
		require.Equal(t, "students", view.ContainerID)
		require.Len(t, view.Rows, 10)
		require.Equal(t, "1", view.Rows[0].ID)
		require.Equal(t, "Student 1", view.Rows[0].Cells[0].Text)
		require.Equal(t, "success", view.Rows[0].Cells[1].Badge)
		require.Equal(t, 3, view.Pagination.TotalPages)
		require.Empty(t, view.Message)
	})

	t.Run("first render shows loading", func(t *testing.T) {
		_, _, surface := mountPaged(t, 3, studentsConfig())

		surface.mu.Lock()
		first := surface.views[0]
		surface.mu.Unlock()

		require.Equal(t, StateLoading, first.State)
		require.Equal(t, MessageLoading, first.Message)
	})

	t.Run("default sort and filters are sent", func(t *testing.T) {
		cfg := studentsConfig()
		cfg.DefaultSort = &Sort{Field: "name", Direction: Descending}
		cfg.Filters = map[string]any{"class": "4A"}

		_, transport, surface := mountPaged(t, 3, cfg)

		call := transport.lastCall()
		require.Equal(t, "name:desc", call.Get("sort"))
		require.Equal(t, "4A", call.Get("class"))
		require.Equal(t, Descending, surface.last().Columns[0].Sort)
	})

	t.Run("unknown container is a config error", func(t *testing.T) {
		_, err := Mount(context.Background(), newFakeHost(), "missing", studentsConfig(), &pagedTransport{}, nil)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		require.Equal(t, "container", cfgErr.Field)
	})

	t.Run("invalid config is rejected before fetching", func(t *testing.T) {
		transport := &pagedTransport{}
		cfg := studentsConfig()
		cfg.Columns = nil

		_, err := Mount(context.Background(), newFakeHost("students"), "students", cfg, transport, nil)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		require.Zero(t, transport.callCount())
	})

	t.Run("missing transport", func(t *testing.T) {
		_, err := Mount(context.Background(), newFakeHost("students"), "students", studentsConfig(), nil, nil)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("failed first load keeps table mounted", func(t *testing.T) {
		host := newFakeHost("students")
		transport := &pagedTransport{fail: errors.New("connection refused")}

		table, err := Mount(context.Background(), host, "students", studentsConfig(), transport, nil)
		require.NoError(t, err)
		t.Cleanup(table.Destroy)

		require.Equal(t, StateErrored, table.State())
		view := host.surfaces["students"].last()
		require.Equal(t, MessageLoadError, view.Message)
		require.Error(t, view.Err)
		require.Empty(t, view.Rows)
	})
}

func TestGoToPage(t *testing.T) {
	t.Parallel()

	t.Run("last page shows remaining rows", func(t *testing.T) {
		table, _, surface := mountPaged(t, 25, studentsConfig())

		require.NoError(t, table.GoToPage(context.Background(), 3))

		view := surface.last()
		require.Len(t, view.Rows, 5)
		require.Equal(t, "21", view.Rows[0].ID)
		require.Equal(t, "25", view.Rows[4].ID)
		require.Equal(t, 3, view.Pagination.TotalPages)
		require.Equal(t, 21, view.Pagination.From)
		require.Equal(t, 25, view.Pagination.To)
		require.False(t, view.Pagination.HasNext)
	})

	t.Run("out of range pages are clamped", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())

		require.NoError(t, table.GoToPage(context.Background(), 99))
		require.Equal(t, 3, table.Query().Page)
		require.Equal(t, "3", transport.lastCall().Get("page"))

		require.NoError(t, table.GoToPage(context.Background(), -4))
		require.Equal(t, 1, table.Query().Page)
	})

	t.Run("current page does not reload", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())

		require.NoError(t, table.GoToPage(context.Background(), 1))
		require.NoError(t, table.PrevPage(context.Background()))
		require.Equal(t, 1, transport.callCount())
	})

	t.Run("next and previous", func(t *testing.T) {
		table, _, _ := mountPaged(t, 25, studentsConfig())

		require.NoError(t, table.NextPage(context.Background()))
		require.NoError(t, table.NextPage(context.Background()))
		require.NoError(t, table.NextPage(context.Background()))
		require.Equal(t, 3, table.Query().Page)

		require.NoError(t, table.PrevPage(context.Background()))
		require.Equal(t, 2, table.Query().Page)
	})
}

func TestQueryChangesResetPage(t *testing.T) {
	t.Parallel()

	t.Run("search", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())
		require.NoError(t, table.GoToPage(context.Background(), 2))

		require.NoError(t, table.Search(context.Background(), " kamau "))

		require.Equal(t, 1, table.Query().Page)
		require.Equal(t, "kamau", transport.lastCall().Get("search"))
		require.Equal(t, "1", transport.lastCall().Get("page"))
	})

	t.Run("filters merge and clear", func(t *testing.T) {
		cfg := studentsConfig()
		cfg.Filters = map[string]any{"a": "1"}
		table, transport, _ := mountPaged(t, 25, cfg)
		require.NoError(t, table.GoToPage(context.Background(), 3))

		require.NoError(t, table.ApplyFilters(context.Background(), map[string]any{"a": "", "b": "x", "page": "9"}))

		require.Equal(t, map[string]any{"b": "x"}, table.Query().Filters)
		require.Equal(t, 1, table.Query().Page)
		call := transport.lastCall()
		require.False(t, call.Has("a"))
		require.Equal(t, "x", call.Get("b"))
		require.Equal(t, "1", call.Get("page"))
	})

	t.Run("sort toggles", func(t *testing.T) {
		table, transport, surface := mountPaged(t, 25, studentsConfig())
		require.NoError(t, table.GoToPage(context.Background(), 2))

		require.NoError(t, table.SortBy(context.Background(), "name"))
		require.Equal(t, "name:asc", transport.lastCall().Get("sort"))
		require.Equal(t, 1, table.Query().Page)
		require.Equal(t, Ascending, surface.last().Columns[0].Sort)

		require.NoError(t, table.SortBy(context.Background(), "name"))
		require.Equal(t, "name:desc", transport.lastCall().Get("sort"))
	})

	t.Run("unsortable column is rejected", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())

		require.ErrorIs(t, table.SortBy(context.Background(), "status"), ErrNotSortable)
		require.ErrorIs(t, table.SortBy(context.Background(), "age"), ErrNotSortable)
		require.Equal(t, 1, transport.callCount())
	})

	t.Run("refresh keeps page", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())
		require.NoError(t, table.GoToPage(context.Background(), 2))

		require.NoError(t, table.Refresh(context.Background()))
		require.Equal(t, "2", transport.lastCall().Get("page"))
		require.Equal(t, 3, transport.callCount())
	})
}

func TestEmptyResult(t *testing.T) {
	t.Parallel()

	table, _, surface := mountPaged(t, 0, studentsConfig())

	require.Equal(t, StateRendered, table.State())
	view := surface.last()
	require.Empty(t, view.Rows)
	require.Equal(t, MessageNoRecords, view.Message)
	require.Equal(t, 1, view.Pagination.TotalPages)
}

func TestReloadFailureKeepsTotal(t *testing.T) {
	t.Parallel()

	table, transport, surface := mountPaged(t, 25, studentsConfig())
	transport.setFail(errors.New("connection reset"))

	err := table.Refresh(context.Background())
	require.True(t, IsLoadError(err))

	require.Equal(t, StateErrored, table.State())
	require.Equal(t, 25, table.Total())
	require.Equal(t, MessageLoadError, surface.last().Message)
	require.ErrorIs(t, table.Err(), err)

	transport.setFail(nil)
	require.NoError(t, table.Refresh(context.Background()))
	require.Equal(t, StateRendered, table.State())
	require.NoError(t, table.Err())
}

func TestLastRequestWins(t *testing.T) {
	t.Parallel()

	host := newFakeHost("students")
	transport := newGatedTransport()

	go func() {
		idx := <-transport.started
		transport.release(t, idx, `[{"id":1,"name":"initial"}]`)
	}()

	table, err := Mount(context.Background(), host, "students", studentsConfig(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(table.Destroy)

	first := make(chan error, 1)
	go func() { first <- table.Search(context.Background(), "t1") }()
	t1 := transport.waitStarted(t)

	second := make(chan error, 1)
	go func() { second <- table.Search(context.Background(), "t2") }()
	t2 := transport.waitStarted(t)

	transport.release(t, t2, `{"data":[{"id":2,"name":"from t2"}],"total":1}`)
	require.NoError(t, <-second)

	transport.release(t, t1, `{"data":[{"id":1,"name":"from t1"}],"total":1}`)
	require.NoError(t, <-first)

	view := host.surfaces["students"].last()
	require.Equal(t, StateRendered, view.State)
	require.Len(t, view.Rows, 1)
	require.Equal(t, "from t2", view.Rows[0].Cells[0].Text)
	require.Equal(t, "t2", table.Query().Search)
	require.Equal(t, "2", table.Rows()[0].ID(""))
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	t.Run("late response is ignored", func(t *testing.T) {
		host := newFakeHost("students")
		transport := newGatedTransport()

		go func() {
			idx := <-transport.started
			transport.release(t, idx, `[{"id":1,"name":"initial"}]`)
		}()
		table, err := Mount(context.Background(), host, "students", studentsConfig(), transport, nil)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- table.Refresh(context.Background()) }()
		transport.waitStarted(t)

		table.Destroy()
		surface := host.surfaces["students"]
		rendered := surface.count()

		require.ErrorIs(t, <-done, ErrDestroyed)
		require.True(t, surface.released)
		require.Equal(t, rendered, surface.count())
		require.Equal(t, StateIdle, table.State())
	})

	t.Run("operations after destroy fail", func(t *testing.T) {
		table, transport, _ := mountPaged(t, 25, studentsConfig())
		table.Destroy()
		table.Destroy()

		require.ErrorIs(t, table.Search(context.Background(), "x"), ErrDestroyed)
		require.ErrorIs(t, table.GoToPage(context.Background(), 2), ErrDestroyed)
		require.ErrorIs(t, table.Refresh(context.Background()), ErrDestroyed)
		require.ErrorIs(t, table.InvokeAction("view", "1"), ErrDestroyed)
		require.Equal(t, 1, transport.callCount())
	})
}

func TestTableActions(t *testing.T) {
	t.Parallel()

	user := &auth.User{ID: "1", Permissions: []string{"students_edit"}}
	session := auth.NewSession("token", user)

	var invoked []string
	var mu sync.Mutex
	record := func(actionID string, ids []string, row Row) error {
		mu.Lock()
		defer mu.Unlock()
		invoked = append(invoked, fmt.Sprintf("%s:%v", actionID, ids))
		if row != nil {
			row["name"] = "mutated"
		}
		return nil
	}

	cfg := studentsConfig()
	cfg.RowActions = []RowAction{
		{ID: "edit", Label: "Edit", Permission: "students_edit"},
		{ID: "delete", Permission: "students_delete", Variant: "danger"},
	}
	cfg.BulkActions = []RowAction{{ID: "export", Label: "Export"}}
	cfg.OnRowAction = record

	host := newFakeHost("students")
	table, err := Mount(context.Background(), host, "students", cfg, &pagedTransport{total: 12}, session)
	require.NoError(t, err)
	t.Cleanup(table.Destroy)

	surface := host.surfaces["students"]
	view := surface.last()
	require.Equal(t, []ActionView{{ID: "edit", Label: "Edit", Variant: "info"}}, view.Rows[0].Actions)
	require.Equal(t, []ActionView{{ID: "export", Label: "Export", Variant: "info"}}, view.BulkActions)

	require.NoError(t, table.InvokeAction("edit", "3"))
	require.Equal(t, "Student 3", table.Rows()[2]["name"])

	require.ErrorIs(t, table.InvokeAction("delete", "3"), ErrActionNotPermitted)
	require.ErrorIs(t, table.InvokeAction("edit", "404"), ErrRowNotFound)

	session.Update("token", &auth.User{ID: "1", Permissions: []string{"students_edit", "students_delete"}})
	table.Rerender()
	require.Len(t, surface.last().Rows[0].Actions, 2)

	require.True(t, table.ToggleSelect("2"))
	require.True(t, table.ToggleSelect("5"))
	require.False(t, table.ToggleSelect("5"))
	require.Equal(t, []string{"2"}, table.SelectedIDs())
	require.Equal(t, 1, surface.last().SelectedCount)
	require.True(t, surface.last().Rows[1].Selected)

	require.NoError(t, table.InvokeBulk("export"))

	table.SelectAll()
	require.Len(t, table.SelectedIDs(), 10)
	require.Len(t, table.SelectedRows(), 10)

	table.ClearSelection()
	require.Empty(t, table.SelectedIDs())

	var handled bool
	table.RegisterHandler("edit", func(string, []string, Row) error {
		handled = true
		return nil
	})
	require.NoError(t, table.InvokeAction("edit", "1"))
	require.True(t, handled)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"edit:[3]", "export:[2]"}, invoked)
}
