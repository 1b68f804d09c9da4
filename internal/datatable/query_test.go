package datatable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeFilters(t *testing.T) {
	t.Parallel()

	t.Run("empty string removes an existing key", func(t *testing.T) {
		q := newQueryState(10, nil, map[string]any{"a": "1"})

		q.mergeFilters(map[string]any{"a": "", "b": "x"})

		require.Equal(t, map[string]any{"b": "x"}, q.Filters)
	})

	t.Run("nil removes and other keys are kept", func(t *testing.T) {
		q := newQueryState(10, nil, map[string]any{"class": "4A", "stream": "east"})

		q.mergeFilters(map[string]any{"stream": nil, "status": "active"})

		require.Equal(t, map[string]any{"class": "4A", "status": "active"}, q.Filters)
	})

	t.Run("reserved keys are skipped", func(t *testing.T) {
		q := newQueryState(10, nil, nil)

		skipped := q.mergeFilters(map[string]any{"page": "3", "sort": "x", "class": "1"})

		require.Equal(t, []string{"page", "sort"}, skipped)
		require.Equal(t, map[string]any{"class": "1"}, q.Filters)
	})
}

func TestToggleSort(t *testing.T) {
	t.Parallel()

	q := newQueryState(10, nil, nil)
	q.Page = 4

	q.toggleSort("name")
	require.Equal(t, &Sort{Field: "name", Direction: Ascending}, q.Sort)
	require.Equal(t, 1, q.Page)

	q.toggleSort("name")
	require.Equal(t, Descending, q.Sort.Direction)

	q.toggleSort("name")
	require.Equal(t, Ascending, q.Sort.Direction)

	q.toggleSort("admitted")
	require.Equal(t, &Sort{Field: "admitted", Direction: Ascending}, q.Sort)
}

func TestClampPage(t *testing.T) {
	t.Parallel()

	q := newQueryState(10, nil, nil)

	require.Equal(t, 3, q.TotalPages(25))
	require.Equal(t, 1, q.TotalPages(0))
	require.Equal(t, 1, q.ClampPage(0, 25))
	require.Equal(t, 3, q.ClampPage(8, 25))
	require.Equal(t, 2, q.ClampPage(2, 25))
	require.Equal(t, 1, q.ClampPage(5, 0))
}

func TestQueryValues(t *testing.T) {
	t.Parallel()

	q := newQueryState(20, &Sort{Field: "name", Direction: Descending}, map[string]any{"class": "4A", "year": 2024})
	q.setSearch("  kamau ")

	values := q.Values()
	require.Equal(t, "1", values.Get("page"))
	require.Equal(t, "20", values.Get("pageSize"))
	require.Equal(t, "kamau", values.Get("search"))
	require.Equal(t, "name:desc", values.Get("sort"))
	require.Equal(t, "4A", values.Get("class"))
	require.Equal(t, "2024", values.Get("year"))

	bare := newQueryState(0, nil, nil).Values()
	require.Equal(t, "10", bare.Get("pageSize"))
	require.False(t, bare.Has("search"))
	require.False(t, bare.Has("sort"))
}

func TestQueryCloneIsIndependent(t *testing.T) {
	t.Parallel()

	q := newQueryState(10, &Sort{Field: "name"}, map[string]any{"a": "1"})
	clone := q.Clone()

	clone.Filters["b"] = "2"
	clone.Sort.Direction = Descending

	require.NotContains(t, q.Filters, "b")
	require.Equal(t, Ascending, q.Sort.Direction)
}
