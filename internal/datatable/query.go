package datatable

import (
	"maps"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

const DefaultPageSize = 10

// reservedParams are query parameters owned by the table itself; filters may not use them.
var reservedParams = map[string]struct{}{
	"page":     {},
	"pageSize": {},
	"search":   {},
	"sort":     {},
}

type Sort struct {
	Field     string    `yaml:"field"`
	Direction Direction `yaml:"direction"`
}

// QueryState is the pagination, sort, search and filter state behind one list request.
type QueryState struct {
	Page     int
	PageSize int
	Search   string
	Sort     *Sort
	Filters  map[string]any
}

func newQueryState(pageSize int, sort *Sort, filters map[string]any) QueryState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := QueryState{Page: 1, PageSize: pageSize, Filters: map[string]any{}}
	if sort != nil && sort.Field != "" {
		s := *sort
		if s.Direction != Descending {
			s.Direction = Ascending
		}
		q.Sort = &s
	}
	q.mergeFilters(filters)

	return q
}

// Clone returns a copy that shares no mutable state with q.
func (q QueryState) Clone() QueryState {
	out := q
	out.Filters = maps.Clone(q.Filters)
	if out.Filters == nil {
		out.Filters = map[string]any{}
	}
	if q.Sort != nil {
		s := *q.Sort
		out.Sort = &s
	}
	return out
}

// setSearch stores the search term and rewinds to the first page.
func (q *QueryState) setSearch(term string) {
	q.Search = strings.TrimSpace(term)
	q.Page = 1
}

// mergeFilters merges the given pairs into the filter set. Empty strings and nil values remove
// the key. It returns the reserved keys that were skipped.
func (q *QueryState) mergeFilters(filters map[string]any) []string {
	if q.Filters == nil {
		q.Filters = map[string]any{}
	}

	var skipped []string
	for key, value := range filters {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, reserved := reservedParams[key]; reserved {
			skipped = append(skipped, key)
			continue
		}
		if isEmptyFilter(value) {
			delete(q.Filters, key)
			continue
		}
		q.Filters[key] = value
	}

	sort.Strings(skipped)
	return skipped
}

func (q *QueryState) toggleSort(field string) {
	if q.Sort != nil && q.Sort.Field == field {
		if q.Sort.Direction == Ascending {
			q.Sort.Direction = Descending
		} else {
			q.Sort.Direction = Ascending
		}
	} else {
		q.Sort = &Sort{Field: field, Direction: Ascending}
	}
	q.Page = 1
}

// TotalPages is the number of pages for total rows, never less than one.
func (q QueryState) TotalPages(total int) int {
	if total <= 0 || q.PageSize <= 0 {
		return 1
	}
	return (total + q.PageSize - 1) / q.PageSize
}

// ClampPage bounds n to the pages available for total rows.
func (q QueryState) ClampPage(n int, total int) int {
	last := q.TotalPages(total)
	if n < 1 {
		return 1
	}
	if n > last {
		return last
	}
	return n
}

// Values serializes the whole state into list endpoint query parameters.
func (q QueryState) Values() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Sort != nil && q.Sort.Field != "" {
		values.Set("sort", q.Sort.Field+":"+string(q.Sort.Direction))
	}
	for key, value := range q.Filters {
		values.Set(key, stringify(value))
	}
	return values
}

func isEmptyFilter(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
