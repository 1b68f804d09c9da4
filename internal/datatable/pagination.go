package datatable

// windowRadius is how many page links are shown on each side of the current page.
const windowRadius = 2

// PageLink is one entry of the pagination control. Gap entries stand for skipped pages.
type PageLink struct {
	Page    int
	Current bool
	Gap     bool
}

type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	From       int
	To         int
	HasPrev    bool
	HasNext    bool
	Links      []PageLink
}

func buildPagination(q QueryState, total int, rowsOnPage int) Pagination {
	last := q.TotalPages(total)
	p := Pagination{
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: last,
		HasPrev:    q.Page > 1,
		HasNext:    q.Page < last,
		Links:      pageWindow(q.Page, last),
	}

	if rowsOnPage > 0 {
		p.From = (q.Page-1)*q.PageSize + 1
		p.To = p.From + rowsOnPage - 1
	}

	return p
}

// pageWindow lists the pages around current, always including the first and last page and
// marking skipped ranges with a gap.
func pageWindow(current int, last int) []PageLink {
	if last < 1 {
		last = 1
	}
	start := max(1, current-windowRadius)
	end := min(last, current+windowRadius)

	links := make([]PageLink, 0, end-start+5)
	if start > 1 {
		links = append(links, PageLink{Page: 1})
		if start > 2 {
			links = append(links, PageLink{Gap: true})
		}
	}

	for page := start; page <= end; page++ {
		links = append(links, PageLink{Page: page, Current: page == current})
	}

	if end < last {
		if end < last-1 {
			links = append(links, PageLink{Gap: true})
		}
		links = append(links, PageLink{Page: last})
	}

	return links
}
