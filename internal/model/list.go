package model

// ListQuery is a parsed list request. Filters only holds keys the resource allows.
type ListQuery struct {
	Page      int    `validate:"gte=1"`
	PageSize  int    `validate:"gte=1,lte=200"`
	Search    string `validate:"max=200"`
	SortField string
	SortDesc  bool
	Filters   map[string]string `validate:"dive,keys,required,endkeys,max=200"`
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ListPage is the data member of a list response.
type ListPage struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
}
