package datatable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Normalize converts one of the accepted list response shapes into a PageResult:
//
//	[ {...}, ... ]                          total = len
//	{"data": [ ... ], "total": n}
//	{"data": {"items": [ ... ], "total": n}}
//
// When a total is missing, the envelope's meta.total is used, then the row count. dataField is
// an optional gjson path naming the rows array under data or at the root.
func Normalize(body []byte, dataField string) (PageResult, error) {
	if !gjson.ValidBytes(body) {
		return PageResult{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}

	root := gjson.ParseBytes(body)
	if success := root.Get("success"); success.Exists() && success.Type == gjson.False {
		reason := strings.TrimSpace(root.Get("error.message").String())
		if reason == "" {
			reason = strings.TrimSpace(root.Get("message").String())
		}
		if reason == "" {
			reason = "request was not successful"
		}
		return PageResult{}, &FetchError{Reason: reason}
	}

	var rows, total gjson.Result
	switch {
	case root.IsArray():
		rows = root
	case dataField != "" && root.Get("data."+dataField).IsArray():
		rows = root.Get("data." + dataField)
		total = root.Get("total")
	case dataField != "" && root.Get(dataField).IsArray():
		rows = root.Get(dataField)
		total = root.Get("total")
	case root.Get("data").IsArray():
		rows = root.Get("data")
		total = root.Get("total")
	case root.Get("data.items").IsArray():
		rows = root.Get("data.items")
		total = root.Get("data.total")
	default:
		return PageResult{}, fmt.Errorf("%w: no rows array found", ErrMalformedResponse)
	}

	if !total.Exists() && root.IsObject() {
		total = root.Get("meta.total")
	}

	parsedRows, err := decodeRows(rows)
	if err != nil {
		return PageResult{}, err
	}

	count := len(parsedRows)
	if total.Exists() {
		count, err = parseTotal(total)
		if err != nil {
			return PageResult{}, err
		}
	}

	return PageResult{Rows: parsedRows, Total: count}, nil
}

func decodeRows(array gjson.Result) ([]Row, error) {
	var badIndex = -1
	index := 0
	array.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			badIndex = index
			return false
		}
		index++
		return true
	})
	if badIndex >= 0 {
		return nil, fmt.Errorf("%w: row %d is not an object", ErrMalformedResponse, badIndex)
	}

	decoder := json.NewDecoder(strings.NewReader(array.Raw))
	decoder.UseNumber()

	rows := make([]Row, 0, index)
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return rows, nil
}

func parseTotal(total gjson.Result) (int, error) {
	var n int64
	switch total.Type {
	case gjson.Number:
		n = total.Int()
	case gjson.String:
		parsed, err := strconv.ParseInt(strings.TrimSpace(total.Str), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: total %q is not a number", ErrMalformedResponse, total.Str)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: total has type %s", ErrMalformedResponse, total.Type)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: negative total %d", ErrMalformedResponse, n)
	}

	return int(n), nil
}
