package datatable

import (
	"strings"
	"unicode/utf8"
)

type ColumnType string

const (
	ColumnText       ColumnType = "text"
	ColumnNumber     ColumnType = "number"
	ColumnDate       ColumnType = "date"
	ColumnTime       ColumnType = "time"
	ColumnDateTime   ColumnType = "datetime"
	ColumnCurrency   ColumnType = "currency"
	ColumnBadge      ColumnType = "badge"
	ColumnBoolean    ColumnType = "boolean"
	ColumnPercentage ColumnType = "percentage"
	ColumnCustom     ColumnType = "custom"
)

// NeutralBadge is the category used for badge values missing from a column's badge map.
const NeutralBadge = "secondary"

// Placeholder is shown for missing or unparseable date and time values.
const Placeholder = "-"

// Formatter renders a custom column. Its output is used as is.
type Formatter func(value any, row Row) string

// Column declares how one field of a row is labelled and rendered.
type Column struct {
	Field     string            `yaml:"field" validate:"required"`
	Label     string            `yaml:"label"`
	Sortable  bool              `yaml:"sortable"`
	Type      ColumnType        `yaml:"type" validate:"omitempty,oneof=text number date time datetime currency badge boolean percentage custom"`
	BadgeMap  map[string]string `yaml:"badge_map"`
	MaxLength int               `yaml:"max_length" validate:"gte=0"`
	Formatter Formatter         `yaml:"-"`
}

// Cell is the rendered form of one column of one row.
type Cell struct {
	Kind  ColumnType
	Text  string
	Badge string
	Raw   any
}

// Row is one backend record, keyed by field name.
type Row map[string]any

// Lookup returns the value at a dotted field path. Missing segments yield nil.
func (r Row) Lookup(field string) any {
	if r == nil {
		return nil
	}

	if value, ok := r[field]; ok || !strings.Contains(field, ".") {
		return value
	}

	var current any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[part]
		case Row:
			current = node[part]
		default:
			return nil
		}
	}

	return current
}

// ID returns the string form of the row's key field.
func (r Row) ID(keyField string) string {
	if keyField == "" {
		keyField = "id"
	}

	if value := r.Lookup(keyField); value != nil {
		return stringify(value)
	}

	if keyField == "id" {
		return stringify(r.Lookup("ID"))
	}

	return ""
}

// RenderCell maps the raw value of col in row to its display form. It never panics on
// unexpected values.
func RenderCell(col Column, row Row, opts RenderOptions) Cell {
	value := row.Lookup(col.Field)
	cell := Cell{Kind: col.Type, Raw: value}
	if cell.Kind == "" {
		cell.Kind = ColumnText
	}

	switch cell.Kind {
	case ColumnBadge:
		cell.Text = stringify(value)
		cell.Badge = NeutralBadge
		if category, ok := col.BadgeMap[cell.Text]; ok && category != "" {
			cell.Badge = category
		}
	case ColumnDate:
		cell.Text = formatTimeValue(value, opts.dateLayout())
	case ColumnTime:
		cell.Text = formatTimeValue(value, opts.timeLayout())
	case ColumnDateTime:
		cell.Text = formatTimeValue(value, opts.dateTimeLayout())
	case ColumnCurrency:
		cell.Text = formatCurrency(value, opts.currencyPrefix())
	case ColumnNumber:
		cell.Text = formatNumber(value)
	case ColumnBoolean:
		if truthy(value) {
			cell.Text, cell.Badge = "Yes", "success"
		} else {
			cell.Text, cell.Badge = "No", "danger"
		}
	case ColumnPercentage:
		cell.Text = formatPercentage(value)
	case ColumnCustom:
		if col.Formatter != nil {
			cell.Text = col.Formatter(value, row)
		}
	default:
		cell.Text = truncate(stringify(value), col.MaxLength)
	}

	return cell
}

// RenderOptions carries per-table presentation settings for cells.
type RenderOptions struct {
	CurrencyPrefix string `yaml:"currency_prefix"`
	DateLayout     string `yaml:"date_layout"`
	TimeLayout     string `yaml:"time_layout"`
	DateTimeLayout string `yaml:"datetime_layout"`
}

func (o RenderOptions) currencyPrefix() string {
	if o.CurrencyPrefix == "" {
		return "KES"
	}
	return o.CurrencyPrefix
}

func (o RenderOptions) dateLayout() string {
	if o.DateLayout == "" {
		return "2006-01-02"
	}
	return o.DateLayout
}

func (o RenderOptions) timeLayout() string {
	if o.TimeLayout == "" {
		return "15:04"
	}
	return o.TimeLayout
}

func (o RenderOptions) dateTimeLayout() string {
	if o.DateTimeLayout == "" {
		return "2006-01-02 15:04"
	}
	return o.DateTimeLayout
}

func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) + "…"
}
