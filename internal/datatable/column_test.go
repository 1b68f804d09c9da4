package datatable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderCell(t *testing.T) {
	t.Parallel()

	row := Row{
		"id":       json.Number("7"),
		"name":     "Achieng Otieno",
		"status":   "unknown",
		"balance":  json.Number("250"),
		"admitted": "2024-01-15T08:30:00Z",
		"bad_date": "not a date",
		"boarder":  true,
		"score":    json.Number("87.5"),
		"guardian": map[string]any{"name": "Mary Otieno"},
		"nothing":  nil,
	}

	tests := []struct {
		name      string
		col       Column
		wantText  string
		wantBadge string
	}{
		{
			name:      "badge with unmapped value falls back to neutral",
			col:       Column{Field: "status", Type: ColumnBadge, BadgeMap: map[string]string{"active": "success"}},
			wantText:  "unknown",
			wantBadge: NeutralBadge,
		},
		{
			name:      "badge with mapped value",
			col:       Column{Field: "status", Type: ColumnBadge, BadgeMap: map[string]string{"unknown": "warning"}},
			wantText:  "unknown",
			wantBadge: "warning",
		},
		{
			name:     "date parses RFC3339",
			col:      Column{Field: "admitted", Type: ColumnDate},
			wantText: "2024-01-15",
		},
		{
			name:     "time parses RFC3339",
			col:      Column{Field: "admitted", Type: ColumnTime},
			wantText: "08:30",
		},
		{
			name:     "invalid date renders placeholder",
			col:      Column{Field: "bad_date", Type: ColumnDate},
			wantText: Placeholder,
		},
		{
			name:     "missing time renders placeholder",
			col:      Column{Field: "missing", Type: ColumnTime},
			wantText: Placeholder,
		},
		{
			name:     "currency formats two decimals with prefix",
			col:      Column{Field: "balance", Type: ColumnCurrency},
			wantText: "KES 250.00",
		},
		{
			name:     "currency with missing value renders zero",
			col:      Column{Field: "missing", Type: ColumnCurrency},
			wantText: "KES 0.00",
		},
		{
			name:     "currency with non numeric value renders zero",
			col:      Column{Field: "name", Type: ColumnCurrency},
			wantText: "KES 0.00",
		},
		{
			name:     "plain text",
			col:      Column{Field: "name"},
			wantText: "Achieng Otieno",
		},
		{
			name:     "null renders empty",
			col:      Column{Field: "nothing"},
			wantText: "",
		},
		{
			name:     "missing field renders empty",
			col:      Column{Field: "missing"},
			wantText: "",
		},
		{
			name:     "nested field path",
			col:      Column{Field: "guardian.name"},
			wantText: "Mary Otieno",
		},
		{
			name:     "max length truncates",
			col:      Column{Field: "name", MaxLength: 7},
			wantText: "Achieng…",
		},
		{
			name:      "boolean",
			col:       Column{Field: "boarder", Type: ColumnBoolean},
			wantText:  "Yes",
			wantBadge: "success",
		},
		{
			name:     "percentage",
			col:      Column{Field: "score", Type: ColumnPercentage},
			wantText: "87.5%",
		},
		{
			name:     "number",
			col:      Column{Field: "id", Type: ColumnNumber},
			wantText: "7",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cell := RenderCell(tc.col, row, RenderOptions{})
			require.Equal(t, tc.wantText, cell.Text)
			require.Equal(t, tc.wantBadge, cell.Badge)
		})
	}
}

func TestRenderCellCustomFormatter(t *testing.T) {
	t.Parallel()

	col := Column{
		Field: "first_name",
		Type:  ColumnCustom,
		Formatter: func(value any, row Row) string {
			return stringify(value) + " " + stringify(row["last_name"])
		},
	}

	cell := RenderCell(col, Row{"first_name": "Brian", "last_name": "Kamau"}, RenderOptions{})
	require.Equal(t, "Brian Kamau", cell.Text)
	require.Equal(t, ColumnCustom, cell.Kind)
}

func TestRenderCellOptions(t *testing.T) {
	t.Parallel()

	opts := RenderOptions{CurrencyPrefix: "USD", DateLayout: "02/01/2006"}
	row := Row{"amount": 12.5, "paid_on": "2024-03-09"}

	require.Equal(t, "USD 12.50", RenderCell(Column{Field: "amount", Type: ColumnCurrency}, row, opts).Text)
	require.Equal(t, "09/03/2024", RenderCell(Column{Field: "paid_on", Type: ColumnDate}, row, opts).Text)
}

func TestRowID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "12", Row{"id": json.Number("12")}.ID(""))
	require.Equal(t, "12", Row{"ID": 12}.ID("id"))
	require.Equal(t, "ADM-4", Row{"admission_no": "ADM-4"}.ID("admission_no"))
	require.Equal(t, "", Row{"name": "x"}.ID("id"))
}
