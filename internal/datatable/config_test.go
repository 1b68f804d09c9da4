package datatable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Endpoint: "/api/v1/students",
		Columns: []Column{
			{Field: "name", Label: "Name", Sortable: true},
			{Field: "status", Label: "Status", Type: ColumnBadge},
		},
		PageSize: 10,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "missing endpoint", mutate: func(c *Config) { c.Endpoint = "" }, wantField: "endpoint"},
		{name: "no columns", mutate: func(c *Config) { c.Columns = nil }, wantField: "columns"},
		{name: "column without field", mutate: func(c *Config) { c.Columns[0].Field = "" }, wantField: "columns[0].field"},
		{name: "duplicate column", mutate: func(c *Config) { c.Columns[1].Field = "name" }, wantField: "columns"},
		{name: "unknown column type", mutate: func(c *Config) { c.Columns[1].Type = "sparkline" }, wantField: "columns[1].type"},
		{name: "custom column without formatter", mutate: func(c *Config) { c.Columns[1].Type = ColumnCustom }, wantField: "columns[1].formatter"},
		{name: "page size too large", mutate: func(c *Config) { c.PageSize = 501 }, wantField: "page_size"},
		{name: "action without id", mutate: func(c *Config) { c.RowActions = []RowAction{{Label: "Edit"}} }, wantField: "row_actions[0].id"},
		{name: "duplicate bulk action", mutate: func(c *Config) { c.BulkActions = []RowAction{{ID: "export"}, {ID: "export"}} }, wantField: "bulk_actions"},
		{name: "default sort on unsortable column", mutate: func(c *Config) { c.DefaultSort = &Sort{Field: "status"} }, wantField: "sort.field"},
		{name: "default sort on unknown column", mutate: func(c *Config) { c.DefaultSort = &Sort{Field: "age"} }, wantField: "sort.field"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tc.wantField, cfgErr.Field)
			require.NotEmpty(t, cfgErr.Message)
		})
	}
}

func TestConfigValidateCustomFormatter(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Columns[1] = Column{Field: "full_name", Type: ColumnCustom, Formatter: func(any, Row) string { return "" }}

	require.NoError(t, cfg.Validate())
}
