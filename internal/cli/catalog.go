package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"school-tables/internal/datatable"
)

//go:embed tables.yaml
var defaultTables []byte

// TableDef is one table definition: a datatable config plus a display title.
type TableDef struct {
	Title            string `yaml:"title"`
	datatable.Config `yaml:",inline"`
}

// Catalog holds table definitions in file order.
type Catalog struct {
	tables map[string]TableDef
	order  []string
}

// LoadCatalog reads table definitions from path, or the built-in definitions when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultTables)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table definitions: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse table definitions: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("table definitions must be a mapping of resource name to table")
	}

	mapping := root.Content[0]
	catalog := &Catalog{tables: map[string]TableDef{}}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := strings.TrimSpace(mapping.Content[i].Value)

		var def TableDef
		if err := mapping.Content[i+1].Decode(&def); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		if def.Title == "" {
			def.Title = name
		}
		if err := def.Config.Validate(); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		if _, dup := catalog.tables[name]; dup {
			return nil, fmt.Errorf("table %q is defined twice", name)
		}

		catalog.tables[name] = def
		catalog.order = append(catalog.order, name)
	}

	return catalog, nil
}

func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Table returns the definition for name. The config is a copy the caller may change.
func (c *Catalog) Table(name string) (TableDef, bool) {
	def, ok := c.tables[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TableDef{}, false
	}

	cfg := def.Config
	cfg.Columns = append([]datatable.Column(nil), cfg.Columns...)
	cfg.RowActions = append([]datatable.RowAction(nil), cfg.RowActions...)
	cfg.BulkActions = append([]datatable.RowAction(nil), cfg.BulkActions...)
	if cfg.DefaultSort != nil {
		sort := *cfg.DefaultSort
		cfg.DefaultSort = &sort
	}
	filters := make(map[string]any, len(cfg.Filters))
	for k, v := range cfg.Filters {
		filters[k] = v
	}
	cfg.Filters = filters
	def.Config = cfg

	return def, true
}
