package resource

import (
	"fmt"
	"slices"
	"strings"
)

// Column is one field of a list resource. Expr is the SQL expression selected under Name.
type Column struct {
	Name       string
	Expr       string
	Searchable bool
	Sortable   bool
	Filterable bool
}

// Resource describes a listable table: what it selects, who may read it and how it may be
// searched, sorted and filtered.
type Resource struct {
	Name        string
	From        string
	Permission  string
	Key         string
	Columns     []Column
	DefaultSort string
	DefaultDesc bool
}

func (r Resource) Column(name string) (Column, bool) {
	idx := slices.IndexFunc(r.Columns, func(c Column) bool { return c.Name == name })
	if idx < 0 {
		return Column{}, false
	}
	return r.Columns[idx], true
}

func (r Resource) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("resource name is required")
	}
	if strings.TrimSpace(r.From) == "" {
		return fmt.Errorf("resource %q: from clause is required", r.Name)
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("resource %q: at least one column is required", r.Name)
	}

	seen := map[string]struct{}{}
	for _, col := range r.Columns {
		if col.Name == "" || col.Expr == "" {
			return fmt.Errorf("resource %q: columns need a name and an expression", r.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("resource %q: duplicate column %q", r.Name, col.Name)
		}
		seen[col.Name] = struct{}{}
	}

	if _, ok := r.Column(r.Key); !ok {
		return fmt.Errorf("resource %q: key column %q is not selected", r.Name, r.Key)
	}
	if r.DefaultSort != "" {
		col, ok := r.Column(r.DefaultSort)
		if !ok || !col.Sortable {
			return fmt.Errorf("resource %q: default sort %q is not a sortable column", r.Name, r.DefaultSort)
		}
	}

	return nil
}

// Registry holds the resources exposed by the list API.
type Registry struct {
	byName map[string]Resource
	order  []string
}

func NewRegistry(resources ...Resource) (*Registry, error) {
	reg := &Registry{byName: map[string]Resource{}}
	for _, res := range resources {
		if err := res.validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.byName[res.Name]; dup {
			return nil, fmt.Errorf("duplicate resource %q", res.Name)
		}
		reg.byName[res.Name] = res
		reg.order = append(reg.order, res.Name)
	}
	return reg, nil
}

func (r *Registry) Lookup(name string) (Resource, bool) {
	res, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return res, ok
}

// Names lists resource names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Permissions lists the view permission of every resource.
func (r *Registry) Permissions() []string {
	perms := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if perm := r.byName[name].Permission; perm != "" && !slices.Contains(perms, perm) {
			perms = append(perms, perm)
		}
	}
	return perms
}
