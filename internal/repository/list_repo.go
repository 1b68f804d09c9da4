package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"school-tables/internal/model"
	"school-tables/internal/resource"
)

type ListRepository struct {
	pool *pgxpool.Pool
}

func NewListRepository(pool *pgxpool.Pool) *ListRepository {
	return &ListRepository{pool: pool}
}

// List returns one page of res and the number of rows matching the query.
func (r *ListRepository) List(ctx context.Context, res resource.Resource, query model.ListQuery) ([]map[string]any, int, error) {
	stmt, err := buildListQuery(res, query)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, stmt.count, stmt.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", res.Name, err)
	}

	if total == 0 || query.Offset() >= total {
		return []map[string]any{}, total, nil
	}

	rows, err := r.pool.Query(ctx, stmt.data, stmt.dataArgs()...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", res.Name, err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", res.Name, err)
	}

	return items, total, nil
}

type listStatement struct {
	count  string
	data   string
	args   []any
	limit  int
	offset int
}

func (s listStatement) dataArgs() []any {
	return append(append([]any{}, s.args...), s.limit, s.offset)
}

// buildListQuery renders the COUNT and page SELECT for query. Only registry expressions are
// interpolated; every client value is a bind parameter.
func buildListQuery(res resource.Resource, query model.ListQuery) (listStatement, error) {
	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if search := strings.TrimSpace(query.Search); search != "" {
		var terms []string
		for _, col := range res.Columns {
			if col.Searchable {
				terms = append(terms, fmt.Sprintf("(%s)::text ILIKE $%d", col.Expr, argIdx))
			}
		}
		if len(terms) > 0 {
			where = append(where, "("+strings.Join(terms, " OR ")+")")
			args = append(args, "%"+escapeLike(search)+"%")
			argIdx++
		}
	}

	keys := make([]string, 0, len(query.Filters))
	for key := range query.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		col, ok := res.Column(key)
		if !ok || !col.Filterable {
			return listStatement{}, fmt.Errorf("%w: %q is not filterable", model.ErrInvalidInput, key)
		}
		where = append(where, fmt.Sprintf("lower((%s)::text) = lower($%d)", col.Expr, argIdx))
		args = append(args, query.Filters[key])
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	orderBy, err := orderClause(res, query)
	if err != nil {
		return listStatement{}, err
	}

	selects := make([]string, 0, len(res.Columns))
	for _, col := range res.Columns {
		selects = append(selects, fmt.Sprintf("%s AS %s", col.Expr, pgx.Identifier{col.Name}.Sanitize()))
	}

	return listStatement{
		count: fmt.Sprintf("SELECT COUNT(*) FROM %s%s", res.From, whereClause),
		data: fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
			strings.Join(selects, ", "), res.From, whereClause, orderBy, argIdx, argIdx+1),
		args:   args,
		limit:  query.PageSize,
		offset: query.Offset(),
	}, nil
}

func orderClause(res resource.Resource, query model.ListQuery) (string, error) {
	field, desc := query.SortField, query.SortDesc
	if field == "" {
		field, desc = res.DefaultSort, res.DefaultDesc
	}

	key, _ := res.Column(res.Key)
	if field == "" || field == res.Key {
		return key.Expr + direction(desc), nil
	}

	col, ok := res.Column(field)
	if !ok || !col.Sortable {
		return "", fmt.Errorf("%w: %q is not sortable", model.ErrInvalidInput, field)
	}

	// The key breaks ties so pages do not overlap.
	return col.Expr + direction(desc) + ", " + key.Expr + " ASC", nil
}

func direction(desc bool) string {
	if desc {
		return " DESC"
	}
	return " ASC"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
