package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"school-tables/internal/model"
	"school-tables/internal/resource"
	"school-tables/pkg/apierror"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 200
)

var listParams = map[string]struct{}{
	"page":     {},
	"pageSize": {},
	"limit":    {},
	"search":   {},
	"sort":     {},
}

type listStore interface {
	List(ctx context.Context, res resource.Resource, query model.ListQuery) ([]map[string]any, int, error)
}

type ListService struct {
	registry *resource.Registry
	store    listStore
	validate *validator.Validate
}

func NewListService(registry *resource.Registry, store listStore) *ListService {
	return &ListService{registry: registry, store: store, validate: validator.New()}
}

func (s *ListService) Resources() []string {
	return s.registry.Names()
}

func (s *ListService) Resource(name string) (resource.Resource, error) {
	res, ok := s.registry.Lookup(name)
	if !ok {
		return resource.Resource{}, apierror.New("NOT_FOUND", "resource not found", name, http.StatusNotFound)
	}
	return res, nil
}

// ParseQuery reads page, pageSize (or limit), search, sort=field:dir and one equality filter per
// remaining parameter, rejecting anything res does not allow.
func (s *ListService) ParseQuery(res resource.Resource, values url.Values) (model.ListQuery, error) {
	query := model.ListQuery{Page: 1, PageSize: DefaultPageSize, Filters: map[string]string{}}

	var err error
	if query.Page, err = intParam(values, "page", 1); err != nil {
		return model.ListQuery{}, err
	}

	sizeKey := "pageSize"
	if !values.Has(sizeKey) && values.Has("limit") {
		sizeKey = "limit"
	}
	if query.PageSize, err = intParam(values, sizeKey, DefaultPageSize); err != nil {
		return model.ListQuery{}, err
	}

	query.Search = strings.TrimSpace(values.Get("search"))

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		field, dir, _ := strings.Cut(raw, ":")
		field = strings.TrimSpace(field)
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			query.SortDesc = true
		default:
			return model.ListQuery{}, badRequest("invalid sort direction", raw)
		}
		col, ok := res.Column(field)
		if !ok || !col.Sortable {
			return model.ListQuery{}, badRequest("column is not sortable", field)
		}
		query.SortField = field
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, reserved := listParams[key]; reserved {
			continue
		}
		value := strings.TrimSpace(values.Get(key))
		if value == "" {
			continue
		}
		col, ok := res.Column(key)
		if !ok || !col.Filterable {
			return model.ListQuery{}, badRequest("unknown filter", key)
		}
		query.Filters[key] = value
	}

	if err := s.validate.Struct(query); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return model.ListQuery{}, badRequest("invalid list query", fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
		return model.ListQuery{}, badRequest("invalid list query", err.Error())
	}

	return query, nil
}

func (s *ListService) List(ctx context.Context, res resource.Resource, query model.ListQuery) (model.ListPage, *model.Meta, error) {
	items, total, err := s.store.List(ctx, res, query)
	if err != nil {
		return model.ListPage{}, nil, fmt.Errorf("list %s: %w", res.Name, err)
	}
	if items == nil {
		items = []map[string]any{}
	}

	return model.ListPage{Items: items, Total: total}, model.NewMeta(query.Page, query.PageSize, total), nil
}

func intParam(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(key+" must be an integer", raw)
	}
	return n, nil
}

func badRequest(message string, details string) error {
	return apierror.New("BAD_REQUEST", message, details, http.StatusBadRequest)
}
