package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"school-tables/internal/model"
	"school-tables/internal/resource"
	"school-tables/pkg/apierror"
)

type mockListStore struct {
	mock.Mock
}

func (m *mockListStore) List(ctx context.Context, res resource.Resource, query model.ListQuery) ([]map[string]any, int, error) {
	args := m.Called(ctx, res, query)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]map[string]any), args.Int(1), args.Error(2)
}

func requireBadRequest(t *testing.T, err error) {
	t.Helper()
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	require.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	svc := NewListService(resource.Default(), &mockListStore{})
	students, err := svc.Resource("students")
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		q, err := svc.ParseQuery(students, url.Values{})
		require.NoError(t, err)
		require.Equal(t, model.ListQuery{Page: 1, PageSize: DefaultPageSize, Filters: map[string]string{}}, q)
	})

	t.Run("full query", func(t *testing.T) {
		q, err := svc.ParseQuery(students, url.Values{
			"page":       {"2"},
			"pageSize":   {"25"},
			"search":     {" otieno "},
			"sort":       {"last_name:desc"},
			"class_name": {"Form 1A"},
			"status":     {""},
		})
		require.NoError(t, err)
		require.Equal(t, model.ListQuery{
			Page:      2,
			PageSize:  25,
			Search:    "otieno",
			SortField: "last_name",
			SortDesc:  true,
			Filters:   map[string]string{"class_name": "Form 1A"},
		}, q)
	})

	t.Run("limit alias", func(t *testing.T) {
		q, err := svc.ParseQuery(students, url.Values{"limit": {"50"}})
		require.NoError(t, err)
		require.Equal(t, 50, q.PageSize)
	})

	t.Run("sort without direction is ascending", func(t *testing.T) {
		q, err := svc.ParseQuery(students, url.Values{"sort": {"admitted_on"}})
		require.NoError(t, err)
		require.Equal(t, "admitted_on", q.SortField)
		require.False(t, q.SortDesc)
	})

	invalid := map[string]url.Values{
		"page zero":          {"page": {"0"}},
		"page not a number":  {"page": {"two"}},
		"page size too big":  {"pageSize": {"201"}},
		"page size zero":     {"pageSize": {"0"}},
		"bad sort direction": {"sort": {"last_name:up"}},
		"unsortable column":  {"sort": {"guardian:asc"}},
		"unknown filter":     {"house": {"blue"}},
		"unfilterable field": {"first_name": {"Brian"}},
	}
	for name, values := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseQuery(students, values)
			requireBadRequest(t, err)
		})
	}
}

func TestListServiceResource(t *testing.T) {
	t.Parallel()

	svc := NewListService(resource.Default(), &mockListStore{})
	require.Equal(t, []string{"students", "staff", "payments"}, svc.Resources())

	_, err := svc.Resource("grades")
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)
}

func TestListServiceList(t *testing.T) {
	t.Parallel()

	t.Run("returns page and meta", func(t *testing.T) {
		store := &mockListStore{}
		svc := NewListService(resource.Default(), store)
		query := model.ListQuery{Page: 3, PageSize: 10, Filters: map[string]string{}}
		items := []map[string]any{{"id": int64(21)}, {"id": int64(22)}}

		store.On("List", mock.Anything, resource.Staff, query).Return(items, 22, nil).Once()

		page, meta, err := svc.List(context.Background(), resource.Staff, query)
		require.NoError(t, err)
		require.Equal(t, model.ListPage{Items: items, Total: 22}, page)
		require.Equal(t, &model.Meta{Page: 3, Limit: 10, Total: 22, TotalPages: 3}, meta)
		store.AssertExpectations(t)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		store := &mockListStore{}
		svc := NewListService(resource.Default(), store)
		query := model.ListQuery{Page: 1, PageSize: 10}

		store.On("List", mock.Anything, resource.Payments, query).Return(nil, 0, nil).Once()

		page, meta, err := svc.List(context.Background(), resource.Payments, query)
		require.NoError(t, err)
		require.NotNil(t, page.Items)
		require.Empty(t, page.Items)
		require.Equal(t, 1, meta.TotalPages)
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		store := &mockListStore{}
		svc := NewListService(resource.Default(), store)
		boom := errors.New("connection reset")

		store.On("List", mock.Anything, resource.Students, mock.Anything).Return(nil, 0, boom).Once()

		_, _, err := svc.List(context.Background(), resource.Students, model.ListQuery{Page: 1, PageSize: 10})
		require.ErrorIs(t, err, boom)
	})
}
