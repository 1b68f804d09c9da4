package handler

import (
	"context"
	"net/http"
	"net/url"

	"school-tables/internal/middleware"
	"school-tables/internal/model"
	"school-tables/internal/resource"
)

type listService interface {
	Resources() []string
	Resource(name string) (resource.Resource, error)
	ParseQuery(res resource.Resource, values url.Values) (model.ListQuery, error)
	List(ctx context.Context, res resource.Resource, query model.ListQuery) (model.ListPage, *model.Meta, error)
}

type ListHandler struct {
	service listService
}

func NewListHandler(service listService) *ListHandler {
	return &ListHandler{service: service}
}

// List serves one page of the named resource.
func (h *ListHandler) List(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.service.Resource(name)
		if err != nil {
			writeError(w, err)
			return
		}

		query, err := h.service.ParseQuery(res, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}

		page, meta, err := h.service.List(r.Context(), res, query)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, page, meta)
	}
}

// Resources lists the resource names the caller may read.
func (h *ListHandler) Resources(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0)
	for _, name := range h.service.Resources() {
		res, err := h.service.Resource(name)
		if err != nil {
			continue
		}
		if allowed(r.Context(), res.Permission) {
			names = append(names, name)
		}
	}

	writeSuccess(w, http.StatusOK, map[string]any{"resources": names}, nil)
}

func allowed(ctx context.Context, permission string) bool {
	if permission == "" {
		return true
	}
	claims, ok := middleware.ClaimsFromContext(ctx)
	return ok && middleware.HasPermission(claims, permission)
}
