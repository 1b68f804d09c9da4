package datatable

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"school-tables/pkg/apierror"
)

// Transport performs one GET against a list endpoint and returns the raw JSON body.
type Transport interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// PageResult is one page of rows plus the total row count reported by the backend.
type PageResult struct {
	Rows  []Row
	Total int
}

// Ticket identifies one fetch. Only the most recently issued ticket is current.
type Ticket uint64

// Adapter issues list requests for a single table and discards responses that were overtaken
// by a newer request.
type Adapter struct {
	transport Transport
	dataField string
	seq       atomic.Uint64
}

func NewAdapter(transport Transport, dataField string) *Adapter {
	return &Adapter{transport: transport, dataField: strings.TrimSpace(dataField)}
}

// Next claims a new ticket, superseding every ticket issued before it.
func (a *Adapter) Next() Ticket {
	return Ticket(a.seq.Add(1))
}

// Current reports whether t is still the latest ticket.
func (a *Adapter) Current(t Ticket) bool {
	return a.seq.Load() == uint64(t)
}

// Cancel invalidates every outstanding ticket.
func (a *Adapter) Cancel() {
	a.seq.Add(1)
}

// FetchPage issues one request for q and normalizes the response.
func (a *Adapter) FetchPage(ctx context.Context, endpoint string, q QueryState) (PageResult, error) {
	return a.Fetch(ctx, a.Next(), endpoint, q)
}

// Fetch issues the request belonging to ticket t. If t stopped being current while the request
// was in flight the outcome is dropped and ErrSuperseded is returned.
func (a *Adapter) Fetch(ctx context.Context, t Ticket, endpoint string, q QueryState) (PageResult, error) {
	endpoint = normalizeEndpoint(endpoint)

	body, err := a.transport.Get(ctx, endpoint, q.Values())
	if !a.Current(t) {
		slog.Debug("datatable dropped stale response", "endpoint", endpoint, "ticket", uint64(t))
		return PageResult{}, ErrSuperseded
	}
	if err != nil {
		return PageResult{}, asFetchError(err)
	}

	return Normalize(body, a.dataField)
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.HasPrefix(endpoint, "/") || strings.Contains(endpoint, "://") {
		return endpoint
	}

	return "/" + endpoint
}

func asFetchError(err error) error {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return &FetchError{Reason: apiErr.Message, Status: apiErr.HTTPStatus, Err: err}
	}

	return &FetchError{Reason: err.Error(), Err: err}
}
