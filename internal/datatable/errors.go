package datatable

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a list response matches none of the accepted shapes.
	ErrMalformedResponse = errors.New("malformed list response")

	// ErrSuperseded marks a response that arrived after a newer request was issued.
	ErrSuperseded = errors.New("response superseded by a newer request")

	ErrDestroyed          = errors.New("table destroyed")
	ErrNotSortable        = errors.New("column is not sortable")
	ErrUnknownAction      = errors.New("unknown action")
	ErrActionNotPermitted = errors.New("action not permitted")
	ErrRowNotFound        = errors.New("row not found on current page")
)

// FetchError is a network or HTTP level failure while loading a page.
type FetchError struct {
	Reason string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}

	if e.Status > 0 {
		return fmt.Sprintf("fetch failed (%d): %s", e.Status, e.Reason)
	}

	return fmt.Sprintf("fetch failed: %s", e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ConfigError reports a programming mistake in a table configuration. It is raised at mount
// time and is not recoverable by the user.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "datatable config: " + e.Message
	}

	return fmt.Sprintf("datatable config: %s: %s", e.Field, e.Message)
}

// IsLoadError reports whether err is one of the load failures that put a table into the
// errored state.
func IsLoadError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) || errors.Is(err, ErrMalformedResponse)
}
