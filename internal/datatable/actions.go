package datatable

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"school-tables/internal/auth"
)

// RowAction is an operation offered on each row, optionally gated by a permission key.
type RowAction struct {
	ID         string         `yaml:"id" validate:"required"`
	Label      string         `yaml:"label"`
	Icon       string         `yaml:"icon"`
	Variant    string         `yaml:"variant"`
	Permission string         `yaml:"permission"`
	Visible    func(Row) bool `yaml:"-"`
}

// ActionFunc handles a row or bulk action. row is nil for bulk actions.
type ActionFunc func(actionID string, selectedRowIDs []string, row Row) error

// PermissionPolicy decides what happens when no permission data is available for the user.
type PermissionPolicy int

const (
	// FailOpen shows every action when the user or their permission list is missing.
	FailOpen PermissionPolicy = iota
	// FailClosed hides permission-gated actions when permission data is missing.
	FailClosed
)

func ParsePermissionPolicy(raw string) (PermissionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "open", "fail-open", "fail_open":
		return FailOpen, nil
	case "closed", "fail-closed", "fail_closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown permission policy %q", raw)
	}
}

func (p PermissionPolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// ResolveActions returns the actions visible to a user holding perms, in their original order.
func ResolveActions(actions []RowAction, perms auth.PermissionSet) []RowAction {
	visible := make([]RowAction, 0, len(actions))
	for _, action := range actions {
		if action.Permission != "" && !perms.Has(action.Permission) {
			continue
		}
		visible = append(visible, action)
	}
	return visible
}

// Dispatcher resolves visible actions and routes invocations to their handlers.
type Dispatcher struct {
	mu          sync.RWMutex
	rowActions  []RowAction
	bulkActions []RowAction
	handlers    map[string]ActionFunc
	fallback    ActionFunc
	auth        auth.Context
	policy      PermissionPolicy
}

func NewDispatcher(rowActions []RowAction, bulkActions []RowAction, handlers map[string]ActionFunc, fallback ActionFunc, authCtx auth.Context, policy PermissionPolicy) *Dispatcher {
	registered := make(map[string]ActionFunc, len(handlers))
	for id, handler := range handlers {
		if handler != nil {
			registered[id] = handler
		}
	}

	return &Dispatcher{
		rowActions:  slices.Clone(rowActions),
		bulkActions: slices.Clone(bulkActions),
		handlers:    registered,
		fallback:    fallback,
		auth:        authCtx,
		policy:      policy,
	}
}

// Register binds handler to actionID, replacing any previous handler.
func (d *Dispatcher) Register(actionID string, handler ActionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if handler == nil {
		delete(d.handlers, actionID)
		return
	}
	d.handlers[actionID] = handler
}

// SetFallback replaces the handler used for actions without a registered handler.
func (d *Dispatcher) SetFallback(handler ActionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = handler
}

// RowActions returns the row actions visible for row. Permissions are read from the auth
// context on every call, so changes between renders are picked up.
func (d *Dispatcher) RowActions(row Row) []RowAction {
	visible := d.permitted(d.rowActions)
	out := visible[:0]
	for _, action := range visible {
		if action.Visible != nil && !action.Visible(row) {
			continue
		}
		out = append(out, action)
	}
	return out
}

// BulkActions returns the bulk actions visible to the current user.
func (d *Dispatcher) BulkActions() []RowAction {
	return d.permitted(d.bulkActions)
}

// Invoke calls the handler registered for actionID with a snapshot of row. Errors and panics
// raised by the handler are not intercepted.
func (d *Dispatcher) Invoke(actionID string, selectedRowIDs []string, row Row) error {
	action, bulk, ok := d.lookup(actionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	var visible []RowAction
	if bulk {
		visible = d.BulkActions()
	} else {
		visible = d.RowActions(row)
	}
	if !slices.ContainsFunc(visible, func(a RowAction) bool { return a.ID == action.ID }) {
		return fmt.Errorf("%w: %q", ErrActionNotPermitted, actionID)
	}

	d.mu.RLock()
	handler := d.handlers[actionID]
	if handler == nil {
		handler = d.fallback
	}
	d.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("%w: no handler registered for %q", ErrUnknownAction, actionID)
	}

	var snapshot Row
	if row != nil {
		snapshot = cloneRow(row)
	}

	return handler(actionID, slices.Clone(selectedRowIDs), snapshot)
}

func (d *Dispatcher) lookup(actionID string) (RowAction, bool, bool) {
	for _, action := range d.rowActions {
		if action.ID == actionID {
			return action, false, true
		}
	}
	for _, action := range d.bulkActions {
		if action.ID == actionID {
			return action, true, true
		}
	}
	return RowAction{}, false, false
}

func (d *Dispatcher) permitted(actions []RowAction) []RowAction {
	perms, known := d.permissions()
	if known {
		return ResolveActions(actions, perms)
	}

	if d.policy == FailClosed {
		return ResolveActions(actions, auth.PermissionSet{})
	}

	return slices.Clone(actions)
}

func (d *Dispatcher) permissions() (auth.PermissionSet, bool) {
	if d.auth == nil {
		return nil, false
	}

	user := d.auth.User()
	if user == nil || user.Permissions == nil {
		return nil, false
	}

	return auth.NewPermissionSet(user.Permissions...), true
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for key, value := range row {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case Row:
		return cloneRow(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
