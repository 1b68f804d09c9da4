package datatable

type State int

const (
	StateIdle State = iota
	StateLoading
	StateRendered
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

const (
	MessageLoading   = "Loading..."
	MessageNoRecords = "No records found"
	MessageLoadError = "Failed to load data. Please try again."
)

type HeaderCell struct {
	Field    string
	Label    string
	Sortable bool
	// Sort is the active direction when the table is sorted by this column.
	Sort Direction
}

type ActionView struct {
	ID      string
	Label   string
	Icon    string
	Variant string
}

type RowView struct {
	ID       string
	Cells    []Cell
	Actions  []ActionView
	Selected bool
}

// View is the complete presentation state of a table, handed to its Surface on every change.
type View struct {
	ContainerID   string
	State         State
	Columns       []HeaderCell
	Rows          []RowView
	BulkActions   []ActionView
	SelectedCount int
	Pagination    Pagination
	Query         QueryState
	Message       string
	Err           error
}

func actionViews(actions []RowAction) []ActionView {
	if len(actions) == 0 {
		return nil
	}

	out := make([]ActionView, 0, len(actions))
	for _, action := range actions {
		label := action.Label
		if label == "" {
			label = action.ID
		}
		variant := action.Variant
		if variant == "" {
			variant = "info"
		}
		out = append(out, ActionView{ID: action.ID, Label: label, Icon: action.Icon, Variant: variant})
	}
	return out
}
