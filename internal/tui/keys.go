package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down             key.Binding
	Prev, Next           key.Binding
	First, Last          key.Binding
	Search, Filter       key.Binding
	Sort, Reverse        key.Binding
	Refresh              key.Binding
	Select, SelectAll    key.Binding
	Bulk, Detail, Action key.Binding
	Close, Help, Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Prev:      key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "prev page")),
		Next:      key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next page")),
		First:     key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first page")),
		Last:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last page")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter key=value")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort next column")),
		Reverse:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse sort")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Select:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		Bulk:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bulk action")),
		Detail:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Action:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "row action")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.Sort, k.Prev, k.Next, k.Action, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Detail, k.Action},
		{k.Prev, k.Next, k.First, k.Last},
		{k.Search, k.Filter, k.Sort, k.Reverse, k.Refresh},
		{k.Select, k.SelectAll, k.Bulk, k.Close, k.Quit},
	}
}
