package tui

import (
	"errors"
	"fmt"
	"sync"

	"school-tables/internal/datatable"
)

var ErrUnknownContainer = errors.New("unknown container")

// Screen is the set of panes a terminal session can mount tables into.
type Screen struct {
	mu    sync.Mutex
	panes map[string]*Pane
}

func NewScreen(containerIDs ...string) *Screen {
	s := &Screen{panes: make(map[string]*Pane, len(containerIDs))}
	for _, id := range containerIDs {
		s.panes[id] = newPane(id)
	}
	return s
}

// Surface returns the pane registered for containerID.
func (s *Screen) Surface(containerID string) (datatable.Surface, error) {
	pane, ok := s.Pane(containerID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContainer, containerID)
	}
	return pane, nil
}

func (s *Screen) Pane(containerID string) (*Pane, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pane, ok := s.panes[containerID]
	return pane, ok
}

// Pane keeps the latest view of one table. Render never blocks: it stores the view and
// signals Updates, coalescing bursts into a single pending signal.
type Pane struct {
	id      string
	mu      sync.Mutex
	view    datatable.View
	hasView bool
	renders int

	updates  chan struct{}
	released chan struct{}
	once     sync.Once
}

func newPane(id string) *Pane {
	return &Pane{
		id:       id,
		updates:  make(chan struct{}, 1),
		released: make(chan struct{}),
	}
}

func (p *Pane) ID() string {
	return p.id
}

func (p *Pane) Render(v datatable.View) {
	p.mu.Lock()
	p.view = v
	p.hasView = true
	p.renders++
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Release drops the stored view and closes Done.
func (p *Pane) Release() {
	p.mu.Lock()
	p.view = datatable.View{}
	p.hasView = false
	p.mu.Unlock()

	p.once.Do(func() { close(p.released) })
}

// View returns the most recent view, if any.
func (p *Pane) View() (datatable.View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view, p.hasView
}

// Renders counts how often the pane was rendered into.
func (p *Pane) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

func (p *Pane) Updates() <-chan struct{} {
	return p.updates
}

func (p *Pane) Done() <-chan struct{} {
	return p.released
}
