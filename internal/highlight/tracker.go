// Package highlight tracks the active node and the visited set of one
// visualization session and mirrors them onto a render surface.
package highlight

import (
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
)

// Tracker owns the visitation state. It is not safe for concurrent use;
// the owner serializes calls.
type Tracker struct {
	surface graphmodel.Surface
	active  string
	visited map[string]struct{}
	order   []string
}

// NewTracker creates a tracker that mirrors state onto surface.
// A nil surface keeps state only, and SetActive is then always a no-op.
func NewTracker(surface graphmodel.Surface) *Tracker {
	return &Tracker{
		surface: surface,
		visited: make(map[string]struct{}),
	}
}

// Reset starts a new session: no active node, nothing visited.
func (t *Tracker) Reset() {
	t.ClearHighlights()
}

// SetActive marks name as the active node and adds it to the visited set.
// It returns false, changing nothing, when the surface has no such node;
// the runtime may report call frames or nodes of a graph not yet rendered.
func (t *Tracker) SetActive(name string) bool {
	if t.surface == nil || name == "" {
		return false
	}
	id := graphmodel.NodeID(name)
	if !t.surface.HasNode(id) {
		return false
	}

	if t.active != "" && t.active != name {
		t.surface.RemoveClass(graphmodel.NodeID(t.active), graphmodel.ClassActive)
	}
	t.active = name
	t.surface.AddClass(id, graphmodel.ClassActive)

	if _, seen := t.visited[name]; !seen {
		t.visited[name] = struct{}{}
		t.order = append(t.order, name)
	}
	t.surface.AddClass(id, graphmodel.ClassVisited)
	t.surface.Center(id)
	return true
}

// ClearHighlights removes active and visited marks from every node while
// leaving the rendered graph in place.
func (t *Tracker) ClearHighlights() {
	if t.surface != nil {
		for _, name := range t.order {
			id := graphmodel.NodeID(name)
			t.surface.RemoveClass(id, graphmodel.ClassActive)
			t.surface.RemoveClass(id, graphmodel.ClassVisited)
		}
	}
	t.active = ""
	t.visited = make(map[string]struct{})
	t.order = nil
}

// ActiveNode returns the active node, if any.
func (t *Tracker) ActiveNode() (string, bool) {
	return t.active, t.active != ""
}

// IsVisited reports whether name was reached this session.
func (t *Tracker) IsVisited(name string) bool {
	_, ok := t.visited[name]
	return ok
}

// Visited returns the visited nodes in first-visit order.
func (t *Tracker) Visited() []string {
	return append([]string{}, t.order...)
}
