package graphmodel

import (
	"sort"
	"strings"
	"sync"
)

// MemorySurface is a Surface that keeps elements and classes in memory and
// serializes them in the element format browser graph libraries consume.
// Layout is left to the client; the requested options are recorded.
type MemorySurface struct {
	mu       sync.RWMutex
	graph    *Graph
	classes  map[string]map[string]struct{}
	layout   *LayoutOptions
	fit      int
	centered string
}

// NewMemorySurface creates an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		classes: make(map[string]map[string]struct{}),
	}
}

func (s *MemorySurface) Load(g *Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = g
	s.classes = make(map[string]map[string]struct{})
	s.layout = nil
	s.centered = ""
	if g == nil {
		return
	}
	for _, n := range g.Nodes {
		s.classes[n.ID] = make(map[string]struct{})
	}
}

func (s *MemorySurface) RunLayout(opts LayoutOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = &opts
}

func (s *MemorySurface) Fit(padding int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fit = padding
}

func (s *MemorySurface) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.classes[id]
	return ok
}

func (s *MemorySurface) AddClass(id, class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.classes[id]; ok {
		set[class] = struct{}{}
	}
}

func (s *MemorySurface) RemoveClass(id, class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.classes[id]; ok {
		delete(set, class)
	}
}

func (s *MemorySurface) Center(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[id]; ok {
		s.centered = id
	}
}

// HasClass reports whether the node carries class.
func (s *MemorySurface) HasClass(id, class string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.classes[id][class]
	return ok
}

// NodeClasses returns the sorted classes of a node.
func (s *MemorySurface) NodeClasses(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedClasses(s.classes[id])
}

// NodesWithClass returns the IDs of nodes carrying class, in graph order.
func (s *MemorySurface) NodesWithClass(class string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil
	}
	var ids []string
	for _, n := range s.graph.Nodes {
		if _, ok := s.classes[n.ID][class]; ok {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Layout returns the last requested layout, if any.
func (s *MemorySurface) Layout() (LayoutOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.layout == nil {
		return LayoutOptions{}, false
	}
	return *s.layout, true
}

// Centered returns the node the viewport was last centered on.
func (s *MemorySurface) Centered() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.centered
}

// Element is one node or edge in the serialized element list.
type Element struct {
	Group   string                 `json:"group"`
	Data    map[string]interface{} `json:"data"`
	Classes string                 `json:"classes,omitempty"`
}

// Elements serializes the current graph with live classes, nodes first.
func (s *MemorySurface) Elements() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return []Element{}
	}

	out := make([]Element, 0, len(s.graph.Nodes)+len(s.graph.Edges))
	for _, n := range s.graph.Nodes {
		params := n.Info.Params
		if params == nil {
			params = []string{}
		}
		out = append(out, Element{
			Group: "nodes",
			Data: map[string]interface{}{
				"id":           n.ID,
				"nodeName":     n.Name,
				"displayLabel": n.Label,
				"isStart":      n.IsStart,
				"isTerminal":   n.IsTerminal,
				"isFunction":   n.IsFunction,
				"params":       params,
				"summary":      n.Info.Summary,
				"tags":         n.Info.Tags,
			},
			Classes: strings.Join(sortedClasses(s.classes[n.ID]), " "),
		})
	}
	for _, e := range s.graph.Edges {
		out = append(out, Element{
			Group: "edges",
			Data: map[string]interface{}{
				"id":       e.ID,
				"source":   e.Source,
				"target":   e.Target,
				"label":    e.Label,
				"edgeType": string(e.Kind),
			},
			Classes: e.Class(),
		})
	}
	return out
}

func sortedClasses(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
