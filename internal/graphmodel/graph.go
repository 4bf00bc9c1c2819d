// Package graphmodel turns a story graph into a renderable node/edge set with
// derived classification, and hands it to a render surface.
package graphmodel

import (
	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Style classes understood by the render surface.
const (
	ClassStart    = "start"
	ClassTerminal = "terminal"
	ClassFunction = "function"
	ClassActive   = "active"
	ClassVisited  = "visited"

	// ClassGenericEdge styles edges whose kind is not in the closed set.
	ClassGenericEdge = "generic"
)

// Graph is the renderable form of a story graph.
type Graph struct {
	Nodes     []Node
	Edges     []Edge
	StartNode string

	index map[string]int
}

// Node is a render-node.
type Node struct {
	ID         string
	Name       string
	Label      string
	IsStart    bool
	IsTerminal bool
	IsFunction bool
	Info       story.NodeInfo
}

// Classes returns the structural style classes of the node.
func (n Node) Classes() []string {
	var classes []string
	if n.IsStart {
		classes = append(classes, ClassStart)
	}
	if n.IsTerminal {
		classes = append(classes, ClassTerminal)
	}
	if n.IsFunction {
		classes = append(classes, ClassFunction)
	}
	return classes
}

// Edge is a render-edge. Source and Target are render-node IDs.
type Edge struct {
	ID     string
	Source string
	Target string
	From   string
	To     string
	Kind   story.EdgeKind
	Label  string
}

// Class returns the edge style class: its kind, or the generic fallback.
func (e Edge) Class() string {
	if e.Kind.Known() {
		return string(e.Kind)
	}
	return ClassGenericEdge
}

// NodeID returns the render-node ID for a story node name.
func NodeID(name string) string {
	return "node-" + name
}

// Node returns the render-node for a story node name.
func (g *Graph) Node(name string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// HasNode reports whether the graph contains a render-node for name.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.Node(name)
	return ok
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}
