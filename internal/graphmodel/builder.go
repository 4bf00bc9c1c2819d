package graphmodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Build converts a story graph into a renderable graph.
// Edges whose target is not a node are dropped; a node is terminal when no
// surviving edge leaves it. Build never fails and an empty input yields an
// empty graph.
func Build(sg story.StoryGraph) *Graph {
	names := make(map[string]struct{}, len(sg.Nodes))
	for _, n := range sg.Nodes {
		names[n.Name] = struct{}{}
	}

	g := &Graph{
		StartNode: sg.StartNode,
		index:     make(map[string]int, len(sg.Nodes)),
	}

	outgoing := make(map[string]bool)
	for _, e := range sg.Edges {
		if _, ok := names[e.To]; !ok {
			continue
		}
		outgoing[e.From] = true
		g.Edges = append(g.Edges, Edge{
			ID:     fmt.Sprintf("edge-%s-%s-%s-%d", e.From, e.To, e.Type, len(g.Edges)),
			Source: NodeID(e.From),
			Target: NodeID(e.To),
			From:   e.From,
			To:     e.To,
			Kind:   e.Type,
			Label:  e.Label,
		})
	}

	for _, n := range sg.Nodes {
		if _, dup := g.index[n.Name]; dup {
			continue
		}
		g.index[n.Name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			ID:         NodeID(n.Name),
			Name:       n.Name,
			Label:      NodeLabel(n),
			IsStart:    n.Name == sg.StartNode,
			IsTerminal: !outgoing[n.Name],
			IsFunction: n.IsFunction(),
			Info:       n,
		})
	}

	return g
}

// NodeLabel builds the multi-line display label of a node: its signature,
// the first dialogue line if any, and a stats line when any stat applies.
func NodeLabel(n story.NodeInfo) string {
	var b strings.Builder
	b.WriteString(Signature(n))

	if n.Summary.FirstLine != "" {
		b.WriteString("\n")
		b.WriteString(n.Summary.FirstLine)
	}

	if stats := summaryStats(n.Summary); len(stats) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(stats, ", "))
	}
	return b.String()
}

// Signature returns the node name with its parameter list for function nodes.
func Signature(n story.NodeInfo) string {
	if !n.IsFunction() {
		return n.Name
	}
	return n.Name + "(" + strings.Join(n.Params, ", ") + ")"
}

func summaryStats(s story.NodeSummary) []string {
	var stats []string
	if s.LineCount > 0 {
		stats = append(stats, strconv.Itoa(s.LineCount)+" lines")
	}
	if s.ChoiceCount > 0 {
		stats = append(stats, strconv.Itoa(s.ChoiceCount)+" choices")
	}
	if s.HasCondition {
		stats = append(stats, "if")
	}
	if s.HasRandom {
		stats = append(stats, "random")
	}
	return stats
}
