package graphmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

func helloGraph() story.StoryGraph {
	return story.StoryGraph{
		StartNode: "start",
		Nodes: []story.NodeInfo{
			{Name: "start", Summary: story.NodeSummary{FirstLine: "Hey there!", LineCount: 2, ChoiceCount: 2}},
			{Name: "accept", Summary: story.NodeSummary{FirstLine: "Great!", LineCount: 1}},
			{Name: "decline"},
			{Name: "greet", Params: []string{"name", "hp"}, Summary: story.NodeSummary{HasCondition: true, HasRandom: true}},
		},
		Edges: []story.EdgeInfo{
			{From: "start", To: "accept", Type: story.EdgeChoice, Label: "Sure"},
			{From: "start", To: "decline", Type: story.EdgeChoice, Label: "No"},
			{From: "start", To: "gone", Type: story.EdgeJump},
			{From: "decline", To: "ghost", Type: story.EdgeJump},
		},
	}
}

func TestBuildDropsDanglingEdges(t *testing.T) {
	g := Build(helloGraph())

	require.Len(t, g.Edges, 2)
	for _, e := range g.Edges {
		assert.NotEqual(t, "gone", e.To)
		assert.NotEqual(t, "ghost", e.To)
	}
}

func TestBuildTerminalIgnoresDroppedEdges(t *testing.T) {
	g := Build(helloGraph())

	start, ok := g.Node("start")
	require.True(t, ok)
	assert.False(t, start.IsTerminal)

	// decline only has a dangling edge, so it is terminal.
	decline, ok := g.Node("decline")
	require.True(t, ok)
	assert.True(t, decline.IsTerminal)

	accept, _ := g.Node("accept")
	assert.True(t, accept.IsTerminal)
}

func TestBuildTwoNodeExample(t *testing.T) {
	g := Build(story.StoryGraph{
		Nodes: []story.NodeInfo{{Name: "A"}, {Name: "B"}},
		Edges: []story.EdgeInfo{{From: "A", To: "B", Type: story.EdgeJump}},
	})

	a, _ := g.Node("A")
	b, _ := g.Node("B")
	assert.False(t, a.IsTerminal)
	assert.True(t, b.IsTerminal)
}

func TestBuildClassification(t *testing.T) {
	g := Build(helloGraph())

	start, _ := g.Node("start")
	assert.True(t, start.IsStart)
	assert.False(t, start.IsFunction)
	assert.Equal(t, []string{ClassStart}, start.Classes())

	greet, _ := g.Node("greet")
	assert.False(t, greet.IsStart)
	assert.True(t, greet.IsFunction)
	assert.Equal(t, []string{ClassTerminal, ClassFunction}, greet.Classes())
}

func TestBuildLabels(t *testing.T) {
	g := Build(helloGraph())

	start, _ := g.Node("start")
	assert.Equal(t, "start\nHey there!\n2 lines, 2 choices", start.Label)

	decline, _ := g.Node("decline")
	assert.Equal(t, "decline", decline.Label)

	greet, _ := g.Node("greet")
	assert.Equal(t, "greet(name, hp)\nif, random", greet.Label)
}

func TestBuildEdgeIDsAreUnique(t *testing.T) {
	g := Build(story.StoryGraph{
		Nodes: []story.NodeInfo{{Name: "menu"}, {Name: "shop"}},
		Edges: []story.EdgeInfo{
			{From: "menu", To: "shop", Type: story.EdgeChoice, Label: "Buy"},
			{From: "menu", To: "shop", Type: story.EdgeChoice, Label: "Sell"},
			{From: "menu", To: "shop", Type: story.EdgeChoice, Label: "Browse"},
		},
	})

	seen := make(map[string]bool)
	for _, e := range g.Edges {
		assert.False(t, seen[e.ID], "duplicate edge id %s", e.ID)
		seen[e.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestBuildEdgeClasses(t *testing.T) {
	g := Build(story.StoryGraph{
		Nodes: []story.NodeInfo{{Name: "a"}, {Name: "b"}},
		Edges: []story.EdgeInfo{
			{From: "a", To: "b", Type: story.EdgeConditionFalse},
			{From: "a", To: "b", Type: story.EdgeKind("teleport")},
		},
	})

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "condition_false", g.Edges[0].Class())
	assert.Equal(t, ClassGenericEdge, g.Edges[1].Class())
	assert.Equal(t, "node-a", g.Edges[0].Source)
	assert.Equal(t, "node-b", g.Edges[0].Target)
}

func TestBuildEmptyGraph(t *testing.T) {
	g := Build(story.StoryGraph{})

	assert.True(t, g.Empty())
	assert.Empty(t, g.Edges)
	assert.False(t, g.HasNode("start"))
}

func TestBuildIsRepeatable(t *testing.T) {
	sg := helloGraph()
	first := Build(sg)
	second := Build(sg)

	require.Len(t, second.Nodes, len(first.Nodes))
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].Label, second.Nodes[i].Label)
		assert.Equal(t, first.Nodes[i].IsStart, second.Nodes[i].IsStart)
		assert.Equal(t, first.Nodes[i].IsTerminal, second.Nodes[i].IsTerminal)
		assert.Equal(t, first.Nodes[i].IsFunction, second.Nodes[i].IsFunction)
	}
	require.Len(t, second.Edges, len(first.Edges))
	for i := range first.Edges {
		assert.Equal(t, first.Edges[i].ID, second.Edges[i].ID)
	}
}

func TestRenderOntoMemorySurface(t *testing.T) {
	g := Build(helloGraph())
	s := NewMemorySurface()

	Render(s, g, DefaultLayout())

	assert.True(t, s.HasNode(NodeID("start")))
	assert.True(t, s.HasClass(NodeID("start"), ClassStart))
	assert.True(t, s.HasClass(NodeID("greet"), ClassFunction))
	assert.True(t, s.HasClass(NodeID("accept"), ClassTerminal))

	layout, ok := s.Layout()
	require.True(t, ok)
	assert.Equal(t, "dagre", layout.Name)
	assert.Equal(t, "TB", layout.RankDir)

	elems := s.Elements()
	require.Len(t, elems, len(g.Nodes)+len(g.Edges))
	assert.Equal(t, "nodes", elems[0].Group)
	assert.Equal(t, "start", elems[0].Data["nodeName"])
	assert.Equal(t, "start", elems[0].Classes)
	last := elems[len(elems)-1]
	assert.Equal(t, "edges", last.Group)
	assert.Equal(t, "choice", last.Classes)
}

func TestMemorySurfaceIgnoresUnknownNodes(t *testing.T) {
	s := NewMemorySurface()
	Render(s, Build(helloGraph()), DefaultLayout())

	s.AddClass("node-nowhere", ClassActive)
	s.Center("node-nowhere")

	assert.False(t, s.HasNode("node-nowhere"))
	assert.Empty(t, s.NodesWithClass(ClassActive))
	assert.Equal(t, "", s.Centered())
}
