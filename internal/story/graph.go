package story

// StoryGraph is the control-flow graph of a compiled story, as reported by the runtime.
type StoryGraph struct {
	Nodes     []NodeInfo `json:"nodes" yaml:"nodes"`
	Edges     []EdgeInfo `json:"edges" yaml:"edges"`
	StartNode string     `json:"startNode" yaml:"start"`
}

// NodeInfo describes one labeled story segment.
// Params is empty unless the node is callable.
type NodeInfo struct {
	Name    string      `json:"name" yaml:"name" validate:"required"`
	Params  []string    `json:"params" yaml:"params"`
	Summary NodeSummary `json:"summary" yaml:"summary"`
	Tags    []Tag       `json:"tags" yaml:"tags"`
}

// IsFunction reports whether the node takes call arguments.
func (n NodeInfo) IsFunction() bool {
	return len(n.Params) > 0
}

// NodeSummary holds precomputed per-node statistics.
type NodeSummary struct {
	FirstLine    string   `json:"firstLine" yaml:"first_line"`
	LineCount    int      `json:"lineCount" yaml:"line_count" validate:"gte=0"`
	ChoiceCount  int      `json:"choiceCount" yaml:"choice_count" validate:"gte=0"`
	HasCondition bool     `json:"hasCondition" yaml:"has_condition"`
	HasRandom    bool     `json:"hasRandom" yaml:"has_random"`
	HasCommand   bool     `json:"hasCommand" yaml:"has_command"`
	HasJump      bool     `json:"hasJump" yaml:"has_jump"`
	Characters   []string `json:"characters" yaml:"characters"`
}

// EdgeInfo is a possible transition between two nodes.
type EdgeInfo struct {
	From  string   `json:"from" yaml:"from" validate:"required"`
	To    string   `json:"to" yaml:"to" validate:"required"`
	Type  EdgeKind `json:"type" yaml:"type"`
	Label string   `json:"label" yaml:"label"`
}

// EdgeKind classifies an edge.
// Allowed kinds: jump, call, call_return, choice, condition_true, condition_false, random
type EdgeKind string

const (
	EdgeJump           EdgeKind = "jump"
	EdgeCall           EdgeKind = "call"
	EdgeCallReturn     EdgeKind = "call_return"
	EdgeChoice         EdgeKind = "choice"
	EdgeConditionTrue  EdgeKind = "condition_true"
	EdgeConditionFalse EdgeKind = "condition_false"
	EdgeRandom         EdgeKind = "random"
)

var knownEdgeKinds = map[EdgeKind]struct{}{
	EdgeJump:           {},
	EdgeCall:           {},
	EdgeCallReturn:     {},
	EdgeChoice:         {},
	EdgeConditionTrue:  {},
	EdgeConditionFalse: {},
	EdgeRandom:         {},
}

// Known reports whether k is one of the closed set of edge kinds.
func (k EdgeKind) Known() bool {
	_, ok := knownEdgeKinds[k]
	return ok
}

// Tag is a key with an optional value attached to a node or a line.
type Tag struct {
	Key   string `json:"key" yaml:"key" validate:"required"`
	Value string `json:"value" yaml:"value"`
}

// NodeByName returns the node with the given name, or nil.
func (g *StoryGraph) NodeByName(name string) *NodeInfo {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return &g.Nodes[i]
		}
	}
	return nil
}
