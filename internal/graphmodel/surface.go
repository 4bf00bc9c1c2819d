package graphmodel

// LayoutOptions configures the render surface's hierarchical layout.
type LayoutOptions struct {
	Name       string `yaml:"name" json:"name"`
	RankDir    string `yaml:"rank_dir" json:"rankDir"`
	NodeSep    int    `yaml:"node_sep" json:"nodeSep"`
	RankSep    int    `yaml:"rank_sep" json:"rankSep"`
	EdgeSep    int    `yaml:"edge_sep" json:"edgeSep"`
	Padding    int    `yaml:"padding" json:"padding"`
	FitPadding int    `yaml:"fit_padding" json:"fitPadding"`
}

// DefaultLayout returns a top-down dagre layout.
func DefaultLayout() LayoutOptions {
	return LayoutOptions{
		Name:       "dagre",
		RankDir:    "TB",
		NodeSep:    40,
		RankSep:    60,
		EdgeSep:    20,
		Padding:    30,
		FitPadding: 40,
	}
}

// Surface is the graph-rendering capability: element storage, layout,
// viewport control and per-node style classes. IDs are render-node IDs.
type Surface interface {
	Load(g *Graph)
	RunLayout(opts LayoutOptions)
	Fit(padding int)
	HasNode(id string) bool
	AddClass(id, class string)
	RemoveClass(id, class string)
	Center(id string)
}

// Render replaces the surface contents with g, applies the structural node
// classes, runs the layout and fits the viewport.
func Render(s Surface, g *Graph, opts LayoutOptions) {
	s.Load(g)
	for _, n := range g.Nodes {
		for _, class := range n.Classes() {
			s.AddClass(n.ID, class)
		}
	}
	s.RunLayout(opts)
	s.Fit(opts.FitPadding)
}
