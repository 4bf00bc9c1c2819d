package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/inspector"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

func graphCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph <story|graph.json>",
		Short: "Print the node graph of a story or of a runtime graph export",
		Long: "Print the node graph of a built-in example or story file. A .json argument\n" +
			"is read as a runtime graph export (nodes, edges, startNode) instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sg, err := storyGraph(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			g := graphmodel.Build(sg)

			out := cmd.OutOrStdout()
			if asJSON {
				surface := graphmodel.NewMemorySurface()
				graphmodel.Render(surface, g, graphmodel.DefaultLayout())
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(surface.Elements())
			}

			for _, n := range g.Nodes {
				c := inspector.Summarize(n.Info)
				fmt.Fprintf(out, "%s", brand.Sprint(c.Title))
				if classes := n.Classes(); len(classes) > 0 {
					fmt.Fprintf(out, " %s", subtle.Sprintf("[%s]", strings.Join(classes, ",")))
				}
				fmt.Fprintln(out)
				if len(c.Facts) > 0 {
					fmt.Fprintf(out, "  %s\n", c.FactsLine())
				}
			}
			fmt.Fprintln(out)
			for _, e := range g.Edges {
				fmt.Fprintf(out, "%s -> %s (%s)", e.From, e.To, e.Class())
				if e.Label != "" {
					fmt.Fprintf(out, " %q", e.Label)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print render elements as JSON")
	return cmd
}

// storyGraph loads a graph export directly, or compiles a story and asks
// the runtime for its graph. Compile warnings go to errOut.
func storyGraph(ref string, errOut io.Writer) (story.StoryGraph, error) {
	if strings.EqualFold(filepath.Ext(ref), ".json") {
		g, err := story.LoadGraph(ref)
		if err != nil {
			return story.StoryGraph{}, err
		}
		return *g, nil
	}

	src, err := fixture.Source(ref)
	if err != nil {
		return story.StoryGraph{}, err
	}
	rt := fixture.NewRuntime()
	res := rt.Compile(src)
	for _, w := range res.Warnings {
		subtle.Fprintf(errOut, "warning: %s\n", w)
	}
	if !res.Success {
		return story.StoryGraph{}, fmt.Errorf("story does not compile: %s", strings.Join(res.Errors, "; "))
	}
	return rt.GraphData()
}
