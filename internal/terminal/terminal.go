// Package terminal plays a story in an interactive line-oriented console.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/inspector"
	"github.com/AaronLay10/StoryLoom/internal/playback"
)

// SourceFunc resolves a script reference to its source.
type SourceFunc func(ref string) (string, error)

type Options struct {
	In      io.Reader
	Out     io.Writer
	NoColor bool
	// Source backs the "load" command. Nil disables it.
	Source SourceFunc
}

type styles struct {
	brand, subtle, speaker, command, good, bad, warn *color.Color
}

func newStyles(noColor bool) styles {
	st := styles{
		brand:   color.New(color.FgHiGreen, color.Bold),
		subtle:  color.New(color.FgHiBlack),
		speaker: color.New(color.FgCyan, color.Bold),
		command: color.New(color.FgMagenta),
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{st.brand, st.subtle, st.speaker, st.command, st.good, st.bad, st.warn} {
			c.DisableColor()
		}
	}
	return st
}

// REPL reads commands and renders the transcript as it grows.
type REPL struct {
	session *app.Session
	in      *bufio.Scanner
	out     io.Writer
	source  SourceFunc
	st      styles

	printed    int
	generation int
	compiles   int
}

func New(session *app.Session, o Options) *REPL {
	return &REPL{
		session: session,
		in:      bufio.NewScanner(o.In),
		out:     o.Out,
		source:  o.Source,
		st:      newStyles(o.NoColor),
	}
}

// Run renders the current state, then processes input until quit, EOF or
// ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	r.st.brand.Fprint(r.out, "storyloom")
	r.st.subtle.Fprintln(r.out, "  enter to continue, a number to choose, help for commands")
	r.render(r.session.Snapshot())

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, r.st.subtle.Sprint("> "))
		if !r.in.Scan() {
			return r.in.Err()
		}
		quit, err := r.Execute(r.in.Text())
		if err != nil {
			r.st.bad.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Execute runs one command line. It returns true when the user quits.
func (r *REPL) Execute(line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	if n, err := strconv.Atoi(cmd); err == nil {
		return false, r.apply(r.session.ChooseNumber(n))
	}

	switch cmd {
	case "", "n", "next":
		return false, r.apply(r.session.Step())
	case "goto", "resume":
		if arg == "" {
			return false, errors.New("usage: goto <node>")
		}
		return false, r.apply(r.session.Resume(arg))
	case "restart":
		return false, r.apply(r.session.Restart())
	case "load":
		return false, r.load(arg)
	case "inspect", "info":
		return false, r.inspect(arg)
	case "graph", "nodes":
		r.graph()
		return false, nil
	case "state", "where":
		r.state()
		return false, nil
	case "help", "?":
		r.help()
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	}
	return false, fmt.Errorf("unknown command %q", cmd)
}

func (r *REPL) apply(out app.Outcome, err error) error {
	if err != nil {
		return err
	}
	if !out.Accepted {
		r.st.warn.Fprintln(r.out, "not available right now")
	}
	r.render(out.State)
	return nil
}

func (r *REPL) load(ref string) error {
	if r.source == nil {
		return errors.New("load is not available")
	}
	if ref == "" {
		return errors.New("usage: load <example|file>")
	}
	src, err := r.source(ref)
	if err != nil {
		return err
	}
	return r.apply(r.session.Compile(src))
}

// render prints transcript lines not yet shown, diagnostics of a compile
// not yet reported, then the open menu.
func (r *REPL) render(snap app.Snapshot) {
	if snap.Generation != r.generation || len(snap.Transcript) < r.printed {
		r.generation = snap.Generation
		r.printed = 0
	}

	for _, l := range snap.Transcript[r.printed:] {
		r.line(l)
	}
	r.printed = len(snap.Transcript)

	if snap.Compiles != r.compiles {
		r.compiles = snap.Compiles
		for _, e := range snap.Diagnostics.Errors {
			r.st.bad.Fprintf(r.out, "  %s\n", e)
		}
		for _, w := range snap.Diagnostics.Warnings {
			r.st.warn.Fprintf(r.out, "  warning: %s\n", w)
		}
	}
	if snap.Phase == playback.PhaseAwaitingChoice {
		for _, c := range snap.Choices {
			fmt.Fprintf(r.out, "  %s %s\n", r.st.brand.Sprintf("%d.", c.Number), c.Text)
		}
	}
}

func (r *REPL) line(l playback.TranscriptLine) {
	switch l.Kind {
	case playback.LineSystem:
		r.st.subtle.Fprintln(r.out, l.Text)
	case playback.LineCommand:
		r.st.command.Fprintln(r.out, l.Text)
	case playback.LineEnd:
		r.st.good.Fprintln(r.out, l.Text)
	default:
		if l.Character != "" {
			fmt.Fprint(r.out, r.st.speaker.Sprint(l.Character), ": ")
		}
		fmt.Fprint(r.out, l.Text)
		if a := l.Annotation(); a != "" {
			fmt.Fprint(r.out, "  ", r.st.subtle.Sprint(a))
		}
		fmt.Fprintln(r.out)
	}
}

func (r *REPL) inspect(name string) error {
	if name == "" {
		snap := r.session.Snapshot()
		name = snap.ActiveNode
	}
	if name == "" {
		return errors.New("usage: inspect <node>")
	}
	info, ok := r.session.Node(name)
	if !ok {
		return fmt.Errorf("unknown node %q", name)
	}
	c := inspector.Summarize(info)
	r.st.brand.Fprintln(r.out, c.Title)
	if len(c.Facts) > 0 {
		fmt.Fprintf(r.out, "  %s\n", c.FactsLine())
	}
	if c.Preview != "" {
		r.st.subtle.Fprintf(r.out, "  %q\n", c.Preview)
	}
	if c.Tags != "" {
		r.st.subtle.Fprintf(r.out, "  %s\n", c.Tags)
	}
	return nil
}

// graph lists nodes with their live markers, then edges.
func (r *REPL) graph() {
	g := r.session.Graph()
	if g == nil {
		r.st.warn.Fprintln(r.out, "no graph yet")
		return
	}
	surface := r.session.Surface()
	for _, n := range g.Nodes {
		marker := "  "
		switch {
		case surface.HasClass(n.ID, graphmodel.ClassActive):
			marker = r.st.good.Sprint("> ")
		case surface.HasClass(n.ID, graphmodel.ClassVisited):
			marker = r.st.subtle.Sprint("* ")
		}
		fmt.Fprintf(r.out, "%s%s", marker, n.Name)
		if classes := n.Classes(); len(classes) > 0 {
			fmt.Fprint(r.out, " ", r.st.subtle.Sprintf("[%s]", strings.Join(classes, ",")))
		}
		fmt.Fprintln(r.out)
	}
	for _, e := range g.Edges {
		label := ""
		if e.Label != "" {
			label = " " + r.st.subtle.Sprintf("%q", e.Label)
		}
		fmt.Fprintf(r.out, "  %s -> %s (%s)%s\n", e.From, e.To, e.Class(), label)
	}
}

func (r *REPL) state() {
	snap := r.session.Snapshot()
	fmt.Fprintf(r.out, "phase: %s\n", snap.Phase)
	if snap.ActiveNode != "" {
		fmt.Fprintf(r.out, "node: %s\n", snap.ActiveNode)
	}
	if len(snap.Visited) > 0 {
		fmt.Fprintf(r.out, "visited: %s\n", strings.Join(snap.Visited, ", "))
	}
	if snap.EngineError != "" {
		r.st.bad.Fprintf(r.out, "engine: %s\n", snap.EngineError)
	}
}

func (r *REPL) help() {
	rows := [][2]string{
		{"enter, next", "continue the story"},
		{"<number>", "pick a choice"},
		{"goto <node>", "play from a node"},
		{"restart", "recompile and start over"},
		{"load <ref>", "compile an example or file"},
		{"info [node]", "describe a node"},
		{"nodes", "list nodes and edges"},
		{"where", "show the playback state"},
		{"quit", "leave"},
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %s  %s\n", r.st.brand.Sprintf("%-15s", row[0]), row[1])
	}
}
