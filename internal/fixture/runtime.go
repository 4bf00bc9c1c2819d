package fixture

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

// maxSilentSteps bounds how many non-output steps (jump, call, set,
// branch) one Step may execute, so a jump cycle reports an error instead
// of hanging.
const maxSilentSteps = 10000

var (
	errChoicePending = errors.New("a choice is pending")
	errNoChoice      = errors.New("no choice is pending")
)

type frame struct {
	node string
	pc   int
}

// Runtime plays a compiled fixture. It is not safe for concurrent use.
type Runtime struct {
	fx    *Fixture
	nodes map[string]*Node

	frames  []frame
	current string
	vars    map[string]string
	visited map[string]bool
	pending []pendingOption
	started bool
	ended   bool
}

type pendingOption struct {
	index int
	opt   MenuOption
}

var _ story.Runtime = (*Runtime)(nil)

// NewRuntime creates a runtime with nothing compiled.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Compile parses source as a fixture and, on success, loads it and starts
// a session at its start node.
func (r *Runtime) Compile(source string) story.CompileResult {
	fx, errs, warnings := Parse([]byte(source))
	if len(errs) > 0 {
		return story.CompileResult{Success: false, Errors: errs, Warnings: warnings}
	}

	r.fx = fx
	r.nodes = make(map[string]*Node, len(fx.Nodes))
	for i := range fx.Nodes {
		r.nodes[fx.Nodes[i].Name] = &fx.Nodes[i]
	}
	r.reset(fx.Start)
	return story.CompileResult{Success: true, Errors: []string{}, Warnings: warnings}
}

func (r *Runtime) reset(start string) {
	r.vars = make(map[string]string, len(r.fx.Vars))
	for k, v := range r.fx.Vars {
		r.vars[k] = v
	}
	r.visited = make(map[string]bool)
	r.frames = nil
	r.pending = nil
	r.ended = false
	r.started = true
	r.enter(start)
}

// enter replaces the top frame with the start of node.
func (r *Runtime) enter(node string) {
	if len(r.frames) == 0 {
		r.frames = append(r.frames, frame{node: node})
	} else {
		r.frames[len(r.frames)-1] = frame{node: node}
	}
	r.current = node
	r.visited[node] = true
}

func (r *Runtime) push(node string, args map[string]string) {
	for k, v := range args {
		r.vars[k] = v
	}
	r.frames = append(r.frames, frame{node: node})
	r.current = node
	r.visited[node] = true
}

// Step runs until the next visible result.
func (r *Runtime) Step() (story.StepResult, error) {
	if !r.started {
		return nil, story.ErrNoSession
	}
	if len(r.pending) > 0 {
		return nil, errChoicePending
	}
	if r.ended {
		return story.End{}, nil
	}

	for silent := 0; silent < maxSilentSteps; silent++ {
		top := &r.frames[len(r.frames)-1]
		steps := r.nodes[top.node].Steps
		if top.pc >= len(steps) {
			r.frames = r.frames[:len(r.frames)-1]
			if len(r.frames) == 0 {
				r.ended = true
				return story.End{}, nil
			}
			r.current = r.frames[len(r.frames)-1].node
			continue
		}

		s := steps[top.pc]
		top.pc++

		switch {
		case s.Line != nil:
			return story.Line{
				Character: s.Line.Character,
				Text:      r.interpolate(s.Line.Text),
				Tags:      s.Line.Tags,
			}, nil
		case len(s.Menu) > 0:
			if res, ok := r.offer(s.Menu); ok {
				return res, nil
			}
		case s.Command != nil:
			params := make([]string, len(s.Command.Params))
			for i, p := range s.Command.Params {
				params[i] = r.interpolate(p)
			}
			return story.Command{Type: s.Command.Type, Params: params}, nil
		case s.Jump != "":
			r.enter(s.Jump)
		case s.Call != "":
			r.push(s.Call, s.Args)
		case len(s.Set) > 0:
			for k, v := range s.Set {
				r.vars[k] = v
			}
		case s.Branch != nil:
			if EvalCondition(s.Branch.When, r.evalContext()) {
				r.enter(s.Branch.Then)
			} else if s.Branch.Else != "" {
				r.enter(s.Branch.Else)
			}
		case s.End:
			r.frames = nil
			r.ended = true
			return story.End{}, nil
		}
	}
	return nil, fmt.Errorf("no output after %d steps in node %q", maxSilentSteps, r.current)
}

// offer filters the menu. Options keep their position as index. An empty
// menu after filtering is skipped.
func (r *Runtime) offer(menu []MenuOption) (story.StepResult, bool) {
	ctx := r.evalContext()
	var res story.Choices
	for i, opt := range menu {
		if !EvalCondition(opt.When, ctx) {
			continue
		}
		r.pending = append(r.pending, pendingOption{index: i, opt: opt})
		res.Options = append(res.Options, story.Choice{Text: r.interpolate(opt.Text), Index: i})
	}
	return res, len(res.Options) > 0
}

// Choose resolves the pending menu. An index that was not offered, or an
// option targeting an unknown node, is an error and leaves the menu pending.
func (r *Runtime) Choose(index int) error {
	if len(r.pending) == 0 {
		return errNoChoice
	}
	var picked *pendingOption
	for i := range r.pending {
		if r.pending[i].index == index {
			picked = &r.pending[i]
			break
		}
	}
	if picked == nil {
		return fmt.Errorf("choice index %d was not offered", index)
	}
	if to := picked.opt.To; to != "" {
		if _, ok := r.nodes[to]; !ok {
			return fmt.Errorf("%w: %s", story.ErrUnknownNode, to)
		}
		r.pending = nil
		r.enter(to)
		return nil
	}
	r.pending = nil
	return nil
}

// StartFromNode restarts the session at name. Function nodes cannot be
// started since their parameters have no values.
func (r *Runtime) StartFromNode(name string) (bool, error) {
	if r.fx == nil {
		return false, story.ErrNoSession
	}
	n, ok := r.nodes[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", story.ErrUnknownNode, name)
	}
	if n.IsFunction() {
		return false, nil
	}
	r.reset(name)
	return true, nil
}

func (r *Runtime) CurrentNodeName() (string, error) {
	if !r.started {
		return "", story.ErrNoSession
	}
	return r.current, nil
}

func (r *Runtime) GraphData() (story.StoryGraph, error) {
	if r.fx == nil {
		return story.StoryGraph{}, story.ErrNoSession
	}
	return r.fx.Graph(), nil
}

// Vars returns a copy of the story variables.
func (r *Runtime) Vars() map[string]string {
	out := make(map[string]string, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// Title returns the loaded fixture's title.
func (r *Runtime) Title() string {
	if r.fx == nil {
		return ""
	}
	return r.fx.Title
}

func (r *Runtime) evalContext() *EvalContext {
	return &EvalContext{Vars: r.vars, Visited: r.visited}
}

// interpolate replaces {name} with story variables.
func (r *Runtime) interpolate(s string) string {
	if len(r.vars) == 0 || !strings.Contains(s, "{") {
		return s
	}
	keys := make([]string, 0, len(r.vars))
	for k := range r.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", r.vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
