// Package fixture implements story.Runtime over compiled-story fixtures:
// YAML documents that declare the story graph and, per node, the ordered
// step list the runtime plays back. It stands in for the real script
// compiler in tests, the terminal player and the playground.
package fixture

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Fixture is one compiled story.
type Fixture struct {
	Version int               `yaml:"version" validate:"eq=1"`
	Title   string            `yaml:"title"`
	Start   string            `yaml:"start" validate:"required"`
	Vars    map[string]string `yaml:"vars"`
	Nodes   []Node            `yaml:"nodes" validate:"required,min=1,dive"`
	Edges   []story.EdgeInfo  `yaml:"edges" validate:"dive"`
}

// Node is a story node with its declared summary and its steps.
type Node struct {
	story.NodeInfo `yaml:",inline"`
	Steps          []Step `yaml:"steps" validate:"dive"`
}

// Step is one action of a node. Exactly one field is set.
type Step struct {
	Line    *LineStep         `yaml:"line,omitempty"`
	Menu    []MenuOption      `yaml:"menu,omitempty" validate:"omitempty,dive"`
	Command *CommandStep      `yaml:"command,omitempty"`
	Jump    string            `yaml:"jump,omitempty"`
	Call    string            `yaml:"call,omitempty"`
	Args    map[string]string `yaml:"args,omitempty"`
	Set     map[string]string `yaml:"set,omitempty"`
	Branch  *BranchStep       `yaml:"branch,omitempty"`
	End     bool              `yaml:"end,omitempty"`
}

type LineStep struct {
	Character string      `yaml:"character"`
	Text      string      `yaml:"text" validate:"required"`
	Tags      []story.Tag `yaml:"tags" validate:"dive"`
}

// MenuOption is offered when When holds. An empty To continues with the
// next step of the same node.
type MenuOption struct {
	Text string `yaml:"text" validate:"required"`
	To   string `yaml:"to"`
	When string `yaml:"when"`
}

type CommandStep struct {
	Type   string   `yaml:"type" validate:"required"`
	Params []string `yaml:"params"`
}

type BranchStep struct {
	When string `yaml:"when" validate:"required"`
	Then string `yaml:"then" validate:"required"`
	Else string `yaml:"else"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Line != nil,
		len(s.Menu) > 0,
		s.Command != nil,
		s.Jump != "",
		s.Call != "",
		len(s.Set) > 0,
		s.Branch != nil,
		s.End,
	} {
		if set {
			n++
		}
	}
	return n
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse decodes and checks a fixture. Structural problems are returned as
// errors and tolerated dangling references as warnings.
func Parse(source []byte) (*Fixture, []string, []string) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(source))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, []string{fmt.Sprintf("parse error: %v", err)}, nil
	}

	if err := validate.Struct(&fx); err != nil {
		return nil, validationMessages(err), nil
	}

	errs, warnings := check(&fx)
	if len(errs) > 0 {
		return nil, errs, warnings
	}
	return &fx, nil, warnings
}

func validationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Fixture.")
		switch e.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", field))
		case "eq":
			out = append(out, fmt.Sprintf("%s must be %s", field, e.Param()))
		case "min":
			out = append(out, fmt.Sprintf("%s must have at least %s entries", field, e.Param()))
		default:
			out = append(out, fmt.Sprintf("%s is invalid", field))
		}
	}
	return out
}

func check(fx *Fixture) (errs, warnings []string) {
	names := make(map[string]bool, len(fx.Nodes))
	for _, n := range fx.Nodes {
		if names[n.Name] {
			errs = append(errs, fmt.Sprintf("duplicate node %q", n.Name))
		}
		names[n.Name] = true
	}

	if !names[fx.Start] {
		errs = append(errs, fmt.Sprintf("start node %q is not defined", fx.Start))
	}

	for _, n := range fx.Nodes {
		for i, s := range n.Steps {
			where := fmt.Sprintf("node %q step %d", n.Name, i+1)
			if s.actions() != 1 {
				errs = append(errs, where+": expected exactly one action")
				continue
			}
			switch {
			case s.Jump != "" && !names[s.Jump]:
				errs = append(errs, fmt.Sprintf("%s: jump to unknown node %q", where, s.Jump))
			case s.Call != "" && !names[s.Call]:
				errs = append(errs, fmt.Sprintf("%s: call to unknown node %q", where, s.Call))
			case s.Branch != nil:
				if !names[s.Branch.Then] {
					errs = append(errs, fmt.Sprintf("%s: branch to unknown node %q", where, s.Branch.Then))
				}
				if s.Branch.Else != "" && !names[s.Branch.Else] {
					errs = append(errs, fmt.Sprintf("%s: branch to unknown node %q", where, s.Branch.Else))
				}
			}
			for _, opt := range s.Menu {
				if opt.To != "" && !names[opt.To] {
					warnings = append(warnings, fmt.Sprintf("%s: menu option %q targets unknown node %q", where, opt.Text, opt.To))
				}
			}
		}
	}

	for _, e := range fx.Edges {
		if !names[e.To] {
			warnings = append(warnings, fmt.Sprintf("edge %s -> %s references unknown node", e.From, e.To))
		}
	}
	return errs, warnings
}

// Graph returns the declared story graph.
func (fx *Fixture) Graph() story.StoryGraph {
	g := story.StoryGraph{
		StartNode: fx.Start,
		Nodes:     make([]story.NodeInfo, 0, len(fx.Nodes)),
		Edges:     append([]story.EdgeInfo{}, fx.Edges...),
	}
	for _, n := range fx.Nodes {
		g.Nodes = append(g.Nodes, n.NodeInfo)
	}
	return g
}
