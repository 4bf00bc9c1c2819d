// Package playback drives a story runtime one step at a time and keeps the
// transcript, the offered choices and the graph highlights in sync with it.
package playback

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/highlight"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Options configures an Orchestrator. Zero values are usable.
type Options struct {
	Layout graphmodel.LayoutOptions
	// MaxCommandChain stops a run of consecutive COMMAND results after this
	// many entries. Zero means unlimited.
	MaxCommandChain int
	Logger          *zap.Logger
	Observer        Observer
	Commands        CommandSink
}

// Orchestrator is the playback state machine. It owns the session and the
// visitation state; it is not safe for concurrent use.
type Orchestrator struct {
	rt      story.Runtime
	surface graphmodel.Surface
	tracker *highlight.Tracker
	opts    Options
	log     *zap.Logger
	obs     Observer

	phase      Phase
	graph      *graphmodel.Graph
	session    *Session
	transcript []TranscriptLine
	choices    []ChoiceOption
	diag       Diagnostics
	lastSource string

	// generation bumps whenever the transcript is cleared; compiles counts
	// compile attempts so hosts can tell fresh diagnostics from old ones.
	generation int
	compiles   int
}

// New creates an orchestrator over rt that renders onto surface.
func New(rt story.Runtime, surface graphmodel.Surface, opts Options) *Orchestrator {
	if opts.Layout.Name == "" {
		opts.Layout = graphmodel.DefaultLayout()
	}
	o := &Orchestrator{
		rt:      rt,
		surface: surface,
		tracker: highlight.NewTracker(surface),
		opts:    opts,
		log:     opts.Logger,
		obs:     opts.Observer,
		phase:   PhaseIdle,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.obs == nil {
		o.obs = nopObserver{}
	}
	return o
}

// CompileAndRun compiles source and, on success, starts a new session and
// performs the first step. Blank source is ignored and returns false.
func (o *Orchestrator) CompileAndRun(source string) bool {
	return o.compileAndRun(source, OriginCompile)
}

// Restart clears highlights and recompiles the last source.
func (o *Orchestrator) Restart() bool {
	o.tracker.ClearHighlights()
	if o.lastSource == "" {
		return false
	}
	return o.compileAndRun(o.lastSource, OriginRestart)
}

func (o *Orchestrator) compileAndRun(source string, origin Origin) bool {
	if strings.TrimSpace(source) == "" {
		return false
	}

	o.lastSource = source
	o.compiles++
	o.clearTranscript()
	o.choices = nil
	if o.session != nil {
		o.session.WaitingForChoice = false
	}
	o.setPhase(PhaseCompiling)

	res := o.rt.Compile(source)
	o.diag = Diagnostics{
		Errors:   append([]string{}, res.Errors...),
		Warnings: append([]string{}, res.Warnings...),
	}

	if !res.Success {
		o.setPhase(PhaseCompileFailed)
		o.obs.Compiled(false)
		o.log.Info("compile failed", zap.Int("errors", len(res.Errors)))
		events.Emit("warn", "compile.failed", "compilation failed", map[string]interface{}{
			"errors": o.diag.Errors,
		})
		return true
	}

	o.obs.Compiled(true)
	o.log.Info("compile succeeded", zap.Int("warnings", len(res.Warnings)))
	events.Emit("info", "compile.succeeded", "", map[string]interface{}{
		"warnings": o.diag.Warnings,
	})

	o.renderGraph()
	o.beginSession(origin)
	o.appendSystem("Story started")
	o.Step()
	return true
}

func (o *Orchestrator) renderGraph() {
	sg, err := o.rt.GraphData()
	if err != nil {
		// The session still plays without a graph.
		o.log.Warn("graph data unavailable", zap.Error(err))
		sg = story.StoryGraph{}
	}
	o.graph = graphmodel.Build(sg)
	if o.surface != nil {
		graphmodel.Render(o.surface, o.graph, o.opts.Layout)
	}
	events.Emit("info", "graph.rendered", "", map[string]interface{}{
		"nodes": len(o.graph.Nodes),
		"edges": len(o.graph.Edges),
	})
}

func (o *Orchestrator) beginSession(origin Origin) {
	o.tracker.Reset()
	o.session = &Session{
		ID:        uuid.NewString(),
		Origin:    origin,
		StartedAt: time.Now().UTC(),
	}
	o.setPhase(PhasePlaying)
	o.obs.SessionStarted(origin)
	o.log.Info("session started", zap.String("session_id", o.session.ID), zap.String("origin", string(origin)))
	events.Emit("info", "session.started", "", map[string]interface{}{
		"session_id": o.session.ID,
		"origin":     string(origin),
	})
}

// Step advances the runtime until a LINE, CHOICES or END result has been
// dispatched. COMMAND results are appended and chained without pausing.
// It returns false when playback is not in the playing phase.
func (o *Orchestrator) Step() bool {
	if o.phase != PhasePlaying {
		return false
	}

	d := &dispatcher{o: o}
	for chained := 1; ; chained++ {
		result, err := o.rt.Step()
		if err != nil {
			o.notice(fmt.Sprintf("Runtime error: %v", err))
			return true
		}
		o.syncActiveNode()

		d.chain = false
		result.Accept(d)
		o.obs.StepDispatched(result.Kind())
		if !d.chain {
			return true
		}
		if max := o.opts.MaxCommandChain; max > 0 && chained >= max {
			o.notice(fmt.Sprintf("Paused after %d consecutive commands", max))
			return true
		}
	}
}

// ChooseOption selects the offered option carrying the runtime index and
// continues playback. It is rejected, changing nothing, unless a choice is
// pending and index is one of the offered options.
func (o *Orchestrator) ChooseOption(index int) bool {
	if o.phase != PhaseAwaitingChoice {
		return false
	}
	var picked *ChoiceOption
	for i := range o.choices {
		if o.choices[i].Index == index {
			picked = &o.choices[i]
			break
		}
	}
	if picked == nil {
		return false
	}
	chosen := *picked
	pending := o.choices

	o.choices = nil
	o.session.WaitingForChoice = false
	o.setPhase(PhasePlaying)

	if err := o.rt.Choose(index); err != nil {
		o.choices = pending
		o.session.WaitingForChoice = true
		o.setPhase(PhaseAwaitingChoice)
		o.notice(fmt.Sprintf("Choice failed: %v", err))
		return true
	}

	events.Emit("info", "story.choice", "", map[string]interface{}{
		"session_id": o.session.ID,
		"index":      chosen.Index,
		"text":       chosen.Text,
	})
	o.Step()
	return true
}

// ResumeFromNode restarts playback at the named node. It requires a
// rendered graph. When the runtime cannot start there, one notice is added
// and the phase is left unchanged.
func (o *Orchestrator) ResumeFromNode(name string) bool {
	if o.graph == nil {
		return false
	}

	pending := o.choices
	o.clearTranscript()
	o.choices = nil

	ok, err := o.rt.StartFromNode(name)
	if err != nil || !ok {
		o.choices = pending
		if err != nil {
			o.log.Debug("start from node failed", zap.String("node", name), zap.Error(err))
		}
		o.notice("Failed to start from node: " + name)
		return true
	}

	o.beginSession(OriginResume)
	o.session.ActiveNode = name
	if o.tracker.SetActive(name) {
		o.emitNodeEntered(name)
	}
	o.appendSystem("Playing from: " + name)
	o.Step()
	return true
}

// syncActiveNode mirrors the runtime's current node onto the session and
// the tracker. Errors mean no session has started yet and are ignored.
func (o *Orchestrator) syncActiveNode() {
	name, err := o.rt.CurrentNodeName()
	if err != nil || name == "" || o.session == nil {
		return
	}
	if name == o.session.ActiveNode {
		return
	}
	o.session.ActiveNode = name
	o.tracker.SetActive(name)
	o.emitNodeEntered(name)
}

func (o *Orchestrator) emitNodeEntered(name string) {
	events.Emit("info", "node.entered", "", map[string]interface{}{
		"session_id": o.session.ID,
		"node":       name,
	})
}

// setPhase moves the state machine and mirrors the phase onto the current
// session, so a failed compile is visible there too.
func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	if o.session != nil {
		o.session.Phase = p
	}
}

func (o *Orchestrator) clearTranscript() {
	o.transcript = nil
	o.generation++
}

func (o *Orchestrator) appendSystem(text string) {
	o.transcript = append(o.transcript, TranscriptLine{Kind: LineSystem, Text: text})
}

func (o *Orchestrator) notice(text string) {
	o.appendSystem(text)
	o.obs.Notice()
	o.log.Warn("playback notice", zap.String("notice", text))
	events.Emit("warn", "playback.notice", text, nil)
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Session returns a copy of the current session, if one has started.
func (o *Orchestrator) Session() (Session, bool) {
	if o.session == nil {
		return Session{}, false
	}
	return *o.session, true
}

// Transcript returns a copy of the transcript lines.
func (o *Orchestrator) Transcript() []TranscriptLine {
	return append([]TranscriptLine{}, o.transcript...)
}

// TranscriptGeneration changes every time the transcript is cleared, even
// when the new transcript has the same length as the old one.
func (o *Orchestrator) TranscriptGeneration() int { return o.generation }

// Compiles returns the number of compile attempts so far.
func (o *Orchestrator) Compiles() int { return o.compiles }

// Choices returns the currently offered options.
func (o *Orchestrator) Choices() []ChoiceOption {
	return append([]ChoiceOption{}, o.choices...)
}

func (o *Orchestrator) Diagnostics() Diagnostics { return o.diag }

// Graph returns the renderable graph of the last successful compile, or nil.
func (o *Orchestrator) Graph() *graphmodel.Graph { return o.graph }

func (o *Orchestrator) Tracker() *highlight.Tracker { return o.tracker }

func (o *Orchestrator) LastSource() string { return o.lastSource }

// Node returns the summary of a node in the current graph.
func (o *Orchestrator) Node(name string) (story.NodeInfo, bool) {
	n, ok := o.graph.Node(name)
	if !ok {
		return story.NodeInfo{}, false
	}
	return n.Info, true
}

// Controls reports which operations would currently be accepted.
func (o *Orchestrator) Controls() Controls {
	return Controls{
		Compile: true,
		Next:    o.phase == PhasePlaying,
		Choose:  o.phase == PhaseAwaitingChoice,
		Resume:  o.graph != nil,
		Restart: o.lastSource != "",
	}
}
