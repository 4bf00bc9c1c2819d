// Package app holds the application session: the one value that owns the
// runtime, the rendered graph, the playback session and the visitation
// state, and serializes every input that reaches them.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/inspector"
	"github.com/AaronLay10/StoryLoom/internal/metrics"
	"github.com/AaronLay10/StoryLoom/internal/playback"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

// Options configures a Session.
type Options struct {
	Layout          graphmodel.LayoutOptions
	MaxCommandChain int
	Logger          *zap.Logger
	Metrics         *metrics.Collector
	Commands        playback.CommandSink
}

// Session is safe for concurrent use. HTTP handlers, the MQTT control
// subscriber, the file watcher and the terminal all go through it.
type Session struct {
	mu      sync.Mutex
	gate    *Gate
	surface *graphmodel.MemorySurface
	orch    *playback.Orchestrator
	opts    Options
	log     *zap.Logger
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	Ready       bool                      `json:"ready"`
	EngineError string                    `json:"engineError,omitempty"`
	Phase       playback.Phase            `json:"phase"`
	Session     *playback.Session         `json:"session,omitempty"`
	Transcript  []playback.TranscriptLine `json:"transcript"`
	Generation  int                       `json:"generation"`
	Compiles    int                       `json:"compiles"`
	Choices     []playback.ChoiceOption   `json:"choices"`
	Diagnostics playback.Diagnostics      `json:"diagnostics"`
	ActiveNode  string                    `json:"activeNode,omitempty"`
	Visited     []string                  `json:"visited"`
	Controls    playback.Controls         `json:"controls"`
}

// Outcome is the result of a playback operation: whether it was accepted
// and the state right after it.
type Outcome struct {
	Accepted bool     `json:"accepted"`
	State    Snapshot `json:"state"`
}

// New creates a session whose engine is not loaded yet.
func New(opts Options) *Session {
	s := &Session{
		gate:    NewGate(),
		surface: graphmodel.NewMemorySurface(),
		opts:    opts,
		log:     opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Open loads the engine through the gate. Until it succeeds every playback
// operation returns ErrNotReady; a failure is final.
func (s *Session) Open(ctx context.Context, loader Loader) error {
	err := s.gate.Open(ctx, loader)
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetEngineReady(err == nil)
	}
	if err != nil {
		s.log.Error("story engine failed to load", zap.Error(err))
		return err
	}

	rt, _ := s.gate.Runtime()
	popts := playback.Options{
		Layout:          s.opts.Layout,
		MaxCommandChain: s.opts.MaxCommandChain,
		Logger:          s.log.Named("playback"),
		Commands:        s.opts.Commands,
	}
	if s.opts.Metrics != nil {
		popts.Observer = s.opts.Metrics
	}

	s.mu.Lock()
	if s.orch == nil {
		s.orch = playback.New(rt, s.surface, popts)
	}
	s.mu.Unlock()
	s.log.Info("story engine ready")
	return nil
}

// Ready reports whether playback controls are enabled.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch != nil
}

// EngineError returns the recorded load failure, if any.
func (s *Session) EngineError() error {
	return s.gate.Err()
}

func (s *Session) run(op func(o *playback.Orchestrator) bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return Outcome{State: s.snapshotLocked()}, ErrNotReady
	}
	accepted := op(s.orch)
	return Outcome{Accepted: accepted, State: s.snapshotLocked()}, nil
}

// Compile compiles source and starts playing it.
func (s *Session) Compile(source string) (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool { return o.CompileAndRun(source) })
}

// Step advances playback.
func (s *Session) Step() (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool { return o.Step() })
}

// Choose selects the offered option with runtime index.
func (s *Session) Choose(index int) (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool { return o.ChooseOption(index) })
}

// ChooseNumber selects an option by its 1-based display number.
func (s *Session) ChooseNumber(number int) (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool {
		for _, c := range o.Choices() {
			if c.Number == number {
				return o.ChooseOption(c.Index)
			}
		}
		return false
	})
}

// Resume restarts playback at a node.
func (s *Session) Resume(node string) (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool { return o.ResumeFromNode(node) })
}

// Restart recompiles the last source.
func (s *Session) Restart() (Outcome, error) {
	return s.run(func(o *playback.Orchestrator) bool { return o.Restart() })
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:      playback.PhaseIdle,
		Transcript: []playback.TranscriptLine{},
		Choices:    []playback.ChoiceOption{},
		Visited:    []string{},
	}
	if err := s.gate.Err(); err != nil {
		snap.EngineError = err.Error()
	}
	if s.orch == nil {
		return snap
	}

	snap.Ready = true
	snap.Phase = s.orch.Phase()
	if sess, ok := s.orch.Session(); ok {
		snap.Session = &sess
	}
	snap.Transcript = append(snap.Transcript, s.orch.Transcript()...)
	snap.Generation = s.orch.TranscriptGeneration()
	snap.Compiles = s.orch.Compiles()
	snap.Choices = append(snap.Choices, s.orch.Choices()...)
	snap.Diagnostics = s.orch.Diagnostics()
	snap.ActiveNode, _ = s.orch.Tracker().ActiveNode()
	snap.Visited = append(snap.Visited, s.orch.Tracker().Visited()...)
	snap.Controls = s.orch.Controls()
	return snap
}

// Inspect returns the tooltip content of a node in the current graph.
func (s *Session) Inspect(name string) (inspector.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return inspector.Content{}, ErrNotReady
	}
	info, ok := s.orch.Node(name)
	if !ok {
		return inspector.Content{}, fmt.Errorf("%w: %s", story.ErrUnknownNode, name)
	}
	return inspector.Describe(info), nil
}

// Elements returns the rendered graph with live classes.
func (s *Session) Elements() []graphmodel.Element {
	return s.surface.Elements()
}

// Layout returns the layout requested for the rendered graph.
func (s *Session) Layout() (graphmodel.LayoutOptions, bool) {
	return s.surface.Layout()
}

// Surface returns the render surface, for read-only inspection.
func (s *Session) Surface() *graphmodel.MemorySurface {
	return s.surface
}

// Graph returns the current renderable graph, or nil.
func (s *Session) Graph() *graphmodel.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return nil
	}
	return s.orch.Graph()
}

// Node returns the summary of a node in the current graph.
func (s *Session) Node(name string) (story.NodeInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return story.NodeInfo{}, false
	}
	return s.orch.Node(name)
}

// LastSource returns the most recently compiled source.
func (s *Session) LastSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return ""
	}
	return s.orch.LastSource()
}
