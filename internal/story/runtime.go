package story

import "errors"

var (
	// ErrNoSession is returned by runtime queries made before any story is running.
	ErrNoSession = errors.New("no story session")
	// ErrUnknownNode is returned when a node name is not part of the compiled story.
	ErrUnknownNode = errors.New("unknown node")
)

// CompileResult reports the outcome of compiling a script.
// Errors is empty when Success is true; Warnings may be non-empty either way.
type CompileResult struct {
	Success  bool     `json:"success"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Runtime is the compiler and execution engine that playback drives.
// All calls are synchronous and are made from a single goroutine at a time.
type Runtime interface {
	// Compile compiles source and, on success, loads it and starts at the start node.
	Compile(source string) CompileResult
	// Step advances execution by one visible result.
	Step() (StepResult, error)
	// Choose resolves the pending choice with a runtime-provided index.
	Choose(index int) error
	// StartFromNode restarts execution at name. It returns false when the
	// node cannot be started, e.g. because it requires call arguments.
	StartFromNode(name string) (bool, error)
	// CurrentNodeName reports the node being executed.
	CurrentNodeName() (string, error)
	// GraphData returns the graph of the last successfully compiled story.
	GraphData() (StoryGraph, error)
}
