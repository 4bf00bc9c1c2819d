package playback

import "github.com/AaronLay10/StoryLoom/internal/story"

// Observer receives counters-worthy playback facts. Metrics implement it.
type Observer interface {
	Compiled(success bool)
	SessionStarted(origin Origin)
	StepDispatched(kind story.StepKind)
	Notice()
}

// CommandSink receives every COMMAND step result, in order. Forwarding
// must not block playback and its failures never reach the orchestrator.
type CommandSink interface {
	ForwardCommand(sessionID, node string, cmd story.Command)
}

type nopObserver struct{}

func (nopObserver) Compiled(bool)                 {}
func (nopObserver) SessionStarted(Origin)         {}
func (nopObserver) StepDispatched(story.StepKind) {}
func (nopObserver) Notice()                       {}
