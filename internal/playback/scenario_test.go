package playback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/playback"
)

// TestHelloScenario plays the built-in hello story end to end: one line,
// a two-option menu, then the branch behind the second option.
func TestHelloScenario(t *testing.T) {
	events.Clear()
	src, ok := fixture.Example("hello")
	require.True(t, ok)

	surface := graphmodel.NewMemorySurface()
	o := playback.New(fixture.NewRuntime(), surface, playback.Options{})

	require.True(t, o.CompileAndRun(src))
	require.Equal(t, playback.PhasePlaying, o.Phase())
	lines := o.Transcript()
	require.Len(t, lines, 2)
	assert.Equal(t, "Story started", lines[0].Text)
	assert.Equal(t, "[Guide] Hey there! Want to go on an adventure?", lines[1].String())

	require.True(t, o.Step())
	require.Equal(t, playback.PhaseAwaitingChoice, o.Phase())
	choices := o.Choices()
	require.Len(t, choices, 2)
	assert.Equal(t, 0, choices[0].Index)
	assert.Equal(t, 1, choices[1].Index)

	require.True(t, o.ChooseOption(1))
	lines = o.Transcript()
	assert.Equal(t, "[Guide] Maybe next time.", lines[len(lines)-1].String())
	assert.Equal(t, []string{"start", "decline"}, o.Tracker().Visited())
	assert.True(t, surface.HasClass("node-decline", graphmodel.ClassActive))
	assert.False(t, surface.HasClass("node-start", graphmodel.ClassActive))

	require.True(t, o.Step())
	assert.Equal(t, playback.PhaseEnded, o.Phase())

	var names []string
	for _, e := range events.Snapshot() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "compile.succeeded")
	assert.Contains(t, names, "graph.rendered")
	assert.Contains(t, names, "story.choice")
	assert.Contains(t, names, "session.ended")
}

func TestFunctionsScenario(t *testing.T) {
	src, _ := fixture.Example("functions")
	surface := graphmodel.NewMemorySurface()
	o := playback.New(fixture.NewRuntime(), surface, playback.Options{})

	require.True(t, o.CompileAndRun(src))
	require.True(t, o.Step())

	// greet is a rendered function node, so the call frame is highlighted.
	active, _ := o.Tracker().ActiveNode()
	assert.Equal(t, "greet", active)
	assert.True(t, surface.HasClass("node-greet", graphmodel.ClassFunction))

	require.True(t, o.ResumeFromNode("greet"))
	assert.Equal(t, []string{"Failed to start from node: greet"}, texts(o.Transcript()))
	assert.Equal(t, playback.PhasePlaying, o.Phase())
}

func TestCommandsScenario(t *testing.T) {
	src, _ := fixture.Example("commands")
	o := playback.New(fixture.NewRuntime(), graphmodel.NewMemorySurface(), playback.Options{})

	require.True(t, o.CompileAndRun(src))

	assert.Equal(t, []string{
		"Story started",
		"@ bg stage fade",
		"@ bgm overture.ogg",
		"@ lights on",
		"[Narrator] The curtain rises.",
	}, texts(o.Transcript()))

	require.True(t, o.Step())
	require.True(t, o.Step())
	require.True(t, o.Step())
	assert.Equal(t, playback.PhaseEnded, o.Phase())
	lines := texts(o.Transcript())
	assert.Equal(t, []string{"@ lights off", "Bravo!", "--- END ---"}, lines[len(lines)-3:])
}

func texts(lines []playback.TranscriptLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.String())
	}
	return out
}
