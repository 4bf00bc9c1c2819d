package playback

import (
	"strings"

	"github.com/AaronLay10/StoryLoom/internal/story"
)

// LineKind classifies transcript entries.
type LineKind string

const (
	LineSystem   LineKind = "system"
	LineDialogue LineKind = "dialogue"
	LineCommand  LineKind = "command"
	LineEnd      LineKind = "end"
)

const endMarker = "--- END ---"

// TranscriptLine is one entry of the append-only transcript.
type TranscriptLine struct {
	Kind      LineKind    `json:"kind"`
	Character string      `json:"character,omitempty"`
	Text      string      `json:"text"`
	Tags      []story.Tag `json:"tags,omitempty"`
}

// Narration reports whether a dialogue line has no speaker.
func (l TranscriptLine) Narration() bool {
	return l.Kind == LineDialogue && l.Character == ""
}

// Annotation renders tags as "#key:value" pairs.
func (l TranscriptLine) Annotation() string {
	parts := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		if t.Value == "" {
			parts = append(parts, "#"+t.Key)
			continue
		}
		parts = append(parts, "#"+t.Key+":"+t.Value)
	}
	return strings.Join(parts, " ")
}

// String renders the line as plain transcript text.
func (l TranscriptLine) String() string {
	if l.Kind != LineDialogue {
		return l.Text
	}
	s := l.Text
	if l.Character != "" {
		s = "[" + l.Character + "] " + s
	}
	if a := l.Annotation(); a != "" {
		s += "  " + a
	}
	return s
}

func commandText(c story.Command) string {
	return strings.TrimRight("@ "+c.Type+" "+strings.Join(c.Params, " "), " ")
}

// ChoiceOption is one offered choice. Number is the 1-based display
// position; Index is the runtime index used for selection.
type ChoiceOption struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Index  int    `json:"index"`
}

// Diagnostics holds the messages of the last compile.
type Diagnostics struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
