package playback

import (
	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

// dispatcher applies one step result to the orchestrator. chain is set when
// the result must be followed by another step without pausing.
type dispatcher struct {
	o     *Orchestrator
	chain bool
}

var _ story.StepVisitor = (*dispatcher)(nil)

func (d *dispatcher) VisitLine(l story.Line) {
	o := d.o
	o.transcript = append(o.transcript, TranscriptLine{
		Kind:      LineDialogue,
		Character: l.Character,
		Text:      l.Text,
		Tags:      l.Tags,
	})
	events.Emit("info", "story.line", l.Text, map[string]interface{}{
		"session_id": o.session.ID,
		"character":  l.Character,
		"node":       o.session.ActiveNode,
	})
}

func (d *dispatcher) VisitChoices(c story.Choices) {
	o := d.o
	o.choices = make([]ChoiceOption, 0, len(c.Options))
	for i, opt := range c.Options {
		o.choices = append(o.choices, ChoiceOption{Number: i + 1, Text: opt.Text, Index: opt.Index})
	}
	o.session.WaitingForChoice = true
	o.setPhase(PhaseAwaitingChoice)
	events.Emit("info", "story.choices", "", map[string]interface{}{
		"session_id": o.session.ID,
		"count":      len(o.choices),
	})
}

func (d *dispatcher) VisitCommand(c story.Command) {
	o := d.o
	o.transcript = append(o.transcript, TranscriptLine{Kind: LineCommand, Text: commandText(c)})
	events.Emit("info", "story.command", "", map[string]interface{}{
		"session_id": o.session.ID,
		"type":       c.Type,
		"params":     c.Params,
	})
	if o.opts.Commands != nil {
		o.opts.Commands.ForwardCommand(o.session.ID, o.session.ActiveNode, c)
	}
	d.chain = true
}

func (d *dispatcher) VisitEnd(story.End) {
	o := d.o
	o.transcript = append(o.transcript, TranscriptLine{Kind: LineEnd, Text: endMarker})
	o.session.WaitingForChoice = false
	o.setPhase(PhaseEnded)
	o.log.Info("session ended")
	events.Emit("info", "story.end", "", map[string]interface{}{"session_id": o.session.ID})
	events.Emit("info", "session.ended", "", map[string]interface{}{"session_id": o.session.ID})
}
