package story

// StepKind names the variant of a StepResult.
type StepKind string

const (
	KindLine    StepKind = "LINE"
	KindChoices StepKind = "CHOICES"
	KindCommand StepKind = "COMMAND"
	KindEnd     StepKind = "END"
)

// StepResult is what the runtime produces for one call to Step.
// The set of variants is closed: Line, Choices, Command and End.
// Consumers match on it with a StepVisitor, so adding a variant means
// adding a visitor method and every dispatcher stops compiling until it
// handles the new case.
type StepResult interface {
	Kind() StepKind
	Accept(v StepVisitor)
	sealed()
}

// StepVisitor handles each StepResult variant.
type StepVisitor interface {
	VisitLine(Line)
	VisitChoices(Choices)
	VisitCommand(Command)
	VisitEnd(End)
}

// Line is a piece of dialogue. An empty Character means narration.
type Line struct {
	Character string
	Text      string
	Tags      []Tag
}

// Choice is one offered option. Index is the runtime's own index and
// need not match the option's position when unavailable options are filtered.
type Choice struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// Choices asks the player to pick one of Options.
type Choices struct {
	Options []Choice
}

// Command is an engine command such as a sound cue or a scene change.
type Command struct {
	Type   string
	Params []string
}

// End marks the end of the story.
type End struct{}

func (Line) Kind() StepKind    { return KindLine }
func (Choices) Kind() StepKind { return KindChoices }
func (Command) Kind() StepKind { return KindCommand }
func (End) Kind() StepKind     { return KindEnd }

func (r Line) Accept(v StepVisitor)    { v.VisitLine(r) }
func (r Choices) Accept(v StepVisitor) { v.VisitChoices(r) }
func (r Command) Accept(v StepVisitor) { v.VisitCommand(r) }
func (r End) Accept(v StepVisitor)     { v.VisitEnd(r) }

func (Line) sealed()    {}
func (Choices) sealed() {}
func (Command) sealed() {}
func (End) sealed()     {}
