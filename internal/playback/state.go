package playback

import "time"

// Phase is the lifecycle state of the playback state machine.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseCompiling      Phase = "compiling"
	PhaseCompileFailed  Phase = "compile_failed"
	PhasePlaying        Phase = "playing"
	PhaseAwaitingChoice Phase = "awaiting_choice"
	PhaseEnded          Phase = "ended"
)

// Origin records what started a session.
type Origin string

const (
	OriginCompile Origin = "compile"
	OriginRestart Origin = "restart"
	OriginResume  Origin = "resume"
)

// Session is one continuous playback run. A new value replaces the old one
// on every successful compile or resume.
type Session struct {
	ID               string    `json:"id"`
	Phase            Phase     `json:"phase"`
	WaitingForChoice bool      `json:"waitingForChoice"`
	ActiveNode       string    `json:"activeNode,omitempty"`
	Origin           Origin    `json:"origin"`
	StartedAt        time.Time `json:"startedAt"`
}

// Controls mirrors which playground buttons are enabled.
type Controls struct {
	Compile bool `json:"compile"`
	Next    bool `json:"next"`
	Choose  bool `json:"choose"`
	Resume  bool `json:"resume"`
	Restart bool `json:"restart"`
}
