package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// engine
	"engine.ready":  {},
	"engine.failed": {},

	// compile
	"compile.succeeded": {},
	"compile.failed":    {},

	// session
	"session.started": {},
	"session.ended":   {},

	// node
	"node.entered": {},

	// story output
	"story.line":    {},
	"story.choices": {},
	"story.choice":  {},
	"story.command": {},
	"story.end":     {},

	// playback
	"playback.notice": {},

	// graph
	"graph.rendered": {},

	// script library
	"script.saved":   {},
	"script.deleted": {},

	// command bridge
	"command.forwarded": {},
	"command.failed":    {},
	"control.received":  {},

	// broker
	"broker.connected":    {},
	"broker.disconnected": {},
	"alert.sent":          {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
