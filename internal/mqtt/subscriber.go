package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/events"
)

// Controller is the playback surface remote control messages drive.
type Controller interface {
	Step() (app.Outcome, error)
	Choose(index int) (app.Outcome, error)
	Resume(node string) (app.Outcome, error)
	Restart() (app.Outcome, error)
}

// ControlMessage is a remote playback input on <prefix>/control.
type ControlMessage struct {
	Action string `json:"action" validate:"required,oneof=step choose resume restart"`
	Index  *int   `json:"index" validate:"required_if=Action choose,omitempty,gte=0"`
	Node   string `json:"node" validate:"required_if=Action resume"`
}

var validate = validator.New()

// ControlSubscriber feeds control messages into the application session.
// Subscribing is idempotent; call Reset after a disconnect so the next
// Subscribe registers again.
type ControlSubscriber struct {
	mu         sync.Mutex
	broker     Broker
	ctrl       Controller
	topic      string
	subscribed bool
	log        *zap.Logger
}

func NewControlSubscriber(broker Broker, ctrl Controller, prefix string, log *zap.Logger) *ControlSubscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &ControlSubscriber{
		broker: broker,
		ctrl:   ctrl,
		topic:  strings.TrimSuffix(prefix, "/") + "/control",
		log:    log,
	}
}

func (s *ControlSubscriber) Topic() string { return s.topic }

// Subscribe registers the control topic if it is not registered yet.
func (s *ControlSubscriber) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return nil
	}
	if err := s.broker.Subscribe(s.topic, s.handle); err != nil {
		return err
	}
	s.subscribed = true
	return nil
}

// Reset forgets the subscription.
func (s *ControlSubscriber) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = false
}

func (s *ControlSubscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

func (s *ControlSubscriber) handle(topic string, payload []byte) {
	msg, err := ParseControl(payload)
	if err != nil {
		s.log.Warn("invalid control message", zap.String("topic", topic), zap.Error(err))
		events.Emit("warn", "control.received", err.Error(), map[string]interface{}{
			"topic":    topic,
			"accepted": false,
		})
		return
	}

	out, err := s.apply(msg)
	fields := map[string]interface{}{
		"topic":    topic,
		"action":   msg.Action,
		"accepted": out.Accepted,
	}
	if err != nil {
		events.Emit("warn", "control.received", err.Error(), fields)
		return
	}
	events.Emit("info", "control.received", "", fields)
}

func (s *ControlSubscriber) apply(msg ControlMessage) (app.Outcome, error) {
	switch msg.Action {
	case "step":
		return s.ctrl.Step()
	case "choose":
		return s.ctrl.Choose(*msg.Index)
	case "resume":
		return s.ctrl.Resume(msg.Node)
	case "restart":
		return s.ctrl.Restart()
	}
	return app.Outcome{}, fmt.Errorf("unknown action %q", msg.Action)
}

// ParseControl decodes and validates a control payload.
func ParseControl(payload []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(msg); err != nil {
		return ControlMessage{}, fmt.Errorf("invalid control message: %w", err)
	}
	return msg, nil
}
