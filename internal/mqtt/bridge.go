package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/playback"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

var (
	ErrNotConnected   = errors.New("mqtt client not connected")
	ErrQueueFull      = errors.New("command queue full")
	ErrBridgeClosed   = errors.New("command bridge closed")
	errBadCommandType = errors.New("command type is not a valid topic level")
)

const defaultQueueSize = 64

// CommandMessage is the payload published for each story command.
type CommandMessage struct {
	SessionID string   `json:"session_id"`
	Node      string   `json:"node"`
	Type      string   `json:"type"`
	Params    []string `json:"params"`
}

// CommandCounter counts forwarding attempts.
type CommandCounter interface {
	CommandForwarded(ok bool)
}

// BridgeOptions configures a CommandBridge.
type BridgeOptions struct {
	Prefix          string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Metrics         CommandCounter
	Logger          *zap.Logger

	// QueueSize bounds the commands waiting for the broker. Zero means 64.
	QueueSize int
}

// CommandBridge forwards story commands to <prefix>/commands/<type>.
// ForwardCommand only enqueues; a single worker publishes in order through a
// circuit breaker, so playback never waits on the broker.
type CommandBridge struct {
	broker  Broker
	prefix  string
	cb      *gobreaker.CircuitBreaker
	metrics CommandCounter
	log     *zap.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan outgoing
	pending sync.WaitGroup
	done    chan struct{}
}

type outgoing struct {
	sessionID string
	node      string
	cmdType   string
	topic     string
	payload   []byte
}

var _ playback.CommandSink = (*CommandBridge)(nil)

func NewCommandBridge(broker Broker, o BridgeOptions) *CommandBridge {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	failures := o.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	size := o.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	b := &CommandBridge{
		broker:  broker,
		prefix:  strings.TrimSuffix(o.Prefix, "/"),
		metrics: o.Metrics,
		log:     log,
		queue:   make(chan outgoing, size),
		done:    make(chan struct{}),
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mqtt-commands",
		Timeout: o.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	go b.run()
	return b
}

// Topic returns the topic a command type is published to.
func (b *CommandBridge) Topic(cmdType string) string {
	return b.prefix + "/commands/" + cmdType
}

// ForwardCommand queues cmd for publishing and returns at once. Failures
// are reported through events and metrics and never reach playback.
func (b *CommandBridge) ForwardCommand(sessionID, node string, cmd story.Command) {
	msg, err := b.encode(sessionID, node, cmd)
	if err != nil {
		b.report(outgoing{sessionID: sessionID, node: node, cmdType: cmd.Type}, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.report(msg, ErrBridgeClosed)
		return
	}
	b.pending.Add(1)
	select {
	case b.queue <- msg:
	default:
		b.pending.Done()
		b.report(msg, ErrQueueFull)
	}
}

// Flush blocks until every queued command has been handled.
func (b *CommandBridge) Flush() {
	b.pending.Wait()
}

// Close stops accepting commands and waits for the queue to drain.
func (b *CommandBridge) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *CommandBridge) run() {
	defer close(b.done)
	for msg := range b.queue {
		_, err := b.cb.Execute(func() (interface{}, error) {
			if !b.broker.IsConnected() {
				return nil, ErrNotConnected
			}
			return nil, b.broker.Publish(msg.topic, msg.payload)
		})
		b.report(msg, err)
		b.pending.Done()
	}
}

func (b *CommandBridge) report(msg outgoing, err error) {
	if b.metrics != nil {
		b.metrics.CommandForwarded(err == nil)
	}
	if err != nil {
		b.log.Warn("command not forwarded", zap.String("type", msg.cmdType), zap.Error(err))
		events.Emit("warn", "command.failed", err.Error(), map[string]interface{}{
			"session_id": msg.sessionID,
			"node":       msg.node,
			"type":       msg.cmdType,
		})
		return
	}
	events.Emit("info", "command.forwarded", "", map[string]interface{}{
		"session_id": msg.sessionID,
		"node":       msg.node,
		"type":       msg.cmdType,
		"topic":      msg.topic,
	})
}

func (b *CommandBridge) encode(sessionID, node string, cmd story.Command) (outgoing, error) {
	if cmd.Type == "" || strings.ContainsAny(cmd.Type, "/+#") {
		return outgoing{}, fmt.Errorf("%w: %q", errBadCommandType, cmd.Type)
	}
	params := cmd.Params
	if params == nil {
		params = []string{}
	}
	payload, err := json.Marshal(CommandMessage{
		SessionID: sessionID,
		Node:      node,
		Type:      cmd.Type,
		Params:    params,
	})
	if err != nil {
		return outgoing{}, err
	}
	return outgoing{
		sessionID: sessionID,
		node:      node,
		cmdType:   cmd.Type,
		topic:     b.Topic(cmd.Type),
		payload:   payload,
	}, nil
}

// BreakerState returns the circuit breaker state name.
func (b *CommandBridge) BreakerState() string {
	return b.cb.State().String()
}
