package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var buffer = NewRingBuffer(256)

var (
	logMu  sync.RWMutex
	logger = zap.NewNop()
)

// SetLogger mirrors every emitted event to l. Passing nil disables mirroring.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)
	mirror(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

func mirror(e Event) {
	logMu.RLock()
	l := logger
	logMu.RUnlock()

	lvl, err := zapcore.ParseLevel(e.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	// Events never panic or exit the process.
	if lvl > zapcore.ErrorLevel {
		lvl = zapcore.ErrorLevel
	}
	if ce := l.Check(lvl, e.Message); ce != nil {
		ce.Write(zap.String("event", e.Name), zap.Any("fields", e.Fields))
	}
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since start (or the last Clear).
func TotalCount() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
