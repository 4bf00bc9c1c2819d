package events

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmitRejectsUnknownEvent(t *testing.T) {
	Clear()

	if _, err := Emit("info", "scene.started", "", nil); err == nil {
		t.Fatal("expected error for unregistered event name")
	}
	if TotalCount() != 0 {
		t.Errorf("rejected event must not be buffered, total=%d", TotalCount())
	}
}

func TestEmitReturnsJSON(t *testing.T) {
	Clear()

	b, err := Emit("info", "node.entered", "entered", map[string]interface{}{"node": "start"})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if e.Name != "node.entered" || e.Fields["node"] != "start" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Timestamp == "" {
		t.Error("expected timestamp")
	}
}

func TestTotalCountSurvivesWrap(t *testing.T) {
	Clear()

	for i := 0; i < 300; i++ {
		Emit("info", "story.line", "", nil)
	}

	if got := len(Snapshot()); got != 256 {
		t.Errorf("expected ring buffer to hold 256 events, got %d", got)
	}
	if TotalCount() != 300 {
		t.Errorf("expected total 300, got %d", TotalCount())
	}

	Clear()
	if TotalCount() != 0 || len(Snapshot()) != 0 {
		t.Error("expected Clear to reset buffer and total")
	}
}

func TestSetLoggerMirrorsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Emit("warn", "playback.notice", "Failed to start from node: ghost", map[string]interface{}{"node": "ghost"})
	Emit("fatal", "system.error", "boom", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 mirrored entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected warn level, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["event"] != "playback.notice" {
		t.Errorf("expected event field, got %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("expected fatal to be capped at error, got %s", entries[1].Level)
	}
}
