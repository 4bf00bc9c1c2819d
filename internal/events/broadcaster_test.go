package events

import (
	"testing"
)

func event(name string, fields map[string]interface{}) Event {
	return Event{Name: name, Fields: fields}
}

func TestFilterMatch(t *testing.T) {
	line := event("story.line", map[string]interface{}{"session_id": "s1"})
	other := event("story.line", map[string]interface{}{"session_id": "s2"})
	compiled := event("compile.succeeded", nil)
	entered := event("node.entered", map[string]interface{}{"session_id": "s1", "node": "start"})

	tests := []struct {
		name   string
		filter Filter
		e      Event
		want   bool
	}{
		{"zero filter passes all", Filter{}, other, true},
		{"same session", Filter{Session: "s1"}, line, true},
		{"other session", Filter{Session: "s1"}, other, false},
		{"sessionless event passes session filter", Filter{Session: "s1"}, compiled, true},
		{"topic prefix", Filter{Topics: []string{"story"}}, line, true},
		{"exact topic", Filter{Topics: []string{"node.entered"}}, entered, true},
		{"topic is not a substring match", Filter{Topics: []string{"stor"}}, line, false},
		{"topic miss", Filter{Topics: []string{"story"}}, compiled, false},
		{"session and topic", Filter{Session: "s1", Topics: []string{"node"}}, entered, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.e); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriptionReceivesOnlyMatchingEvents(t *testing.T) {
	sub := Subscribe(Filter{Session: "s1", Topics: []string{"story"}})
	defer Unsubscribe(sub)

	Emit("info", "story.line", "Hello.", map[string]interface{}{"session_id": "s2"})
	Emit("info", "compile.succeeded", "", nil)
	Emit("info", "story.line", "Hi.", map[string]interface{}{"session_id": "s1"})

	select {
	case e := <-sub.C:
		if e.Message != "Hi." {
			t.Errorf("expected the s1 line first, got %q", e.Message)
		}
	default:
		t.Fatal("expected a buffered event")
	}
	select {
	case e := <-sub.C:
		t.Errorf("unexpected extra event %s", e.Name)
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	sub := Subscribe(Filter{Topics: []string{"story.command"}})
	defer Unsubscribe(sub)

	for i := 0; i < subscriberBuffer+5; i++ {
		Emit("info", "story.command", "", map[string]interface{}{"type": "tick"})
	}
	if got := sub.Dropped(); got != 5 {
		t.Errorf("expected 5 dropped events, got %d", got)
	}
	if len(sub.C) != subscriberBuffer {
		t.Errorf("expected a full buffer, got %d", len(sub.C))
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	before := SubscriberCount()
	sub := Subscribe(Filter{})
	if SubscriberCount() != before+1 {
		t.Fatalf("expected %d subscribers, got %d", before+1, SubscriberCount())
	}

	Unsubscribe(sub)
	Unsubscribe(sub)
	if _, ok := <-sub.C; ok {
		t.Error("expected channel closed after unsubscribe")
	}
	if SubscriberCount() != before {
		t.Errorf("expected %d subscribers, got %d", before, SubscriberCount())
	}
}

func TestCloseAllSubscribers(t *testing.T) {
	CloseAllSubscribers()
	a := Subscribe(Filter{})
	b := Subscribe(Filter{Session: "s1"})

	CloseAllSubscribers()

	_, okA := <-a.C
	_, okB := <-b.C
	if okA || okB {
		t.Error("expected all channels closed")
	}
	if SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", SubscriberCount())
	}
	// Unsubscribing after the shutdown close must not close twice.
	Unsubscribe(a)
}

func TestRecentAppliesFilter(t *testing.T) {
	Clear()
	for _, id := range []string{"s1", "s2", "s1", "s2", "s1"} {
		Emit("info", "story.line", id, map[string]interface{}{"session_id": id})
	}
	Emit("info", "graph.rendered", "", map[string]interface{}{"nodes": 3})

	if got := Recent(Filter{}, 0); len(got) != 6 {
		t.Errorf("expected 6 events, got %d", len(got))
	}

	s1 := Recent(Filter{Session: "s1", Topics: []string{"story"}}, 0)
	if len(s1) != 3 {
		t.Fatalf("expected 3 s1 lines, got %d", len(s1))
	}

	last := Recent(Filter{Session: "s2"}, 2)
	if len(last) != 2 || last[0].Message != "s2" || last[1].Name != "graph.rendered" {
		t.Errorf("expected the last s2 line then graph.rendered, got %+v", last)
	}
}
