package events

import (
	"strings"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 64

// Filter selects the events a subscriber sees. The zero Filter passes
// everything.
type Filter struct {
	// Session keeps the events of one playback session. Events without a
	// session_id field (compile, engine, graph, broker) always pass.
	Session string
	// Topics keeps events whose name is, or is nested under, one of these
	// names: "story" matches story.line and story.choices.
	Topics []string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.Session != "" {
		if id, ok := e.Fields["session_id"].(string); ok && id != f.Session {
			return false
		}
	}
	if len(f.Topics) == 0 {
		return true
	}
	for _, t := range f.Topics {
		if e.Name == t || strings.HasPrefix(e.Name, t+".") {
			return true
		}
	}
	return false
}

// Subscription receives matching events on C in emit order. A subscriber
// that falls behind loses events instead of slowing down playback.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	filter  Filter
	dropped atomic.Uint64
}

// Filter returns the filter the subscription was created with.
func (s *Subscription) Filter() Filter { return s.filter }

// Dropped counts events lost because C was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

type hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

var subscribers = &hub{subs: make(map[*Subscription]struct{})}

// Subscribe registers a subscriber for events matching f.
func Subscribe(f Filter) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, filter: f}
	subscribers.mu.Lock()
	subscribers.subs[s] = struct{}{}
	subscribers.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Repeated calls are no-ops.
func Unsubscribe(s *Subscription) {
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	if _, ok := subscribers.subs[s]; !ok {
		return
	}
	delete(subscribers.subs, s)
	close(s.ch)
}

// CloseAllSubscribers closes every subscription so stream writers return
// on shutdown.
func CloseAllSubscribers() {
	subscribers.mu.Lock()
	defer subscribers.mu.Unlock()
	for s := range subscribers.subs {
		close(s.ch)
	}
	subscribers.subs = make(map[*Subscription]struct{})
}

func broadcast(e Event) {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()
	for s := range subscribers.subs {
		if !s.filter.Match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func SubscriberCount() int {
	subscribers.mu.RLock()
	defer subscribers.mu.RUnlock()
	return len(subscribers.subs)
}

// Recent returns up to the last n buffered events that match f, oldest
// first. n <= 0 returns every match.
func Recent(f Filter, n int) []Event {
	var out []Event
	for _, e := range buffer.Snapshot() {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
