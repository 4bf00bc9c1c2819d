package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/StoryLoom/internal/events"
)

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []AlertPayload
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var p AlertPayload
	if err := json.NewDecoder(req.Body).Decode(&p); err == nil {
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *webhookRecorder) received() []AlertPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AlertPayload(nil), r.payloads...)
}

func TestAlerterDisconnectAndRecovery(t *testing.T) {
	rec := &webhookRecorder{}
	hook := httptest.NewServer(rec)
	defer hook.Close()

	a := NewAlerter(hook.URL, 0, nil)
	a.CheckBroker(false)
	a.CheckBroker(false)
	a.CheckBroker(true)
	a.Wait()

	got := rec.received()
	if len(got) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(got))
	}
	severities := map[string]bool{got[0].Severity: true, got[1].Severity: true}
	if !severities[SeverityWarning] || !severities[SeverityInfo] {
		t.Errorf("expected warning and info alerts, got %+v", got)
	}
	for _, p := range got {
		if p.Service != "storyloom" || p.Event != AlertBrokerDisconnected {
			t.Errorf("unexpected payload %+v", p)
		}
	}
}

func TestAlerterWaitsForDelay(t *testing.T) {
	rec := &webhookRecorder{}
	hook := httptest.NewServer(rec)
	defer hook.Close()

	a := NewAlerter(hook.URL, time.Hour, nil)
	a.CheckBroker(false)
	a.CheckBroker(true)
	a.Wait()

	if got := rec.received(); len(got) != 0 {
		t.Errorf("expected no alerts before the delay, got %d", len(got))
	}
}

func TestAlerterWithoutWebhookEmitsEvent(t *testing.T) {
	events.Clear()
	a := NewAlerter("", 0, nil)
	a.CheckBroker(false)
	a.Wait()

	var found bool
	for _, e := range events.Snapshot() {
		if e.Name == "alert.sent" {
			found = true
		}
	}
	if !found {
		t.Error("expected alert.sent event")
	}
}

func TestAlerterEngineFailed(t *testing.T) {
	rec := &webhookRecorder{}
	hook := httptest.NewServer(rec)
	defer hook.Close()

	a := NewAlerter(hook.URL, time.Hour, nil)
	a.EngineFailed(errors.New("engine missing"))
	a.Wait()

	got := rec.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(got))
	}
	if got[0].Event != AlertEngineFailed || got[0].Details["error"] != "engine missing" {
		t.Errorf("unexpected payload %+v", got[0])
	}
}
