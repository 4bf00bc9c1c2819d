package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/metrics"
	"github.com/AaronLay10/StoryLoom/internal/playback"
	"github.com/AaronLay10/StoryLoom/internal/storage"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

type fakeBroker struct{ connected bool }

func (b fakeBroker) IsConnected() bool { return b.connected }

func helloSource(t *testing.T) string {
	t.Helper()
	src, ok := fixture.Example("hello")
	if !ok {
		t.Fatal("hello example missing")
	}
	return src
}

// newTestServer returns a server over a ready session and a memory store
// seeded with the hello example.
func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Session == nil {
		sess := app.New(app.Options{Metrics: opts.Metrics})
		err := sess.Open(context.Background(), func(ctx context.Context) (story.Runtime, error) {
			return fixture.NewRuntime(), nil
		})
		if err != nil {
			t.Fatalf("open session: %v", err)
		}
		opts.Session = sess
	}
	if opts.Scripts == nil {
		opts.Scripts = storage.NewMemory(map[string]string{"hello": helloSource(t)})
	}
	return NewServer(opts)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) app.Outcome {
	t.Helper()
	var out app.Outcome
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	w := do(t, h, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Service != "storyloom" {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := newTestServer(t, Options{Broker: fakeBroker{connected: true}}).Handler()
	w := do(t, h, "GET", "/ready", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Engine != "ready" || resp.MQTT != "connected" {
		t.Errorf("unexpected ready response %+v", resp)
	}
}

func TestReadyEndpoint_Loading(t *testing.T) {
	h := newTestServer(t, Options{Session: app.New(app.Options{})}).Handler()
	w := do(t, h, "GET", "/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Engine != "loading" || resp.MQTT != "disabled" {
		t.Errorf("unexpected ready response %+v", resp)
	}
}

func TestReadyEndpoint_Failed(t *testing.T) {
	sess := app.New(app.Options{})
	_ = sess.Open(context.Background(), func(ctx context.Context) (story.Runtime, error) {
		return nil, errors.New("engine missing")
	})
	h := newTestServer(t, Options{Session: sess, Broker: fakeBroker{}}).Handler()

	w := do(t, h, "GET", "/ready", nil)
	var resp ReadyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusServiceUnavailable || resp.Engine != "failed" || resp.Error != "engine missing" {
		t.Errorf("unexpected ready response %d %+v", w.Code, resp)
	}
	if resp.MQTT != "disconnected" {
		t.Errorf("expected mqtt disconnected, got %s", resp.MQTT)
	}
}

func TestPlaybackNotReady(t *testing.T) {
	h := newTestServer(t, Options{Session: app.New(app.Options{})}).Handler()

	for _, path := range []string{"/api/step", "/api/restart"} {
		if w := do(t, h, "POST", path, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
	if w := do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("compile: expected 503, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/api/nodes/start", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("nodes: expected 503, got %d", w.Code)
	}

	w := do(t, h, "GET", "/api/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", w.Code)
	}
	var snap app.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Ready || snap.Controls.Compile {
		t.Errorf("expected disabled controls, got %+v", snap)
	}
}

func TestPlaybackFlow(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	w := do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)})
	if w.Code != http.StatusOK {
		t.Fatalf("compile: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decodeOutcome(t, w)
	if !out.Accepted || out.State.Phase != playback.PhasePlaying || out.State.ActiveNode != "start" {
		t.Fatalf("unexpected compile outcome %+v", out)
	}

	out = decodeOutcome(t, do(t, h, "POST", "/api/step", nil))
	if out.State.Phase != playback.PhaseAwaitingChoice || len(out.State.Choices) != 2 {
		t.Fatalf("expected two choices, got %+v", out.State)
	}
	second := out.State.Choices[1]

	out = decodeOutcome(t, do(t, h, "POST", "/api/choose", ChooseRequest{Index: &second.Index}))
	if !out.Accepted || out.State.ActiveNode != "decline" {
		t.Fatalf("unexpected choose outcome %+v", out)
	}

	// The menu is gone, so the same choice is rejected without an error.
	w = do(t, h, "POST", "/api/choose", ChooseRequest{Index: &second.Index})
	if w.Code != http.StatusOK {
		t.Fatalf("rejected choose: expected 200, got %d", w.Code)
	}
	if out = decodeOutcome(t, w); out.Accepted {
		t.Error("expected stale choice to be rejected")
	}

	out = decodeOutcome(t, do(t, h, "POST", "/api/resume", ResumeRequest{Node: "accept"}))
	if !out.Accepted || out.State.Session.Origin != playback.OriginResume {
		t.Fatalf("unexpected resume outcome %+v", out)
	}

	out = decodeOutcome(t, do(t, h, "POST", "/api/restart", nil))
	if !out.Accepted || out.State.ActiveNode != "start" {
		t.Fatalf("unexpected restart outcome %+v", out)
	}
}

func TestCompileSavedScript(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	out := decodeOutcome(t, do(t, h, "POST", "/api/compile", CompileRequest{Script: "hello"}))
	if !out.Accepted {
		t.Fatalf("expected saved script to compile, got %+v", out)
	}

	if w := do(t, h, "POST", "/api/compile", CompileRequest{Script: "missing"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCompileFailureReportsDiagnostics(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	out := decodeOutcome(t, do(t, h, "POST", "/api/compile", CompileRequest{Source: "not: [valid"}))
	if out.State.Phase != playback.PhaseCompileFailed || len(out.State.Diagnostics.Errors) == 0 {
		t.Errorf("expected compile errors, got %+v", out.State)
	}
}

func TestRequestValidation(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	neg := -1

	tests := []struct {
		name string
		path string
		body interface{}
		want string
	}{
		{"bad json", "/api/compile", "{", "invalid JSON"},
		{"no source", "/api/compile", CompileRequest{}, "source is required"},
		{"no index", "/api/choose", map[string]string{}, "index is required"},
		{"negative index", "/api/choose", ChooseRequest{Index: &neg}, "index must be at least 0"},
		{"no node", "/api/resume", ResumeRequest{}, "node is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.OK || resp.Error != tt.want {
				t.Errorf("expected error %q, got %+v", tt.want, resp)
			}
		})
	}
}

func TestGraphAndNodes(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)})

	var g GraphResponse
	if err := json.NewDecoder(do(t, h, "GET", "/api/graph", nil).Body).Decode(&g); err != nil {
		t.Fatal(err)
	}
	if len(g.Elements) != 5 {
		t.Errorf("expected 3 nodes and 2 edges, got %d elements", len(g.Elements))
	}
	if g.Layout == nil {
		t.Error("expected layout options")
	}

	w := do(t, h, "GET", "/api/nodes/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var n NodeResponse
	if err := json.NewDecoder(w.Body).Decode(&n); err != nil {
		t.Fatal(err)
	}
	if n.Title != "start" || !strings.Contains(n.HTML, "start") {
		t.Errorf("unexpected node response %+v", n)
	}

	if w := do(t, h, "GET", "/api/nodes/nowhere", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	events.Clear()
	h := newTestServer(t, Options{}).Handler()
	do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)})

	var list []events.Event
	if err := json.NewDecoder(do(t, h, "GET", "/api/events", nil).Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range list {
		if e.Name == "compile.succeeded" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected compile.succeeded in %d events", len(list))
	}
}

func TestEventsEndpointFiltersByCurrentSession(t *testing.T) {
	events.Clear()
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)})
	first := srv.session.Snapshot().Session.ID
	do(t, h, "POST", "/api/restart", nil)

	var list []events.Event
	if err := json.NewDecoder(do(t, h, "GET", "/api/events?session=current&topics=story", nil).Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Fatal("expected story events of the current session")
	}
	for _, e := range list {
		if !strings.HasPrefix(e.Name, "story.") {
			t.Errorf("unexpected topic %s", e.Name)
		}
		if e.Fields["session_id"] == first {
			t.Errorf("event %s from the replaced session", e.Name)
		}
	}
}

func TestScriptLibrary(t *testing.T) {
	events.Clear()
	h := newTestServer(t, Options{}).Handler()

	w := do(t, h, "PUT", "/api/scripts/intro", ScriptRequest{Source: "title: intro"})
	if w.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", w.Code)
	}
	var saved storage.Script
	if err := json.NewDecoder(w.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}
	if saved.Name != "intro" || saved.Source != "title: intro" {
		t.Errorf("unexpected saved script %+v", saved)
	}

	var list []storage.Script
	if err := json.NewDecoder(do(t, h, "GET", "/api/scripts", nil).Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "hello" || list[1].Name != "intro" {
		t.Errorf("unexpected script list %+v", list)
	}

	if w := do(t, h, "GET", "/api/scripts/intro", nil); w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}
	if w := do(t, h, "DELETE", "/api/scripts/intro", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if w := do(t, h, "DELETE", "/api/scripts/intro", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/api/scripts/intro", nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", w.Code)
	}
	if w := do(t, h, "PUT", "/api/scripts/.hidden", ScriptRequest{Source: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad name: expected 400, got %d", w.Code)
	}

	names := map[string]bool{}
	for _, e := range events.Snapshot() {
		names[e.Name] = true
	}
	if !names["script.saved"] || !names["script.deleted"] {
		t.Errorf("expected script events, got %v", names)
	}
}

func TestViewerCannotDrivePlayback(t *testing.T) {
	h := newTestServer(t, Options{Credentials: testCreds}).Handler()

	req := httptest.NewRequest("POST", "/api/step", nil)
	req.SetBasicAuth("viewer", "look")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/state", nil)
	req.SetBasicAuth("viewer", "look")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// Probes stay open.
	if w := do(t, h, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewCollector()
	h := newTestServer(t, Options{Metrics: m}).Handler()
	do(t, h, "POST", "/api/compile", CompileRequest{Source: helloSource(t)})

	w := do(t, h, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`storyloom_compiles_total{result="succeeded"} 1`,
		`storyloom_engine_ready 1`,
		`storyloom_http_request_duration_seconds_count{method="POST",route="/api/compile",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPlaygroundPage(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()
	w := do(t, h, "GET", "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "StoryLoom Playground") {
		t.Error("page title missing")
	}
}

func TestPlaygroundStylesEveryEdgeClass(t *testing.T) {
	page := do(t, newTestServer(t, Options{}).Handler(), "GET", "/", nil).Body.String()
	kinds := []story.EdgeKind{
		story.EdgeJump, story.EdgeCall, story.EdgeCallReturn, story.EdgeChoice,
		story.EdgeConditionTrue, story.EdgeConditionFalse, story.EdgeRandom,
	}
	classes := []string{graphmodel.ClassGenericEdge}
	for _, k := range kinds {
		classes = append(classes, string(k))
	}
	for _, c := range classes {
		if !strings.Contains(page, "selector: 'edge."+c+"'") {
			t.Errorf("no edge style for class %q", c)
		}
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, Options{CORSOrigins: []string{"http://localhost:5173"}}).Handler()

	req := httptest.NewRequest("OPTIONS", "/api/state", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected allowed origin, got %q", got)
	}
}
