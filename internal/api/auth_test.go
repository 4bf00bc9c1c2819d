package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var testCreds = Credentials{
	EditorUser:     "editor",
	EditorPassword: "secret",
	ViewerUser:     "viewer",
	ViewerPassword: "look",
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledAllowsEverything(t *testing.T) {
	var c Credentials
	if c.Enabled() {
		t.Fatal("auth should be disabled without editor credentials")
	}

	for name, mw := range map[string]func(http.Handler) http.Handler{
		"any":    c.RequireAny(),
		"editor": c.RequireEditor(),
	} {
		w := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, w.Code)
		}
	}
}

func TestAuthNeedsBothEditorFields(t *testing.T) {
	c := Credentials{EditorUser: "editor"}
	if c.Enabled() {
		t.Error("auth should stay disabled with only a user")
	}
}

func TestAuthMissingCredentials(t *testing.T) {
	w := httptest.NewRecorder()
	testCreds.RequireAny()(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="StoryLoom"` {
		t.Errorf("unexpected challenge %q", got)
	}
}

func TestAuthRoles(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		editorOnly bool
		want       int
	}{
		{"editor reads", "editor", "secret", false, http.StatusOK},
		{"editor writes", "editor", "secret", true, http.StatusOK},
		{"viewer reads", "viewer", "look", false, http.StatusOK},
		{"viewer writes", "viewer", "look", true, http.StatusForbidden},
		{"wrong password", "editor", "nope", false, http.StatusUnauthorized},
		{"unknown user", "someone", "secret", true, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := testCreds.RequireAny()
			if tt.editorOnly {
				mw = testCreds.RequireEditor()
			}
			req := httptest.NewRequest("POST", "/", nil)
			req.SetBasicAuth(tt.user, tt.pass)
			w := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAuthViewerDisabledWithoutPassword(t *testing.T) {
	c := Credentials{EditorUser: "editor", EditorPassword: "secret", ViewerUser: "viewer"}
	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("viewer", "")
	w := httptest.NewRecorder()
	c.RequireAny()(okHandler()).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
