package api

import (
	"crypto/subtle"
	"net/http"
)

// Role represents an authorization role.
type Role string

const (
	// RoleEditor may compile, drive playback and change the script library.
	RoleEditor Role = "editor"
	// RoleViewer may read state, the graph and the event stream.
	RoleViewer Role = "viewer"
)

// Credentials configures basic auth. Auth is enabled only when the editor
// user and password are both set; otherwise every request is an editor.
type Credentials struct {
	EditorUser     string
	EditorPassword string
	ViewerUser     string
	ViewerPassword string
}

// Enabled returns true if authentication is configured.
func (c Credentials) Enabled() bool {
	return c.EditorUser != "" && c.EditorPassword != ""
}

// authenticate checks basic auth credentials and returns the role if valid.
// Returns empty string if credentials are invalid.
func (c Credentials) authenticate(r *http.Request) Role {
	if !c.Enabled() {
		return RoleEditor
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}

	if secureCompare(user, c.EditorUser) && secureCompare(pass, c.EditorPassword) {
		return RoleEditor
	}
	if c.ViewerUser != "" && c.ViewerPassword != "" {
		if secureCompare(user, c.ViewerUser) && secureCompare(pass, c.ViewerPassword) {
			return RoleViewer
		}
	}
	return ""
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="StoryLoom"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// Require is middleware allowing only the given roles.
func (c Credentials) Require(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := c.authenticate(r)
			if role == "" {
				requireAuth(w)
				return
			}
			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// RequireAny allows editors and viewers.
func (c Credentials) RequireAny() func(http.Handler) http.Handler {
	return c.Require(RoleEditor, RoleViewer)
}

// RequireEditor allows editors only.
func (c Credentials) RequireEditor() func(http.Handler) http.Handler {
	return c.Require(RoleEditor)
}
