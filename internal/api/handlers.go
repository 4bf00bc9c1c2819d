package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/graphmodel"
	"github.com/AaronLay10/StoryLoom/internal/inspector"
	"github.com/AaronLay10/StoryLoom/internal/storage"
	"github.com/AaronLay10/StoryLoom/internal/story"
)

var validate = validator.New()

type CompileRequest struct {
	Source string `json:"source" validate:"required_without=Script"`
	// Script names a saved script to compile instead of Source.
	Script string `json:"script"`
}

type ChooseRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type ResumeRequest struct {
	Node string `json:"node" validate:"required"`
}

type ScriptRequest struct {
	Source string `json:"source" validate:"required"`
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, w http.ResponseWriter, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// writeOutcome maps a session result to a response. Rejected operations
// are not errors: they return 200 with accepted=false.
func writeOutcome(w http.ResponseWriter, out app.Outcome, err error) {
	if errors.Is(err, app.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source := req.Source
	if req.Script != "" {
		sc, err := s.scripts.Get(r.Context(), req.Script)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "script not found")
			return
		}
		if err != nil {
			s.log.Error("load script failed", zap.String("script", req.Script), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load script")
			return
		}
		source = sc.Source
	}

	out, err := s.session.Compile(source)
	writeOutcome(w, out, err)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	out, err := s.session.Step()
	writeOutcome(w, out, err)
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	var req ChooseRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.session.Choose(*req.Index)
	writeOutcome(w, out, err)
}

func (s *Server) resume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.session.Resume(req.Node)
	writeOutcome(w, out, err)
}

func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	out, err := s.session.Restart()
	writeOutcome(w, out, err)
}

// GraphResponse carries the render elements and the requested layout.
type GraphResponse struct {
	Elements []graphmodel.Element      `json:"elements"`
	Layout   *graphmodel.LayoutOptions `json:"layout,omitempty"`
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	resp := GraphResponse{Elements: s.session.Elements()}
	if l, ok := s.session.Layout(); ok {
		resp.Layout = &l
	}
	writeJSON(w, http.StatusOK, resp)
}

// NodeResponse is the inspector content of one node.
type NodeResponse struct {
	inspector.Content
	HTML string `json:"html"`
}

func (s *Server) node(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, err := s.session.Inspect(name)
	switch {
	case errors.Is(err, app.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, story.ErrUnknownNode):
		writeError(w, http.StatusNotFound, "node not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, NodeResponse{Content: c, HTML: c.HTML()})
	}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	list := events.Recent(s.eventFilter(r), 0)
	if list == nil {
		list = []events.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

// eventFilter reads ?session=<id|current>&topics=story,node from r.
// "current" resolves to the session playing right now.
func (s *Server) eventFilter(r *http.Request) events.Filter {
	q := r.URL.Query()
	f := events.Filter{Session: q.Get("session")}
	if f.Session == "current" {
		f.Session = ""
		if snap := s.session.Snapshot(); snap.Session != nil {
			f.Session = snap.Session.ID
		}
	}
	for _, t := range strings.Split(q.Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Topics = append(f.Topics, t)
		}
	}
	return f
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	list, err := s.scripts.List(r.Context())
	if err != nil {
		s.log.Error("list scripts failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list scripts")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	sc, err := s.scripts.Get(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "script not found")
		return
	}
	if err != nil {
		s.log.Error("get script failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load script")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) putScript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := storage.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ScriptRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc := storage.Script{Name: name, Source: req.Source}
	if err := s.scripts.Put(r.Context(), sc); err != nil {
		s.log.Error("save script failed", zap.String("script", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save script")
		return
	}
	events.Emit("info", "script.saved", "", map[string]interface{}{"name": name})

	saved, err := s.scripts.Get(r.Context(), name)
	if err != nil {
		saved = sc
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteScript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.scripts.Delete(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "script not found")
		return
	}
	if err != nil {
		s.log.Error("delete script failed", zap.String("script", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete script")
		return
	}
	events.Emit("info", "script.deleted", "", map[string]interface{}{"name": name})
	w.WriteHeader(http.StatusNoContent)
}
