// Package api serves the browser playground: playback controls, the live
// story graph, node details, the script library and the event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/metrics"
	"github.com/AaronLay10/StoryLoom/internal/storage"
	"github.com/AaronLay10/StoryLoom/internal/version"
)

const maxBodyBytes = 1 << 20

// Connectivity reports whether an optional dependency is reachable.
type Connectivity interface {
	IsConnected() bool
}

// Options configures a Server.
type Options struct {
	Addr        string
	TLS         TLSFiles
	CORSOrigins []string
	Credentials Credentials

	Session *app.Session
	Scripts storage.ScriptStore
	Metrics *metrics.Collector
	// Broker is nil when MQTT is disabled.
	Broker Connectivity
	Logger *zap.Logger
}

// Server is the HTTP front end of an application session.
type Server struct {
	opts    Options
	session *app.Session
	scripts storage.ScriptStore
	metrics *metrics.Collector
	auth    Credentials
	log     *zap.Logger
}

func NewServer(o Options) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		opts:    o,
		session: o.Session,
		scripts: o.Scripts,
		metrics: o.Metrics,
		auth:    o.Credentials,
		log:     log,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.observe)

	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAny())
		r.Get("/", uiHandler)
		r.Get("/ws/events", s.wsEvents)
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAny())
			r.Get("/state", s.state)
			r.Get("/graph", s.graph)
			r.Get("/nodes/{name}", s.node)
			r.Get("/events", s.events)
			r.Get("/scripts", s.listScripts)
			r.Get("/scripts/{name}", s.getScript)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireEditor())
			r.Post("/compile", s.compile)
			r.Post("/step", s.step)
			r.Post("/choose", s.choose)
			r.Post("/resume", s.resume)
			r.Post("/restart", s.restart)
			r.Put("/scripts/{name}", s.putScript)
			r.Delete("/scripts/{name}", s.deleteScript)
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	tlsCfg, err := s.opts.TLS.Load()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", s.opts.Addr), zap.Bool("tls", tlsCfg != nil))
		if tlsCfg != nil {
			errCh <- srv.ListenAndServeTLS("", "")
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "storyloom",
		Version:   version.String(),
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type ReadyResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	MQTT   string `json:"mqtt"`
	Error  string `json:"error,omitempty"`
}

// ready reports 200 once the engine has loaded. The broker is informational.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Engine: "ready", MQTT: "disabled"}
	if s.opts.Broker != nil {
		resp.MQTT = "disconnected"
		if s.opts.Broker.IsConnected() {
			resp.MQTT = "connected"
		}
	}

	status := http.StatusOK
	if !s.session.Ready() {
		status = http.StatusServiceUnavailable
		resp.Status = "not_ready"
		resp.Engine = "loading"
		if err := s.session.EngineError(); err != nil {
			resp.Engine = "failed"
			resp.Error = err.Error()
		}
	}
	writeJSON(w, status, resp)
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{OK: false, Error: msg})
}
