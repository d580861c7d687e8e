// Package inspect serves a small HTTP API over a running loader: health,
// registry snapshots, metrics, and on-demand loads.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kingrea/modload/internal/logging"
	"github.com/kingrea/modload/internal/module"
)

// ErrDisabled is returned by Start when the settings disable the server.
var ErrDisabled = errors.New("inspect: server disabled")

// Loader is the part of the loader the server needs.
type Loader interface {
	Require(ctx context.Context, id string) (any, error)
	Record(id string) (module.Snapshot, bool)
	Records() []module.Snapshot
}

// Server exposes a Loader over HTTP.
type Server struct {
	settings Settings
	loader   Loader
	metrics  http.Handler
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	started time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger for listener and load failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = logging.OrDiscard(l) }
}

// WithClock replaces time.Now for uptime reporting.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer prepares a server over l. Nothing listens until Start.
func NewServer(settings Settings, l Loader, opts ...Option) *Server {
	s := &Server{
		settings: settings.withDefaults(),
		loader:   l,
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /modules", s.modules)
	mux.HandleFunc("GET /modules/{id...}", s.moduleByID)
	mux.HandleFunc("POST /load", s.load)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start binds the listener and serves in the background. ctx becomes the
// base context of every request.
func (s *Server) Start(ctx context.Context) error {
	if !s.settings.Enabled {
		return ErrDisabled
	}
	if s.loader == nil {
		return errors.New("inspect: loader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("inspect: already started")
	}
	ln, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return fmt.Errorf("inspect: listen %s: %w", s.settings.Addr, err)
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.Timeouts.Read,
		WriteTimeout: s.settings.Timeouts.Write,
		IdleTimeout:  s.settings.Timeouts.Idle,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.srv, s.ln, s.started = srv, ln, s.now()
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("inspect server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()
	s.logger.Info("inspect server listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops the listener and waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	return srv.Shutdown(ctx)
}

// Addr is the bound address, or "" when not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// URL is the http base URL of the bound address, falling back to the
// configured one.
func (s *Server) URL() string {
	if addr := s.Addr(); addr != "" {
		return "http://" + addr
	}
	return "http://" + s.settings.Addr
}

type healthBody struct {
	Status  string               `json:"status"`
	Uptime  string               `json:"uptime"`
	Modules map[module.State]int `json:"modules"`
}

type loadBody struct {
	ID      string `json:"id"`
	Exports any    `json:"exports"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := healthBody{Status: "serving", Modules: map[module.State]int{}}
	s.mu.Lock()
	if s.srv == nil {
		body.Status = "stopped"
	} else {
		body.Uptime = s.now().Sub(s.started).Round(time.Second).String()
	}
	s.mu.Unlock()
	for _, snap := range s.loader.Records() {
		body.Modules[snap.State]++
	}
	reply(w, http.StatusOK, body)
}

func (s *Server) modules(w http.ResponseWriter, _ *http.Request) {
	snaps := s.loader.Records()
	if snaps == nil {
		snaps = []module.Snapshot{}
	}
	reply(w, http.StatusOK, snaps)
}

func (s *Server) moduleByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := s.loader.Record(id)
	if !ok {
		reply(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("no record for %q", id)})
		return
	}
	reply(w, http.StatusOK, snap)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.settings.MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reply(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		reply(w, http.StatusBadRequest, errorBody{Error: "decode request: " + err.Error()})
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		reply(w, http.StatusBadRequest, errorBody{Error: "id is required"})
		return
	}
	value, err := s.loader.Require(r.Context(), id)
	if err != nil {
		s.logger.Warn("inspect load failed", "id", id, "err", err)
		reply(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	if _, err := json.Marshal(value); err != nil {
		reply(w, http.StatusUnprocessableEntity, errorBody{Error: "exports are not JSON encodable: " + err.Error()})
		return
	}
	reply(w, http.StatusOK, loadBody{ID: id, Exports: value})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, module.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, module.ErrCycle):
		return http.StatusUnprocessableEntity
	case errors.Is(err, module.ErrResolutionExhausted):
		return http.StatusNotFound
	case errors.Is(err, module.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func reply(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
