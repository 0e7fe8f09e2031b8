// Package web serves timetables over HTTP.
package web

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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/jikanwari/internal/timetable"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Loader produces a fresh working set, typically by re-reading the dataset.
type Loader func() (timetable.State, error)

// Options configures a Server.
type Options struct {
	// Preferred is shown when no class is requested.
	Preferred string
	// Week labels the page, e.g. "2025-05-12_05-18".
	Week   string
	Logger *zap.Logger
}

// Server renders the working set for concurrent readers.
type Server struct {
	mu      sync.RWMutex
	state   timetable.State
	loadErr error

	preferred string
	week      string
	logger    *zap.Logger
	mux       *http.ServeMux
}

// New creates a server with an empty working set.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		preferred: opts.Preferred,
		week:      opts.Week,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handlePage)
	s.mux.HandleFunc("/api/classes", s.handleClasses)
	s.mux.HandleFunc("/api/timetable", s.handleTimetable)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// SetState replaces the working set. A non-nil err makes every page show
// the load error.
func (s *Server) SetState(state timetable.State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.loadErr = err
}

// Reload runs load and swaps in its result. A failed reload keeps the
// previous working set.
func (s *Server) Reload(load Loader) {
	state, err := load()
	if err != nil {
		s.logger.Error("reload failed, keeping previous timetable", zap.Error(err))
		return
	}
	s.SetState(state, nil)
	s.logger.Info("timetable reloaded",
		zap.Int("classes", len(state.Classes)),
		zap.Int("records", len(state.Records)))
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is done. When watchPath is set, changes to
// that file trigger Reload with load.
func (s *Server) Run(ctx context.Context, addr, watchPath string, load Loader) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})
	if watchPath != "" && load != nil {
		g.Go(func() error {
			return Watch(gctx, watchPath, func() { s.Reload(load) }, s.logger)
		})
	}
	return g.Wait()
}

type pageData struct {
	Week     string
	Classes  []string
	Selected string
	Grid     *timetable.Grid
	Info     string
	Error    string
	Detail   string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	class, view := s.resolve(strings.TrimSpace(r.URL.Query().Get("class")))

	s.mu.RLock()
	data := pageData{Week: s.week, Classes: s.state.Classes, Selected: class}
	s.mu.RUnlock()
	switch view.Kind {
	case timetable.ViewGrid:
		data.Grid = view.Grid
	case timetable.ViewError:
		data.Error = view.Message
		if view.Err != nil {
			data.Detail = view.Err.Error()
		}
	default:
		data.Info = view.Message
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.ExecuteTemplate(w, "page", data); err != nil {
		s.logger.Error("template error", zap.Error(err))
	}
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	classes := append([]string{}, s.state.Classes...)
	s.mu.RUnlock()
	writeJSON(w, classes)
}

type rowJSON struct {
	Period int      `json:"period"`
	Cells  []string `json:"cells"`
}

type viewJSON struct {
	Kind    string    `json:"kind"`
	Class   string    `json:"class,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
	Title   string    `json:"title,omitempty"`
	Header  []string  `json:"header,omitempty"`
	Rows    []rowJSON `json:"rows,omitempty"`
}

func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	class, view := s.resolve(strings.TrimSpace(r.URL.Query().Get("class")))
	out := viewJSON{Kind: view.Kind.String(), Class: class, Message: view.Message}
	if view.Err != nil {
		out.Error = view.Err.Error()
	}
	if g := view.Grid; g != nil {
		out.Title = g.Title
		out.Header = g.Header
		for _, row := range g.Rows {
			out.Rows = append(out.Rows, rowJSON{Period: row.Period, Cells: row.Cells[:]})
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loadErr := s.loadErr
	s.mu.RUnlock()
	if loadErr != nil {
		http.Error(w, "timetable unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// resolve picks the class and view for a request. A missing or unknown
// class falls back to the preferred class, then to the first one.
func (s *Server) resolve(requested string) (string, timetable.View) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return "", timetable.ErrorView(s.loadErr)
	}
	return timetable.InitialView(s.state, requested, s.preferred)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
