// Package server exposes batch progress over HTTP and lets an operator start
// or cancel a run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/reconcile"
)

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	Season model.SeasonKey `json:"season"`
	Save   bool            `json:"save"`
}

// BatchFunc runs one batch to completion, reporting through obs. It must
// stop starting new items once ctx is cancelled.
type BatchFunc func(ctx context.Context, req BatchRequest, obs reconcile.Observer) (*reconcile.Result, error)

// BatchStatus is the body of GET /batch.
type BatchStatus struct {
	Active   bool                   `json:"active"`
	Season   model.SeasonKey        `json:"season,omitempty"`
	Progress *Progress              `json:"progress,omitempty"`
	Items    []model.BatchItemState `json:"items"`
	Error    string                 `json:"error,omitempty"`
}

// Progress is a snapshot with derived fields filled in.
type Progress struct {
	model.ProgressSnapshot
	Percent float64 `json:"percent"`
	ETA     string  `json:"eta"`
	Elapsed string  `json:"elapsed"`
}

// Server owns at most one active batch run.
type Server struct {
	run      BatchFunc
	verifier *Verifier
	now      func() time.Time

	mu      sync.Mutex
	view    *View
	season  model.SeasonKey
	active  bool
	cancel  context.CancelFunc
	lastErr string
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithJWTSecret requires an HS256 bearer token on control routes. An empty
// secret leaves them open.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.verifier = &Verifier{Secret: []byte(secret)}
		}
	}
}

// New creates a server that starts runs with run.
func New(run BatchFunc, opts ...Option) *Server {
	s := &Server{run: run, view: NewView(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/batch", s.handleStatus)

	r.Group(func(r chi.Router) {
		if s.verifier != nil {
			r.Use(RequireToken(*s.verifier))
		}
		r.Post("/batch", s.handleStart)
		r.Post("/batch/cancel", s.handleCancel)
	})
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	view, season, active, lastErr := s.view, s.season, s.active, s.lastErr
	s.mu.Unlock()

	snap, items := view.Snapshot()
	status := BatchStatus{Active: active, Season: season, Items: items, Error: lastErr}
	if status.Items == nil {
		status.Items = []model.BatchItemState{}
	}
	if !snap.StartedAt.IsZero() {
		status.Progress = &Progress{
			ProgressSnapshot: snap,
			Percent:          snap.Percent(),
			ETA:              snap.ETA().String(),
			Elapsed:          model.FormatClock(snap.Elapsed(s.now())),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
			return
		}
	}
	if strings.TrimSpace(string(req.Season)) == "" {
		req.Season = model.CurrentSeason(s.now())
	} else {
		season, err := model.ParseSeasonKey(string(req.Season))
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_SEASON", err.Error())
			return
		}
		req.Season = season
	}

	if err := s.Start(req); err != nil {
		writeError(w, http.StatusConflict, "RUN_ACTIVE", err.Error())
		return
	}

	by, _ := SubjectFromContext(r.Context())
	zap.L().Info("server: batch started",
		zap.String("season", string(req.Season)),
		zap.Bool("save", req.Save),
		zap.String("by", by),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{"season": req.Season, "save": req.Save})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.Cancel() {
		writeError(w, http.StatusConflict, "NO_ACTIVE_RUN", "no batch is running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"cancelled": true})
}

// ErrRunActive is returned by Start while another run is in progress.
var ErrRunActive = eris.New("a batch is already running")

// Start launches a run in the background with a fresh view.
func (s *Server) Start(req BatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrRunActive
	}

	ctx, cancel := context.WithCancel(context.Background())
	view := NewView()
	s.view, s.season, s.active, s.cancel, s.lastErr = view, req.Season, true, cancel, ""

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		_, err := s.run(ctx, req, view)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.active = false
		s.cancel = nil
		if err != nil {
			s.lastErr = err.Error()
			zap.L().Error("server: batch failed", zap.String("season", string(req.Season)), zap.Error(err))
		}
	}()
	return nil
}

// Cancel stops the active run after its in-flight item. It reports whether a
// run was active.
func (s *Server) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Wait blocks until the active run, if any, has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe serves on addr until ctx is done, then cancels any active
// run and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("server: listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Wait()
		return eris.Wrap(err, "server: shutdown")
	})
	return g.Wait()
}
