package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/drops"
	"github.com/JakeFAU/dropscout/internal/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	requestTimeout   = 30 * time.Second
)

// Queue is the review queue surface the server drives.
type Queue interface {
	List(ctx context.Context, limit int) ([]drops.QueueEntry, error)
	Approve(ctx context.Context, id int64) (drops.QueueEntry, error)
	Dismiss(ctx context.Context, id int64) error
}

// PendingLister lists reserved records that were never stamped.
type PendingLister interface {
	Pending(ctx context.Context, limit int) ([]drops.PublishedRecord, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config controls server behavior.
type Config struct {
	// APIKey protects the /v1 routes when non-empty.
	APIKey string
}

// Server wires HTTP handlers to the review queue and the reconciler.
type Server struct {
	router  chi.Router
	queue   Queue
	pending PendingLister
	ready   Pinger
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. ready may be nil.
func NewServer(cfg Config, queue Queue, pending PendingLister, ready Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:   queue,
		pending: pending,
		ready:   ready,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.listQueue)
			r.Post("/{id}/approve", s.approve)
			r.Delete("/{id}", s.dismiss)
		})
		r.Get("/published/pending", s.listPending)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.queue.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list queue failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list queue")
		return
	}
	if entries == nil {
		entries = []drops.QueueEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	entry, err := s.queue.Approve(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "approve", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}
	if err := s.queue.Dismiss(r.Context(), id); err != nil {
		s.writeStoreError(w, "dismiss", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.pending.Pending(r.Context(), limit)
	if err != nil {
		s.logger.Error("list pending failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list pending records")
		return
	}
	if recs == nil {
		recs = []drops.PublishedRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid entry id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, drops.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.logger.Error(op+" failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, op+" failed")
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", reqID),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
