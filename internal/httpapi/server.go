package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/processor"
	"meeting-insights-go/internal/registry"
)

const (
	serviceName = "Meeting Insights API"
	version     = "1.0.0"
)

type Server struct {
	store  *registry.Store
	intake *processor.Service
	log    *logger.Logger

	mux *http.ServeMux

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewServer(store *registry.Store, intake *processor.Service, log *logger.Logger) *Server {
	s := &Server{
		store:  store,
		intake: intake,
		log:    log.Component("httpapi"),
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = srv
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("listening")
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.closed = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /api", s.handleAPIRoot)
	s.mux.HandleFunc("GET /wake", s.handleWake)

	s.mux.HandleFunc("POST /api/meetings/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/meetings/{id}/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/meetings/{id}/results", s.handleResults)
	s.mux.HandleFunc("GET /api/meetings/{id}/download", s.handleDownload)
	s.mux.HandleFunc("DELETE /api/meetings/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/meetings/{id}/consent-check", s.handleConsent)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithRequest(r).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}
