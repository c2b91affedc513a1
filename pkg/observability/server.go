package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Server exposes health, metrics and any routes mounted by the caller
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	port       int
}

// NewServer creates a server listening on port with the health and
// metrics endpoints already mounted
func NewServer(port int, health *HealthChecker) *Server {
	InitMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HealthHandler())
	mux.HandleFunc("GET /health/live", LivenessHandler())
	mux.Handle("GET /metrics", MetricsHandler())

	return &Server{mux: mux, port: port}
}

// Handle mounts h on pattern, recording request metrics under pattern
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, instrument(pattern, h))
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(path string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
	})
}
