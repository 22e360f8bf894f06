package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-ensemble-da/internal/ensemble"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StateDescriber exposes the layout of the loaded ensemble state.
// *ensemble.State implements it.
type StateDescriber interface {
	Dims() []ensemble.Dimension
	Shape() []int
	NumMems() int
	NumState() int
}

// Server exposes health, readiness, metrics, and state layout HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /state routes. The state layout is captured once; the state is not
// read again after startup.
func NewServer(addr string, ready sharedobs.ReadinessChecker, state StateDescriber, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /state", handleState(describe(state)))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type dimensionSummary struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type stateSummary struct {
	Dims     []dimensionSummary `json:"dims"`
	Shape    []int              `json:"shape"`
	NumMems  int                `json:"num_mems"`
	NumState int                `json:"num_state"`
}

func describe(state StateDescriber) stateSummary {
	dims := state.Dims()
	summary := stateSummary{
		Dims:     make([]dimensionSummary, len(dims)),
		Shape:    state.Shape(),
		NumMems:  state.NumMems(),
		NumState: state.NumState(),
	}
	for i, d := range dims {
		summary.Dims[i] = dimensionSummary{Name: d.Name, Size: d.Len()}
	}
	return summary
}

func handleState(summary stateSummary) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, summary)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
