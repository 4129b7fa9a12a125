// Package api exposes the engine over HTTP: batch intake, signal intake,
// scoring triggers, and the read-only cluster and record query surfaces.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/adapters/repository"
	"github.com/newslens/hypetrack/internal/app"
	"github.com/newslens/hypetrack/internal/domain/lifecycle"
	"github.com/newslens/hypetrack/internal/domain/model"
)

// Dependencies bundles what the handlers need from the engine. The app
// Service satisfies it; tests may substitute a lighter fake.
type Dependencies interface {
	SubmitBatch(ctx context.Context, articles []*model.Article) (accepted, rejected int)
	SubmitSignal(ctx context.Context, sig *model.ImpactSignal) error
	RunLifecyclePass(ctx context.Context) (lifecycle.PassReport, error)
	ScoreWindow(ctx context.Context, w model.Window) ([]model.HIRRecord, error)
	WindowAt(t time.Time) model.Window
	Clusters(entity string) ([]repository.ClusterSummary, error)
	Cluster(id string) (repository.ClusterSummary, int, error)
	Records(ctx context.Context, q hirlog.Query) ([]model.HIRRecord, error)
	Stats(ctx context.Context) (app.Stats, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	deps Dependencies
}

// NewServer creates the API server.
func NewServer(deps Dependencies) *Server {
	return &Server{deps: deps}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /batch", MetricsMiddleware(s.handlePostBatch, "batch"))
	mux.HandleFunc("POST /signals", MetricsMiddleware(s.handlePostSignals, "signals"))
	mux.HandleFunc("POST /score", MetricsMiddleware(s.handlePostScore, "score"))
	mux.HandleFunc("POST /lifecycle/run", MetricsMiddleware(s.handleLifecycleRun, "lifecycle"))
	mux.HandleFunc("GET /clusters", MetricsMiddleware(s.handleGetClusters, "clusters"))
	mux.HandleFunc("GET /clusters/{id}", MetricsMiddleware(s.handleGetCluster, "cluster"))
	mux.HandleFunc("GET /hir", MetricsMiddleware(s.handleGetRecords, "hir"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleGetStats, "stats"))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
