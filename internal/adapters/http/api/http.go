// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/types"
	"github.com/okian/gradebook/pkg/logger"
)

const (
	defaultMaxResults = 500
	requestTimeout    = 30 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SnapshotProvider
	LeaderboardDependencies
	RankDependencies
	ReportDependencies
	Reloader
	StatsProvider
}

// SnapshotProvider exposes the current immutable snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*query.Snapshot, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxResults caps list responses and leaderboard limits.
func WithMaxResults(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxResults  int
	corsOrigins []string
	logger      logger.Logger

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	studentsHandler    *StudentsHandler
	groupsHandler      *GroupsHandler
	summaryHandler     *SummaryHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	reloadHandler      *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxResults: defaultMaxResults, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.studentsHandler = NewStudentsHandler(deps, s.maxResults)
	s.groupsHandler = NewGroupsHandler(deps, deps)
	s.summaryHandler = NewSummaryHandler(deps, deps, s.maxResults)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxResults)
	s.rankHandler = NewRankHandler(deps)
	s.reloadHandler = NewReloadHandler(deps, s.logger)
	return s
}

// Routes builds the router. extra registers additional routes, such as the
// API docs, behind the same middleware.
func (s *Server) Routes(extra ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)

	r.Route("/students", func(r chi.Router) {
		r.Get("/", s.studentsHandler.HandleFind)
		r.Get("/{name}/chart", s.studentsHandler.HandleChart)
		r.Get("/{name}/rank", s.rankHandler.HandleGetRank)
	})
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", s.groupsHandler.HandleList)
		r.Get("/{group}", s.groupsHandler.HandleGet)
		r.Get("/{group}/distribution", s.groupsHandler.HandleDistribution)
		r.Get("/{group}/report.pdf", s.groupsHandler.HandleReport)
	})
	r.Get("/summary", s.summaryHandler.HandleSummary)
	r.Get("/distribution", s.summaryHandler.HandleDistribution)
	r.Get("/scholars", s.summaryHandler.HandleScholars)
	r.Get("/roster.pdf", s.summaryHandler.HandleRoster)
	r.Post("/reload", s.reloadHandler.HandleReload)
	for _, register := range extra {
		register(r)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Count     int  `json:"count"`
	Truncated bool `json:"truncated,omitempty"`
	Results   []T  `json:"results"`
}

func newList[T any](items []T, limit int) listResponse[T] {
	resp := listResponse[T]{Count: len(items), Results: items}
	if resp.Results == nil {
		resp.Results = []T{}
	}
	if limit > 0 && len(items) > limit {
		resp.Results = items[:limit]
		resp.Truncated = true
	}
	return resp
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

// writeFailure translates a domain error into its HTTP response.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
