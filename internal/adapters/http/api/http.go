// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/posture/internal/domain/types"
	"github.com/okian/posture/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TrackDependencies
	SummaryDependencies
	ConsentDependencies
}

// DefaultPrefix is where the API is mounted unless configured otherwise.
const DefaultPrefix = "/api"

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	trackHandler   *TrackHandler
	summaryHandler *SummaryHandler
	consentHandler *ConsentHandler
	prefix         string
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPrefix mounts the API under prefix.
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		trackHandler:   NewTrackHandler(deps),
		summaryHandler: NewSummaryHandler(deps),
		consentHandler: NewConsentHandler(deps),
		prefix:         DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Prefix returns the mount point of the JSON routes.
func (s *Server) Prefix() string { return s.prefix }

// Register attaches the metrics endpoint and the JSON routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Handle("/metrics", MetricsHandler())
	r.Route(s.prefix, func(r chi.Router) {
		r.Use(RequestLogger(s.logger))
		r.Get("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
		r.Post("/track", MetricsMiddleware(s.trackHandler.HandleTrack, "track"))
		r.Get("/summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
		r.Get("/consent", MetricsMiddleware(s.consentHandler.HandleGetConsent, "consent"))
		r.Post("/consent", MetricsMiddleware(s.consentHandler.HandleSetConsent, "consent"))
	})
}

// NewRouter builds a chi router with request IDs, panic recovery and CORS
// in front of every API route. Further routes may be added to the result.
func NewRouter(ctx context.Context, deps Dependencies, statsProvider StatsProvider, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	NewServer(deps, statsProvider, opts...).Register(ctx, r)
	return r
}

const maxBodyBytes = 1 << 16

// decodeJSON reads a single bounded JSON object. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = message(err)
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}
