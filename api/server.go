// Package api is the HTTP surface of FinSight: upload a CSV, ask
// questions against it, inspect the detected schema. It stays thin —
// all query semantics live in the internal packages.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/filestore"
	"github.com/finsight/finsight/internal/insight"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/session"
	"github.com/finsight/finsight/internal/source"
)

// Server holds the handlers' collaborators.
type Server struct {
	analyzer *analyzer.Analyzer
	sessions session.Store
	insights insight.Generator // nil when AI insights are disabled
	archive  filestore.Store   // nil when upload archiving is disabled
	source   source.Source     // nil when database ingestion is disabled
	log      *logger.Logger

	plannerCfg     planner.Config
	maxUploadBytes int64
	started        time.Time
}

// Options carries the optional collaborators and tuning knobs.
type Options struct {
	// Insights generates an AI commentary on successful answers. Leave
	// nil to serve rule-based narratives only.
	Insights insight.Generator

	// Archive stores a copy of each uploaded file. Leave nil to skip
	// archiving.
	Archive filestore.Store

	// Source ingests datasets from a relational database. Leave nil to
	// serve CSV uploads only.
	Source source.Source

	PlannerCfg     planner.Config
	MaxUploadBytes int64
}

// NewServer wires the handlers.
func NewServer(an *analyzer.Analyzer, sessions session.Store, opts Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.Default().Server.MaxUploadBytes
	}
	return &Server{
		analyzer:       an,
		sessions:       sessions,
		insights:       opts.Insights,
		archive:        opts.Archive,
		source:         opts.Source,
		log:            log,
		plannerCfg:     opts.PlannerCfg,
		maxUploadBytes: opts.MaxUploadBytes,
		started:        time.Now(),
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/ingest", s.handleIngest)
		r.Get("/tables", s.handleListTables)
		r.Post("/ask", s.handleAsk)
		r.Get("/schema/{sessionID}", s.handleSchema)
		r.Get("/history/{sessionID}", s.handleHistory)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)
		r.Get("/stats", s.handleStats)
	})

	return r
}
