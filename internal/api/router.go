// Package api wires the HTTP handlers of the analysis service.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dvloznov/trading-analyzer/internal/api/handlers"
	"github.com/dvloznov/trading-analyzer/internal/api/middleware"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/session"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Config    *config.Config
	Sessions  *session.Manager
	Analyzer  handlers.Analyzer
	JobStore  jobs.JobStore
	Publisher jobs.Publisher
	// Lister may be nil when no GCS storage is configured.
	Lister handlers.ExportLister
	Log    zerolog.Logger
}

// NewRouter builds the routes and wraps them in the middleware chain.
func NewRouter(d Deps) http.Handler {
	sessionsHandler := handlers.NewSessionsHandler(d.Sessions, d.Analyzer, d.Config, d.Log)
	jobsHandler := handlers.NewJobsHandler(d.JobStore, d.Publisher, d.Lister, d.Log)

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Session endpoints
	api.HandleFunc("/sessions", sessionsHandler.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/analyses", sessionsHandler.AnalyzeUpload).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/analyses/gcs", sessionsHandler.AnalyzeGCS).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/result", sessionsHandler.GetResult).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/report", sessionsHandler.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/charts/{kind:[a-z]+}.png", sessionsHandler.GetChart).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/transactions", sessionsHandler.ListTransactions).Methods(http.MethodGet)

	// Batch and job endpoints
	api.HandleFunc("/batches", jobsHandler.CreateBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches/{id}", jobsHandler.GetBatch).Methods(http.MethodGet)
	api.HandleFunc("/jobs", jobsHandler.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods(http.MethodGet)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	// Subrouters do not inherit these from r.
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = methodNotAllowed
	r.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed
	api.NotFoundHandler = notFound

	// Uploads and batches are rate limited; reads are not.
	srv := d.Config.Server
	limiter := rate.NewLimiter(rate.Limit(srv.RateLimit), srv.RateBurst)

	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Tracing(
				middleware.Logger(d.Log)(
					middleware.CORS(
						middleware.RateLimit(limiter, http.MethodPost)(r),
					),
				),
			),
		),
	)
}
