package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/trading-analyzer/internal/api/middleware"
	"github.com/dvloznov/trading-analyzer/internal/gcsuploader"
	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
	"github.com/dvloznov/trading-analyzer/internal/session"
)

// errorStatus maps an analysis failure to an HTTP status and a hint.
func errorStatus(err error) (int, string) {
	var le *loader.LoadError
	hint := ""
	if errors.As(err, &le) {
		hint = le.Hint()
	}

	switch {
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, hint
	case errors.Is(err, loader.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, hint
	case errors.Is(err, loader.ErrEmptyFile),
		errors.Is(err, loader.ErrCorrupt),
		errors.Is(err, loader.ErrEncoding):
		return http.StatusUnprocessableEntity, hint
	case errors.Is(err, pipeline.ErrTimeout):
		return http.StatusGatewayTimeout, "Try a smaller export or fewer sheets."
	case errors.Is(err, session.ErrSuperseded), errors.Is(err, context.Canceled):
		return http.StatusConflict, "A newer upload replaced this analysis."
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNoResult):
		return http.StatusNotFound, ""
	}
	return http.StatusInternalServerError, ""
}

// ExportLister lists the exports stored under a GCS prefix.
type ExportLister interface {
	ListExports(ctx context.Context, prefixURI string) ([]string, error)
}

// JobsHandler handles batch and job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	lister    ExportLister
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. lister may be nil, in which
// case batches are unavailable.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, lister ExportLister, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		lister:    lister,
		log:       log,
	}
}

// CreateBatch handles POST /api/batches
func (h *JobsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSPrefix string `json:"gcs_prefix"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, _, err := gcsuploader.ParseURI(req.GCSPrefix); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_prefix must look like gs://bucket/prefix")
		return
	}

	if h.lister == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "GCS storage is not configured")
		return
	}

	ctx := r.Context()

	uris, err := h.lister.ListExports(ctx, req.GCSPrefix)
	if err != nil {
		h.log.Error().Err(err).Str("gcs_prefix", req.GCSPrefix).Msg("Failed to list exports")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to list exports")
		return
	}
	if len(uris) == 0 {
		middleware.WriteError(w, http.StatusNotFound, "No exports found under prefix")
		return
	}

	batchID := uuid.New().String()
	jobIDs := make([]string, 0, len(uris))
	for _, uri := range uris {
		job := &jobs.AnalyzeExportJob{
			BatchID: batchID,
			GCSURI:  uri,
		}
		if err := h.publisher.PublishAnalyzeExport(ctx, job); err != nil {
			h.log.Error().Err(err).Str("gcs_uri", uri).Msg("Failed to enqueue analysis job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis jobs")
			return
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	h.log.Info().Str("batch_id", batchID).Int("jobs", len(jobIDs)).Msg("Analysis batch enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": batchID,
		"job_ids":  jobIDs,
		"count":    len(jobIDs),
	})
}

// GetBatch handles GET /api/batches/{id}
func (h *JobsHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	sum, err := h.store.SummarizeBatch(r.Context(), batchID)
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("Failed to summarize batch")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize batch")
		return
	}
	if sum.Total == 0 {
		middleware.WriteError(w, http.StatusNotFound, "Batch not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sum)
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		BatchID: query.Get("batch_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.AnalyzeExportJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
