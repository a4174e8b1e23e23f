package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/trading-analyzer/internal/api/middleware"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/gcsuploader"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
	"github.com/dvloznov/trading-analyzer/internal/report"
	"github.com/dvloznov/trading-analyzer/internal/session"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, src pipeline.Source) (*domain.AnalysisResult, error)
}

// SessionsHandler handles session and analysis endpoints.
type SessionsHandler struct {
	sessions   *session.Manager
	analyzer   Analyzer
	thresholds config.ThresholdsConfig
	maxBytes   int64
	log        zerolog.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions *session.Manager, analyzer Analyzer, cfg *config.Config, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{
		sessions:   sessions,
		analyzer:   analyzer,
		thresholds: cfg.Thresholds,
		maxBytes:   cfg.Limits.MaxBytes(),
		log:        log,
	}
}

// CreateSession handles POST /api/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Create()
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// AnalyzeUpload handles POST /api/sessions/{id}/analyses. The export is
// either the multipart field "file" or the raw body with a filename query
// parameter.
func (h *SessionsHandler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	src, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.analyze(w, r, src)
}

func readUpload(r *http.Request) (pipeline.Source, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return pipeline.Source{}, errors.Join(errors.New("multipart field \"file\" is required"), err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return pipeline.Source{}, err
		}
		return pipeline.Source{Filename: header.Filename, Data: data}, nil
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		return pipeline.Source{}, errors.New("filename query parameter is required")
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return pipeline.Source{}, err
	}
	return pipeline.Source{Filename: filename, Data: data}, nil
}

// AnalyzeGCS handles POST /api/sessions/{id}/analyses/gcs
func (h *SessionsHandler) AnalyzeGCS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI string `json:"gcs_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, object, err := gcsuploader.ParseURI(req.GCSURI); err != nil || object == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must look like gs://bucket/path/export.xlsx")
		return
	}

	h.analyze(w, r, pipeline.Source{GCSURI: req.GCSURI})
}

// analyze runs src in the session named in the route. A newer upload in
// the same session cancels this one.
func (h *SessionsHandler) analyze(w http.ResponseWriter, r *http.Request, src pipeline.Source) {
	id := mux.Vars(r)["id"]
	log := logger.FromContext(r.Context()).With().Str("session_id", id).Logger()

	ctx, run, err := h.sessions.Begin(logger.WithContext(r.Context(), log), id)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	result, err := h.analyzer.Analyze(ctx, src)
	if err != nil {
		if abortErr := run.Abort(); abortErr != nil {
			err = errors.Join(abortErr, err)
		}
		h.writeError(w, log, err)
		return
	}

	if err := run.Complete(result); err != nil {
		h.writeError(w, log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *SessionsHandler) writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, hint := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Analysis request failed")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Analysis request rejected")
	}

	message := err.Error()
	var le *loader.LoadError
	switch {
	case errors.As(err, &le):
		message = le.Error()
	case status == http.StatusInternalServerError:
		message = "Analysis failed"
	}
	middleware.WriteErrorHint(w, status, message, hint)
}

// result loads the current result of the session in the route, writing an
// error response when there is none.
func (h *SessionsHandler) result(w http.ResponseWriter, r *http.Request) (*domain.AnalysisResult, bool) {
	id := mux.Vars(r)["id"]
	res, err := h.sessions.Result(id)
	if err != nil {
		status, _ := errorStatus(err)
		middleware.WriteError(w, status, err.Error())
		return nil, false
	}
	return res, true
}

// GetResult handles GET /api/sessions/{id}/result
func (h *SessionsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// GetReport handles GET /api/sessions/{id}/report?format=text|summary
func (h *SessionsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}

	var render func(io.Writer) error
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
		render = func(out io.Writer) error { return report.Full(out, res, time.Now()) }
	case "summary":
		render = func(out io.Writer) error { return report.Summary(out, res, h.thresholds, time.Now()) }
	default:
		middleware.WriteError(w, http.StatusBadRequest, "format must be text or summary")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := render(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to write report")
	}
}

// GetChart handles GET /api/sessions/{id}/charts/{kind}.png
func (h *SessionsHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}

	img, err := report.RenderChart(mux.Vars(r)["kind"], res)
	switch {
	case errors.Is(err, report.ErrUnknownChart):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, report.ErrNoChartData):
		middleware.WriteError(w, http.StatusNotFound, "No data to chart")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to render chart")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// ListTransactions handles GET /api/sessions/{id}/transactions with
// optional account and limit query parameters.
func (h *SessionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	account := query.Get("account")
	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	txs := []domain.Transaction{}
	for _, tx := range res.Transactions {
		if account != "" && tx.Account != account {
			continue
		}
		txs = append(txs, tx)
		if limit > 0 && len(txs) == limit {
			break
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}
