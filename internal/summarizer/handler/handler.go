package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/specificity"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/logger"
)

// maxBodyBytes bounds request bodies; it leaves room for JSON escaping of
// the largest accepted transcript.
const maxBodyBytes = 4 << 20

type Service interface {
	Summarize(ctx context.Context, req summarizer.Request) (*summarizer.Result, error)
	Commit(ctx context.Context, req summarizer.CommitRequest) (*summarizer.CommitResult, error)
}

type SpecificityStats interface {
	Stats(ctx context.Context) (specificity.Stats, error)
}

type Handler struct {
	service   Service
	stats     SpecificityStats
	maxTarget int
	logger    *slog.Logger
}

// New builds the HTTP handler. stats may be nil when the oracle is disabled.
func New(service Service, stats SpecificityStats, maxTarget int) *Handler {
	return &Handler{
		service:   service,
		stats:     stats,
		maxTarget: maxTarget,
		logger:    slog.Default().With("component", "summarizer-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/summaries", h.Summarize)
	mux.HandleFunc("POST /api/v1/corpora/{corpus}/documents", h.Commit)
	mux.HandleFunc("GET /api/v1/specificity/stats", h.SpecificityStats)
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req summarizer.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateSummaryRequest(&req, h.maxTarget); err != nil {
		h.writeValidationError(w, err)
		return
	}

	result, err := h.service.Summarize(ctx, req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("summarization failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, apperrors.ClientMessage(err, "summarization failed"))
		return
	}
	log.Info("summary served",
		"corpus", result.CorpusID,
		"summaries", len(result.Summaries),
		"latency_ms", result.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req summarizer.CommitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.CorpusID = r.PathValue("corpus")
	if err := validator.ValidateCommitRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	resp, err := h.service.Commit(ctx, req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("commit failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, apperrors.ClientMessage(err, "commit failed"))
		return
	}
	log.Info("document committed",
		"doc_id", resp.DocumentID,
		"corpus", resp.CorpusID,
		"status", resp.Status,
	)
	status := http.StatusCreated
	if resp.Status == "queued" {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) SpecificityStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, http.StatusNotFound, "specificity oracle is disabled")
		return
	}
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("specificity stats failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "specificity stats unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
