package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/ayo6706/prepaid-recharge/internal/job"
	"github.com/ayo6706/prepaid-recharge/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobReader is the read side of the durable job store.
type JobReader interface {
	Get(ctx context.Context, id uuid.UUID) (job.Record, error)
	ListByStatus(ctx context.Context, status string, limit int32) ([]job.Record, error)
}

// JobsHandler exposes the durable job records to operators.
type JobsHandler struct {
	store JobReader
}

// NewJobsHandler creates a new JobsHandler instance.
func NewJobsHandler(store JobReader) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /v1/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "jobs/invalid-id", "Invalid job id")
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			RespondError(w, r, http.StatusNotFound, "jobs/not-found", "Job not found")
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "jobs/lookup-failed", "Failed to load job")
		return
	}
	RespondJSON(w, http.StatusOK, rec)
}

// ListJobs handles GET /v1/jobs?status=FAILED&limit=50.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case domain.JobStatusIdle, domain.JobStatusRunning, domain.JobStatusFinished, domain.JobStatusFailed:
	case "":
		status = domain.JobStatusFailed
	default:
		RespondError(w, r, http.StatusBadRequest, "jobs/invalid-status", "Unknown job status")
		return
	}

	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			RespondError(w, r, http.StatusBadRequest, "jobs/invalid-limit", "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.store.ListByStatus(r.Context(), status, int32(limit))
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "jobs/list-failed", "Failed to list jobs")
		return
	}
	if records == nil {
		records = []job.Record{}
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"jobs":   records,
	})
}
