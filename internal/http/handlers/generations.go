package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mediagen/internal/domain"
	"mediagen/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

type generationCreateRequest struct {
	Prompt          string   `json:"prompt"`
	Mode            string   `json:"mode"`
	AuxiliaryInputs []string `json:"auxiliary_inputs"`
}

type generationCreateResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	jobID, err := a.Pipeline.Submit(r.Context(), pipeline.SubmitRequest{
		OwnerID:         userID,
		Prompt:          req.Prompt,
		Mode:            domain.Mode(req.Mode),
		AuxiliaryInputs: req.AuxiliaryInputs,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this generation")
		default:
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("submit failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to accept generation")
		}
		return
	}
	a.json(w, http.StatusAccepted, generationCreateResponse{JobID: jobID, Status: string(domain.JobStatusPending)})
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	view, err := a.Pipeline.Status(r.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
			// Foreign jobs are reported as absent, not as forbidden.
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		}
		return
	}
	a.json(w, http.StatusOK, view)
}

func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var statusFilter *domain.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := domain.JobStatus(raw)
		switch st {
		case domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
			statusFilter = &st
		default:
			a.error(w, http.StatusBadRequest, "bad_request", "unknown status filter")
			return
		}
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	views, err := a.Pipeline.List(r.Context(), userID, statusFilter, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": views})
}
