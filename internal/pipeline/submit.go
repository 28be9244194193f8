package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mediagen/internal/domain"
)

// SubmitRequest is the validated input of the synchronous submission path.
type SubmitRequest struct {
	OwnerID         string
	Prompt          string
	Mode            domain.Mode
	AuxiliaryInputs []string
}

// Submit validates the request, debits the owner's credits, creates the
// pending job and hands it to the dispatcher asynchronously. It returns the
// job id immediately; nothing on this path waits for the compute backend.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := validateSubmit(req); err != nil {
		return "", err
	}

	cost := req.Mode.CreditCost()
	ok, err := p.ledger.Debit(ctx, req.OwnerID, cost, debitDescription(req.Mode, req.Prompt))
	if err != nil {
		return "", fmt.Errorf("debit credits: %w", err)
	}
	if !ok {
		return "", domain.ErrInsufficientCredits
	}

	job := &domain.GenerationJob{
		ID:              uuid.NewString(),
		OwnerID:         req.OwnerID,
		Prompt:          req.Prompt,
		Mode:            req.Mode,
		CreditCost:      cost,
		Status:          domain.JobStatusPending,
		AuxiliaryInputs: req.AuxiliaryInputs,
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		// Credits are already gone; the ledger has no refund operation, so
		// the insert error is surfaced as-is.
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := p.queue.Enqueue(ctx, TaskDispatch, dispatchPayload{JobID: job.ID}, 0); err != nil {
		// The caller already owns a valid job id; the dispatch hand-off error
		// stays on our side of the fence.
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: dispatch enqueue failed")
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", req.OwnerID).
		Str("mode", string(req.Mode)).
		Int("credit_cost", cost).
		Msg("pipeline: job submitted")
	return job.ID, nil
}

func validateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, req.Mode)
	}
	want := req.Mode.AuxiliaryInputCount()
	if len(req.AuxiliaryInputs) != want {
		return fmt.Errorf("%w: mode %s requires %d auxiliary inputs, got %d",
			domain.ErrValidation, req.Mode, want, len(req.AuxiliaryInputs))
	}
	for _, u := range req.AuxiliaryInputs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("%w: auxiliary input url must not be empty", domain.ErrValidation)
		}
	}
	return nil
}

func debitDescription(mode domain.Mode, prompt string) string {
	const max = 30
	if len(prompt) > max {
		prompt = prompt[:max] + "..."
	}
	return fmt.Sprintf("Generate %s: %q", mode, prompt)
}
