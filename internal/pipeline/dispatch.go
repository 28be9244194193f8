package pipeline

import (
	"context"
	"fmt"

	"mediagen/internal/domain"
)

// runDispatch marks the job processing and calls the compute backend's start
// endpoint. A rejected start is terminal: a malformed request will not
// self-correct, so there is no retry at this layer.
func (p *Pipeline) runDispatch(ctx context.Context, pl dispatchPayload) error {
	job, err := p.jobs.GetByID(ctx, pl.JobID)
	if err != nil {
		return fmt.Errorf("dispatch: load job %s: %w", pl.JobID, err)
	}
	if job.Status.Terminal() {
		p.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("pipeline: dispatch skipped, job terminal")
		return nil
	}

	if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("dispatch: mark processing %s: %w", job.ID, err)
	}

	deployment := p.cfg.Deployments[job.Mode]
	if deployment == "" {
		p.failJob(ctx, job.ID, "", fmt.Sprintf("dispatch failed: no deployment configured for mode %q", job.Mode), "")
		return nil
	}

	runID, err := p.backend.Start(ctx, deployment, buildInputs(job))
	if err != nil {
		p.failJob(ctx, job.ID, "", fmt.Sprintf("dispatch failed: %v", err), "")
		return nil
	}

	if err := p.jobs.RecordDispatch(ctx, job.ID, domain.DispatchInfo{RunID: runID, Mode: job.Mode}); err != nil {
		return fmt.Errorf("dispatch: record run id for %s: %w", job.ID, err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("run_id", runID).
		Str("mode", string(job.Mode)).
		Msg("pipeline: run started")

	if err := p.queue.Enqueue(ctx, TaskPoll, pollPayload{JobID: job.ID, RunID: runID, Attempt: 1}, 0); err != nil {
		return fmt.Errorf("dispatch: schedule first poll for %s: %w", job.ID, err)
	}
	return nil
}

// buildInputs assembles the mode-specific start payload. The paired-image
// mode carries its two reference frames; everything else is prompt-only.
func buildInputs(job *domain.GenerationJob) map[string]any {
	inputs := map[string]any{"prompt": job.Prompt}
	if job.Mode == domain.ModeImagePairToVideo && len(job.AuxiliaryInputs) >= 2 {
		inputs["start_image"] = job.AuxiliaryInputs[0]
		inputs["end_image"] = job.AuxiliaryInputs[1]
	}
	return inputs
}
