package pipeline

import (
	"context"
	"fmt"

	"mediagen/internal/domain"
)

// runningStatuses are the backend states that mean "keep waiting".
var runningStatuses = map[string]bool{
	"queued":      true,
	"not-started": true,
	"running":     true,
	"uploading":   true,
	"processing":  true,
}

// runPoll performs one status check of the backend run and decides the job's
// next step: wait longer, retry after a transport error, hand off to the
// materializer, or fail terminally. The wait between checks is the gap
// between scheduled tasks, never a sleep inside the handler.
func (p *Pipeline) runPoll(ctx context.Context, pl pollPayload) error {
	job, err := p.jobs.GetByID(ctx, pl.JobID)
	if err != nil {
		return fmt.Errorf("poll: load job %s: %w", pl.JobID, err)
	}
	if job.Status.Terminal() {
		p.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("pipeline: poll skipped, job terminal")
		return nil
	}

	runID := pl.RunID
	if runID == "" {
		runID = job.ExternalRunID
	}
	if runID == "" {
		// Dispatch has not recorded a run id yet: not ready to poll. Check
		// again later without consuming an attempt.
		p.logger.Info().Str("job_id", job.ID).Msg("pipeline: no run id yet, poll deferred")
		return p.queue.Enqueue(ctx, TaskPoll, pl, p.cfg.PollInterval)
	}

	state, err := p.backend.RunStatus(ctx, runID)
	if err != nil {
		errCount := pl.ConsecutiveErrors + 1
		if errCount >= p.cfg.PollMaxConsecutiveErrors {
			p.failJob(ctx, job.ID, runID, fmt.Sprintf("polling backend unreachable after %d consecutive errors: %v", errCount, err), "")
			return nil
		}
		p.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("run_id", runID).
			Int("attempt", pl.Attempt).
			Int("consecutive_errors", errCount).
			Msg("pipeline: status check failed, retrying")
		next := pollPayload{JobID: job.ID, RunID: runID, Attempt: pl.Attempt, ConsecutiveErrors: errCount}
		return p.queue.Enqueue(ctx, TaskPoll, next, p.cfg.PollErrorInterval)
	}

	// A successful read resets the transport-error budget.
	if err := p.jobs.MergeMetadata(ctx, job.ID, domain.Metadata{"last_backend_status": state.Status}); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("pipeline: record backend status failed")
	}

	p.logger.Debug().
		Str("job_id", job.ID).
		Str("run_id", runID).
		Int("attempt", pl.Attempt).
		Str("backend_status", state.Status).
		Msg("pipeline: poll")

	switch {
	case state.Status == "success" || state.Status == "complete":
		if state.OutputURL == "" {
			p.failJob(ctx, job.ID, runID, "backend reported success but no output artifact was found", state.Status)
			return nil
		}
		next := materializePayload{JobID: job.ID, RunID: runID, OutputURL: state.OutputURL}
		return p.queue.Enqueue(ctx, TaskMaterialize, next, 0)

	case state.Status == "failed":
		msg := state.ErrorMessage
		if msg == "" {
			msg = "generation failed"
		}
		p.failJob(ctx, job.ID, runID, msg, state.Status)
		return nil

	case runningStatuses[state.Status]:
		if pl.Attempt >= p.cfg.PollMaxAttempts {
			p.failJob(ctx, job.ID, runID, fmt.Sprintf("polling timed out after %d attempts", pl.Attempt), state.Status)
			return nil
		}
		next := pollPayload{JobID: job.ID, RunID: runID, Attempt: pl.Attempt + 1}
		return p.queue.Enqueue(ctx, TaskPoll, next, p.cfg.PollInterval)

	default:
		p.failJob(ctx, job.ID, runID, fmt.Sprintf("unknown backend status %q", state.Status), state.Status)
		return nil
	}
}
