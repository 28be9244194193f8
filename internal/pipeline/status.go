package pipeline

import (
	"context"
	"time"

	"mediagen/internal/domain"
)

// StatusView is the caller-facing picture of a job. It reports the job's
// observable state, which can lag the internal one: a job that is marked
// processing but has no backend run recorded yet still looks pending from
// the outside.
type StatusView struct {
	JobID     string            `json:"job_id"`
	Status    domain.JobStatus  `json:"status"`
	Mode      domain.Mode       `json:"mode"`
	Prompt    string            `json:"prompt"`
	ResultURL string            `json:"result_url,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Status returns the state of a single job owned by ownerID.
func (p *Pipeline) Status(ctx context.Context, jobID, ownerID string) (*StatusView, error) {
	job, err := p.jobs.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	v := viewOf(job)
	return &v, nil
}

// List returns the owner's jobs, newest first, optionally filtered by
// status. The filter applies to the observable status, so pending includes
// processing jobs whose dispatch has not completed yet. The repository
// filters before applying the limit.
func (p *Pipeline) List(ctx context.Context, ownerID string, status *domain.JobStatus, limit int) ([]StatusView, error) {
	jobs, err := p.jobs.ListByOwner(ctx, ownerID, status, limit)
	if err != nil {
		return nil, err
	}
	views := make([]StatusView, 0, len(jobs))
	for i := range jobs {
		views = append(views, viewOf(&jobs[i]))
	}
	return views, nil
}

func viewOf(job *domain.GenerationJob) StatusView {
	v := StatusView{
		JobID:     job.ID,
		Status:    job.Status,
		Mode:      job.Mode,
		Prompt:    job.Prompt,
		ResultURL: job.ResultURL,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == domain.JobStatusProcessing && job.ExternalRunID == "" {
		v.Status = domain.JobStatusPending
	}
	if job.Status == domain.JobStatusFailed {
		if msg, ok := job.Metadata["error"].(string); ok {
			v.Error = msg
		}
	}
	return v
}
