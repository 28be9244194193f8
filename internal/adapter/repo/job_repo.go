package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by the given executor.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new pending job row.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	aux, err := json.Marshal(job.AuxiliaryInputs)
	if err != nil {
		return fmt.Errorf("encode auxiliary inputs: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.OwnerID,
		job.Prompt,
		string(job.Mode),
		job.CreditCost,
		aux,
	)
	return err
}

// GetByID fetches a job without ownership filtering. Callers on the
// user-facing path must use GetForOwner instead.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	return scanJob(row)
}

// GetForOwner fetches a job and enforces ownership.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.GenerationJob, error) {
	job, err := r.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

// ListByOwner returns the owner's jobs, newest first, optionally filtered by
// observable status: a processing job with no backend run recorded yet
// matches the pending filter. Filtering happens before the limit so a
// filtered page is full whenever enough matches exist.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, ownerID string, status *domain.JobStatus, limit int) ([]domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByOwner, ownerID, statusArg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// MarkProcessing flips a pending job to processing. Terminal jobs are left
// untouched.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobProcessing, jobID)
	return err
}

// RecordDispatch stores the backend run id (first writer wins) and merges
// the dispatch metadata.
func (r *JobRepositoryPG) RecordDispatch(ctx context.Context, jobID string, info domain.DispatchInfo) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRecordJobDispatch, jobID, info.RunID, domain.MarshalPatch(info))
	return err
}

// MergeMetadata applies an additive metadata patch on a live job.
func (r *JobRepositoryPG) MergeMetadata(ctx context.Context, jobID string, patch domain.Metadata) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode metadata patch: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QMergeJobMetadata, jobID, b)
	return err
}

// MarkFailed moves a live job to its failed terminal state. A no-op when the
// job is already terminal.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, info domain.FailureInfo) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobFailed, jobID, domain.MarshalPatch(info))
	return err
}

// MarkCompleted moves a live job to completed, setting the durable result
// URL and storage key in the same statement.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID, resultURL, storageKey string, info domain.CompletionInfo) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobCompleted, jobID, resultURL, storageKey, domain.MarshalPatch(info))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var mode, status string
	var aux, meta []byte
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Prompt,
		&mode,
		&job.CreditCost,
		&status,
		&job.ExternalRunID,
		&job.ResultURL,
		&job.StorageKey,
		&aux,
		&meta,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Mode = domain.Mode(mode)
	job.Status = domain.JobStatus(status)
	if len(aux) > 0 {
		if err := json.Unmarshal(aux, &job.AuxiliaryInputs); err != nil {
			return nil, fmt.Errorf("decode auxiliary inputs: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
