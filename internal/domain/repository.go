package domain

import "context"

// JobRepository defines persistence for generation jobs. Status writes are
// forward-only: implementations must treat any write against a terminal job
// as a no-op rather than an error, so stage handlers stay idempotent under
// at-least-once delivery.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	// GetForOwner returns ErrNotFound for unknown ids and ErrForbidden when
	// the job belongs to someone else.
	GetForOwner(ctx context.Context, jobID, ownerID string) (*GenerationJob, error)
	ListByOwner(ctx context.Context, ownerID string, status *JobStatus, limit int) ([]GenerationJob, error)
	MarkProcessing(ctx context.Context, jobID string) error
	// RecordDispatch stores the backend run id (at most once) and merges the
	// dispatch metadata.
	RecordDispatch(ctx context.Context, jobID string, info DispatchInfo) error
	// MergeMetadata applies an additive metadata patch without touching status.
	MergeMetadata(ctx context.Context, jobID string, patch Metadata) error
	MarkFailed(ctx context.Context, jobID string, info FailureInfo) error
	MarkCompleted(ctx context.Context, jobID, resultURL, storageKey string, info CompletionInfo) error
}

// CreditLedger defines the two-bucket prepaid balance operations. Debit is
// the only operation the pipeline calls; the credit side serves the billing
// cycle and operator tooling.
type CreditLedger interface {
	// Debit atomically deducts amount (subscription bucket first) and appends
	// a usage record. It returns false with no mutation when the combined
	// balance is insufficient.
	Debit(ctx context.Context, ownerID string, amount int, description string) (bool, error)
	Balance(ctx context.Context, ownerID string) (*CreditAccount, error)
	ResetSubscription(ctx context.Context, ownerID string, amount int) error
	AddPurchased(ctx context.Context, ownerID string, amount int) error
}
