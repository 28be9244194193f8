package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/comfy"
	"mediagen/internal/domain"
	"mediagen/internal/scheduler"
)

// Task kinds handled by the pipeline. Each stage of a job's lifeline is one
// scheduled task; a stage terminates the lifeline or enqueues exactly one
// follow-up.
const (
	TaskDispatch    = "job.dispatch"
	TaskPoll        = "job.poll"
	TaskMaterialize = "job.materialize"
)

type dispatchPayload struct {
	JobID string `json:"job_id"`
}

type pollPayload struct {
	JobID             string `json:"job_id"`
	RunID             string `json:"run_id"`
	Attempt           int    `json:"attempt"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

type materializePayload struct {
	JobID     string `json:"job_id"`
	RunID     string `json:"run_id"`
	OutputURL string `json:"output_url"`
}

// TaskQueue is the fire-and-forget hand-off between stages.
type TaskQueue interface {
	Enqueue(ctx context.Context, kind string, payload any, delay time.Duration) error
}

// ComputeBackend is the external generation service, addressed only through
// start and poll calls.
type ComputeBackend interface {
	Start(ctx context.Context, deploymentID string, inputs map[string]any) (string, error)
	RunStatus(ctx context.Context, runID string) (*comfy.RunState, error)
}

// ObjectStore is the durable home for finished artifacts.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config carries the pipeline's tuning knobs and per-mode deployment targets.
type Config struct {
	Deployments              map[domain.Mode]string
	PollInterval             time.Duration
	PollErrorInterval        time.Duration
	PollMaxAttempts          int
	PollMaxConsecutiveErrors int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.PollErrorInterval <= 0 {
		c.PollErrorInterval = 15 * time.Second
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = 120
	}
	if c.PollMaxConsecutiveErrors <= 0 {
		c.PollMaxConsecutiveErrors = 10
	}
	return c
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Jobs    domain.JobRepository
	Ledger  domain.CreditLedger
	Queue   TaskQueue
	Backend ComputeBackend
	Store   ObjectStore
	// HTTPClient downloads finished artifacts. Defaults to a 60s-timeout
	// client.
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Config     Config
}

// Pipeline orchestrates a generation job's lifeline: submission, dispatch to
// the compute backend, self-rescheduling status polls, and materialization
// of the finished artifact.
type Pipeline struct {
	jobs       domain.JobRepository
	ledger     domain.CreditLedger
	queue      TaskQueue
	backend    ComputeBackend
	store      ObjectStore
	httpClient *http.Client
	logger     zerolog.Logger
	cfg        Config
}

// New constructs the pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Pipeline{
		jobs:       deps.Jobs,
		ledger:     deps.Ledger,
		queue:      deps.Queue,
		backend:    deps.Backend,
		store:      deps.Store,
		httpClient: httpClient,
		logger:     deps.Logger,
		cfg:        deps.Config.withDefaults(),
	}
}

// Register attaches the stage handlers to the scheduler.
func (p *Pipeline) Register(s *scheduler.Scheduler) {
	s.Handle(TaskDispatch, func(ctx context.Context, payload []byte) error {
		var pl dispatchPayload
		if err := json.Unmarshal(payload, &pl); err != nil {
			return err
		}
		return p.runDispatch(ctx, pl)
	})
	s.Handle(TaskPoll, func(ctx context.Context, payload []byte) error {
		var pl pollPayload
		if err := json.Unmarshal(payload, &pl); err != nil {
			return err
		}
		return p.runPoll(ctx, pl)
	})
	s.Handle(TaskMaterialize, func(ctx context.Context, payload []byte) error {
		var pl materializePayload
		if err := json.Unmarshal(payload, &pl); err != nil {
			return err
		}
		return p.runMaterialize(ctx, pl)
	})
}

// failJob moves a job to its failed terminal state. Safe against terminal
// jobs: the repository write is a no-op once a terminal state is reached.
func (p *Pipeline) failJob(ctx context.Context, jobID, runID, message, finalBackendStatus string) {
	info := domain.FailureInfo{
		Error:              message,
		FailedAt:           time.Now(),
		FinalBackendStatus: finalBackendStatus,
	}
	if err := p.jobs.MarkFailed(ctx, jobID, info); err != nil {
		p.logger.Error().Err(err).
			Str("job_id", jobID).
			Str("run_id", runID).
			Msg("pipeline: failed-state write failed")
		return
	}
	p.logger.Info().
		Str("job_id", jobID).
		Str("run_id", runID).
		Str("error", message).
		Msg("pipeline: job failed")
}
