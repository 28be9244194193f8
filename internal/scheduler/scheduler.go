package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// HandlerFunc executes one claimed task. A returned error is logged only:
// stage handlers record their own failure state on the job row, so the task
// is never redelivered on handler error.
type HandlerFunc func(ctx context.Context, payload []byte) error

const (
	staleClaimAfter    = 2 * time.Minute
	staleReleaseEvery  = 30 * time.Second
	defaultPollBackoff = time.Second
)

// Scheduler is a durable delayed task queue on PostgreSQL. Enqueue inserts a
// row that becomes due after its delay; workers claim due rows with
// SKIP LOCKED, run the handler registered for the task kind, and delete the
// row. Delivery is at-least-once: a worker that dies after claiming leaves a
// stale claim that is released back to the queue.
type Scheduler struct {
	sql          infra.SQLExecutor
	logger       zerolog.Logger
	pollInterval time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// New constructs a scheduler polling at the given interval.
func New(sql infra.SQLExecutor, logger zerolog.Logger, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollBackoff
	}
	return &Scheduler{
		sql:          sql,
		logger:       logger,
		pollInterval: pollInterval,
		handlers:     make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for a task kind. Registering twice replaces
// the previous handler.
func (s *Scheduler) Handle(kind string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = fn
}

// Enqueue schedules a task to become due after delay. Payloads are stored as
// JSON. Fire-and-forget from the caller's perspective: nothing is consumed
// from the task after this call.
func (s *Scheduler) Enqueue(ctx context.Context, kind string, payload any, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scheduler: encode payload: %w", err)
	}
	if delay < 0 {
		delay = 0
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QEnqueueTask, kind, body, delay.Milliseconds()); err != nil {
		return fmt.Errorf("scheduler: enqueue %s: %w", kind, err)
	}
	return nil
}

// Run starts count workers plus the stale-claim janitor and blocks until ctx
// is canceled.
func (s *Scheduler) Run(ctx context.Context, count int) error {
	if count <= 0 {
		count = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.workerLoop(ctx, id)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.janitorLoop(ctx)
	}()
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) workerLoop(ctx context.Context, id int) {
	s.logger.Info().Int("worker", id).Msg("scheduler: worker started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("worker", id).Msg("scheduler: worker stopped")
			return
		default:
		}

		claimed, err := s.runOne(ctx)
		if err != nil {
			s.logger.Error().Err(err).Int("worker", id).Msg("scheduler: claim failed")
		}
		if !claimed {
			select {
			case <-ctx.Done():
			case <-time.After(s.pollInterval):
			}
		}
	}
}

// runOne claims and executes at most one due task. It reports whether a task
// was claimed.
func (s *Scheduler) runOne(ctx context.Context) (bool, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QClaimTask)
	var id, kind string
	var payload []byte
	if err := row.Scan(&id, &kind, &payload); err != nil {
		if infra.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}

	s.dispatch(ctx, id, kind, payload)

	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteTask, id); err != nil {
		s.logger.Error().Err(err).Str("task_id", id).Msg("scheduler: delete task failed")
	}
	return true, nil
}

func (s *Scheduler) dispatch(ctx context.Context, id, kind string, payload []byte) {
	s.mu.RLock()
	fn, ok := s.handlers[kind]
	s.mu.RUnlock()
	if !ok {
		s.logger.Error().Str("task_id", id).Str("kind", kind).Msg("scheduler: no handler registered")
		return
	}

	start := time.Now()
	if err := fn(ctx, payload); err != nil {
		s.logger.Error().Err(err).
			Str("task_id", id).
			Str("kind", kind).
			Dur("elapsed", time.Since(start)).
			Msg("scheduler: task handler failed")
		return
	}
	s.logger.Debug().
		Str("task_id", id).
		Str("kind", kind).
		Dur("elapsed", time.Since(start)).
		Msg("scheduler: task done")
}

func (s *Scheduler) janitorLoop(ctx context.Context) {
	ticker := time.NewTicker(staleReleaseEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sql.Exec(ctx, sqlinline.QReleaseStaleTasks, int(staleClaimAfter.Seconds())); err != nil {
				s.logger.Error().Err(err).Msg("scheduler: release stale claims failed")
			}
		}
	}
}
