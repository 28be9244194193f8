package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/comfy"
	"mediagen/internal/domain"
)

// In-memory collaborators mirroring the persistence contracts: terminal
// states absorb writes, debits are subscription-first and all-or-nothing.

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.GenerationJob

	createErr error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.GenerationJob)}
}

func (m *memJobs) Create(ctx context.Context, job *domain.GenerationJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	if cp.Metadata == nil {
		cp.Metadata = domain.Metadata{}
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	cp.Metadata = job.Metadata.Merge(nil)
	return &cp, nil
}

func (m *memJobs) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.GenerationJob, error) {
	job, err := m.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

func (m *memJobs) ListByOwner(ctx context.Context, ownerID string, status *domain.JobStatus, limit int) ([]domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GenerationJob
	for _, job := range m.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		observable := job.Status
		if observable == domain.JobStatusProcessing && job.ExternalRunID == "" {
			observable = domain.JobStatusPending
		}
		if status != nil && observable != *status {
			continue
		}
		out = append(out, *job)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memJobs) MarkProcessing(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = domain.JobStatusProcessing
	return nil
}

func (m *memJobs) RecordDispatch(ctx context.Context, jobID string, info domain.DispatchInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	if job.ExternalRunID == "" {
		job.ExternalRunID = info.RunID
	}
	job.Metadata = job.Metadata.Merge(info.Patch())
	return nil
}

func (m *memJobs) MergeMetadata(ctx context.Context, jobID string, patch domain.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Metadata = job.Metadata.Merge(patch)
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, jobID string, info domain.FailureInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = domain.JobStatusFailed
	job.Metadata = job.Metadata.Merge(info.Patch())
	return nil
}

func (m *memJobs) MarkCompleted(ctx context.Context, jobID, resultURL, storageKey string, info domain.CompletionInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = domain.JobStatusCompleted
	job.ResultURL = resultURL
	job.StorageKey = storageKey
	job.Metadata = job.Metadata.Merge(info.Patch())
	return nil
}

func (m *memJobs) get(jobID string) *domain.GenerationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID]
}

type memLedger struct {
	mu       sync.Mutex
	accounts map[string]*domain.CreditAccount
	usage    []domain.CreditUsageRecord

	debitErr error
}

func newMemLedger() *memLedger {
	return &memLedger{accounts: make(map[string]*domain.CreditAccount)}
}

func (l *memLedger) grant(ownerID string, subscription, purchased int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[ownerID] = &domain.CreditAccount{
		OwnerID:             ownerID,
		SubscriptionCredits: subscription,
		PurchasedCredits:    purchased,
	}
}

func (l *memLedger) Debit(ctx context.Context, ownerID string, amount int, description string) (bool, error) {
	if l.debitErr != nil {
		return false, l.debitErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[ownerID]
	if !ok {
		return false, nil
	}
	fromSub, fromPurch, ok := domain.SplitDebit(account.SubscriptionCredits, account.PurchasedCredits, amount)
	if !ok {
		return false, nil
	}
	account.SubscriptionCredits -= fromSub
	account.PurchasedCredits -= fromPurch
	l.usage = append(l.usage, domain.CreditUsageRecord{OwnerID: ownerID, Amount: amount, Description: description})
	return true, nil
}

func (l *memLedger) Balance(ctx context.Context, ownerID string) (*domain.CreditAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if account, ok := l.accounts[ownerID]; ok {
		cp := *account
		return &cp, nil
	}
	return &domain.CreditAccount{OwnerID: ownerID}, nil
}

func (l *memLedger) ResetSubscription(ctx context.Context, ownerID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[ownerID]
	if !ok {
		account = &domain.CreditAccount{OwnerID: ownerID}
		l.accounts[ownerID] = account
	}
	account.SubscriptionCredits = amount
	return nil
}

func (l *memLedger) AddPurchased(ctx context.Context, ownerID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[ownerID]
	if !ok {
		account = &domain.CreditAccount{OwnerID: ownerID}
		l.accounts[ownerID] = account
	}
	account.PurchasedCredits += amount
	return nil
}

type queuedTask struct {
	kind    string
	payload any
	delay   time.Duration
}

type memQueue struct {
	mu    sync.Mutex
	tasks []queuedTask

	enqueueErr error
}

func (q *memQueue) Enqueue(ctx context.Context, kind string, payload any, delay time.Duration) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, queuedTask{kind: kind, payload: payload, delay: delay})
	return nil
}

func (q *memQueue) pop() (queuedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return queuedTask{}, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

type fakeBackend struct {
	startFn  func(ctx context.Context, deploymentID string, inputs map[string]any) (string, error)
	statusFn func(ctx context.Context, runID string) (*comfy.RunState, error)
}

func (b *fakeBackend) Start(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
	if b.startFn == nil {
		return "", fmt.Errorf("unexpected Start call")
	}
	return b.startFn(ctx, deploymentID, inputs)
}

func (b *fakeBackend) RunStatus(ctx context.Context, runID string) (*comfy.RunState, error) {
	if b.statusFn == nil {
		return nil, fmt.Errorf("unexpected RunStatus call")
	}
	return b.statusFn(ctx, runID)
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	uploadErr error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return "https://cdn.example.com/" + key, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type testEnv struct {
	jobs    *memJobs
	ledger  *memLedger
	queue   *memQueue
	backend *fakeBackend
	store   *memStore
	pl      *Pipeline
}

func newTestEnv(httpClient *http.Client) *testEnv {
	env := &testEnv{
		jobs:    newMemJobs(),
		ledger:  newMemLedger(),
		queue:   &memQueue{},
		backend: &fakeBackend{},
		store:   newMemStore(),
	}
	env.pl = New(Deps{
		Jobs:       env.jobs,
		Ledger:     env.ledger,
		Queue:      env.queue,
		Backend:    env.backend,
		Store:      env.store,
		HTTPClient: httpClient,
		Logger:     zerolog.Nop(),
		Config: Config{
			Deployments: map[domain.Mode]string{
				domain.ModeImage:            "deploy-image",
				domain.ModeVideo:            "deploy-video",
				domain.ModeImagePairToVideo: "deploy-pair",
			},
		},
	})
	return env
}

func (e *testEnv) seedJob(job *domain.GenerationJob) {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.OwnerID == "" {
		job.OwnerID = "user-1"
	}
	if job.Mode == "" {
		job.Mode = domain.ModeImage
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	_ = e.jobs.Create(context.Background(), job)
}
