package pipeline

import (
	"context"
	"errors"
	"testing"

	"mediagen/internal/domain"
)

func TestStatusReportsPendingBeforeDispatchRecorded(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-1", OwnerID: "user-1", Prompt: "p", Mode: domain.ModeImage})
	_ = env.jobs.MarkProcessing(context.Background(), "job-1")

	view, err := env.pl.Status(context.Background(), "job-1", "user-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending until a run id is recorded", view.Status)
	}

	_ = env.jobs.RecordDispatch(context.Background(), "job-1", domain.DispatchInfo{RunID: "run-1", Mode: domain.ModeImage})
	view, err = env.pl.Status(context.Background(), "job-1", "user-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %s, want processing", view.Status)
	}
}

func TestStatusSurfacesFailureError(t *testing.T) {
	env := newTestEnv(nil)
	seedProcessingJob(env)
	env.pl.failJob(context.Background(), "job-1", "run-1", "generation failed", "failed")

	view, err := env.pl.Status(context.Background(), "job-1", "user-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", view.Status)
	}
	if view.Error != "generation failed" {
		t.Fatalf("error = %q", view.Error)
	}
}

func TestStatusOwnership(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-1", OwnerID: "user-1", Prompt: "p", Mode: domain.ModeImage})

	if _, err := env.pl.Status(context.Background(), "job-1", "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := env.pl.Status(context.Background(), "missing", "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListFiltersByObservableStatus(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-a", OwnerID: "user-1", Prompt: "a", Mode: domain.ModeImage})
	env.seedJob(&domain.GenerationJob{ID: "job-b", OwnerID: "user-1", Prompt: "b", Mode: domain.ModeImage})
	env.seedJob(&domain.GenerationJob{ID: "job-c", OwnerID: "someone-else", Prompt: "c", Mode: domain.ModeImage})

	// job-b is processing but has no run id, so it is observably pending.
	_ = env.jobs.MarkProcessing(context.Background(), "job-b")

	pending := domain.JobStatusPending
	views, err := env.pl.List(context.Background(), "user-1", &pending, 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(views), views)
	}

	processing := domain.JobStatusProcessing
	views, err = env.pl.List(context.Background(), "user-1", &processing, 50)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("len = %d, want 0", len(views))
	}
}

func TestListFilteredPageIsFull(t *testing.T) {
	env := newTestEnv(nil)
	for _, id := range []string{"job-f1", "job-f2", "job-f3", "job-f4", "job-f5"} {
		env.seedJob(&domain.GenerationJob{ID: id, OwnerID: "user-1", Prompt: "p", Mode: domain.ModeImage})
		env.pl.failJob(context.Background(), id, "", "generation failed", "failed")
	}
	for _, id := range []string{"job-c1", "job-c2", "job-c3"} {
		env.seedJob(&domain.GenerationJob{ID: id, OwnerID: "user-1", Prompt: "p", Mode: domain.ModeImage})
		_ = env.jobs.MarkCompleted(context.Background(), id, "https://cdn.example.com/x", "k", domain.CompletionInfo{})
	}

	// The failed jobs must not eat into the page: the status filter applies
	// before the limit does.
	completed := domain.JobStatusCompleted
	views, err := env.pl.List(context.Background(), "user-1", &completed, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want a full page of 2", len(views))
	}
	for _, v := range views {
		if v.Status != domain.JobStatusCompleted {
			t.Fatalf("status = %s, want completed", v.Status)
		}
	}
}
