package pipeline

import (
	"context"
	"errors"
	"testing"

	"mediagen/internal/domain"
)

func TestDispatchStartsRunAndSchedulesPoll(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-1", Prompt: "a fox", Mode: domain.ModeImage})

	var gotDeployment string
	var gotInputs map[string]any
	env.backend.startFn = func(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
		gotDeployment = deploymentID
		gotInputs = inputs
		return "run-42", nil
	}

	if err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "job-1"}); err != nil {
		t.Fatalf("runDispatch: %v", err)
	}
	if gotDeployment != "deploy-image" {
		t.Fatalf("deployment = %q, want deploy-image", gotDeployment)
	}
	if gotInputs["prompt"] != "a fox" {
		t.Fatalf("inputs = %v", gotInputs)
	}

	job := env.jobs.get("job-1")
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %s, want processing", job.Status)
	}
	if job.ExternalRunID != "run-42" {
		t.Fatalf("run id = %q, want run-42", job.ExternalRunID)
	}

	task, ok := env.queue.pop()
	if !ok || task.kind != TaskPoll {
		t.Fatalf("expected poll task, got %+v", task)
	}
	pl := task.payload.(pollPayload)
	if pl.JobID != "job-1" || pl.RunID != "run-42" || pl.Attempt != 1 {
		t.Fatalf("poll payload = %+v", pl)
	}
}

func TestDispatchPairModeCarriesFrames(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{
		ID:              "job-1",
		Prompt:          "morph",
		Mode:            domain.ModeImagePairToVideo,
		AuxiliaryInputs: []string{"https://a/start.png", "https://a/end.png"},
	})

	env.backend.startFn = func(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
		if inputs["start_image"] != "https://a/start.png" || inputs["end_image"] != "https://a/end.png" {
			t.Fatalf("inputs = %v", inputs)
		}
		return "run-1", nil
	}
	if err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "job-1"}); err != nil {
		t.Fatalf("runDispatch: %v", err)
	}
}

func TestDispatchBackendRejectionFailsJob(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-1", Prompt: "p", Mode: domain.ModeVideo})
	env.backend.startFn = func(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
		return "", errors.New("500 internal")
	}

	if err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "job-1"}); err != nil {
		t.Fatalf("runDispatch: %v", err)
	}

	job := env.jobs.get("job-1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if _, ok := job.Metadata["error"]; !ok {
		t.Fatalf("failure metadata missing: %v", job.Metadata)
	}
	if env.queue.len() != 0 {
		t.Fatal("no poll should be scheduled after a rejected start")
	}
}

func TestDispatchMissingDeploymentFailsJob(t *testing.T) {
	env := newTestEnv(nil)
	env.pl.cfg.Deployments = map[domain.Mode]string{}
	env.seedJob(&domain.GenerationJob{ID: "job-1", Prompt: "p", Mode: domain.ModeImage})

	if err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "job-1"}); err != nil {
		t.Fatalf("runDispatch: %v", err)
	}
	if job := env.jobs.get("job-1"); job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
}

func TestDispatchSkipsTerminalJob(t *testing.T) {
	env := newTestEnv(nil)
	env.seedJob(&domain.GenerationJob{ID: "job-1", Prompt: "p", Mode: domain.ModeImage, Status: domain.JobStatusFailed})
	env.backend.startFn = func(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
		t.Fatal("backend must not be called for a terminal job")
		return "", nil
	}

	if err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "job-1"}); err != nil {
		t.Fatalf("runDispatch: %v", err)
	}
	if env.queue.len() != 0 {
		t.Fatal("terminal job should schedule nothing")
	}
}

func TestDispatchUnknownJobReturnsError(t *testing.T) {
	env := newTestEnv(nil)
	err := env.pl.runDispatch(context.Background(), dispatchPayload{JobID: "nope"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
