package domain

import "testing"

func TestModeCreditCost(t *testing.T) {
	if got := ModeImage.CreditCost(); got != 10 {
		t.Fatalf("image cost = %d, want 10", got)
	}
	if got := ModeVideo.CreditCost(); got != 100 {
		t.Fatalf("video cost = %d, want 100", got)
	}
	if got := ModeImagePairToVideo.CreditCost(); got != 100 {
		t.Fatalf("image-pair cost = %d, want 100", got)
	}
	if got := Mode("bogus").CreditCost(); got != 0 {
		t.Fatalf("unknown mode cost = %d, want 0", got)
	}
}

func TestModeMediaKind(t *testing.T) {
	if got := ModeImage.MediaKind(); got != "image" {
		t.Fatalf("image media kind = %q", got)
	}
	if got := ModeVideo.MediaKind(); got != "video" {
		t.Fatalf("video media kind = %q", got)
	}
	if got := ModeImagePairToVideo.MediaKind(); got != "video" {
		t.Fatalf("image-pair media kind = %q", got)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for _, st := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if st.Terminal() {
			t.Fatalf("%s should not be terminal", st)
		}
	}
	for _, st := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		if !st.Terminal() {
			t.Fatalf("%s should be terminal", st)
		}
	}
}
