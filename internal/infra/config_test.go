package infra

import (
	"testing"

	"mediagen/internal/domain"
)

func TestDeploymentFor(t *testing.T) {
	cfg := &Config{
		DeployImage: "deploy-image",
		DeployVideo: "deploy-video",
		DeployPair:  "deploy-pair",
	}

	tests := []struct {
		mode domain.Mode
		want string
	}{
		{domain.ModeImage, "deploy-image"},
		{domain.ModeVideo, "deploy-video"},
		{domain.ModeImagePairToVideo, "deploy-pair"},
		{domain.Mode("audio"), ""},
	}
	for _, tt := range tests {
		if got := cfg.DeploymentFor(tt.mode); got != tt.want {
			t.Errorf("DeploymentFor(%q) = %q, want %q", tt.mode, got, tt.want)
		}
	}

	deployments := cfg.Deployments()
	if len(deployments) != 3 {
		t.Fatalf("Deployments() has %d entries, want 3", len(deployments))
	}
	for mode, want := range map[domain.Mode]string{
		domain.ModeImage:            "deploy-image",
		domain.ModeVideo:            "deploy-video",
		domain.ModeImagePairToVideo: "deploy-pair",
	} {
		if deployments[mode] != want {
			t.Errorf("Deployments()[%q] = %q, want %q", mode, deployments[mode], want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" http://localhost:3000 ,, https://app.example.com")
	if len(got) != 2 || got[0] != "http://localhost:3000" || got[1] != "https://app.example.com" {
		t.Fatalf("splitCSV returned %v", got)
	}
}
