package domain

import "time"

// Mode enumerates supported generation variants.
type Mode string

const (
	ModeImage            Mode = "image"
	ModeVideo            Mode = "video"
	ModeImagePairToVideo Mode = "image-pair-to-video"
)

// CreditCost returns the fixed credit price charged for the mode at
// submission time.
func (m Mode) CreditCost() int {
	switch m {
	case ModeImage:
		return 10
	case ModeVideo, ModeImagePairToVideo:
		return 100
	default:
		return 0
	}
}

// AuxiliaryInputCount reports how many externally hosted input URLs the mode
// requires. ModeImagePairToVideo takes the first and last frame.
func (m Mode) AuxiliaryInputCount() int {
	if m == ModeImagePairToVideo {
		return 2
	}
	return 0
}

// MediaKind returns the produced media category ("image" or "video").
func (m Mode) MediaKind() string {
	if m == ModeImage {
		return "image"
	}
	return "video"
}

// Valid reports whether m is one of the known variants.
func (m Mode) Valid() bool {
	switch m {
	case ModeImage, ModeVideo, ModeImagePairToVideo:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states. Transitions only move forward:
// pending -> processing -> completed|failed. Terminal states absorb all
// further writes.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GenerationJob is one user-submitted generation request and its tracked
// lifecycle. Identity, owner, prompt, mode, cost and auxiliary inputs are
// immutable after creation.
type GenerationJob struct {
	ID              string
	OwnerID         string
	Prompt          string
	Mode            Mode
	CreditCost      int
	Status          JobStatus
	ExternalRunID   string
	ResultURL       string
	StorageKey      string
	AuxiliaryInputs []string
	Metadata        Metadata
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
