package domain

import (
	"encoding/json"
	"time"
)

// Metadata is the open key/value bag carried on a job row. Writers never
// replace it wholesale: patches are merged key by key so state recorded by
// an earlier stage survives later ones.
type Metadata map[string]any

// Merge returns a copy of m with the patch's keys applied on top.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// MetadataPatch is a typed fragment that serializes to a flat metadata merge.
type MetadataPatch interface {
	Patch() Metadata
}

// DispatchInfo is merged by the dispatcher once the backend accepts a run.
type DispatchInfo struct {
	RunID string
	Mode  Mode
}

func (d DispatchInfo) Patch() Metadata {
	return Metadata{"run_id": d.RunID, "mode": string(d.Mode)}
}

// FailureInfo is merged by whichever stage moves the job to failed.
type FailureInfo struct {
	Error              string
	FailedAt           time.Time
	FinalBackendStatus string
}

func (f FailureInfo) Patch() Metadata {
	p := Metadata{
		"error":     f.Error,
		"failed_at": f.FailedAt.UTC().Format(time.RFC3339),
	}
	if f.FinalBackendStatus != "" {
		p["final_backend_status"] = f.FinalBackendStatus
	}
	return p
}

// CompletionInfo is merged by the materializer together with the terminal
// completed write.
type CompletionInfo struct {
	OriginalURL string
	FileSize    int64
	CompletedAt time.Time
}

func (c CompletionInfo) Patch() Metadata {
	return Metadata{
		"original_url": c.OriginalURL,
		"file_size":    c.FileSize,
		"completed_at": c.CompletedAt.UTC().Format(time.RFC3339),
	}
}

// MarshalPatch renders a patch as the JSONB fragment handed to the store's
// merge operator.
func MarshalPatch(p MetadataPatch) []byte {
	b, err := json.Marshal(p.Patch())
	if err != nil {
		return []byte("{}")
	}
	return b
}
