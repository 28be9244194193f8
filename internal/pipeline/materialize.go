package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"mediagen/internal/domain"
)

var extPattern = regexp.MustCompile(`\.(png|jpg|jpeg|webp|gif|mp4)(\?|$)`)

// runMaterialize downloads the finished artifact from the backend's
// temporary URL and copies it into durable object storage. The job reaches
// completed only after the upload succeeds; any failure here is terminal
// because the temporary URL cannot be trusted to survive a later retry.
func (p *Pipeline) runMaterialize(ctx context.Context, pl materializePayload) error {
	job, err := p.jobs.GetByID(ctx, pl.JobID)
	if err != nil {
		return fmt.Errorf("materialize: load job %s: %w", pl.JobID, err)
	}
	if job.Status.Terminal() {
		p.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("pipeline: materialize skipped, job terminal")
		return nil
	}

	data, err := p.download(ctx, pl.OutputURL)
	if err != nil {
		p.failJob(ctx, job.ID, pl.RunID, fmt.Sprintf("download artifact: %v", err), "")
		return nil
	}
	if len(data) == 0 {
		p.failJob(ctx, job.ID, pl.RunID, "downloaded artifact is empty", "")
		return nil
	}

	ext, contentType := artifactType(job.Mode, pl.OutputURL)
	key := storageKey(job, ext)

	publicURL, err := p.store.Upload(ctx, key, data, contentType)
	if err != nil {
		p.failJob(ctx, job.ID, pl.RunID, fmt.Sprintf("store artifact: %v", err), "")
		return nil
	}

	info := domain.CompletionInfo{
		OriginalURL: pl.OutputURL,
		FileSize:    int64(len(data)),
		CompletedAt: time.Now(),
	}
	if err := p.jobs.MarkCompleted(ctx, job.ID, publicURL, key, info); err != nil {
		return fmt.Errorf("materialize: complete job %s: %w", job.ID, err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("storage_key", key).
		Int("file_size", len(data)).
		Msg("pipeline: job completed")
	return nil
}

func (p *Pipeline) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// artifactType picks the stored extension and content type from the job's
// media kind and the artifact URL.
func artifactType(mode domain.Mode, url string) (ext, contentType string) {
	urlExt := ""
	if m := extPattern.FindStringSubmatch(strings.ToLower(url)); m != nil {
		urlExt = "." + m[1]
	}
	if mode.MediaKind() == "video" {
		if urlExt == ".mp4" {
			return ".mp4", "video/mp4"
		}
		return ".webp", "video/webm"
	}
	switch urlExt {
	case ".jpg", ".jpeg":
		return urlExt, "image/jpeg"
	case ".webp":
		return ".webp", "image/webp"
	case ".gif":
		return ".gif", "image/gif"
	default:
		return ".png", "image/png"
	}
}

func storageKey(job *domain.GenerationJob, ext string) string {
	idFrag := job.ID
	if len(idFrag) > 8 {
		idFrag = idFrag[:8]
	}
	return fmt.Sprintf("%s/%ss/%d-%s%s",
		job.OwnerID, job.Mode.MediaKind(), time.Now().UnixMilli(), idFrag, ext)
}
