package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vidgrab/vidgrab/internal/domain"
	"github.com/vidgrab/vidgrab/internal/engine"
	"github.com/vidgrab/vidgrab/internal/store"
)

// DeliverRequest is a validated-enough delivery request; Prepare performs
// the real validation against a fresh catalog.
type DeliverRequest struct {
	URL      string
	Filename string
	Kind     domain.RenditionKind
	Quality  string
}

// Delivery is a materialized artifact ready for transfer to the caller.
type Delivery struct {
	Job          *domain.DownloadJob
	ArtifactPath string
	Filename     string // sanitized name with extension, for content-disposition
	ContentType  string
	Size         int64
}

// DeliveryService owns the download-job state machine: it validates the
// selection against a freshly fetched catalog, materializes the rendition
// through the engine, and streams the artifact to the caller exactly once.
type DeliveryService struct {
	resolver *ResolveService
	engine   Engine
	store    *store.Store
	logger   *slog.Logger
}

// NewDeliveryService creates a delivery service.
func NewDeliveryService(resolver *ResolveService, eng Engine, st *store.Store, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{
		resolver: resolver,
		engine:   eng,
		store:    st,
		logger:   logger,
	}
}

// Prepare runs the accepted -> materializing -> ready_for_transfer leg of
// the job state machine. Validation failures reject the request before any
// subprocess is spawned.
func (s *DeliveryService) Prepare(ctx context.Context, req DeliverRequest) (*Delivery, error) {
	job := domain.NewDownloadJob(
		domain.JobID(uuid.NewString()),
		req.URL,
		store.SanitizeName(req.Filename),
		req.Kind,
		req.Quality,
	)
	logger := s.logger.With("job_id", job.ID.String())

	// Cheap validation before expensive work: an audio request carries
	// exactly the best-audio label, and the quality must exist in the
	// current catalog.
	if req.Kind == domain.KindAudio && req.Quality != domain.BestAudioLabel {
		job.MarkFailed(domain.ErrInvalidRendition)
		return nil, domain.NewJobError(job.ID, "validate", domain.ErrInvalidRendition)
	}

	cat, err := s.resolver.Resolve(ctx, req.URL)
	if err != nil {
		job.MarkFailed(err)
		return nil, domain.NewJobError(job.ID, "resolve", err)
	}
	rendition := cat.FindRendition(req.Kind, req.Quality)
	if rendition == nil {
		job.MarkFailed(domain.ErrInvalidRendition)
		return nil, domain.NewJobError(job.ID, "validate", domain.ErrInvalidRendition)
	}

	ext := ".mp4"
	sel := engine.Selection{Kind: req.Kind}
	if req.Kind == domain.KindAudio {
		ext = ".mp3"
	} else {
		sel.Height = heightOf(req.Quality)
	}

	outputPath, err := s.store.Reserve(job.Filename, ext)
	if err != nil {
		job.MarkFailed(err)
		return nil, domain.NewJobError(job.ID, "reserve", err)
	}
	job.MarkMaterializing(outputPath)

	started := time.Now()
	if err := s.engine.Materialize(ctx, rendition.SourceURL, sel, outputPath); err != nil {
		s.store.Evict(outputPath)
		job.MarkFailed(err)
		return nil, domain.NewJobError(job.ID, "materialize", err)
	}

	// The engine may have appended its own suffix; match by prefix.
	artifactPath, err := s.store.Find(job.Filename, ext)
	if err != nil {
		job.MarkFailed(domain.ErrArtifactMissing)
		return nil, domain.NewJobError(job.ID, "locate artifact", domain.ErrArtifactMissing)
	}
	_, size, err := statArtifact(artifactPath)
	if err != nil {
		s.store.Evict(artifactPath)
		job.MarkFailed(domain.ErrArtifactMissing)
		return nil, domain.NewJobError(job.ID, "stat artifact", domain.ErrArtifactMissing)
	}
	job.MarkReady(artifactPath)

	logger.Info("rendition materialized",
		"quality", req.Quality,
		"kind", string(req.Kind),
		"size_bytes", size,
		"elapsed", time.Since(started),
	)

	contentType := "video/mp4"
	if req.Kind == domain.KindAudio {
		contentType = "audio/mpeg"
	}
	return &Delivery{
		Job:          job,
		ArtifactPath: artifactPath,
		Filename:     job.Filename + ext,
		ContentType:  contentType,
		Size:         size,
	}, nil
}

// Transfer streams the artifact to w, then evicts it. A mid-stream write
// error also evicts the partial artifact; the caller re-requests rather
// than resuming.
func (s *DeliveryService) Transfer(ctx context.Context, d *Delivery, w io.Writer) error {
	job := d.Job
	job.MarkTransferring()
	logger := s.logger.With("job_id", job.ID.String())

	f, size, err := s.store.Open(d.ArtifactPath)
	if err != nil {
		s.store.Evict(d.ArtifactPath)
		job.MarkFailed(domain.ErrArtifactMissing)
		return domain.NewJobError(job.ID, "open artifact", domain.ErrArtifactMissing)
	}
	defer f.Close()

	pw := newProgressWriter(w, size, job, logger)
	_, copyErr := io.Copy(pw, newContextReader(ctx, f))

	// The artifact is single-use either way.
	if evictErr := s.store.Evict(d.ArtifactPath); evictErr != nil {
		logger.Warn("failed to evict artifact after transfer", "error", evictErr)
	}

	if copyErr != nil {
		job.MarkFailed(domain.ErrTransferInterrupted)
		logger.Warn("transfer interrupted", "error", copyErr, "progress", job.Progress)
		// Keep the cause in the chain so callers can tell a client
		// disconnect from a server-side fault.
		return domain.NewJobError(job.ID, "transfer", fmt.Errorf("%w: %w", domain.ErrTransferInterrupted, copyErr))
	}

	job.MarkCompleted()
	logger.Info("transfer completed", "size_bytes", size)
	return nil
}

func heightOf(quality string) int {
	var h int
	for _, c := range quality {
		if c < '0' || c > '9' {
			break
		}
		h = h*10 + int(c-'0')
	}
	return h
}

func statArtifact(path string) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}

// contextReader aborts a copy promptly when the request context is
// canceled, so a disconnected caller does not hold the artifact open.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func newContextReader(ctx context.Context, r io.Reader) *contextReader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// progressWriter tracks transfer progress on the job and logs it at a
// coarse interval.
type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	job     *domain.DownloadJob
	logger  *slog.Logger
	lastLog time.Time
}

func newProgressWriter(w io.Writer, total int64, job *domain.DownloadJob, logger *slog.Logger) *progressWriter {
	return &progressWriter{
		w:       w,
		total:   total,
		job:     job,
		logger:  logger,
		lastLog: time.Now(),
	}
}

func (p *progressWriter) Write(buf []byte) (int, error) {
	n, err := p.w.Write(buf)
	if n > 0 {
		p.written += int64(n)
		if p.total > 0 {
			p.job.Progress = int(p.written * 100 / p.total)
		}
		if time.Since(p.lastLog) > 5*time.Second {
			p.logger.Info("transfer progress",
				"written_mb", p.written/(1024*1024),
				"total_mb", p.total/(1024*1024),
				"percent", p.job.Progress,
			)
			p.lastLog = time.Now()
		}
	}
	return n, err
}

// IsClientDisconnect reports whether a transfer failure was caused by the
// caller going away rather than by a server-side fault.
func IsClientDisconnect(err error) bool {
	return errors.Is(err, context.Canceled)
}
