// Package engine invokes the external extraction engine (yt-dlp) as a
// subprocess. All invocations use discrete argument vectors; the user URL
// is never interpolated into a shell string.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/domain"
)

// Metadata is the engine's view of a media URL before normalization.
type Metadata struct {
	Title      string
	Thumbnail  string
	WebpageURL string
	Duration   float64
	Formats    []domain.RawFormat
}

// Selection describes which rendition to materialize.
type Selection struct {
	Kind   domain.RenditionKind
	Height int // video only; 0 means best available
}

// Client runs the extraction engine with bounded wall-clock timeouts.
type Client struct {
	path               string
	metadataTimeout    time.Duration
	materializeTimeout time.Duration
	logger             *slog.Logger
}

// NewClient creates an engine client from configuration.
func NewClient(cfg config.EngineConfig, logger *slog.Logger) *Client {
	return &Client{
		path:               cfg.Path,
		metadataTimeout:    cfg.MetadataTimeout,
		materializeTimeout: cfg.MaterializeTimeout,
		logger:             logger,
	}
}

// metadataJSON mirrors the engine's --dump-json output. Optional fields
// decode to pointers so absence is not conflated with zero.
type metadataJSON struct {
	Title      string       `json:"title"`
	Thumbnail  string       `json:"thumbnail"`
	Duration   float64      `json:"duration"`
	WebpageURL string       `json:"webpage_url"`
	Formats    []formatJSON `json:"formats"`
}

type formatJSON struct {
	VCodec   string   `json:"vcodec"`
	ACodec   string   `json:"acodec"`
	Height   *int     `json:"height"`
	ABR      *float64 `json:"abr"`
	Filesize *int64   `json:"filesize"`
	Ext      string   `json:"ext"`
	URL      string   `json:"url"`
}

// FetchMetadata queries the engine for raw format metadata.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	stdout, err := c.run(ctx, "--dump-json", "--no-warnings", url)
	if err != nil {
		return nil, err
	}

	var meta metadataJSON
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	out := &Metadata{
		Title:      meta.Title,
		Thumbnail:  meta.Thumbnail,
		WebpageURL: meta.WebpageURL,
		Duration:   meta.Duration,
		Formats:    make([]domain.RawFormat, 0, len(meta.Formats)),
	}
	for _, f := range meta.Formats {
		out.Formats = append(out.Formats, domain.RawFormat{
			HasVideo:  f.VCodec != "" && f.VCodec != "none",
			HasAudio:  f.ACodec != "" && f.ACodec != "none",
			Height:    f.Height,
			AvgABR:    f.ABR,
			FileSize:  f.Filesize,
			Container: f.Ext,
			URL:       f.URL,
		})
	}
	return out, nil
}

// Materialize produces the selected rendition at outputPath. The engine may
// adjust the final filename; callers locate the artifact by prefix.
func (c *Client) Materialize(ctx context.Context, url string, sel Selection, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.materializeTimeout)
	defer cancel()

	var args []string
	switch sel.Kind {
	case domain.KindAudio:
		args = []string{
			"-f", "bestaudio/best[ext=mp4]",
			"--extract-audio", "--audio-format", "mp3",
			"-o", outputPath,
			url,
		}
	default:
		args = []string{
			"-f", videoFormatSelector(sel.Height),
			"--merge-output-format", "mp4",
			"-o", outputPath,
			url,
		}
	}

	c.logger.Info("materializing rendition",
		"kind", string(sel.Kind),
		"height", sel.Height,
		"output", outputPath,
	)

	_, err := c.run(ctx, args...)
	return err
}

// videoFormatSelector builds the engine format-selection expression for a
// target height, falling back to best-available when height is unknown.
func videoFormatSelector(height int) string {
	if height <= 0 {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf(
		"bestvideo[height=%d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height=%d]/best[ext=mp4]",
		height, height,
	)
}

// run executes the engine binary and classifies failures into the domain
// error taxonomy. Parse failures are the caller's concern; run only reports
// invocation-level outcomes.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	// Timeout takes precedence: a killed process also reports an exit error.
	if ctx.Err() == context.DeadlineExceeded {
		return nil, domain.ErrEngineTimeout
	}
	if ctx.Err() == context.Canceled {
		return nil, ctx.Err()
	}

	// A bare name that fails PATH lookup yields *exec.Error; an explicit
	// path to a missing or non-executable binary yields *fs.PathError.
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return nil, fmt.Errorf("%w: %s", domain.ErrEngineUnavailable, c.path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%w: %s", domain.ErrEngineRejected, stderrTail(stderr.String()))
	}

	return nil, fmt.Errorf("run engine: %w", err)
}

// stderrTail returns the last non-empty stderr line for diagnostics. The
// full stream is noisy and is never surfaced to callers.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no error output"
}
