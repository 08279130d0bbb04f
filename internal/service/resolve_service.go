package service

import (
	"context"
	"log/slog"

	"github.com/vidgrab/vidgrab/internal/catalog"
	"github.com/vidgrab/vidgrab/internal/domain"
	"github.com/vidgrab/vidgrab/internal/engine"
	"github.com/vidgrab/vidgrab/internal/platform"
)

// Engine is the extraction-engine surface the services depend on.
// Implemented by engine.Client; tests substitute counting fakes.
type Engine interface {
	FetchMetadata(ctx context.Context, url string) (*engine.Metadata, error)
	Materialize(ctx context.Context, url string, sel engine.Selection, outputPath string) error
}

// ResolveService turns a raw media URL into a rendition catalog.
type ResolveService struct {
	engine Engine
	logger *slog.Logger
}

// NewResolveService creates a resolve service.
func NewResolveService(eng Engine, logger *slog.Logger) *ResolveService {
	return &ResolveService{
		engine: eng,
		logger: logger,
	}
}

// Resolve classifies the URL, queries the engine for raw formats and
// normalizes them into a catalog. The classifier runs before the engine so
// unrecognized URLs fail without spawning a subprocess.
func (s *ResolveService) Resolve(ctx context.Context, rawURL string) (*domain.Catalog, error) {
	if rawURL == "" {
		return nil, domain.ErrMissingURL
	}

	p := platform.Classify(rawURL)
	if !p.Known() {
		return nil, domain.ErrUnsupportedURL
	}

	meta, err := s.engine.FetchMetadata(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	sourceURL := meta.WebpageURL
	if sourceURL == "" {
		sourceURL = rawURL
	}

	cat := &domain.Catalog{
		Title:      meta.Title,
		Thumbnail:  meta.Thumbnail,
		Duration:   catalog.FormatDuration(meta.Duration),
		Platform:   p,
		PreviewURL: catalog.PickPreview(meta.Formats),
		Renditions: catalog.Normalize(meta.Formats, meta.Duration, sourceURL),
	}
	if cat.Title == "" {
		cat.Title = "Unknown Title"
	}

	s.logger.Info("resolved media catalog",
		"platform", p.String(),
		"title", cat.Title,
		"renditions", len(cat.Renditions),
	)
	return cat, nil
}
