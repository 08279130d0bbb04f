package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/vidgrab/vidgrab/internal/domain"
	"github.com/vidgrab/vidgrab/internal/preview"
	"github.com/vidgrab/vidgrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockResolver is a test implementation of Resolver.
type mockResolver struct {
	catalog    *domain.Catalog
	resolveErr error
	calls      int
}

func (m *mockResolver) Resolve(ctx context.Context, rawURL string) (*domain.Catalog, error) {
	m.calls++
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.catalog, nil
}

// mockDeliverer is a test implementation of Deliverer.
type mockDeliverer struct {
	delivery     *service.Delivery
	prepareErr   error
	transferErr  error
	payload      []byte
	prepareCalls int
}

func (m *mockDeliverer) Prepare(ctx context.Context, req service.DeliverRequest) (*service.Delivery, error) {
	m.prepareCalls++
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	return m.delivery, nil
}

func (m *mockDeliverer) Transfer(ctx context.Context, d *service.Delivery, w io.Writer) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	_, err := w.Write(m.payload)
	return err
}

// mockPreviewer is a test implementation of Previewer.
type mockPreviewer struct {
	result   *preview.Result
	fetchErr error
	lastSrc  string
}

func (m *mockPreviewer) Fetch(ctx context.Context, src, proxyPath string) (*preview.Result, error) {
	m.lastSrc = src
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.result, nil
}

func sampleCatalog() *domain.Catalog {
	return &domain.Catalog{
		Title:      "Test Clip",
		Thumbnail:  "https://img.example.com/t.jpg",
		Duration:   "00:02:00",
		Platform:   domain.PlatformYouTube,
		PreviewURL: "https://cdn.example.com/prog.mp4",
		Renditions: []domain.Rendition{
			{Kind: domain.KindVideo, Quality: "1080p", Container: "MP4", Size: "36.62MB", SourceURL: "https://www.youtube.com/watch?v=abc"},
			{Kind: domain.KindVideo, Quality: "720p", Container: "MP4", Size: "18.00MB", SourceURL: "https://www.youtube.com/watch?v=abc"},
			{Kind: domain.KindAudio, Quality: domain.BestAudioLabel, Container: "MP3", Size: "12.00MB", SourceURL: "https://www.youtube.com/watch?v=abc"},
		},
	}
}
