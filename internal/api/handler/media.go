package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vidgrab/vidgrab/internal/domain"
	"github.com/vidgrab/vidgrab/internal/platform"
	"github.com/vidgrab/vidgrab/internal/service"
)

// Resolver resolves a media URL into a rendition catalog.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*domain.Catalog, error)
}

// Deliverer materializes and streams a chosen rendition.
type Deliverer interface {
	Prepare(ctx context.Context, req service.DeliverRequest) (*service.Delivery, error)
	Transfer(ctx context.Context, d *service.Delivery, w io.Writer) error
}

// MediaHandler handles resolve and delivery HTTP requests.
type MediaHandler struct {
	resolver  Resolver
	deliverer Deliverer
	logger    *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(resolver Resolver, deliverer Deliverer, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		resolver:  resolver,
		deliverer: deliverer,
		logger:    logger,
	}
}

// ResolveRequest is the JSON request body for metadata resolution.
// Platform is an optional assertion; when set, the URL must belong to that
// platform or the request is rejected before the engine runs.
type ResolveRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"`
}

// FormatResponse is one rendition in the resolve response.
type FormatResponse struct {
	Quality string `json:"quality"`
	Format  string `json:"format"`
	Size    string `json:"size"`
	URL     string `json:"url"`
	Type    string `json:"type"`
}

// ResolveResponse is the catalog returned to the caller.
type ResolveResponse struct {
	Title      string           `json:"title"`
	Thumbnail  string           `json:"thumbnail"`
	Duration   string           `json:"duration"`
	Platform   string           `json:"platform,omitempty"`
	PreviewURL string           `json:"previewUrl,omitempty"`
	Formats    []FormatResponse `json:"formats"`
}

// DownloadRequest is the JSON request body for rendition delivery.
type DownloadRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Quality  string `json:"quality"`
}

// errorResponse carries a short category message plus optional details.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Resolve handles POST /api/video-info
func (h *MediaHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, "URL is required", "")
		return
	}
	if req.Platform != "" {
		p := domain.Platform(req.Platform)
		if !p.Known() || !platform.Validate(req.URL, p) {
			h.writeError(w, http.StatusBadRequest, "wrong platform for this link", domain.ErrWrongPlatform.Error())
			return
		}
	}

	cat, err := h.resolver.Resolve(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedURL) {
			h.writeError(w, http.StatusBadRequest, "unsupported URL", err.Error())
			return
		}
		h.logger.Error("resolve failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch video information.", err.Error())
		return
	}

	resp := ResolveResponse{
		Title:      cat.Title,
		Thumbnail:  cat.Thumbnail,
		Duration:   cat.Duration,
		Platform:   cat.Platform.String(),
		PreviewURL: cat.PreviewURL,
		Formats:    make([]FormatResponse, 0, len(cat.Renditions)),
	}
	for _, rd := range cat.Renditions {
		resp.Formats = append(resp.Formats, FormatResponse{
			Quality: rd.Quality,
			Format:  rd.Container,
			Size:    rd.Size,
			URL:     rd.SourceURL,
			Type:    string(rd.Kind),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Download handles POST /api/download
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.URL == "" || req.Filename == "" || req.Type == "" || req.Quality == "" {
		h.writeError(w, http.StatusBadRequest, "URL, filename, type, and quality are required.", "")
		return
	}

	var kind domain.RenditionKind
	switch req.Type {
	case "video":
		kind = domain.KindVideo
	case "audio":
		kind = domain.KindAudio
	default:
		h.writeError(w, http.StatusBadRequest, "Invalid download type.", "")
		return
	}

	delivery, err := h.deliverer.Prepare(r.Context(), service.DeliverRequest{
		URL:      req.URL,
		Filename: req.Filename,
		Kind:     kind,
		Quality:  req.Quality,
	})
	if err != nil {
		h.writePrepareError(w, err)
		return
	}

	w.Header().Set("Content-Type", delivery.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", delivery.Filename))
	if delivery.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(delivery.Size, 10))
	}

	if err := h.deliverer.Transfer(r.Context(), delivery, w); err != nil {
		// Headers are gone; nothing to send but a log line.
		if service.IsClientDisconnect(err) {
			h.logger.Info("client disconnected during transfer", "error", err)
		} else {
			h.logger.Error("transfer failed", "error", err)
		}
	}
}

func (h *MediaHandler) writePrepareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRendition):
		h.writeError(w, http.StatusBadRequest, "requested rendition is not available", err.Error())
	case errors.Is(err, domain.ErrUnsupportedURL), errors.Is(err, domain.ErrMissingURL):
		h.writeError(w, http.StatusBadRequest, "unsupported URL", err.Error())
	case errors.Is(err, domain.ErrArtifactMissing):
		h.logger.Error("artifact missing after materialize", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Downloaded file not found.", err.Error())
	default:
		h.logger.Error("delivery preparation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to download file.", err.Error())
	}
}

func (h *MediaHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Details: details})
}
