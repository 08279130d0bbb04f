package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vidgrab/vidgrab/internal/preview"
)

// PreviewPath is the route the preview proxy is mounted at; rewritten
// manifest URIs point back to it.
const PreviewPath = "/api/preview"

// Previewer fetches upstream preview media.
type Previewer interface {
	Fetch(ctx context.Context, src, proxyPath string) (*preview.Result, error)
}

// PreviewHandler relays inline-preview media through the server.
type PreviewHandler struct {
	proxy  Previewer
	logger *slog.Logger
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(proxy Previewer, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		proxy:  proxy,
		logger: logger,
	}
}

// Serve handles GET /api/preview?src=<url>
func (h *PreviewHandler) Serve(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "src query parameter is required"})
		return
	}

	result, err := h.proxy.Fetch(r.Context(), src, PreviewPath)
	if err != nil {
		h.logger.Warn("preview fetch failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to fetch preview media"})
		return
	}
	defer result.Body.Close()

	if result.ContentType != "" {
		w.Header().Set("Content-Type", result.ContentType)
	}
	if result.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.Size, 10))
	}
	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Info("preview stream ended early", "error", err)
	}
}
