// Package preview proxies upstream media for inline playback. Direct
// progressive files stream through unchanged; HLS manifests are rewritten
// so every segment and sub-playlist URI routes back through the proxy,
// since upstream CDNs reject browser-origin requests.
package preview

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vidgrab/vidgrab/internal/config"
)

// Result is a proxied upstream response ready to relay to the caller.
type Result struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Manifest    bool
}

// Proxy fetches upstream preview media on behalf of the browser.
type Proxy struct {
	// client is used for manifest fetches with an overall timeout
	client *http.Client
	// streamClient is used for segment/file streaming without an overall
	// timeout, only a header deadline
	streamClient *http.Client
	userAgent    string
}

// New creates a preview proxy from configuration.
func New(cfg config.PreviewConfig) *Proxy {
	streamTransport := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &Proxy{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		userAgent: cfg.UserAgent,
	}
}

// Fetch retrieves the upstream URL. When the payload is an HLS manifest the
// body is fully read and rewritten; otherwise the body streams through.
// proxyPath is the route prefix used for rewritten URIs, e.g. "/api/preview".
func (p *Proxy) Fetch(ctx context.Context, src, proxyPath string) (*Result, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid preview source %q", src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "*/*")

	// Manifests are small; fetch them with the bounded client. Segments and
	// progressive files can be large and stream without an overall timeout.
	httpClient := p.streamClient
	if strings.HasSuffix(u.Path, ".m3u8") {
		httpClient = p.client
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch upstream: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if isManifest(u.Path, contentType) {
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		rewritten := RewriteManifest(data, u, proxyPath)
		return &Result{
			Body:        io.NopCloser(bytes.NewReader(rewritten)),
			ContentType: "application/vnd.apple.mpegurl",
			Size:        int64(len(rewritten)),
			Manifest:    true,
		}, nil
	}

	return &Result{
		Body:        resp.Body,
		ContentType: contentType,
		Size:        resp.ContentLength,
	}, nil
}

func isManifest(path, contentType string) bool {
	if strings.HasSuffix(path, ".m3u8") {
		return true
	}
	switch contentType {
	case "application/vnd.apple.mpegurl", "application/x-mpegurl", "audio/mpegurl":
		return true
	}
	return false
}

// RewriteManifest rewrites every URI in an M3U8 manifest to an absolute
// upstream URL routed through proxyPath. Both bare URI lines and URI="..."
// tag attributes are rewritten; comments and directives pass through.
func RewriteManifest(data []byte, base *url.URL, proxyPath string) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "#") && strings.Contains(line, `URI="`):
			out.WriteString(rewriteTagURI(line, base, proxyPath))
		case strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "":
			out.WriteString(line)
		default:
			out.WriteString(proxied(line, base, proxyPath))
		}
		out.WriteByte('\n')
	}
	return out.Bytes()
}

func rewriteTagURI(line string, base *url.URL, proxyPath string) string {
	start := strings.Index(line, `URI="`)
	if start < 0 {
		return line
	}
	rest := line[start+5:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return line
	}
	return line[:start+5] + proxied(rest[:end], base, proxyPath) + rest[end:]
}

func proxied(uri string, base *url.URL, proxyPath string) string {
	ref, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return uri
	}
	abs := base.ResolveReference(ref)
	return proxyPath + "?src=" + url.QueryEscape(abs.String())
}
