// Package catalog turns raw engine format lists into the deduplicated,
// ranked rendition catalog presented to callers.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vidgrab/vidgrab/internal/domain"
)

// bitrateEstimates maps quality labels to approximate video bitrates in
// kbps, used to estimate file size when the engine omits it.
var bitrateEstimates = map[string]float64{
	"1080p": 4000,
	"720p":  2500,
	"480p":  1000,
	"360p":  700,
	"240p":  400,
	"144p":  150,
	"72p":   100,
}

// audioMBPerSecond approximates compressed audio output size when the
// engine reports neither filesize nor bitrate.
const audioMBPerSecond = 0.1

// Normalize produces the rendition catalog from raw engine formats:
// one video rendition per distinct height (first-seen wins, then sorted
// descending) followed by at most one best-audio rendition.
func Normalize(formats []domain.RawFormat, durationSeconds float64, sourceURL string) []domain.Rendition {
	videos := normalizeVideo(formats, durationSeconds, sourceURL)

	renditions := make([]domain.Rendition, 0, len(videos)+1)
	renditions = append(renditions, videos...)

	if audio, ok := bestAudio(formats, durationSeconds, sourceURL); ok {
		renditions = append(renditions, audio)
	}
	return renditions
}

func normalizeVideo(formats []domain.RawFormat, durationSeconds float64, sourceURL string) []domain.Rendition {
	seen := make(map[int]bool)
	var videos []domain.Rendition

	for _, f := range formats {
		if !f.HasVideo || f.Height == nil {
			continue
		}
		h := *f.Height
		if h <= 0 || seen[h] {
			continue
		}
		seen[h] = true

		quality := fmt.Sprintf("%dp", h)
		videos = append(videos, domain.Rendition{
			Kind:      domain.KindVideo,
			Quality:   quality,
			Container: "MP4",
			Size:      videoSizeLabel(f, quality, durationSeconds),
			SourceURL: sourceURL,
		})
	}

	// Dedup preserves source order; the catalog contract is explicit
	// descending height.
	sort.SliceStable(videos, func(i, j int) bool {
		return ParseHeight(videos[i].Quality) > ParseHeight(videos[j].Quality)
	})
	return videos
}

// bestAudio selects the audio-capable format with the highest average
// bitrate, tie-broken by largest file size.
func bestAudio(formats []domain.RawFormat, durationSeconds float64, sourceURL string) (domain.Rendition, bool) {
	var best *domain.RawFormat
	for i := range formats {
		f := &formats[i]
		if !f.HasAudio {
			continue
		}
		if best == nil || audioRank(f) > audioRank(best) ||
			(audioRank(f) == audioRank(best) && fileSize(f) > fileSize(best)) {
			best = f
		}
	}
	if best == nil {
		return domain.Rendition{}, false
	}

	return domain.Rendition{
		Kind:      domain.KindAudio,
		Quality:   domain.BestAudioLabel,
		Container: "MP3",
		Size:      audioSizeLabel(*best, durationSeconds),
		SourceURL: sourceURL,
	}, true
}

func audioRank(f *domain.RawFormat) float64 {
	if f.AvgABR == nil {
		return 0
	}
	return *f.AvgABR
}

func fileSize(f *domain.RawFormat) int64 {
	if f.FileSize == nil {
		return 0
	}
	return *f.FileSize
}

// videoSizeLabel prefers the engine-reported size, then an estimate from
// the bitrate table, then the unknown sentinel. A missing or zero duration
// never produces a zero-byte label.
func videoSizeLabel(f domain.RawFormat, quality string, durationSeconds float64) string {
	if f.FileSize != nil && *f.FileSize > 0 {
		return megabytes(float64(*f.FileSize) / (1024 * 1024))
	}
	if kbps, ok := bitrateEstimates[quality]; ok && durationSeconds > 0 {
		return megabytes(kbps * durationSeconds / 8 / 1024)
	}
	return domain.UnknownSize
}

func audioSizeLabel(f domain.RawFormat, durationSeconds float64) string {
	if f.FileSize != nil && *f.FileSize > 0 {
		return megabytes(float64(*f.FileSize) / (1024 * 1024))
	}
	if durationSeconds > 0 {
		return megabytes(durationSeconds * audioMBPerSecond)
	}
	return domain.UnknownSize
}

func megabytes(mb float64) string {
	return fmt.Sprintf("%.2fMB", mb)
}

// ParseHeight extracts the pixel height from a quality label like "1080p".
// Returns 0 for labels that carry no height.
func ParseHeight(quality string) int {
	var h int
	if _, err := fmt.Sscanf(strings.TrimSuffix(quality, "p"), "%d", &h); err != nil {
		return 0
	}
	return h
}

// FormatDuration renders a duration in seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// PickPreview chooses a URL suitable for inline playback: the highest
// progressive format carrying both streams, else an HLS manifest URL.
func PickPreview(formats []domain.RawFormat) string {
	var best string
	bestHeight := -1
	for _, f := range formats {
		if f.URL == "" {
			continue
		}
		if f.HasVideo && f.HasAudio {
			h := 0
			if f.Height != nil {
				h = *f.Height
			}
			if h > bestHeight {
				bestHeight = h
				best = f.URL
			}
		}
	}
	if best != "" {
		return best
	}
	for _, f := range formats {
		if f.URL != "" && strings.Contains(f.URL, ".m3u8") {
			return f.URL
		}
	}
	return ""
}
