package catalog

import (
	"reflect"
	"testing"

	"github.com/vidgrab/vidgrab/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }

func videoFormat(height int, size *int64) domain.RawFormat {
	return domain.RawFormat{
		HasVideo:  true,
		Height:    intPtr(height),
		FileSize:  size,
		Container: "mp4",
	}
}

func audioFormat(abr float64, size *int64) domain.RawFormat {
	return domain.RawFormat{
		HasAudio:  true,
		AvgABR:    floatPtr(abr),
		FileSize:  size,
		Container: "m4a",
	}
}

func TestNormalize_DedupAndOrdering(t *testing.T) {
	formats := []domain.RawFormat{
		videoFormat(1080, nil),
		videoFormat(1080, nil),
		videoFormat(720, nil),
		videoFormat(480, nil),
		audioFormat(128, nil),
		audioFormat(192, nil),
	}

	got := Normalize(formats, 0, "https://example.com/v")

	wantQualities := []string{"1080p", "720p", "480p", domain.BestAudioLabel}
	var gotQualities []string
	for _, r := range got {
		gotQualities = append(gotQualities, r.Quality)
	}
	if !reflect.DeepEqual(gotQualities, wantQualities) {
		t.Fatalf("qualities = %v, want %v", gotQualities, wantQualities)
	}

	if got[len(got)-1].Kind != domain.KindAudio {
		t.Errorf("last rendition kind = %q, want audio", got[len(got)-1].Kind)
	}
	for _, r := range got[:len(got)-1] {
		if r.Kind != domain.KindVideo {
			t.Errorf("rendition %q kind = %q, want video", r.Quality, r.Kind)
		}
	}
}

func TestNormalize_SourceOrderPreservedInDedup(t *testing.T) {
	// First-seen per height wins: the 5MB 720p entry arrives first and its
	// size must survive the dedup.
	formats := []domain.RawFormat{
		videoFormat(720, int64Ptr(5*1024*1024)),
		videoFormat(720, int64Ptr(9*1024*1024)),
	}

	got := Normalize(formats, 0, "u")
	if len(got) != 1 {
		t.Fatalf("got %d renditions, want 1", len(got))
	}
	if got[0].Size != "5.00MB" {
		t.Errorf("size = %q, want 5.00MB", got[0].Size)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	formats := []domain.RawFormat{
		videoFormat(1080, nil),
		videoFormat(720, nil),
	}

	first := Normalize(formats, 120, "u")
	second := Normalize(formats, 120, "u")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize not deterministic: %v != %v", first, second)
	}

	seen := map[string]bool{}
	for _, r := range first {
		if r.Kind == domain.KindVideo && seen[r.Quality] {
			t.Errorf("duplicate video quality %q", r.Quality)
		}
		seen[r.Quality] = true
	}
}

func TestNormalize_BestAudioSelection(t *testing.T) {
	tests := []struct {
		name     string
		formats  []domain.RawFormat
		wantSize string
	}{
		{
			name: "highest bitrate wins",
			formats: []domain.RawFormat{
				audioFormat(128, int64Ptr(2 * 1024 * 1024)),
				audioFormat(192, int64Ptr(1 * 1024 * 1024)),
			},
			wantSize: "1.00MB",
		},
		{
			name: "filesize breaks bitrate tie",
			formats: []domain.RawFormat{
				audioFormat(128, int64Ptr(1 * 1024 * 1024)),
				audioFormat(128, int64Ptr(3 * 1024 * 1024)),
			},
			wantSize: "3.00MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.formats, 0, "u")
			if len(got) != 1 {
				t.Fatalf("got %d renditions, want 1", len(got))
			}
			r := got[0]
			if r.Kind != domain.KindAudio || r.Quality != domain.BestAudioLabel {
				t.Errorf("rendition = %+v, want single best-audio entry", r)
			}
			if r.Container != "MP3" {
				t.Errorf("container = %q, want MP3", r.Container)
			}
			if r.Size != tt.wantSize {
				t.Errorf("size = %q, want %q", r.Size, tt.wantSize)
			}
		})
	}
}

func TestNormalize_EmptyInputs(t *testing.T) {
	if got := Normalize(nil, 120, "u"); len(got) != 0 {
		t.Errorf("normalize(nil) = %v, want empty", got)
	}

	// Audio-only input yields a catalog with only the audio rendition.
	got := Normalize([]domain.RawFormat{audioFormat(96, nil)}, 60, "u")
	if len(got) != 1 || got[0].Kind != domain.KindAudio {
		t.Errorf("audio-only normalize = %v, want single audio rendition", got)
	}
}

func TestSizeEstimation(t *testing.T) {
	tests := []struct {
		name     string
		format   domain.RawFormat
		duration float64
		want     string
	}{
		{
			name:     "reported filesize preferred",
			format:   videoFormat(720, int64Ptr(10 * 1024 * 1024)),
			duration: 120,
			want:     "10.00MB",
		},
		{
			// (2500 kbps * 120s) / 8 / 1024 = 36.62MB
			name:     "estimated from bitrate table",
			format:   videoFormat(720, nil),
			duration: 120,
			want:     "36.62MB",
		},
		{
			name:     "zero duration falls back to sentinel",
			format:   videoFormat(720, nil),
			duration: 0,
			want:     domain.UnknownSize,
		},
		{
			name:     "height outside bitrate table",
			format:   videoFormat(4320, nil),
			duration: 120,
			want:     domain.UnknownSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]domain.RawFormat{tt.format}, tt.duration, "u")
			if len(got) != 1 {
				t.Fatalf("got %d renditions, want 1", len(got))
			}
			if got[0].Size != tt.want {
				t.Errorf("size = %q, want %q", got[0].Size, tt.want)
			}
		})
	}
}

func TestAudioSizeEstimate(t *testing.T) {
	// duration * 0.1 MB when the engine reports no filesize
	got := Normalize([]domain.RawFormat{audioFormat(128, nil)}, 120, "u")
	if len(got) != 1 {
		t.Fatalf("got %d renditions, want 1", len(got))
	}
	if got[0].Size != "12.00MB" {
		t.Errorf("audio size = %q, want 12.00MB", got[0].Size)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{-5, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
		{7325.9, "02:02:05"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseHeight(t *testing.T) {
	tests := []struct {
		quality string
		want    int
	}{
		{"1080p", 1080},
		{"72p", 72},
		{domain.BestAudioLabel, 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := ParseHeight(tt.quality); got != tt.want {
			t.Errorf("ParseHeight(%q) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestPickPreview(t *testing.T) {
	progressive := domain.RawFormat{
		HasVideo: true, HasAudio: true, Height: intPtr(720),
		URL: "https://cdn.example.com/progressive.mp4",
	}
	progressiveHigher := domain.RawFormat{
		HasVideo: true, HasAudio: true, Height: intPtr(1080),
		URL: "https://cdn.example.com/progressive-hd.mp4",
	}
	videoOnly := domain.RawFormat{
		HasVideo: true, Height: intPtr(1080),
		URL: "https://cdn.example.com/video-only.mp4",
	}
	hls := domain.RawFormat{
		HasVideo: true, Height: intPtr(720),
		URL: "https://cdn.example.com/master.m3u8",
	}

	tests := []struct {
		name    string
		formats []domain.RawFormat
		want    string
	}{
		{"highest progressive wins", []domain.RawFormat{progressive, progressiveHigher}, progressiveHigher.URL},
		{"hls fallback", []domain.RawFormat{videoOnly, hls}, hls.URL},
		{"no candidates", []domain.RawFormat{{HasVideo: true}}, ""},
		{"empty input", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickPreview(tt.formats); got != tt.want {
				t.Errorf("PickPreview() = %q, want %q", got, tt.want)
			}
		})
	}
}
