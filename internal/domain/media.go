package domain

// RenditionKind distinguishes video renditions from the audio-only rendition.
type RenditionKind string

const (
	KindVideo RenditionKind = "video"
	KindAudio RenditionKind = "audio"
)

// BestAudioLabel is the only quality label an audio rendition may carry.
const BestAudioLabel = "Best Audio"

// UnknownSize is the size label used when neither the engine nor the
// bitrate table can produce an estimate.
const UnknownSize = "Unknown Size"

// RawFormat is one stream as reported by the extraction engine. Optional
// fields are pointers so that an absent value is distinguishable from zero.
type RawFormat struct {
	HasVideo  bool
	HasAudio  bool
	Height    *int
	AvgABR    *float64
	FileSize  *int64
	Container string
	URL       string
}

// Rendition is one user-facing downloadable variant of the source media.
type Rendition struct {
	Kind      RenditionKind
	Quality   string // "1080p", "720p", ... or "Best Audio"
	Container string // "MP4" or "MP3"
	Size      string // "12.34MB" or "Unknown Size"
	SourceURL string
}

// Catalog is the normalized result of resolving a media URL.
// Renditions hold all video entries in descending height order followed by
// at most one audio entry.
type Catalog struct {
	Title      string
	Thumbnail  string
	Duration   string // HH:MM:SS
	Platform   Platform
	PreviewURL string
	Renditions []Rendition
}

// FindRendition returns the rendition matching kind and quality label,
// or nil if the catalog has no such entry.
func (c *Catalog) FindRendition(kind RenditionKind, quality string) *Rendition {
	for i := range c.Renditions {
		r := &c.Renditions[i]
		if r.Kind == kind && r.Quality == quality {
			return r
		}
	}
	return nil
}
