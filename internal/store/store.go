// Package store manages the bounded directory of transient download
// artifacts. All directory mutations are serialized through the store
// mutex; the retention sweep enumerates then deletes and must not race
// concurrent reservations or evictions.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrArtifactNotFound is returned when no file in the store matches the
// requested name prefix and extension.
var ErrArtifactNotFound = errors.New("artifact not found")

// Store is a self-cleaning directory of transient artifact files.
type Store struct {
	dir          string
	maxArtifacts int
	logger       *slog.Logger

	mu sync.Mutex
}

// New creates a store rooted at dir holding at most maxArtifacts files.
// The directory itself is created lazily on first reservation.
func New(dir string, maxArtifacts int, logger *slog.Logger) *Store {
	if maxArtifacts <= 0 {
		maxArtifacts = 5
	}
	return &Store{
		dir:          dir,
		maxArtifacts: maxArtifacts,
		logger:       logger,
	}
}

// Dir returns the store's directory path.
func (s *Store) Dir() string {
	return s.dir
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeName makes a caller-supplied filename safe for the store
// directory: unsafe characters become underscores and any trailing
// .mp3/.mp4 suffixes are stripped so the final extension is never doubled.
// Sanitization is idempotent.
func SanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	for {
		switch {
		case strings.HasSuffix(name, ".mp3"):
			name = strings.TrimSuffix(name, ".mp3")
		case strings.HasSuffix(name, ".mp4"):
			name = strings.TrimSuffix(name, ".mp4")
		default:
			return name
		}
	}
}

// Reserve prepares the store for a new artifact named name+ext and returns
// its target path. Before reserving it sweeps the directory back under the
// retention cap, oldest files first.
func (s *Store) Reserve(name, ext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create store directory: %w", err)
	}
	if err := s.sweepLocked(s.maxArtifacts - 1); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Find locates the materialized artifact by sanitized-name prefix and
// extension. The engine may append its own suffix to the requested output
// path, so an exact-name match cannot be assumed.
func (s *Store) Find(namePrefix, ext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read store directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), namePrefix) && strings.HasSuffix(e.Name(), ext) {
			return filepath.Join(s.dir, e.Name()), nil
		}
	}
	return "", ErrArtifactNotFound
}

// Open opens an artifact for transfer and reports its size.
func (s *Store) Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat artifact: %w", err)
	}
	return f, info.Size(), nil
}

// Evict removes an artifact. Evicting a path that no longer exists is not
// an error.
func (s *Store) Evict(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("evict artifact: %w", err)
	}
	return nil
}

// Sweep removes the oldest artifacts until the store is at or under its
// retention cap.
func (s *Store) Sweep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.maxArtifacts)
}

// Count reports the number of artifact files currently in the store.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read store directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n, nil
}

func (s *Store) sweepLocked(keep int) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read store directory: %w", err)
	}

	type artifact struct {
		path    string
		modTime int64
	}
	var files []artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, artifact{
			path:    filepath.Join(s.dir, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(files) <= keep {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})

	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to evict stale artifact", "path", f.path, "error", err)
			continue
		}
		s.logger.Info("evicted stale artifact", "path", f.path)
	}
	return nil
}
