package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "My Video", "My Video"},
		{"path separators", "a/b\\c", "a_b_c"},
		{"shell-ish characters", `a<b>c:d"e|f?g*h`, "a_b_c_d_e_f_g_h"},
		{"control characters", "a\x00b\x1fc", "a_b_c"},
		{"single extension stripped", "song.mp3", "song"},
		{"doubled extension stripped", "song.mp3.mp3", "song"},
		{"mixed extensions stripped", "clip.mp4.mp3", "clip"},
		{"tripled extension stripped", "clip.mp4.mp4.mp4", "clip"},
		{"interior dot kept", "v1.2 release", "v1.2 release"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"My Video.mp4",
		"a/b:c.mp3.mp3",
		"already clean",
		"weird<>name.mp4.mp3",
	}
	for _, in := range inputs {
		once := SanitizeName(in)
		twice := SanitizeName(once)
		if once != twice {
			t.Errorf("SanitizeName not idempotent for %q: %q != %q", in, once, twice)
		}
		if strings.Contains(once, ".mp3.mp3") || strings.Contains(once, ".mp4.mp4") {
			t.Errorf("SanitizeName(%q) = %q contains doubled extension", in, once)
		}
	}
}

func TestReserve_CreatesDirectoryLazily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := New(dir, 5, testLogger())

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("store directory should not exist before first use")
	}

	path, err := s.Reserve("clip", ".mp4")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if path != filepath.Join(dir, "clip.mp4") {
		t.Errorf("Reserve() path = %q", path)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("store directory missing after Reserve: %v", err)
	}
}

func TestReserve_EnforcesRetentionCap(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 3, testLogger())

	for i := 0; i < 10; i++ {
		if _, err := s.Reserve("clip", ".mp4"); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		// Simulate the engine writing the artifact. Distinct names and
		// mtimes so the sweep has real ordering to work with.
		actual := filepath.Join(dir, "clip"+string(rune('a'+i))+".mp4")
		if err := os.WriteFile(actual, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().Add(time.Duration(i-20) * time.Minute)
		os.Chtimes(actual, past, past)

		count, err := s.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count > 3 {
			t.Fatalf("store holds %d files after reservation %d, cap is 3", count, i)
		}
	}
}

func TestSweep_RemovesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 2, testLogger())

	names := []string{"old.mp4", "mid.mp4", "new.mp4"}
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		os.Chtimes(p, mt, mt)
	}

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "old.mp4")); !os.IsNotExist(err) {
		t.Errorf("oldest artifact should have been evicted")
	}
	for _, keep := range []string{"mid.mp4", "new.mp4"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("artifact %s should have survived the sweep: %v", keep, err)
		}
	}
}

func TestEvict_Idempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 5, testLogger())

	p := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Evict(p); err != nil {
		t.Fatalf("first Evict() error = %v", err)
	}
	if err := s.Evict(p); err != nil {
		t.Fatalf("second Evict() error = %v", err)
	}
	if err := s.Evict(filepath.Join(dir, "never-existed.mp4")); err != nil {
		t.Fatalf("Evict() of missing file error = %v", err)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 5, testLogger())

	// Engine appended its own suffix to the requested name.
	if err := os.WriteFile(filepath.Join(dir, "clip.f137.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Find("clip", ".mp4")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != filepath.Join(dir, "clip.f137.mp4") {
		t.Errorf("Find() = %q", got)
	}

	if _, err := s.Find("clip", ".mp3"); err != ErrArtifactNotFound {
		t.Errorf("Find() with wrong extension error = %v, want ErrArtifactNotFound", err)
	}
	if _, err := s.Find("missing", ".mp4"); err != ErrArtifactNotFound {
		t.Errorf("Find() for missing prefix error = %v, want ErrArtifactNotFound", err)
	}
}

func TestConcurrentReserveAndEvict(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, 5, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path, err := s.Reserve("clip", ".mp4")
			if err != nil {
				t.Errorf("Reserve() error = %v", err)
				return
			}
			os.WriteFile(path, []byte("x"), 0644)
			s.Evict(path)
		}(i)
	}
	wg.Wait()

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count > 5 {
		t.Errorf("store holds %d files after concurrent churn, cap is 5", count)
	}
}
