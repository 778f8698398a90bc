// ABOUTME: Tests for extension-based decoder selection
// ABOUTME: Opens temporary files and checks the chosen decoder
package decode

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.WAV")
	if err := os.WriteFile(path, buildWAV(t, 48000, 2, 16, make([]byte, 8), false), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if dec.Format().SampleRate != 48000 {
		t.Errorf("expected 48000 Hz, got %d", dec.Format().SampleRate)
	}
	if err := dec.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.flac")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
