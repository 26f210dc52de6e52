// Package testutil builds small file trees for scanner/walker/aggregate
// tests. Adapted (simplified) from the teacher's internal/testfs/sow.go:
// that package's Docker/tmpfs cross-device hardlink harness is specific to
// dedupe's EXDEV testing and was dropped (see DESIGN.md), but the idea of
// declaratively sowing a directory tree of given file sizes is kept.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// File describes one file to create, relative to the tree root.
type File struct {
	Path string
	Size int64 // bytes; content is zero-filled
	Time time.Time
}

// Tree builds dirs/files under t.TempDir() and returns the root path.
func Tree(t *testing.T, files ...File) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, f.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", f.Path, err)
		}
		if err := os.WriteFile(full, make([]byte, f.Size), 0o644); err != nil {
			t.Fatalf("write %s: %v", f.Path, err)
		}
		if !f.Time.IsZero() {
			if err := os.Chtimes(full, f.Time, f.Time); err != nil {
				t.Fatalf("chtimes %s: %v", f.Path, err)
			}
		}
	}
	return root
}
