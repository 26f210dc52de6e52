package scanblob

import (
	"testing"

	"github.com/runsascoded/disk-tree/internal/entry"
)

func sampleTable() *entry.Table {
	t := entry.New(4)
	t.Append(entry.Row{Path: ".", Parent: "", Kind: entry.Dir, Size: 300, NDesc: 4, NChildren: 1, Depth: 0})
	t.Append(entry.Row{Path: "sub", Parent: ".", Kind: entry.Dir, Size: 300, NDesc: 3, NChildren: 2, Depth: 1})
	t.Append(entry.Row{Path: "sub/a.txt", Parent: "sub", Kind: entry.File, Size: 100, Depth: 2})
	t.Append(entry.Row{Path: "sub/b.txt", Parent: "sub", Kind: entry.File, Size: 200, Depth: 2})
	return t
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sampleTable())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", got.Len())
	}
	if got.Row(0).Path != "." || got.Row(0).Size != 300 {
		t.Errorf("row 0 = %+v", got.Row(0))
	}
}

func TestReadDepthRangePushesDownPredicate(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sampleTable())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadDepthRange(path, 2, 2)
	if err != nil {
		t.Fatalf("ReadDepthRange: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	for i := 0; i < got.Len(); i++ {
		if got.Row(i).Depth != 2 {
			t.Errorf("row %d depth = %d, want 2", i, got.Row(i).Depth)
		}
	}
}

func TestReadPaths(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sampleTable())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadPaths(path, []string{".", "sub/b.txt"})
	if err != nil {
		t.Fatalf("ReadPaths: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	oldPath, err := Write(dir, sampleTable())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	newPath, err := Migrate(oldPath, dir)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if newPath == oldPath {
		t.Fatalf("Migrate returned the same path")
	}
	got, err := Read(newPath)
	if err != nil {
		t.Fatalf("Read migrated: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", got.Len())
	}

	if err := Remove(oldPath); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := Remove(oldPath); err != nil {
		t.Fatalf("Remove (idempotent): %v", err)
	}
}
