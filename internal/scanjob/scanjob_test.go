package scanjob

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/testutil"
	"github.com/runsascoded/disk-tree/internal/walker"
)

func TestStartRunsScanToCompletion(t *testing.T) {
	root := testutil.Tree(t,
		testutil.File{Path: "a.txt", Size: 100},
		testutil.File{Path: "sub/b.txt", Size: 200},
	)

	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	runner := New(cat, progresschannel.New(cat), filepath.Join(dir, "scans"), &walker.GoroutineWalker{Workers: 2})

	scanID, err := runner.Start(context.Background(), root)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if scanID == 0 {
		t.Fatal("expected non-zero scan id")
	}

	sc, err := cat.GetScanByID(scanID)
	if err != nil {
		t.Fatalf("GetScanByID: %v", err)
	}
	// The walker reports allocated size, so the expected total is read back
	// from the files' block counts rather than the bytes written.
	var want int64
	for _, p := range []string{"a.txt", "sub/b.txt"} {
		info, err := os.Stat(filepath.Join(root, p))
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		want += info.Sys().(*syscall.Stat_t).Blocks * 512
	}
	if sc.Size != want {
		t.Errorf("Size = %d, want %d", sc.Size, want)
	}

	snap, err := progresschannel.New(cat).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("expected no running scans after Finish, got %+v", snap)
	}
}

// TestStartCanonicalizesRelativeRoot confirms a relative-path scan root is
// recorded in the catalog under its absolute form, so GetScan/Compare's
// ancestor search can find it later by the same absolute URI the walkers
// use internally for row URIs (spec.md §3).
func TestStartCanonicalizesRelativeRoot(t *testing.T) {
	absRoot := testutil.Tree(t,
		testutil.File{Path: "a.txt", Size: 100},
	)

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	relRoot, err := filepath.Rel(cwd, absRoot)
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}

	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	runner := New(cat, progresschannel.New(cat), filepath.Join(dir, "scans"), &walker.GoroutineWalker{Workers: 2})

	scanID, err := runner.Start(context.Background(), relRoot)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sc, err := cat.GetScanByID(scanID)
	if err != nil {
		t.Fatalf("GetScanByID: %v", err)
	}
	if sc.Path != absRoot {
		t.Errorf("Path = %q, want absolute %q", sc.Path, absRoot)
	}
	if !filepath.IsAbs(sc.Path) {
		t.Errorf("Path = %q, want an absolute path", sc.Path)
	}
}

// TestCanonicalizeRootLeavesObjectStoreURIsAlone confirms an s3:// root is
// never run through filepath.Abs, which would corrupt it by prepending the
// working directory.
func TestCanonicalizeRootLeavesObjectStoreURIsAlone(t *testing.T) {
	got, err := CanonicalizeRoot("s3://my-bucket/prefix")
	if err != nil {
		t.Fatalf("CanonicalizeRoot: %v", err)
	}
	if got != "s3://my-bucket/prefix" {
		t.Errorf("CanonicalizeRoot = %q, want unchanged s3:// URI", got)
	}
}
