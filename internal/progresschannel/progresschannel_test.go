package progresschannel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runsascoded/disk-tree/internal/catalog"
)

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestStartUpdateFinish(t *testing.T) {
	cat := openCatalog(t)
	ch := New(cat)

	if err := ch.Start("/data"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap, err := ch.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 1 || snap[0].Path != "/data" || snap[0].Status != "running" {
		t.Fatalf("Snapshot = %+v", snap)
	}

	// Update within the rate-limit window is dropped.
	if err := ch.Update("/data", 100, 50, 0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	snap, _ = ch.Snapshot()
	if snap[0].ItemsFound != 0 {
		t.Errorf("rate-limited update should have been dropped, got ItemsFound=%d", snap[0].ItemsFound)
	}

	// Force past the rate limit window and retry.
	ch.mu.Lock()
	ch.lastUpdate = time.Now().Add(-2 * time.Second)
	ch.mu.Unlock()
	if err := ch.Update("/data", 100, 50, 0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	snap, _ = ch.Snapshot()
	if snap[0].ItemsFound != 100 {
		t.Errorf("ItemsFound = %d, want 100", snap[0].ItemsFound)
	}

	if err := ch.Finish("/data", "complete"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	snap, _ = ch.Snapshot()
	if len(snap) != 0 {
		t.Fatalf("expected no rows after Finish, got %+v", snap)
	}
}

func TestSweepStaleRemovesDeadPID(t *testing.T) {
	cat := openCatalog(t)
	if err := cat.StartProgress("/dead", 1<<30, time.Now().Unix()); err != nil {
		t.Fatalf("StartProgress: %v", err)
	}
	if err := cat.StartProgress("/alive", os.Getpid(), time.Now().Unix()); err != nil {
		t.Fatalf("StartProgress: %v", err)
	}

	if err := SweepStale(cat); err != nil {
		t.Fatalf("SweepStale: %v", err)
	}

	rows, err := cat.AllProgress()
	if err != nil {
		t.Fatalf("AllProgress: %v", err)
	}
	if len(rows) != 1 || rows[0].Path != "/alive" {
		t.Fatalf("rows after sweep = %+v, want only /alive", rows)
	}
}
