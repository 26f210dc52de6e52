// Package progresschannel publishes live scan progress through the
// catalog's scan_progress table, so any process can poll it -- unlike a
// Python in-process dict, a request handler in a different goroutine (or,
// with the catalog on shared storage, a different process entirely) sees
// the same state the scanner is writing.
//
// Grounded on spec.md §4.5 and original_source/src/disk_tree/server.py's
// scan_progress handling; the update-rate-limiting and PID-liveness sweep
// are new behaviour this Go rewrite adds to resolve spec.md's stated
// "implementations may choose" ambiguity around stale rows left by a
// process that died mid-scan (SPEC_FULL.md Open Question #3).
package progresschannel

import (
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/runsascoded/disk-tree/internal/catalog"
)

// Channel publishes progress for one scan at a time into the catalog.
// Safe for the scan-side writer to call from a single goroutine; readers
// may call Snapshot concurrently from any goroutine.
type Channel struct {
	cat *catalog.Catalog

	mu         sync.Mutex
	path       string
	lastUpdate time.Time
}

// New wraps cat for progress publishing.
func New(cat *catalog.Catalog) *Channel {
	return &Channel{cat: cat}
}

// Start begins tracking path: deletes any previous row for it and inserts a
// fresh running row with the current process's PID and start time.
func (c *Channel) Start(path string) error {
	c.mu.Lock()
	c.path = path
	c.lastUpdate = time.Time{}
	c.mu.Unlock()
	return c.cat.StartProgress(path, os.Getpid(), time.Now().Unix())
}

// minUpdateInterval matches spec.md §4.5's "rate-limited (≈ once per second
// from the scanner)".
const minUpdateInterval = time.Second

// Update overwrites path's counters, rate-limited to roughly once per
// second. Calls within the window are silently dropped rather than queued,
// since only the latest counters matter to an observer.
func (c *Channel) Update(path string, itemsFound int64, itemsPerSec float64, errorCount int64) error {
	c.mu.Lock()
	now := time.Now()
	if now.Sub(c.lastUpdate) < minUpdateInterval {
		c.mu.Unlock()
		return nil
	}
	c.lastUpdate = now
	c.mu.Unlock()

	return c.cat.UpdateProgress(path, itemsFound, itemsPerSec, errorCount)
}

// Finish deletes path's row so any observer polling after this point sees
// its absence as terminal, per spec.md §4.5. status is logged by the
// caller (see internal/logging) rather than retained in the row -- this
// implementation picks "log it" over "retain a terminal row" from the two
// options spec.md §4.5 leaves open, since a retained terminal row would
// need its own separate sweep to avoid becoming permanent clutter.
func (c *Channel) Finish(path string, status string) error {
	return c.cat.FinishProgress(path)
}

// Snapshot returns every currently-running scan.
func (c *Channel) Snapshot() ([]catalog.Progress, error) {
	return c.cat.AllProgress()
}

// SweepStale removes scan_progress rows whose pid is no longer a live
// process, run once at server startup (SPEC_FULL.md Open Question #3):
// a scanner killed mid-run (OOM, SIGKILL, host reboot) leaves a row behind
// that would otherwise report "running" forever.
func SweepStale(cat *catalog.Catalog) error {
	rows, err := cat.AllProgress()
	if err != nil {
		return err
	}
	for _, p := range rows {
		if !processAlive(p.PID) {
			if err := cat.FinishProgress(p.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

// processAlive reports whether pid refers to a running process. On Unix,
// os.FindProcess always succeeds, so liveness is tested with signal 0,
// which checks permissions/existence without affecting the process.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
