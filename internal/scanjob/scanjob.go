// Package scanjob runs a scan (walk, aggregate, persist) in the
// background and tracks it through progresschannel/catalog so an HTTP
// caller can trigger one and poll its status, rather than holding the
// request open for the scan's full duration.
package scanjob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/runsascoded/disk-tree/internal/aggregate"
	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/entry"
	"github.com/runsascoded/disk-tree/internal/logging"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/scanblob"
	"github.com/runsascoded/disk-tree/internal/walker"
)

// Walker is the subset of the walker implementations' contract scanjob
// needs; LocalWalker, GoroutineWalker, and ObjectStoreWalker all satisfy
// it.
type Walker interface {
	Walk(ctx context.Context, root string, out chan<- entry.Row, errs *walker.ErrorCollector) error
}

// Runner starts and tracks scans for one path.
type Runner struct {
	Catalog  *catalog.Catalog
	Progress *progresschannel.Channel
	ScansDir string
	Walker   Walker
}

// New wires a Runner from its dependencies.
func New(cat *catalog.Catalog, progress *progresschannel.Channel, scansDir string, w Walker) *Runner {
	return &Runner{Catalog: cat, Progress: progress, ScansDir: scansDir, Walker: w}
}

// Start runs a scan of root to completion, synchronously. Callers that
// want fire-and-forget behaviour from an HTTP handler should invoke this
// in its own goroutine (see internal/httpapi's start-scan handler) and
// poll status via Progress/Catalog instead of blocking on the call.
func (r *Runner) Start(ctx context.Context, root string) (scanID int64, err error) {
	root, err = CanonicalizeRoot(root)
	if err != nil {
		return 0, fmt.Errorf("scanjob: resolve root: %w", err)
	}

	if err := r.Progress.Start(root); err != nil {
		return 0, fmt.Errorf("scanjob: start progress: %w", err)
	}

	out := make(chan entry.Row, 1024)
	errs := walker.NewErrorCollector(0)
	walkErr := make(chan error, 1)

	go func() {
		walkErr <- r.Walker.Walk(ctx, root, out, errs)
		close(out)
	}()

	var leaves []entry.Row
	var found int64
	lastReport := time.Now()
	for row := range out {
		leaves = append(leaves, row)
		found++
		if time.Since(lastReport) >= time.Second {
			paths, total := errs.Paths()
			_ = r.Progress.Update(root, found, 0, int64(total))
			_ = paths
			lastReport = time.Now()
		}
	}

	if err := <-walkErr; err != nil {
		_ = r.Progress.Finish(root, "failed")
		logging.Scan.Printf("scan of %s failed: %v", root, err)
		return 0, fmt.Errorf("scanjob: walk %s: %w", root, err)
	}

	tbl := aggregate.Rollup(leaves)
	blobPath, err := scanblob.Write(r.ScansDir, tbl)
	if err != nil {
		_ = r.Progress.Finish(root, "failed")
		return 0, fmt.Errorf("scanjob: write blob: %w", err)
	}

	errorPaths, errorCount := errs.Paths()
	var rootSize, rootNDesc, rootNChildren int64
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		if row.Path == "." {
			rootSize, rootNDesc, rootNChildren = row.Size, row.NDesc, row.NChildren
			break
		}
	}

	scanID, err = r.Catalog.InsertScan(catalog.Scan{
		Path: root, Time: time.Now().Unix(), Blob: blobPath,
		ErrorCount: int64(errorCount), ErrorPaths: errorPaths,
		Size: rootSize, NChildren: rootNChildren, NDesc: rootNDesc,
	})
	if err != nil {
		_ = r.Progress.Finish(root, "failed")
		return 0, fmt.Errorf("scanjob: insert scan: %w", err)
	}

	_ = r.Progress.Finish(root, "complete")
	logging.Scan.Printf("scan of %s complete: %d entries, %d errors", root, tbl.Len(), errorCount)
	return scanID, nil
}

// CanonicalizeRoot resolves a CLI-supplied root to the same absolute form
// the walkers use internally for row URIs (local.go's filepath.Abs,
// goroutine.go's filepath.Abs), so catalog.Scan.Path always matches what
// GetScan/Compare/ancestor-search callers look up (spec.md §3: "uri --
// absolute external identifier"). Object-store URIs (e.g. "s3://...") are
// left untouched -- filepath.Abs would corrupt them by prepending the
// working directory.
func CanonicalizeRoot(root string) (string, error) {
	if strings.Contains(root, "://") {
		return root, nil
	}
	return filepath.Abs(root)
}
