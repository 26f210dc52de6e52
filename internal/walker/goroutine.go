package walker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/runsascoded/disk-tree/internal/entry"
)

// GoroutineWalker is the alternate walker for very-high-latency sources,
// kept per spec.md §9 ("retain the option ... but the reference walker is
// the single-producer external-enumerator pipeline"). It is
// github.com/ivoronin/dupedog's internal/scanner.Scanner, adapted: it now
// emits entry.Row for every file AND directory (not just size-filtered
// duplicate candidates), and walks purely in-process via fan-out goroutines
// bounded by a semaphore, fan-in through a single collector goroutine.
//
// Cancellation contract matches LocalWalker: ctx cancellation stops further
// directory reads; in-flight goroutines drain and exit without leaking.
type GoroutineWalker struct {
	Workers int // max concurrent directory reads; 0 uses runtime-sane default

	walkerWg sync.WaitGroup
	sem      Semaphore
	scanned  atomic.Int64 // entries scanned so far, for progress reporting
}

// ScannedCount returns the number of entries scanned so far. Safe to poll
// concurrently with Walk for live progress (spec.md §4.1).
func (w *GoroutineWalker) ScannedCount() int64 { return w.scanned.Load() }

// Walk enumerates root, sending one entry.Row per file or directory to out.
func (w *GoroutineWalker) Walk(ctx context.Context, root string, out chan<- entry.Row, errs *ErrorCollector) error {
	workers := w.Workers
	if workers <= 0 {
		workers = 8
	}
	w.sem = NewSemaphore(workers)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	// Always emit the root itself; its stats are filled in by the
	// aggregator from its children, as for every directory.
	out <- entry.Row{Path: ".", Parent: "", URI: absRoot, Kind: entry.Dir, NDesc: 1}

	w.walkDirectory(ctx, absRoot, absRoot, out, errs)
	w.walkerWg.Wait()
	return nil
}

func (w *GoroutineWalker) walkDirectory(ctx context.Context, root, dir string, out chan<- entry.Row, errs *ErrorCollector) {
	w.walkerWg.Add(1)
	go func() {
		defer w.walkerWg.Done()

		select {
		case <-ctx.Done():
			return
		default:
		}

		w.sem.Acquire()
		entries, subdirs, err := w.listDirectory(dir)
		w.sem.Release()
		if err != nil {
			errs.Add(dir)
			return
		}

		rel := relPath(root, dir)
		for _, f := range entries {
			w.scanned.Add(1)
			out <- entry.Row{
				Path:   joinRel(rel, f.name),
				Parent: rel,
				URI:    filepath.Join(dir, f.name),
				Kind:   entry.File,
				Size:   f.size,
				MTime:  f.mtime,
				NDesc:  1,
			}
		}

		for _, sub := range subdirs {
			subRel := joinRel(rel, sub)
			out <- entry.Row{
				Path:   subRel,
				Parent: rel,
				URI:    filepath.Join(dir, sub),
				Kind:   entry.Dir,
				NDesc:  1,
			}
			w.walkDirectory(ctx, root, filepath.Join(dir, sub), out, errs)
		}
	}()
}

func relPath(root, dir string) string {
	if dir == root {
		return "."
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return dir
	}
	return filepath.ToSlash(rel)
}

func joinRel(rel, name string) string {
	if rel == "." || rel == "" {
		return name
	}
	return rel + "/" + name
}

type fileEnt struct {
	name  string
	size  int64
	mtime int64
}

// listDirectory reads one directory, returning files and subdirectory
// names. Uses batched ReadDir to bound memory for very large directories,
// matching the teacher's listDirectory.
func (w *GoroutineWalker) listDirectory(dirPath string) (files []fileEnt, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		ents, err := dir.ReadDir(batchSize)
		if len(ents) == 0 {
			if err != nil && err != io.EOF {
				return files, subdirs, err
			}
			break
		}
		for _, e := range ents {
			if e.IsDir() {
				subdirs = append(subdirs, e.Name())
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, fileEnt{name: e.Name(), size: allocatedSize(info), mtime: info.ModTime().Unix()})
		}
	}
	return files, subdirs, nil
}

// allocatedSize returns the file's actual on-disk allocation (blocks * 512)
// rather than its apparent length, so sparse files report disk usage the
// same way LocalWalker's find %b does (spec.md §3, §6). Falls back to the
// apparent size if the platform's Sys() isn't a *syscall.Stat_t.
func allocatedSize(info os.FileInfo) int64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Blocks * 512
	}
	return info.Size()
}
