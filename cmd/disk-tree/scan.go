package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/config"
	"github.com/runsascoded/disk-tree/internal/progress"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/scanjob"
	"github.com/runsascoded/disk-tree/internal/walker"
)

type scanOptions struct {
	walkerName string
	excludes   []string
	sudo       bool
	workers    int
	noProgress bool
}

type scanStatus int64

func (s scanStatus) String() string { return fmt.Sprintf("%d entries scanned", int64(s)) }

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		walkerName: "local",
		excludes:   walker.DefaultExcludes,
		workers:    runtime.NumCPU(),
	}

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Scan a directory or bucket and record its size tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.walkerName, "walker", opts.walkerName, "walker implementation: local, goroutine, or objectstore")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", opts.excludes, "paths to prune from the scan")
	cmd.Flags().BoolVar(&opts.sudo, "sudo", false, "run the external enumerator under sudo -n (local walker only)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "goroutine walker concurrency")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the terminal progress spinner")

	return cmd
}

func buildWalker(opts *scanOptions) (scanjob.Walker, error) {
	switch opts.walkerName {
	case "local":
		return &walker.LocalWalker{Excludes: opts.excludes, Sudo: opts.sudo}, nil
	case "goroutine":
		return &walker.GoroutineWalker{Workers: opts.workers}, nil
	case "objectstore":
		return &walker.ObjectStoreWalker{}, nil
	default:
		return nil, fmt.Errorf("unknown walker %q (want local, goroutine, or objectstore)", opts.walkerName)
	}
}

func runScan(root string, opts *scanOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cat, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	if err := progresschannel.SweepStale(cat); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stale progress sweep failed: %v\n", err)
	}

	if opts.sudo && !sudoAvailable() {
		return fmt.Errorf("--sudo requested but no sudo binary found on PATH")
	}

	w, err := buildWalker(opts)
	if err != nil {
		return err
	}

	// Canonicalize once here, up front, so this command's own progress-bar
	// polling loop (below) compares against the same absolute path that
	// Runner.Start records in the catalog -- Start re-derives the identical
	// value, making this a no-op there, not a second source of truth.
	root, err = scanjob.CanonicalizeRoot(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	progressCh := progresschannel.New(cat)
	runner := scanjob.New(cat, progressCh, cfg.ScansDir, w)

	bar := progress.New(!opts.noProgress, -1)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				snap, err := progressCh.Snapshot()
				if err != nil {
					continue
				}
				for _, p := range snap {
					if p.Path == root {
						bar.Describe(scanStatus(p.ItemsFound))
					}
				}
			}
		}
	}()

	ctx := context.Background()
	scanID, err := runner.Start(ctx, root)
	close(done)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	sc, err := cat.GetScanByID(scanID)
	if err != nil {
		return fmt.Errorf("load completed scan: %w", err)
	}
	bar.Finish(scanStatus(sc.NDesc))
	fmt.Printf("scan %d: %s (%s, %d entries, %d errors)\n", scanID, root, humanize.IBytes(uint64(sc.Size)), sc.NDesc, sc.ErrorCount)
	return nil
}

// sudoAvailable reports whether a sudo binary is on PATH, used to give a
// clearer error than a bare exec failure when --sudo is requested but
// unavailable (e.g. inside a minimal container).
func sudoAvailable() bool {
	_, err := exec.LookPath("sudo")
	return err == nil
}
