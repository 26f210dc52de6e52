package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/runsascoded/disk-tree/internal/blobcache"
	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/config"
	"github.com/runsascoded/disk-tree/internal/gc"
	"github.com/runsascoded/disk-tree/internal/httpapi"
	"github.com/runsascoded/disk-tree/internal/logging"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/query"
	"github.com/runsascoded/disk-tree/internal/scanjob"
	"github.com/runsascoded/disk-tree/internal/walker"
)

func newServeCmd() *cobra.Command {
	var addr string
	var walkerName string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query/scan HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(addr, walkerName)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&walkerName, "walker", "local", "walker used by start-scan: local, goroutine, or objectstore")
	return cmd
}

func runServe(addr, walkerName string) error {
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
		logging.Query.Printf("stale progress sweep failed: %v", err)
	}

	w, err := buildWalker(&scanOptions{walkerName: walkerName, excludes: walker.DefaultExcludes})
	if err != nil {
		return err
	}

	progressCh := progresschannel.New(cat)
	qsvc := query.NewService(cat, blobcache.New(), cfg.ScansDir)
	qsvc.Lister = query.NewOSLister()
	runner := scanjob.New(cat, progressCh, cfg.ScansDir, w)
	gcSvc := gc.New(cat)

	srv := httpapi.NewServer(qsvc, runner, progressCh, gcSvc)

	fmt.Printf("disk-tree serving on %s\n", addr)
	return http.ListenAndServe(addr, srv)
}
