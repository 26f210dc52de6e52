package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/config"
	"github.com/runsascoded/disk-tree/internal/gc"
)

func newGCCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "gc <path>",
		Short: "Remove superseded scan blobs and catalog rows for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cat, err := catalog.Open(cfg.Catalog)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer func() { _ = cat.Close() }()

			cutoff := time.Now().Add(-olderThan).Unix()
			removed, err := gc.New(cat).Collect(args[0], cutoff)
			if err != nil {
				return fmt.Errorf("gc: %w", err)
			}
			fmt.Printf("removed %d superseded scan(s) for %s\n", removed, args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove scans older than this duration")
	return cmd
}
