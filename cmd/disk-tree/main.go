package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "disk-tree",
		Short:   "Scan, query, and compare directory/object-store size trees",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newGCCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
