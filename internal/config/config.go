// Package config resolves disk-tree's on-disk layout: where scan blobs and
// the catalog database live. Grounded on
// original_source/src/disk_tree/config.py's home-directory resolution and
// the teacher's internal/cache.Open directory handling
// (os.MkdirAll(filepath.Dir(path), ...)).
package config

import (
	"os"
	"path/filepath"
)

// homeEnvVar overrides the default disk-tree home directory.
const homeEnvVar = "DISK_TREE_HOME"

// Config holds the resolved paths disk-tree persists data under.
type Config struct {
	Home     string // $DISK_TREE_HOME, or ~/.disk-tree
	ScansDir string // Home/scans: scanblob files live here
	Catalog  string // Home/catalog.db: the SQLite catalog
}

// Load resolves Config from the environment.
func Load() (Config, error) {
	home := os.Getenv(homeEnvVar)
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(dir, ".disk-tree")
	}

	c := Config{
		Home:     home,
		ScansDir: filepath.Join(home, "scans"),
		Catalog:  filepath.Join(home, "catalog.db"),
	}
	if err := os.MkdirAll(c.ScansDir, 0o755); err != nil {
		return Config{}, err
	}
	return c, nil
}
