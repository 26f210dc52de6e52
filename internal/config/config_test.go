package config

import (
	"path/filepath"
	"testing"
)

func TestLoadHonoursEnvOverride(t *testing.T) {
	t.Setenv(homeEnvVar, filepath.Join(t.TempDir(), "custom-home"))

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(c.Home) != "custom-home" {
		t.Errorf("Home = %q, want basename custom-home", c.Home)
	}
	if c.ScansDir != filepath.Join(c.Home, "scans") {
		t.Errorf("ScansDir = %q", c.ScansDir)
	}
	if c.Catalog != filepath.Join(c.Home, "catalog.db") {
		t.Errorf("Catalog = %q", c.Catalog)
	}
}
