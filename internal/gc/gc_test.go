package gc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/entry"
	"github.com/runsascoded/disk-tree/internal/scanblob"
)

func writeBlob(t *testing.T, dir string) string {
	t.Helper()
	tbl := entry.New(1)
	tbl.Append(entry.Row{Path: ".", Parent: "", Kind: entry.Dir, Size: 1, NDesc: 1, Depth: 0})
	path, err := scanblob.Write(dir, tbl)
	require.NoError(t, err)
	return path
}

func TestCollectRemovesSupersededScans(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	oldBlob := writeBlob(t, dir)
	newBlob := writeBlob(t, dir)

	_, err = cat.InsertScan(catalog.Scan{Path: "/data", Time: 1, Blob: oldBlob})
	require.NoError(t, err)
	_, err = cat.InsertScan(catalog.Scan{Path: "/data", Time: 100, Blob: newBlob})
	require.NoError(t, err)

	removed, err := New(cat).Collect("/data", 50)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(oldBlob)
	require.True(t, os.IsNotExist(err), "old blob should be unlinked")

	_, err = os.Stat(newBlob)
	require.NoError(t, err, "newer blob should survive")

	scans, err := cat.ListScans()
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Equal(t, newBlob, scans[0].Blob)
}

func TestCollectToleratesAlreadyMissingBlob(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	_, err = cat.InsertScan(catalog.Scan{Path: "/data", Time: 1, Blob: filepath.Join(dir, "gone.blob")})
	require.NoError(t, err)

	removed, err := New(cat).Collect("/data", 50)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}

func TestCollectIsNoopWhenNothingIsOlderThanCutoff(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	blob := writeBlob(t, dir)
	_, err = cat.InsertScan(catalog.Scan{Path: "/data", Time: 100, Blob: blob})
	require.NoError(t, err)

	removed, err := New(cat).Collect("/data", 1)
	require.NoError(t, err)
	require.Equal(t, 0, removed)

	_, err = os.Stat(blob)
	require.NoError(t, err)
}
