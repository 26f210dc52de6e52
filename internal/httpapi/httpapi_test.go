package httpapi

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/runsascoded/disk-tree/internal/blobcache"
	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/entry"
	"github.com/runsascoded/disk-tree/internal/gc"
	"github.com/runsascoded/disk-tree/internal/progresschannel"
	"github.com/runsascoded/disk-tree/internal/query"
	"github.com/runsascoded/disk-tree/internal/scanblob"
	"github.com/runsascoded/disk-tree/internal/scanjob"
	"github.com/runsascoded/disk-tree/internal/walker"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	scansDir := filepath.Join(dir, "scans")
	q := query.NewService(cat, blobcache.New(), scansDir)
	progress := progresschannel.New(cat)
	runner := scanjob.New(cat, progress, scansDir, &walker.GoroutineWalker{Workers: 2})
	return NewServer(q, runner, progress, gc.New(cat))
}

func TestHandleListScansEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/list-scans", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() == "" {
		t.Fatal("expected a JSON body")
	}
}

func TestHandleGetScanMissingURI(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/get-scan", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetScanFound(t *testing.T) {
	s := newTestServer(t)

	tbl := entry.New(1)
	tbl.Append(entry.Row{Path: ".", Parent: "", Kind: entry.Dir, Size: 42, NDesc: 1, Depth: 0})
	blob, err := scanblob.Write(s.Query.ScansDir, tbl)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Query.Catalog.InsertScan(catalog.Scan{Path: "/data", Time: 1, Blob: blob, Size: 42}); err != nil {
		t.Fatalf("InsertScan: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/get-scan?uri=/data", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleScanStatusNotRunning(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/scan-status?root=/nope", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
