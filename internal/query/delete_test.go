package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runsascoded/disk-tree/internal/aggregate"
	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/scanblob"
	"github.com/runsascoded/disk-tree/internal/testutil"
)

func TestDeleteRewritesAncestorBlobAndDecrementsParentNChildren(t *testing.T) {
	svc, scansDir := newTestService(t)

	root := testutil.Tree(t,
		testutil.File{Path: "top.txt", Size: 5},
		testutil.File{Path: "sub/a.txt", Size: 100},
		testutil.File{Path: "sub/b.txt", Size: 50},
	)
	leaves := walkTree(t, root)
	// Walker sizes are allocated sizes, so expectations are taken from them.
	sizes := map[string]int64{}
	for _, r := range leaves {
		sizes[r.Path] = r.Size
	}
	tbl := aggregate.Rollup(leaves)
	blob, err := scanblob.Write(scansDir, tbl)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	id, err := svc.Catalog.InsertScan(catalog.Scan{Path: root, Time: 1, Blob: blob})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}

	if err := svc.Delete(filepath.Join(root, "sub", "a.txt")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sub", "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected sub/a.txt to be removed from disk, stat err = %v", err)
	}

	sc, err := svc.Catalog.GetScanByID(id)
	if err != nil {
		t.Fatalf("GetScanByID: %v", err)
	}
	if sc.Blob == blob {
		t.Fatal("expected the scan's blob to be rewritten to a new path")
	}

	newTbl, err := scanblob.Read(sc.Blob)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if errs := newTbl.CheckInvariants(); len(errs) != 0 {
		t.Fatalf("CheckInvariants: %v", errs)
	}

	var sub, rootRow = -1, -1
	for i := 0; i < newTbl.Len(); i++ {
		switch newTbl.Row(i).Path {
		case "sub":
			sub = i
		case ".":
			rootRow = i
		}
	}
	if sub < 0 {
		t.Fatal("expected sub to survive the delete")
	}
	subRow := newTbl.Row(sub)
	if subRow.NChildren != 1 {
		t.Errorf("sub.NChildren = %d, want 1 (lost exactly one child)", subRow.NChildren)
	}
	if want := sizes["sub/b.txt"]; subRow.Size != want {
		t.Errorf("sub.Size = %d, want %d (only b.txt left)", subRow.Size, want)
	}
	if subRow.NDesc != 2 {
		t.Errorf("sub.NDesc = %d, want 2 (sub itself and b.txt)", subRow.NDesc)
	}

	rootRowView := newTbl.Row(rootRow)
	if want := sizes["top.txt"] + sizes["sub/b.txt"]; rootRowView.Size != want {
		t.Errorf("root.Size = %d, want %d (top.txt + sub/b.txt)", rootRowView.Size, want)
	}
	if rootRowView.NChildren != 2 {
		t.Errorf("root.NChildren = %d, want 2 (top.txt and sub unaffected by a nested delete)", rootRowView.NChildren)
	}
}

func TestDeleteTopLevelFileDecrementsRootNChildren(t *testing.T) {
	svc, scansDir := newTestService(t)

	root := testutil.Tree(t,
		testutil.File{Path: "a.txt", Size: 5},
		testutil.File{Path: "b.txt", Size: 10},
	)
	leaves := walkTree(t, root)
	var bSize int64
	for _, r := range leaves {
		if r.Path == "b.txt" {
			bSize = r.Size
		}
	}
	blob, err := scanblob.Write(scansDir, aggregate.Rollup(leaves))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	id, err := svc.Catalog.InsertScan(catalog.Scan{Path: root, Time: 1, Blob: blob})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}

	if err := svc.Delete(filepath.Join(root, "a.txt")); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	sc, err := svc.Catalog.GetScanByID(id)
	if err != nil {
		t.Fatalf("GetScanByID: %v", err)
	}
	newTbl, err := scanblob.Read(sc.Blob)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < newTbl.Len(); i++ {
		r := newTbl.Row(i)
		if r.Path == "." {
			if r.NChildren != 1 {
				t.Errorf("root.NChildren = %d, want 1 after deleting a direct child", r.NChildren)
			}
			if r.Size != bSize {
				t.Errorf("root.Size = %d, want %d (b.txt's allocated size)", r.Size, bSize)
			}
		}
	}
}
