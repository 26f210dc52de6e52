package query

import (
	"fmt"
	"os"
	"strings"

	"github.com/runsascoded/disk-tree/internal/entry"
	"github.com/runsascoded/disk-tree/internal/scanblob"
)

// Delete removes absPath from disk, then rewrites every catalog blob whose
// scan root is an ancestor of absPath to drop the subtree and subtract its
// stats from ancestor directory rows (spec.md §4.6.5). A blob-rewrite
// failure does not fail the overall delete -- the deletion itself already
// succeeded, and staleness is tolerated until the next scan. On a successful
// file delete the response cache is cleared and each rewritten blob's cached
// reads are invalidated; other blob-cache entries are not dropped.
func (s *Service) Delete(absPath string) error {
	if err := os.RemoveAll(absPath); err != nil {
		return fmt.Errorf("query: delete %s: %w", absPath, err)
	}

	s.clearResponseCache()

	scans, err := s.Catalog.AllAncestorScans(absPath)
	if err != nil {
		return nil // deletion already succeeded; catalog lookup failure is tolerated
	}

	var rewriteErrs []error
	for _, sc := range scans {
		if err := s.rewriteBlobAfterDelete(sc.ID, sc.Path, sc.Blob, absPath); err != nil {
			rewriteErrs = append(rewriteErrs, err)
		}
	}
	_ = rewriteErrs // discarded: rewrite failures are not reported and not fatal to Delete
	return nil
}

func (s *Service) rewriteBlobAfterDelete(scanID int64, scanRoot, blobPath, absPath string) error {
	tbl, err := scanblob.Read(blobPath)
	if err != nil {
		return fmt.Errorf("query: read blob %s for delete rewrite: %w", blobPath, err)
	}

	relDeleted := entry.RelativeTo(absPath, scanRoot)
	deletedParent := parentDirOf(relDeleted)

	var removedSize, removedNDesc int64
	var removedFound bool
	for i := 0; i < tbl.Len(); i++ {
		r := tbl.Row(i)
		if r.Path == relDeleted {
			removedSize, removedNDesc, removedFound = r.Size, r.NDesc, true
			break
		}
	}
	if !removedFound {
		return nil // this scan's blob never had the deleted path; nothing to rewrite
	}

	out := entry.New(tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		r := tbl.Row(i)
		if r.Path == relDeleted || entry.IsDescendant(relDeleted, r.Path) {
			continue // drop the deleted subtree itself
		}
		if entry.IsDescendant(r.Path, relDeleted) && r.Path != relDeleted {
			// an ancestor directory of the deleted path: subtract its stats
			r.Size -= removedSize
			r.NDesc -= removedNDesc
			if r.Path == deletedParent {
				// the direct parent loses exactly one child (spec.md §3
				// invariant 4: n_children = |children of d|)
				r.NChildren--
			}
		}
		out.Append(r)
	}
	out.Sort()

	newBlob, err := scanblob.Write(s.ScansDir, out)
	if err != nil {
		return fmt.Errorf("query: write rewritten blob: %w", err)
	}

	var rootSize, rootNDesc, rootNChildren int64
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		if r.Path == "." {
			rootSize, rootNDesc, rootNChildren = r.Size, r.NDesc, r.NChildren
			break
		}
	}
	if err := s.Catalog.UpdateScanBlobAndStats(scanID, newBlob, rootSize, rootNChildren, rootNDesc); err != nil {
		_ = scanblob.Remove(newBlob)
		return fmt.Errorf("query: update catalog after blob rewrite: %w", err)
	}

	s.Blobs.Invalidate(blobPath)
	return scanblob.Remove(blobPath)
}

// parentDirOf returns p's parent directory path within the same relative
// namespace entry.RelativeTo produces ("." is the fixed point at the root).
func parentDirOf(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[:idx]
	}
	return "."
}
