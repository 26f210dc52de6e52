// Package gc removes superseded scan blobs and catalog rows, per spec.md
// §4.7: given a path and a cutoff time, every catalog row for that path
// older than the cutoff is deleted, and its blob file unlinked.
package gc

import (
	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/scanblob"
)

// Service runs garbage collection against a Catalog.
type Service struct {
	Catalog *catalog.Catalog
}

// New wraps cat for GC operations.
func New(cat *catalog.Catalog) *Service {
	return &Service{Catalog: cat}
}

// Collect deletes every scan row for path older than cutoff and unlinks its
// blob file. Idempotent and safe to interrupt: a missing blob is ignored,
// and the catalog row is removed in the same pass it's resolved in, so a
// re-run after a partial failure only ever has fewer rows left to process.
func (s *Service) Collect(path string, cutoff int64) (removed int, err error) {
	blobs, err := s.Catalog.BlobsForPathBefore(path, cutoff)
	if err != nil {
		return 0, err
	}

	if _, err := s.Catalog.DeleteScansForPath(path, cutoff); err != nil {
		return 0, err
	}

	for _, blob := range blobs {
		if err := scanblob.Remove(blob); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
