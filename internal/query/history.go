package query

import (
	"fmt"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/entry"
)

// HistoryEntry is one scan-history result: a scan plus the stats of the
// requested subpath within it (spec.md §4.6.3 -- "path" is the scan root,
// "scan_path" is the requested uri, possibly a descendant of the root).
type HistoryEntry struct {
	catalog.Scan
	ScanPath  string
	Size      int64
	NDesc     int64
	NChildren int64
	MTime     int64
}

// ScanHistory returns every scan whose root is uri or an ancestor of uri,
// each carrying the stats for uri specifically (extracted by loading the
// single matching row out of the scan's blob), newest first.
func (s *Service) ScanHistory(uri string) ([]HistoryEntry, error) {
	scans, err := s.Catalog.History(uri)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(scans))
	for _, sc := range scans {
		rel := entry.RelativeTo(uri, sc.Path)
		depth := entry.Depth(rel)

		tbl, err := s.Blobs.Get(sc.Blob, depth, depth)
		if err != nil {
			return nil, fmt.Errorf("query: scan history load %s: %w", sc.Blob, err)
		}

		he := HistoryEntry{Scan: sc, ScanPath: uri}
		for i := 0; i < tbl.Len(); i++ {
			r := tbl.Row(i)
			if r.Path == rel {
				he.Size, he.NDesc, he.NChildren, he.MTime = r.Size, r.NDesc, r.NChildren, r.MTime
				break
			}
		}
		out = append(out, he)
	}
	return out, nil
}
