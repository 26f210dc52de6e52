package query

import (
	"context"
	"fmt"

	"github.com/runsascoded/disk-tree/internal/entry"
)

// synthesize implements spec.md §4.6.2's synthesis mode: no catalogued scan
// covers uri, so its children are listed live and merged with any
// descendant scans found under them.
func (s *Service) synthesize(ctx context.Context, uri string, maxRows int) (*GetScanResponse, error) {
	if s.Lister == nil {
		return nil, fmt.Errorf("%w: %q is not covered by any scan", ErrNotFound, uri)
	}

	children, err := s.Lister.ListChildren(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", ErrNotFound, uri, err)
	}

	var rootSize, rootNDesc int64
	var rootMTime int64
	rows := make([]RowView, 0, len(children)+1)

	for _, c := range children {
		childURI := uri + "/" + c.Name
		kind := entry.File
		if c.IsDir {
			kind = entry.Dir
		}

		row := entry.Row{
			Path: c.Name, Parent: ".", URI: childURI, Kind: kind,
			Size: c.Size, MTime: c.MTime, NDesc: 1, Depth: 1,
		}
		scanned := "false"

		if sc, ok, err := s.Catalog.MostRecentForPath(childURI); err != nil {
			return nil, err
		} else if ok {
			scanned = "true"
			row.Size, row.NDesc, row.NChildren = sc.Size, sc.NDesc, sc.NChildren
			rootSize += row.Size
			rootNDesc += row.NDesc
		} else if c.IsDir {
			descendants, err := s.Catalog.DescendantScans(childURI)
			if err != nil {
				return nil, err
			}
			if len(descendants) > 0 {
				scanned = "partial"
			}
		}
		if row.MTime > rootMTime {
			rootMTime = row.MTime
		}
		rows = append(rows, RowView{Row: row, Scanned: scanned})
	}

	root := RowView{
		Row: entry.Row{
			Path: ".", Parent: "", URI: uri, Kind: entry.Dir,
			Size: rootSize, NDesc: rootNDesc + 1, NChildren: int64(len(children)), MTime: rootMTime,
		},
		Scanned: "false",
	}
	all := append([]RowView{root}, rows...)

	capped, truncated := capRows(all, maxRows)
	return &GetScanResponse{
		Root:        root,
		Rows:        capped,
		Synthesized: true,
		Truncated:   truncated,
	}, nil
}
