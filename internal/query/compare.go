package query

import (
	"fmt"
	"sort"

	"github.com/runsascoded/disk-tree/internal/entry"
)

// CompareRowStatus tags each child in a Compare result (spec.md §4.6.4 and
// §9's "tagged compare.RowStatus variant").
type CompareRowStatus string

const (
	Added     CompareRowStatus = "added"
	Removed   CompareRowStatus = "removed"
	Changed   CompareRowStatus = "changed"
	Unchanged CompareRowStatus = "unchanged"
)

// CompareRow is one child's comparison between two scans.
type CompareRow struct {
	Name        string
	URI         string
	Status      CompareRowStatus
	SizeOld     int64
	SizeNew     int64
	SizeDelta   int64
	NDescOld    int64
	NDescNew    int64
	NDescDelta  int64
}

// CompareResponse is the full diff payload.
type CompareResponse struct {
	URI         string
	Rows        []CompareRow
	AddedCount  int
	RemovedCount int
	ChangedCount int
	TotalDelta  int64
}

const defaultCompareDepth = 1

// Compare diffs the children of uri between scan1 and scan2 (spec.md
// §4.6.4). This operation has no counterpart in the retrieved server.py
// snapshot; it is built fresh from the contract, reusing get-scan's
// ancestor-resolution and relative-path machinery.
func (s *Service) Compare(uri string, scan1ID, scan2ID int64, depth int) (*CompareResponse, error) {
	if depth <= 0 {
		depth = defaultCompareDepth
	}
	cacheKey := fmt.Sprintf("compare:%s:%d:%d:%d", uri, scan1ID, scan2ID, depth)
	if cached, ok := s.responses.Get(cacheKey); ok {
		return cached.(*CompareResponse), nil
	}

	rows1, err := s.childrenAt(scan1ID, uri, depth)
	if err != nil {
		return nil, err
	}
	rows2, err := s.childrenAt(scan2ID, uri, depth)
	if err != nil {
		return nil, err
	}

	out := &CompareResponse{URI: uri}
	for name, r2 := range rows2 {
		r1, existed := rows1[name]
		if !existed {
			out.Rows = append(out.Rows, CompareRow{
				Name: name, URI: uri + "/" + name, Status: Added,
				SizeNew: r2.Size, NDescNew: r2.NDesc,
				SizeDelta: r2.Size, NDescDelta: r2.NDesc,
			})
			out.AddedCount++
			out.TotalDelta += r2.Size
			continue
		}
		status := Unchanged
		if r2.Size != r1.Size || r2.NDesc != r1.NDesc {
			status = Changed
			out.ChangedCount++
		}
		out.Rows = append(out.Rows, CompareRow{
			Name: name, URI: uri + "/" + name, Status: status,
			SizeOld: r1.Size, SizeNew: r2.Size, SizeDelta: r2.Size - r1.Size,
			NDescOld: r1.NDesc, NDescNew: r2.NDesc, NDescDelta: r2.NDesc - r1.NDesc,
		})
		out.TotalDelta += r2.Size - r1.Size
	}
	for name, r1 := range rows1 {
		if _, stillPresent := rows2[name]; stillPresent {
			continue
		}
		out.Rows = append(out.Rows, CompareRow{
			Name: name, URI: uri + "/" + name, Status: Removed,
			SizeOld: r1.Size, NDescOld: r1.NDesc,
			SizeDelta: -r1.Size, NDescDelta: -r1.NDesc,
		})
		out.RemovedCount++
		out.TotalDelta -= r1.Size
	}

	sort.Slice(out.Rows, func(i, j int) bool {
		return abs64(out.Rows[i].SizeDelta) > abs64(out.Rows[j].SizeDelta)
	})

	s.responses.Add(cacheKey, out)
	return out, nil
}

// childrenAt loads, for a single scan, the direct children of uri at
// exactly depth_offset+depth (a single-level read using both min and max
// depth bounds, avoiding a full decode), keyed by child name.
func (s *Service) childrenAt(scanID int64, uri string, depth int) (map[string]entry.Row, error) {
	sc, err := s.Catalog.GetScanByID(scanID)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %d: %v", ErrNotFound, scanID, err)
	}
	if sc.Path != uri && !entry.IsDescendant(sc.Path, uri) {
		return nil, fmt.Errorf("%w: scan %d root %q does not cover %q", ErrBadRequest, scanID, sc.Path, uri)
	}

	relRoot := entry.RelativeTo(uri, sc.Path)
	viewedDepth := entry.Depth(relRoot)
	childDepth := viewedDepth + int64(depth)

	tbl, err := s.Blobs.Get(sc.Blob, childDepth, childDepth)
	if err != nil {
		return nil, fmt.Errorf("query: load blob %s: %w", sc.Blob, err)
	}

	out := map[string]entry.Row{}
	for i := 0; i < tbl.Len(); i++ {
		r := tbl.Row(i)
		if !isDirectChildOf(r.Parent, relRoot) {
			continue
		}
		name := entry.RelativeTo(r.Path, relRoot)
		out[name] = r
	}
	return out, nil
}

// isDirectChildOf reports whether parent names a direct child of relRoot in
// the blob's raw (un-normalised) rows. At the scan's own root (relRoot ==
// "."), the historical asymmetry applies: direct-child files carry
// parent="" and direct-child directories carry parent="." (spec.md §3,
// §9), both of which getscan.go's normalizeSubtree also treats as "root's
// direct child". Below the scan root, a directory's children always carry
// its own relative path as parent, with no such asymmetry.
func isDirectChildOf(parent, relRoot string) bool {
	if relRoot == "." {
		return parent == "." || parent == ""
	}
	return parent == relRoot
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
