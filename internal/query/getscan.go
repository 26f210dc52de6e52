package query

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/runsascoded/disk-tree/internal/catalog"
	"github.com/runsascoded/disk-tree/internal/entry"
)

const (
	defaultDepth   = 2
	defaultMaxRows = 1000
)

// GetScanRequest is the input to GetScan (spec.md §4.6.2).
type GetScanRequest struct {
	URI     string
	ScanID  *int64 // optional; pins resolution to a specific scan
	Depth   int    // 0 means defaultDepth
	MaxRows int    // 0 means defaultMaxRows
}

// RowView is one output row: the entry plus synthesis/patch annotations
// that only apply to a GetScan response, never stored on the table itself.
type RowView struct {
	entry.Row
	Scanned string // "true" | "partial" | "false"; empty outside synthesis mode
	Patched bool
}

// GetScanResponse is the full payload for a subtree view.
type GetScanResponse struct {
	Root        RowView
	Rows        []RowView
	ErrorCount  int64
	ErrorPaths  []string
	Synthesized bool
	Truncated   bool // true if Rows was row-capped
}

// GetScan resolves uri to a scan (or synthesizes a view from live listing),
// applies fresher-child patching, and row-caps the result -- the central
// operation of spec.md §4.6.2.
func (s *Service) GetScan(ctx context.Context, req GetScanRequest) (*GetScanResponse, error) {
	if req.URI == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrBadRequest)
	}
	depth := req.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	sc, ok, err := s.resolveScan(req.URI, req.ScanID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.synthesize(ctx, req.URI, maxRows)
	}
	return s.fromScan(sc, req.URI, depth, maxRows)
}

// resolveScan implements step 1-2 of spec.md §4.6.2: an explicit scan_id
// must have uri as its root or a descendant of it; otherwise fall back to
// ancestor search.
func (s *Service) resolveScan(uri string, scanID *int64) (catalog.Scan, bool, error) {
	if scanID != nil {
		sc, err := s.Catalog.GetScanByID(*scanID)
		if err != nil {
			return catalog.Scan{}, false, fmt.Errorf("%w: scan %d: %v", ErrNotFound, *scanID, err)
		}
		if sc.Path != uri && !entry.IsDescendant(sc.Path, uri) {
			return catalog.Scan{}, false, fmt.Errorf("%w: scan %d root %q does not cover %q", ErrBadRequest, *scanID, sc.Path, uri)
		}
		return sc, true, nil
	}
	return s.Catalog.AncestorScan(uri)
}

// fromScan builds the response from a real, covering scan (spec.md
// §4.6.2's "Slice construction from a real scan").
func (s *Service) fromScan(sc catalog.Scan, uri string, depth, maxRows int) (*GetScanResponse, error) {
	relRoot := entry.RelativeTo(uri, sc.Path)
	viewedDepth := entry.Depth(relRoot)

	raw, err := s.Blobs.Get(sc.Blob, viewedDepth, viewedDepth+int64(depth))
	if err != nil {
		return nil, fmt.Errorf("query: load blob %s: %w", sc.Blob, err)
	}

	tbl := normalizeSubtree(raw, relRoot)
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("%w: %q not present in scan rooted at %q", ErrNotFound, uri, sc.Path)
	}

	views := make([]RowView, tbl.Len())
	var root RowView
	byPath := make(map[string]int, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		views[i] = RowView{Row: tbl.Row(i)}
		byPath[views[i].Path] = i
		if views[i].Path == "." {
			root = views[i]
		}
	}

	if err := s.patchFresherChildren(sc, uri, views, byPath); err != nil {
		return nil, err
	}

	rows, truncated := capRows(views, maxRows)

	return &GetScanResponse{
		Root:       root,
		Rows:       rows,
		ErrorCount: sc.ErrorCount,
		ErrorPaths: sc.ErrorPaths,
		Truncated:  truncated,
	}, nil
}

// patchFresherChildren implements "Fresher-child patching" (spec.md
// §4.6.2): direct children of uri with a strictly newer scan of their own
// have their stats replaced by that scan's denormalised root stats.
func (s *Service) patchFresherChildren(sc catalog.Scan, uri string, views []RowView, byPath map[string]int) error {
	fresher, err := s.Catalog.DirectChildScansAfter(uri, sc.Time)
	if err != nil {
		return err
	}
	for _, child := range fresher {
		name := entry.RelativeTo(child.Path, uri)
		idx, ok := byPath[name]
		if !ok || entry.Depth(views[idx].Path) != 1 {
			continue // not a direct child of the viewed root; non-transitive per spec
		}
		views[idx].Size = child.Size
		views[idx].NDesc = child.NDesc
		views[idx].NChildren = child.NChildren
		views[idx].Patched = true
	}
	return nil
}

// otherName is the synthetic sibling name a trimmed parent's dropped
// children are rolled into (spec.md's stated preference, §9 "Open
// questions").
const otherName = "other"

// capRows implements the row cap (spec.md §4.6.2): keep the largest
// maxRows rows by size, then re-include every ancestor of a kept row so
// the client's treemap never has a dangling parent. Every trimmed row
// whose parent survived is then rolled up into a synthetic "other" row
// under that parent, so a parent's children still sum to its own size
// instead of silently dropping mass. The root row is always kept.
func capRows(views []RowView, maxRows int) (rows []RowView, truncated bool) {
	if len(views) <= maxRows {
		return views, false
	}

	byPath := make(map[string]RowView, len(views))
	for _, v := range views {
		byPath[v.Path] = v
	}

	sorted := make([]RowView, len(views))
	copy(sorted, views)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })

	keep := make(map[string]bool, maxRows)
	keep["."] = true
	for i := 0; i < len(sorted) && len(keep) < maxRows; i++ {
		keep[sorted[i].Path] = true
	}
	// Re-include every ancestor of every kept row, walking a stable
	// snapshot of the initially-kept set (ancestors added along the way
	// don't themselves need re-walking beyond what the loop below covers).
	for p := range copyKeys(keep) {
		cur := p
		for cur != "." && cur != "" {
			parent := path.Dir(cur)
			if parent == "." || parent == "/" {
				parent = "."
			}
			if keep[parent] {
				break
			}
			keep[parent] = true
			cur = parent
		}
	}

	out := make([]RowView, 0, len(keep))
	for p := range keep {
		if v, ok := byPath[p]; ok {
			out = append(out, v)
		}
	}
	out = append(out, otherRows(views, keep)...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Path < out[j].Path
	})
	return out, true
}

// otherRows rolls every trimmed row whose parent is still kept into one
// synthetic "other" sibling per parent, summing size/descendant counts and
// taking the latest mtime, so the kept parent's children still account for
// its full size instead of silently losing the trimmed mass.
func otherRows(views []RowView, keep map[string]bool) []RowView {
	type bucket struct {
		size, nDesc, mtime int64
	}
	byParent := map[string]*bucket{}
	for _, v := range views {
		if keep[v.Path] || !keep[v.Parent] {
			continue
		}
		b, ok := byParent[v.Parent]
		if !ok {
			b = &bucket{}
			byParent[v.Parent] = b
		}
		b.size += v.Size
		b.nDesc += v.NDesc
		if v.MTime > b.mtime {
			b.mtime = v.MTime
		}
	}

	out := make([]RowView, 0, len(byParent))
	for parent, b := range byParent {
		otherPath := otherName
		if parent != "." && parent != "" {
			otherPath = parent + "/" + otherName
		}
		out = append(out, RowView{Row: entry.Row{
			Path: otherPath, Parent: parent, Kind: entry.File,
			Size: b.size, NDesc: b.nDesc, MTime: b.mtime,
			Depth: entry.Depth(otherPath),
		}})
	}
	return out
}

// copyKeys snapshots a map's keys so the ancestor-walk loop can mutate the
// original map while iterating a stable set.
func copyKeys(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// normalizeSubtree filters tbl to rows at or under relRoot and rewrites
// their Path/Parent to be relative to relRoot, per spec.md §4.6.2: "the row
// at uri becomes '.'; a direct child named x becomes 'x'". When relRoot is
// "." (viewing the scan's own root), every row passes through unchanged,
// which also correctly preserves the root-parent asymmetry (direct child
// files keep parent "").
func normalizeSubtree(tbl *entry.Table, relRoot string) *entry.Table {
	out := entry.New(tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		r := tbl.Row(i)
		if r.Path != relRoot && !entry.IsDescendant(relRoot, r.Path) {
			continue
		}
		newPath := entry.RelativeTo(r.Path, relRoot)
		newParent := r.Parent
		if r.Path == relRoot {
			newParent = ""
		} else if r.Parent == relRoot {
			newParent = "."
		} else {
			newParent = entry.RelativeTo(r.Parent, relRoot)
		}
		out.Append(entry.Row{
			Path: newPath, Parent: newParent, URI: r.URI, Kind: r.Kind,
			Size: r.Size, MTime: r.MTime, NDesc: r.NDesc, NChildren: r.NChildren,
			Depth: entry.Depth(newPath),
		})
	}
	out.Sort()
	return out
}
