// Package entry defines the columnar representation of a scan: one row per
// file, directory, or object-store key, laid out as struct-of-slices rather
// than a heterogeneous map so the rest of the core never materialises rows
// as dynamic records (spec.md §9, "dynamic attribute access").
package entry

import "strings"

// Kind distinguishes files from directories (spec.md §3).
type Kind uint8

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

// Row is a single materialised entry, used only at package boundaries
// (walker output, query responses) — never as the internal storage shape.
type Row struct {
	Path      string
	Parent    string
	URI       string
	Kind      Kind
	Size      int64
	MTime     int64
	NDesc     int64
	NChildren int64
	Depth     int64
}

// Table is the columnar storage for one scan: parallel slices indexed by
// row number. Rows are expected to be sorted (Depth ASC, Path ASC) once
// Sort is called, satisfying spec.md §3 invariant 5.
type Table struct {
	Path      []string
	Parent    []string
	URI       []string
	Kind      []Kind
	Size      []int64
	MTime     []int64
	NDesc     []int64
	NChildren []int64
	Depth     []int64
}

// New returns an empty table pre-sized for n rows.
func New(n int) *Table {
	return &Table{
		Path:      make([]string, 0, n),
		Parent:    make([]string, 0, n),
		URI:       make([]string, 0, n),
		Kind:      make([]Kind, 0, n),
		Size:      make([]int64, 0, n),
		MTime:     make([]int64, 0, n),
		NDesc:     make([]int64, 0, n),
		NChildren: make([]int64, 0, n),
		Depth:     make([]int64, 0, n),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Path) }

// Append adds a row to the end of the table.
func (t *Table) Append(r Row) {
	t.Path = append(t.Path, r.Path)
	t.Parent = append(t.Parent, r.Parent)
	t.URI = append(t.URI, r.URI)
	t.Kind = append(t.Kind, r.Kind)
	t.Size = append(t.Size, r.Size)
	t.MTime = append(t.MTime, r.MTime)
	t.NDesc = append(t.NDesc, r.NDesc)
	t.NChildren = append(t.NChildren, r.NChildren)
	t.Depth = append(t.Depth, r.Depth)
}

// Row materialises row i as a Row value.
func (t *Table) Row(i int) Row {
	return Row{
		Path:      t.Path[i],
		Parent:    t.Parent[i],
		URI:       t.URI[i],
		Kind:      t.Kind[i],
		Size:      t.Size[i],
		MTime:     t.MTime[i],
		NDesc:     t.NDesc[i],
		NChildren: t.NChildren[i],
		Depth:     t.Depth[i],
	}
}

// Depth computes the depth of a relative path: "." is 0, "a" is 1, "a/b" is 2.
// Stored explicitly on rows so the blob layer can filter without decoding
// paths (spec.md §3).
func Depth(path string) int64 {
	if path == "" || path == "." {
		return 0
	}
	return int64(strings.Count(path, "/")) + 1
}

// IsDescendant reports whether child is path-component-wise a descendant of
// (or equal to) ancestor. This replaces the source's raw string-prefix
// matching, which spec.md §9 notes as buggy (e.g. "a/b" vs "a/bc" false
// positive) — comparison is always done component-wise.
func IsDescendant(ancestor, child string) bool {
	if ancestor == "" || ancestor == "." {
		return true
	}
	if child == ancestor {
		return true
	}
	return strings.HasPrefix(child, ancestor+"/")
}

// RelativeTo rewrites an absolute-within-scan path to be relative to a new
// root. The row at newRoot becomes ".", a direct child "newRoot/x" becomes
// "x", etc. Used when a query's viewed URI is a proper descendant of the
// scan root (spec.md §4.6.2 "Otherwise the scan is a proper ancestor").
func RelativeTo(path, newRoot string) string {
	if path == newRoot {
		return "."
	}
	prefix := newRoot
	if prefix != "" {
		prefix += "/"
	}
	if strings.HasPrefix(path, prefix) {
		return path[len(prefix):]
	}
	return path
}
