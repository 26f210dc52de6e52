package entry

import "sort"

// Sort orders the table by (depth ASC, path ASC), satisfying spec.md §3
// invariant 5: a depth-bounded slice is then a contiguous prefix of rows.
func (t *Table) Sort() {
	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if t.Depth[ia] != t.Depth[ib] {
			return t.Depth[ia] < t.Depth[ib]
		}
		return t.Path[ia] < t.Path[ib]
	})
	t.reorder(idx)
}

// reorder permutes every column according to idx (idx[i] = old position of
// new row i).
func (t *Table) reorder(idx []int) {
	n := len(idx)
	path := make([]string, n)
	parent := make([]string, n)
	uri := make([]string, n)
	kind := make([]Kind, n)
	size := make([]int64, n)
	mtime := make([]int64, n)
	nDesc := make([]int64, n)
	nChildren := make([]int64, n)
	depth := make([]int64, n)
	for i, j := range idx {
		path[i] = t.Path[j]
		parent[i] = t.Parent[j]
		uri[i] = t.URI[j]
		kind[i] = t.Kind[j]
		size[i] = t.Size[j]
		mtime[i] = t.MTime[j]
		nDesc[i] = t.NDesc[j]
		nChildren[i] = t.NChildren[j]
		depth[i] = t.Depth[j]
	}
	t.Path, t.Parent, t.URI, t.Kind = path, parent, uri, kind
	t.Size, t.MTime, t.NDesc, t.NChildren, t.Depth = size, mtime, nDesc, nChildren, depth
}

// DepthSlice returns the contiguous index range [lo, hi) of rows whose depth
// lies in [minDepth, maxDepth], assuming the table is sorted per Sort.
// This is the in-memory analogue of the blob layer's predicate pushdown.
func (t *Table) DepthSlice(minDepth, maxDepth int64) (lo, hi int) {
	n := t.Len()
	lo = sort.Search(n, func(i int) bool { return t.Depth[i] >= minDepth })
	hi = sort.Search(n, func(i int) bool { return t.Depth[i] > maxDepth })
	return lo, hi
}

// CheckInvariants validates spec.md §8's quantified invariants against a
// fully-built table. Used by tests.
func (t *Table) CheckInvariants() []error {
	var errs []error
	rootCount := 0
	byPath := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		byPath[t.Path[i]] = i
		if t.Path[i] == "." {
			rootCount++
			if t.Parent[i] != "" {
				errs = append(errs, errInvariant("root parent must be empty, got %q", t.Parent[i]))
			}
		}
	}
	if rootCount != 1 {
		errs = append(errs, errInvariant("expected exactly one root row, found %d", rootCount))
	}

	children := make(map[string][]int)
	for i := 0; i < t.Len(); i++ {
		if t.Path[i] == "." {
			continue
		}
		p := t.Parent[i]
		if p == "" {
			p = "." // files directly under the root carry parent ""
		}
		children[p] = append(children[p], i)
	}

	for i := 0; i < t.Len(); i++ {
		if t.Kind[i] != Dir {
			continue
		}
		kids := children[t.Path[i]]
		var size, nDesc, maxMTime int64
		for _, c := range kids {
			size += t.Size[c]
			nDesc += t.NDesc[c]
			if t.MTime[c] > maxMTime {
				maxMTime = t.MTime[c]
			}
		}
		nDesc++
		if t.Size[i] != size {
			errs = append(errs, errInvariant("dir %q: size=%d, sum(children)=%d", t.Path[i], t.Size[i], size))
		}
		if t.NDesc[i] != nDesc {
			errs = append(errs, errInvariant("dir %q: n_desc=%d, expected=%d", t.Path[i], t.NDesc[i], nDesc))
		}
		if t.NChildren[i] != int64(len(kids)) {
			errs = append(errs, errInvariant("dir %q: n_children=%d, expected=%d", t.Path[i], t.NChildren[i], len(kids)))
		}
	}
	return errs
}
