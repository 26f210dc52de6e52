package entry

import "testing"

func TestDepth(t *testing.T) {
	cases := map[string]int64{
		".":     0,
		"":      0,
		"a":     1,
		"a/b":   2,
		"a/b/c": 3,
	}
	for path, want := range cases {
		if got := Depth(path); got != want {
			t.Errorf("Depth(%q) = %d, want %d", path, got, want)
		}
	}
}

func TestIsDescendant(t *testing.T) {
	cases := []struct {
		ancestor, child string
		want            bool
	}{
		{"a/b", "a/b/c", true},
		{"a/b", "a/b", true},
		{"a/b", "a/bc", false}, // spec.md §9: string-prefix bug this must avoid
		{".", "anything", true},
		{"a", "b", false},
	}
	for _, c := range cases {
		if got := IsDescendant(c.ancestor, c.child); got != c.want {
			t.Errorf("IsDescendant(%q, %q) = %v, want %v", c.ancestor, c.child, got, c.want)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	if got := RelativeTo("a/b", "a/b"); got != "." {
		t.Errorf("RelativeTo root = %q, want .", got)
	}
	if got := RelativeTo("a/b/c", "a/b"); got != "c" {
		t.Errorf("RelativeTo child = %q, want c", got)
	}
}

func TestSortAndDepthSlice(t *testing.T) {
	tbl := New(4)
	tbl.Append(Row{Path: "a/b", Depth: 2})
	tbl.Append(Row{Path: ".", Depth: 0})
	tbl.Append(Row{Path: "a", Depth: 1})
	tbl.Append(Row{Path: "b", Depth: 1})
	tbl.Sort()

	want := []string{".", "a", "b", "a/b"}
	for i, w := range want {
		if tbl.Path[i] != w {
			t.Fatalf("row %d = %q, want %q (full order %v)", i, tbl.Path[i], w, tbl.Path)
		}
	}

	lo, hi := tbl.DepthSlice(1, 1)
	if hi-lo != 2 {
		t.Fatalf("DepthSlice(1,1) = [%d,%d), want 2 rows", lo, hi)
	}
}

func TestCheckInvariantsCatchesBadRollup(t *testing.T) {
	tbl := New(2)
	tbl.Append(Row{Path: ".", Parent: "", Kind: Dir, Size: 100, NDesc: 2, NChildren: 1, Depth: 0})
	tbl.Append(Row{Path: "a", Parent: ".", Kind: File, Size: 5, NDesc: 1, NChildren: 0, Depth: 1})
	if errs := tbl.CheckInvariants(); len(errs) == 0 {
		t.Fatal("expected invariant violation for mismatched root size, got none")
	}
}
