package walker

import (
	"context"
	"os/exec"
	"testing"

	"github.com/runsascoded/disk-tree/internal/entry"
)

func fakeListCmd(lines string) func(ctx context.Context, bucketURI string) *exec.Cmd {
	return func(ctx context.Context, bucketURI string) *exec.Cmd {
		return exec.CommandContext(ctx, "printf", "%s", lines)
	}
}

func TestObjectStoreWalkerSynthesizesDirs(t *testing.T) {
	lines := "2024-01-01 10:00:00 100 a/b/c.txt\n2024-01-01 10:00:01 200 a/d.txt\n"
	w := &ObjectStoreWalker{ListCmd: fakeListCmd(lines)}
	out := make(chan entry.Row, 100)
	errs := NewErrorCollector(0)

	if err := w.Walk(context.Background(), "s3://bucket", out, errs); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	close(out)

	rows := map[string]entry.Row{}
	for r := range out {
		rows[r.Path] = r
	}

	for _, want := range []string{".", "a", "a/b", "a/b/c.txt", "a/d.txt"} {
		if _, ok := rows[want]; !ok {
			t.Errorf("missing synthesized row %q, got %v", want, rows)
		}
	}
	if rows["a/b/c.txt"].Size != 100 {
		t.Errorf("size mismatch: %+v", rows["a/b/c.txt"])
	}
}

func TestObjectStoreWalkerEmptyBucket(t *testing.T) {
	w := &ObjectStoreWalker{ListCmd: fakeListCmd("")}
	out := make(chan entry.Row, 10)
	errs := NewErrorCollector(0)

	if err := w.Walk(context.Background(), "s3://empty-bucket", out, errs); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	close(out)

	var rows []entry.Row
	for r := range out {
		rows = append(rows, r)
	}
	if len(rows) != 1 || rows[0].Path != "." || rows[0].Size != 0 {
		t.Fatalf("expected single synthetic root row, got %+v", rows)
	}
}

func TestObjectStoreWalkerSkipsDirMarkers(t *testing.T) {
	lines := "2024-01-01 10:00:00 0 a/\n2024-01-01 10:00:01 5 a/f.txt\n"
	w := &ObjectStoreWalker{ListCmd: fakeListCmd(lines)}
	out := make(chan entry.Row, 10)
	errs := NewErrorCollector(0)
	if err := w.Walk(context.Background(), "s3://bucket", out, errs); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	close(out)
	for r := range out {
		if r.Path == "a" && r.Kind != entry.Dir {
			t.Fatalf("expected synthesized dir for 'a', not a file marker row")
		}
	}
}
