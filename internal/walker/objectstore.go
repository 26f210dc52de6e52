package walker

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/runsascoded/disk-tree/internal/entry"
)

// ObjectStoreWalker parses a recursive object-store listing (one line per
// key: "<date> <time> <size> <key>", spec.md §6) and synthesizes directory
// entries for every prefix observed, so each directory is emitted before its
// children (spec.md §4.1). Grounded on
// original_source/src/disk_tree/s3.py's parse_line/dirs/agg_dirs, translated
// from a pandas groupby pass to an explicit synthesis pass. Prefixes are
// emitted in key order as they are first seen, each after its own parent;
// the overall order is not breadth-first.
//
// Cloud credentials and the listing process invocation itself are explicit
// collaborators per spec.md §1 ("Cloud-provider credential handling and the
// object-store listing process invocation ... the core consumes a byte
// stream of listing lines") — ListCmd lets the caller supply that
// invocation; Walk only parses its stdout.
type ObjectStoreWalker struct {
	// ListCmd, when set, overrides the listing command (for tests/other
	// providers). Defaults to `aws s3 ls --recursive <bucket-and-prefix>`.
	ListCmd func(ctx context.Context, bucketURI string) *exec.Cmd
	// Timeout bounds the listing invocation (spec.md §5: 30s wall-clock).
	Timeout time.Duration
}

var lineRE = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})\s+(\d+)\s+(.*)$`)

// Walk enumerates an s3://bucket/prefix URI, emitting one entry.Row per key
// plus synthesized directory rows for every prefix.
func (w *ObjectStoreWalker) Walk(ctx context.Context, bucketURI string, out chan<- entry.Row, errs *ErrorCollector) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listCmd := w.ListCmd
	if listCmd == nil {
		listCmd = defaultListCmd
	}
	cmd := listCmd(ctx, bucketURI)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start listing: %w", err)
	}

	type fileKey struct {
		key   string
		size  int64
		mtime int64
	}
	var keys []fileKey
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			m := lineRE.FindStringSubmatch(line)
			if m == nil {
				continue // unrecognised line: skip silently (spec.md §7 kind 3)
			}
			if strings.HasSuffix(m[4], "/") {
				continue // directory marker, suppressed from the file stream (spec.md §6)
			}
			size, err := strconv.ParseInt(m[3], 10, 64)
			if err != nil {
				continue
			}
			mtime, err := parseListingTime(m[1], m[2])
			if err != nil {
				continue
			}
			keys = append(keys, fileKey{key: m[4], size: size, mtime: mtime})
		}
	}()

	var stderrLines []string
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			stderrLines = append(stderrLines, sc.Text())
		}
	}()

	<-done
	<-stderrDone
	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("object-store listing timed out after %s: %w", timeout, ctx.Err())
	}
	if waitErr != nil {
		return fmt.Errorf("object-store listing failed: %w (%s)", waitErr, strings.Join(stderrLines, "; "))
	}

	if len(keys) == 0 {
		// Empty bucket: emit a single synthetic root (spec.md §4.1, §8 scenario 6).
		out <- entry.Row{Path: ".", Parent: "", URI: bucketURI, Kind: entry.Dir, Size: 0, NDesc: 1}
		return nil
	}

	// Synthesize directory prefixes, emitting each directory's ancestors
	// first so each directory is emitted before its children.
	seenDirs := map[string]bool{".": true}
	out <- entry.Row{Path: ".", Parent: "", URI: bucketURI, Kind: entry.Dir, NDesc: 1}

	var emitDirs func(path string)
	emitDirs = func(path string) {
		if path == "" || path == "." || seenDirs[path] {
			return
		}
		parent := "."
		if idx := strings.LastIndex(path, "/"); idx >= 0 {
			parent = path[:idx]
		}
		emitDirs(parent)
		seenDirs[path] = true
		out <- entry.Row{
			Path:   path,
			Parent: parent,
			URI:    strings.TrimSuffix(bucketURI, "/") + "/" + path,
			Kind:   entry.Dir,
			NDesc:  1,
		}
	}

	for _, k := range keys {
		rel := strings.TrimPrefix(k.key, "/")
		parent := "."
		if idx := strings.LastIndex(rel, "/"); idx >= 0 {
			parent = rel[:idx]
			emitDirs(parent)
		}
		out <- entry.Row{
			Path:   rel,
			Parent: parent,
			URI:    strings.TrimSuffix(bucketURI, "/") + "/" + rel,
			Kind:   entry.File,
			Size:   k.size,
			MTime:  k.mtime,
			NDesc:  1,
		}
	}
	return nil
}

func parseListingTime(date, clock string) (int64, error) {
	t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func defaultListCmd(ctx context.Context, bucketURI string) *exec.Cmd {
	bucket := strings.TrimPrefix(bucketURI, "s3://")
	return exec.CommandContext(ctx, "aws", "s3", "ls", "--recursive", "s3://"+bucket)
}
