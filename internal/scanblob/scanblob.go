// Package scanblob persists one scan's entry.Table to a single file on disk
// and reads it back with depth-bounded predicate pushdown, without needing a
// columnar file format. Grounded on dupedog/internal/cache/cache.go: same
// go.etcd.io/bbolt engine, same write-to-temp-then-atomic-rename lifecycle,
// repurposed from a rolling content-hash cache to a durable scan blob.
//
// Standard-library/no-Parquet justification: no Parquet, Arrow, or other
// columnar-file library appears anywhere in the retrieval pack (checked via
// grep -ril parquet/arrow across every complete repo and other_examples/
// file); bbolt substitutes, since it is already a real pack dependency used
// for a structurally similar role (a small persisted binary file opened
// read-mostly with range reads). See SPEC_FULL.md §4.3.
package scanblob

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/runsascoded/disk-tree/internal/entry"
)

const bucketName = "entries"

// record is the gob-encoded bbolt value for one row. Path and Depth are not
// repeated here: Path is reconstructible from the bucket key, and Depth is
// encoded directly in the key's prefix, so both live only in the key.
//
// encoding/gob is used rather than a third-party serialization library:
// protobuf/msgpack appear in the pack only as transitive dependencies of
// unrelated gRPC/RPC transports (e.g. via upspin-upspin's protobuf-based
// wire protocol), never as a local single-process KV encoding, so there is
// no grounded third-party choice for this narrow internal use.
type record struct {
	Parent    string
	URI       string
	Kind      entry.Kind
	Size      int64
	MTime     int64
	NDesc     int64
	NChildren int64
}

// key returns the sort-ordered bbolt key for a row: a 2-byte big-endian
// depth prefix followed by the path, so bolt's natural byte-ordered cursor
// walk yields rows in (depth, path) order -- exactly the contiguous-prefix
// property spec.md §9 relies on for depth-bounded-slice pushdown.
func key(depth int64, path string) []byte {
	buf := make([]byte, 2+len(path))
	binary.BigEndian.PutUint16(buf, uint16(depth))
	copy(buf[2:], path)
	return buf
}

// Write persists tbl to a new blob file under dir, named with a random
// UUID, and returns its path. The file is written under a temporary name
// and renamed into place once closed cleanly, so a reader never observes a
// partially-written blob (same atomicity contract as dupedog's cache.Close).
func Write(dir string, tbl *entry.Table) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scanblob: create dir: %w", err)
	}

	final := filepath.Join(dir, uuid.NewString()+".blob")
	tmp := final + ".tmp"

	db, err := bolt.Open(tmp, 0o600, nil)
	if err != nil {
		return "", fmt.Errorf("scanblob: open %s: %w", tmp, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		for i := 0; i < tbl.Len(); i++ {
			r := tbl.Row(i)
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(record{
				Parent: r.Parent, URI: r.URI, Kind: r.Kind,
				Size: r.Size, MTime: r.MTime, NDesc: r.NDesc, NChildren: r.NChildren,
			}); err != nil {
				return err
			}
			if err := b.Put(key(r.Depth, r.Path), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("scanblob: write: %w", err)
	}

	if err := db.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("scanblob: close: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("scanblob: rename into place: %w", err)
	}
	return final, nil
}

// Read opens path read-only and returns every row, sorted (depth, path) as
// guaranteed by the key scheme.
func Read(path string) (*entry.Table, error) {
	return ReadDepthRange(path, 0, maxDepth)
}

const maxDepth = int64(1<<16 - 1)

// ReadDepthRange opens path and returns only rows with minDepth <= depth <=
// maxDepth, using a bolt Cursor.Seek per depth level for true predicate
// pushdown -- the blob is never fully deserialized to satisfy a bounded
// query (spec.md §9's "ScanBlob reads should support depth-bounded slice
// pushdown").
func ReadDepthRange(path string, minDepth, maxD int64) (*entry.Table, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("scanblob: open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	tbl := entry.New(0)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for d := minDepth; d <= maxD; d++ {
			prefix := make([]byte, 2)
			binary.BigEndian.PutUint16(prefix, uint16(d))
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				p := string(k[2:])
				var rec record
				if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
					return fmt.Errorf("decode row %q: %w", p, err)
				}
				tbl.Append(entry.Row{
					Path: p, Parent: rec.Parent, URI: rec.URI, Kind: rec.Kind,
					Size: rec.Size, MTime: rec.MTime, NDesc: rec.NDesc,
					NChildren: rec.NChildren, Depth: d,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

// ReadPaths opens path and returns only the rows named, regardless of
// depth -- used to resolve a handful of ancestor rows (spec.md §4.5's
// ancestor-scan resolution). It iterates over every key but decodes only
// the rows named.
func ReadPaths(path string, paths []string) (*entry.Table, error) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("scanblob: open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	tbl := entry.New(len(paths))
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			p := string(k[2:])
			if !want[p] {
				return nil
			}
			d := int64(binary.BigEndian.Uint16(k[:2]))
			var rec record
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return fmt.Errorf("decode row %q: %w", p, err)
			}
			tbl.Append(entry.Row{
				Path: p, Parent: rec.Parent, URI: rec.URI, Kind: rec.Kind,
				Size: rec.Size, MTime: rec.MTime, NDesc: rec.NDesc,
				NChildren: rec.NChildren, Depth: d,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	tbl.Sort()
	return tbl, nil
}

// Migrate reads oldPath with the current depth-prefixed key scheme and
// writes its rows to a new blob under dir, leaving the original file
// untouched. It does not convert any other key layout: a blob whose keys
// lack the 2-byte depth prefix is not re-keyed. Scan catalogs referencing
// the old path are expected to be updated by the caller once Migrate
// succeeds.
func Migrate(oldPath, dir string) (newPath string, err error) {
	tbl, err := Read(oldPath)
	if err != nil {
		return "", fmt.Errorf("scanblob: migrate read %s: %w", oldPath, err)
	}
	return Write(dir, tbl)
}

// Remove deletes the blob file at path. Tolerant of an already-missing
// file, since GC and delete paths may race with a prior cleanup.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scanblob: remove %s: %w", path, err)
	}
	return nil
}
