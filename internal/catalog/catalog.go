// Package catalog maps scan roots to their blob files and root stats, and
// tracks live scan progress, in a single SQLite database.
//
// Grounded on original_source/src/disk_tree/server.py's raw-SQL catalog
// queries (_fetch_scans_data, the ancestor dirname walk in get_scan):
// those hand-written SQL statements are kept as explicit parametrised
// database/sql calls here rather than reintroduced behind an ORM, per
// spec.md §9's design note preferring direct traversal over per-row ORM
// queries. modernc.org/sqlite (pure-Go, cgo-free) is pulled in from
// agentic-research-mache's dependency graph, since the teacher has no SQL
// dependency of its own.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	_ "modernc.org/sqlite"
)

// Scan is one row of the scan table: a completed scan's root stats and the
// blob file holding its full table.
type Scan struct {
	ID         int64
	Path       string
	Time       int64
	Blob       string
	ErrorCount int64
	ErrorPaths []string
	Size       int64
	NChildren  int64
	NDesc      int64
}

// Progress is one row of the scan_progress table: a live scan's counters.
type Progress struct {
	ID          int64
	Path        string
	PID         int
	Started     int64
	ItemsFound  int64
	ItemsPerSec float64
	ErrorCount  int64
	Status      string
}

// Catalog wraps the scan/scan_progress SQLite database.
type Catalog struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scan (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	time INTEGER NOT NULL,
	blob TEXT NOT NULL,
	error_count INTEGER NOT NULL DEFAULT 0,
	error_paths TEXT NOT NULL DEFAULT '[]',
	size INTEGER NOT NULL DEFAULT 0,
	n_children INTEGER NOT NULL DEFAULT 0,
	n_desc INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_scan_path_time ON scan(path, time);

CREATE TABLE IF NOT EXISTS scan_progress (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	pid INTEGER NOT NULL,
	started INTEGER NOT NULL,
	items_found INTEGER NOT NULL DEFAULT 0,
	items_per_sec REAL NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'running'
);
`

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", dbPath, err)
	}
	// SQLite only tolerates one writer; serialise at the connection-pool
	// level rather than hitting SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// InsertScan records a newly completed scan, copying root stats into the
// denormalised columns and JSON-serialising the bounded error path list.
func (c *Catalog) InsertScan(s Scan) (int64, error) {
	errPaths, err := json.Marshal(s.ErrorPaths)
	if err != nil {
		return 0, fmt.Errorf("catalog: marshal error paths: %w", err)
	}
	res, err := c.db.Exec(
		`INSERT INTO scan (path, time, blob, error_count, error_paths, size, n_children, n_desc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Path, s.Time, s.Blob, s.ErrorCount, string(errPaths), s.Size, s.NChildren, s.NDesc,
	)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert scan: %w", err)
	}
	return res.LastInsertId()
}

// scanRow matches the column order shared by every SELECT below.
func scanRow(rows interface{ Scan(...any) error }) (Scan, error) {
	var s Scan
	var errPaths string
	if err := rows.Scan(&s.ID, &s.Path, &s.Time, &s.Blob, &s.ErrorCount, &errPaths, &s.Size, &s.NChildren, &s.NDesc); err != nil {
		return Scan{}, err
	}
	if errPaths != "" {
		_ = json.Unmarshal([]byte(errPaths), &s.ErrorPaths)
	}
	return s, nil
}

const selectCols = `id, path, time, blob, error_count, error_paths, size, n_children, n_desc`

// GetScanByID loads a single scan row by its primary key.
func (c *Catalog) GetScanByID(id int64) (Scan, error) {
	row := c.db.QueryRow(`SELECT `+selectCols+` FROM scan WHERE id = ?`, id)
	return scanRow(row)
}

// MostRecentForPath returns the most recent scan row whose path is exactly
// the given path, or ok=false if there is none.
func (c *Catalog) MostRecentForPath(p string) (s Scan, ok bool, err error) {
	row := c.db.QueryRow(
		`SELECT `+selectCols+` FROM scan WHERE path = ? ORDER BY time DESC LIMIT 1`, p)
	s, err = scanRow(row)
	if err == sql.ErrNoRows {
		return Scan{}, false, nil
	}
	if err != nil {
		return Scan{}, false, err
	}
	return s, true, nil
}

// ListScans returns the most-recent-per-path denormalised row for every
// distinct path, via a standard group-wise max-by-time join.
func (c *Catalog) ListScans() ([]Scan, error) {
	rows, err := c.db.Query(`
		SELECT ` + qualify("s", selectCols) + `
		FROM scan s
		JOIN (SELECT path, MAX(time) AS max_time FROM scan GROUP BY path) latest
		  ON s.path = latest.path AND s.time = latest.max_time
		ORDER BY s.path
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// History returns every scan whose root is uri or an ancestor of uri,
// newest first.
func (c *Catalog) History(uri string) ([]Scan, error) {
	candidates := ancestorChain(uri)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(candidates)), ",")
	args := make([]any, len(candidates))
	for i, p := range candidates {
		args[i] = p
	}

	rows, err := c.db.Query(
		`SELECT `+selectCols+` FROM scan WHERE path IN (`+placeholders+`) ORDER BY time DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DirectChildScansAfter returns the most recent scan for every path that is
// a direct child of parentPath and whose time is strictly after
// afterTime -- used for fresher-child patching (spec.md §4.6.2).
func (c *Catalog) DirectChildScansAfter(parentPath string, afterTime int64) ([]Scan, error) {
	all, err := c.ListScans()
	if err != nil {
		return nil, err
	}
	var out []Scan
	for _, s := range all {
		if s.Time <= afterTime {
			continue
		}
		if parentOf(s.Path) == parentPath && s.Path != parentPath {
			out = append(out, s)
		}
	}
	return out, nil
}

// AllAncestorScans returns every scan row (across all history, not just the
// most recent per path) whose root is an ancestor of (or equal to) p --
// used by delete to find every blob that needs rewriting after a subtree
// is removed (spec.md §4.6.5).
func (c *Catalog) AllAncestorScans(p string) ([]Scan, error) {
	rows, err := c.db.Query(`SELECT ` + selectCols + ` FROM scan`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all ancestor scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		if isDescendantPath(s.Path, p) {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

// UpdateScanBlobAndStats rewrites a scan row's blob reference and
// denormalised root stats in place, used after delete rewrites a blob file
// in a new location and the old root totals no longer apply.
func (c *Catalog) UpdateScanBlobAndStats(id int64, blob string, size, nChildren, nDesc int64) error {
	_, err := c.db.Exec(
		`UPDATE scan SET blob = ?, size = ?, n_children = ?, n_desc = ? WHERE id = ?`,
		blob, size, nChildren, nDesc, id,
	)
	if err != nil {
		return fmt.Errorf("catalog: update scan blob/stats: %w", err)
	}
	return nil
}

// DeleteScansForPath removes every scan row for path with time before
// cutoff, for use by GCService (spec.md §4.7).
func (c *Catalog) DeleteScansForPath(path string, cutoff int64) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM scan WHERE path = ? AND time < ?`, path, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalog: delete scans for path: %w", err)
	}
	return res.RowsAffected()
}

// BlobsForPathBefore returns the blob file names for every scan row for
// path with time before cutoff, so the caller can unlink them alongside
// DeleteScansForPath.
func (c *Catalog) BlobsForPathBefore(path string, cutoff int64) ([]string, error) {
	rows, err := c.db.Query(`SELECT blob FROM scan WHERE path = ? AND time < ?`, path, cutoff)
	if err != nil {
		return nil, fmt.Errorf("catalog: blobs for path before: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		out = append(out, blob)
	}
	return out, rows.Err()
}

// DescendantScans returns the most-recent-per-path scan for every path that
// is prefix (a descendant of, or equal to) but does not equal prefix --
// used by synthesis mode to find scans nested anywhere under an unscanned
// directory (spec.md §4.6.2 "look up any descendant scans under uri").
func (c *Catalog) DescendantScans(prefix string) ([]Scan, error) {
	all, err := c.ListScans()
	if err != nil {
		return nil, err
	}
	var out []Scan
	for _, s := range all {
		if s.Path != prefix && isDescendantPath(prefix, s.Path) {
			out = append(out, s)
		}
	}
	return out, nil
}

// isDescendantPath mirrors entry.IsDescendant's component-wise comparison
// without importing the entry package, to keep catalog free of a
// dependency on the table representation it merely indexes.
func isDescendantPath(ancestor, child string) bool {
	if ancestor == "" || ancestor == "." {
		return true
	}
	if child == ancestor {
		return true
	}
	return strings.HasPrefix(child, ancestor+"/")
}

// AncestorScan performs the ancestor search for a URI described in
// spec.md §4.4: test candidate paths from u upward via repeated dirname,
// stopping at a fixed point, first hit wins. Returns ok=false if no scan
// covers u at all.
func (c *Catalog) AncestorScan(u string) (s Scan, ok bool, err error) {
	for _, candidate := range ancestorChain(u) {
		s, ok, err = c.MostRecentForPath(candidate)
		if err != nil {
			return Scan{}, false, err
		}
		if ok {
			return s, true, nil
		}
	}
	return Scan{}, false, nil
}

// ancestorChain returns u, dirname(u), dirname(dirname(u)), ... down to
// the fixed point ("." or "/"), inclusive, nearest-first.
func ancestorChain(u string) []string {
	var chain []string
	cur := u
	seen := map[string]bool{}
	for !seen[cur] {
		chain = append(chain, cur)
		seen[cur] = true
		cur = parentOf(cur)
	}
	return chain
}

// parentOf mirrors the directory-walk semantics used throughout
// disk-tree's path handling (path.Dir, with "." as the fixed point).
func parentOf(p string) string {
	if p == "." || p == "" || p == "/" {
		return "."
	}
	d := path.Dir(p)
	if d == "." {
		return "."
	}
	return d
}

func qualify(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
