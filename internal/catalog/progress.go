package catalog

import (
	"fmt"
)

// StartProgress deletes any previous scan_progress row for path and inserts
// a fresh running row, per spec.md §4.5 start().
func (c *Catalog) StartProgress(path string, pid int, startedUnix int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("catalog: start progress: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM scan_progress WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: start progress delete: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO scan_progress (path, pid, started, status) VALUES (?, ?, ?, 'running')`,
		path, pid, startedUnix,
	); err != nil {
		return fmt.Errorf("catalog: start progress insert: %w", err)
	}
	return tx.Commit()
}

// UpdateProgress overwrites the counters for path's in-flight scan. The
// caller is responsible for rate-limiting calls (spec.md §4.5: "rate-limited
// (≈ once per second from the scanner)").
func (c *Catalog) UpdateProgress(path string, itemsFound int64, itemsPerSec float64, errorCount int64) error {
	_, err := c.db.Exec(
		`UPDATE scan_progress SET items_found = ?, items_per_sec = ?, error_count = ? WHERE path = ?`,
		itemsFound, itemsPerSec, errorCount, path,
	)
	if err != nil {
		return fmt.Errorf("catalog: update progress: %w", err)
	}
	return nil
}

// FinishProgress deletes path's scan_progress row, so readers treat its
// absence as terminal (spec.md §4.5 finish()).
func (c *Catalog) FinishProgress(path string) error {
	_, err := c.db.Exec(`DELETE FROM scan_progress WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("catalog: finish progress: %w", err)
	}
	return nil
}

// AllProgress returns a snapshot of every currently-running scan.
func (c *Catalog) AllProgress() ([]Progress, error) {
	rows, err := c.db.Query(`SELECT id, path, pid, started, items_found, items_per_sec, error_count, status FROM scan_progress`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Progress
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.ID, &p.Path, &p.PID, &p.Started, &p.ItemsFound, &p.ItemsPerSec, &p.ErrorCount, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
