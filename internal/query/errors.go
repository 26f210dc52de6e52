// Package query implements the read-side API: list-scans, get-scan
// (including synthesis mode, fresher-child patching, and the row cap),
// scan-history, compare, and delete.
//
// Grounded line-for-line on original_source/src/disk_tree/server.py's
// get_scans, get_scan, update_parent_scans_after_delete, delete_path, and
// the ancestor-walk in get_scan's `while test_path` loop, with the
// is_descendant string-prefix bug (spec.md §9) fixed by routing every
// ancestor/descendant check through entry.IsDescendant.
package query

import "errors"

// Typed sentinel errors, mapped to HTTP status codes by internal/httpapi
// (spec.md §7, kinds 4-7: catalog miss / blob missing / object-store
// timeout / bad request).
var (
	ErrNotFound       = errors.New("query: not found")
	ErrBadRequest     = errors.New("query: bad request")
	ErrGatewayTimeout = errors.New("query: upstream timed out")
)
