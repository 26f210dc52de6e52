package query

import "github.com/runsascoded/disk-tree/internal/catalog"

const listScansCacheKey = "list-scans"

// ListScans returns the denormalised most-recent-per-path row for every
// distinct scanned path, cached in-process with responseTTL to avoid
// repeated group-by queries (spec.md §4.6.1).
func (s *Service) ListScans() ([]catalog.Scan, error) {
	if cached, ok := s.responses.Get(listScansCacheKey); ok {
		return cached.([]catalog.Scan), nil
	}

	scans, err := s.Catalog.ListScans()
	if err != nil {
		return nil, err
	}
	s.responses.Add(listScansCacheKey, scans)
	return scans, nil
}
