package query

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/runsascoded/disk-tree/internal/blobcache"
	"github.com/runsascoded/disk-tree/internal/catalog"
)

// responseTTL matches spec.md §4.8's "shorter TTL (default 60s)" for the
// list-scans/list-buckets/diff response cache.
const responseTTL = 60 * time.Second

// responseCacheCapacity bounds the number of distinct (operation, params)
// responses held at once; small, since the operation set is small and
// params are low-cardinality in practice.
const responseCacheCapacity = 64

// Service is the QueryService: spec.md §4.6's five operations, backed by a
// Catalog for scan metadata and a blobcache.Cache for decoded table reads.
type Service struct {
	Catalog   *catalog.Catalog
	Blobs     *blobcache.Cache
	ScansDir  string // directory new blobs are written/rewritten into
	Lister    Lister // used only by synthesis mode; nil disables it
	responses *lru.LRU[string, any]
}

// NewService wires a Service from its dependencies.
func NewService(cat *catalog.Catalog, blobs *blobcache.Cache, scansDir string) *Service {
	return &Service{
		Catalog:   cat,
		Blobs:     blobs,
		ScansDir:  scansDir,
		responses: lru.NewLRU[string, any](responseCacheCapacity, nil, responseTTL),
	}
}

// clearResponseCache drops every cached response; called after any
// mutation (spec.md §4.6.5 "the response caches are cleared").
func (s *Service) clearResponseCache() {
	for _, k := range s.responses.Keys() {
		s.responses.Remove(k)
	}
}
