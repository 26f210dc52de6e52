// Package blobcache caches scanblob reads in-process, so repeated
// get-subtree requests against the same (blob, depth range) don't re-open
// and re-decode the bbolt file on every call.
//
// github.com/hashicorp/golang-lru/v2/expirable (pulled from
// agentic-research-mache's dependency graph, transitively via mcp-go) gives
// bounded LRU size and TTL expiry in one structure, replacing what would
// otherwise be a hand-rolled map+mutex+ticker -- spec.md §4.8 calls this
// component "ParquetCache" but since there is no Parquet layer (see
// internal/scanblob), it caches scanblob.Read results instead.
package blobcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/runsascoded/disk-tree/internal/entry"
	"github.com/runsascoded/disk-tree/internal/scanblob"
)

// Key identifies one cached read: a blob file plus the depth bounds it was
// read with.
type Key struct {
	BlobPath string
	MinDepth int64
	MaxDepth int64
}

const (
	defaultCapacity = 10
	defaultTTL      = 5 * time.Minute
)

// Cache wraps an expirable LRU of blob reads.
type Cache struct {
	lru *lru.LRU[Key, *entry.Table]
}

// New returns an empty cache with the default capacity (10) and TTL
// (5 minutes) from SPEC_FULL.md §4.8.
func New() *Cache {
	return &Cache{lru: lru.NewLRU[Key, *entry.Table](defaultCapacity, nil, defaultTTL)}
}

// Get returns the cached table for key, loading and caching it from disk on
// a miss. minDepth/maxDepth are pushed down to scanblob so a miss never
// pays for rows outside the requested range.
func (c *Cache) Get(blobPath string, minDepth, maxDepth int64) (*entry.Table, error) {
	key := Key{BlobPath: blobPath, MinDepth: minDepth, MaxDepth: maxDepth}
	if tbl, ok := c.lru.Get(key); ok {
		return tbl, nil
	}

	tbl, err := scanblob.ReadDepthRange(blobPath, minDepth, maxDepth)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, tbl)
	return tbl, nil
}

// Invalidate drops every cached entry for blobPath, regardless of depth
// range -- used when a blob is rewritten (delete/migrate) or removed (GC).
func (c *Cache) Invalidate(blobPath string) {
	for _, k := range c.lru.Keys() {
		if k.BlobPath == blobPath {
			c.lru.Remove(k)
		}
	}
}
