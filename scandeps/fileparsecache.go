// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileParseCache memoizes a single artifact's extracted inclusions, shared
// across scanner invocations and externally owned rather than tied to a
// single Scanner. Concurrent loads of the same artifact are collapsed
// through singleflight, the same shape cache.go uses for resolution
// results.
type FileParseCache struct {
	mu sync.Mutex
	m  map[string][]Inclusion
	sf singleflight.Group
}

// NewFileParseCache creates an empty, ready-to-share cache.
func NewFileParseCache() *FileParseCache {
	return &FileParseCache{m: make(map[string][]Inclusion)}
}

// Started reports whether execPath has a completed entry, used by the
// fork/join strategy to decide whether recursing into it can run inline
// (cheap, already parsed) rather than via the pool.
func (c *FileParseCache) Started(execPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[execPath]
	return ok
}

// Load returns the memoized inclusions for execPath, computing them with
// compute on a miss. A failed compute is not memoized, so a later retry
// (e.g. after a rewound action) can repopulate the entry.
func (c *FileParseCache) Load(ctx context.Context, execPath string, compute func(ctx context.Context) ([]Inclusion, error)) ([]Inclusion, error) {
	c.mu.Lock()
	if incs, ok := c.m[execPath]; ok {
		c.mu.Unlock()
		return incs, nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do(execPath, func() (any, error) {
		c.mu.Lock()
		if incs, ok := c.m[execPath]; ok {
			c.mu.Unlock()
			return incs, nil
		}
		c.mu.Unlock()

		incs, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.m[execPath] = incs
		c.mu.Unlock()
		return incs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Inclusion), nil
}
