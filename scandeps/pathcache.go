// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"path"
	"strings"
	"sync"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/osfs"
)

// pathExistenceCache is a thread-safe, append-only memoization of
// filesystem existence checks, shared by every resolution attempt within a
// single Scan call. Each Scan call starts with an empty cache; results are
// not carried over between calls on the same Scanner.
type pathExistenceCache struct {
	fsys     *osfs.OSFS
	execRoot string

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

func newPathExistenceCache(fsys *osfs.OSFS, execRoot string) *pathExistenceCache {
	return &pathExistenceCache{
		fsys:     fsys,
		execRoot: execRoot,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
}

func (c *pathExistenceCache) resolve(p string, isSource bool) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(c.execRoot, p)
}

// fileExists reports whether the source file p (an exec-path or absolute
// path) exists on disk, memoizing the result.
func (c *pathExistenceCache) fileExists(ctx context.Context, p string, isSource bool) bool {
	c.mu.Lock()
	if v, ok := c.files[p]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	fi, err := c.fsys.Stat(ctx, c.resolve(p, isSource))
	exists := err == nil && !fi.IsDir()

	c.mu.Lock()
	c.files[p] = exists
	c.mu.Unlock()
	return exists
}

// directoryExists reports whether the directory p (an exec-path or
// absolute path) exists on disk, memoizing the result.
func (c *pathExistenceCache) directoryExists(ctx context.Context, p string) bool {
	c.mu.Lock()
	if v, ok := c.dirs[p]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	fi, err := c.fsys.Stat(ctx, c.resolve(p, true))
	exists := err == nil && fi.IsDir()

	c.mu.Lock()
	c.dirs[p] = exists
	c.mu.Unlock()
	return exists
}

// isFile answers the file-existence question for a candidate path p that
// was formed by joining search-path entry prefix with the as-written
// inclusion name. For a real output file, existence is decided purely by
// legal-output membership — generated files discovered only by stat would
// be illegal outputs anyway. Otherwise, for a source candidate,
// cheaply rule out deep paths by checking each intermediate directory
// under prefix before paying for the final stat.
func isFile(ctx context.Context, c *pathExistenceCache, legal artifact.LegalOutputMap, outputPrefix, incRoot, prefix, name, p string, isSource bool) bool {
	if isRealOutputFile(p, outputPrefix, incRoot) {
		_, ok := legal.Lookup(p)
		return ok
	}
	if isSource && !path.IsAbs(p) && strings.HasSuffix(p, name) {
		dir := prefix
		segs := strings.Split(name, "/")
		for _, seg := range segs[:len(segs)-1] {
			if seg == "" {
				continue
			}
			dir = path.Join(dir, seg)
			if !c.directoryExists(ctx, dir) {
				return false
			}
		}
	}
	return c.fileExists(ctx, p, isSource)
}
