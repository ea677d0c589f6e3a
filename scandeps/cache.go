// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"go.chromium.org/infra/build/incscan/artifact"
)

// resolutionCache maps an InclusionWithContext to a LocateResult, taking
// care not to memoize a result tainted by observing an illegal output.
// Concurrent lookups of the same key are deduplicated through
// singleflight, collapsing concurrent loads of the same key into one
// computation.
type resolutionCache struct {
	mu sync.Mutex
	m  map[InclusionWithContext]LocateResult
	sf singleflight.Group
}

func newResolutionCache() *resolutionCache {
	return &resolutionCache{m: make(map[InclusionWithContext]LocateResult)}
}

func (rc *resolutionCache) load(key InclusionWithContext) (LocateResult, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, ok := rc.m[key]
	return v, ok
}

func (rc *resolutionCache) store(key InclusionWithContext, v LocateResult) {
	rc.mu.Lock()
	rc.m[key] = v
	rc.mu.Unlock()
}

func (rc *resolutionCache) lookup(ctx context.Context, factory *artifact.Factory, pc *pathExistenceCache, legal artifact.LegalOutputMap, execRoot, outputPrefix, incRoot string, sp SearchPath, key InclusionWithContext) LocateResult {
	if v, ok := rc.load(key); ok {
		return v
	}

	skey := fmt.Sprintf("%d:%s:%d:%d", key.Inclusion.Kind, key.Inclusion.Name, key.ContextKind, key.ContextPathPos)
	v, _, _ := rc.sf.Do(skey, func() (any, error) {
		if v, ok := rc.load(key); ok {
			return v, nil
		}
		result := locateOnPaths(ctx, factory, pc, legal, execRoot, outputPrefix, incRoot, sp, key, false)
		if result.Found || !result.ViewedIllegal {
			rc.store(key, result)
			return result, nil
		}
		// The miss depended on observing an illegal output, so it is not
		// a stable answer. Retry considering only output-directory
		// candidates, and memoize the retry only if it finds a file or
		// observes no illegal output.
		retry := locateOnPaths(ctx, factory, pc, legal, execRoot, outputPrefix, incRoot, sp, key, true)
		if retry.Found || !retry.ViewedIllegal {
			rc.store(key, retry)
			return retry, nil
		}
		return retry, nil
	})
	return v.(LocateResult)
}
