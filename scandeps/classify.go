// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"strings"

	"go.chromium.org/infra/build/incscan/artifact"
)

// isRealOutputFile reports whether p names a generated output: it lives
// under the output prefix but is not part of a symlinked include tree.
func isRealOutputFile(p, outputPrefix, incRoot string) bool {
	return hasPathPrefix(p, outputPrefix) && !isIncPath(p, incRoot)
}

// isIncPath reports whether p is an entry of the symlinked include tree
// rooted at incRoot (but not incRoot itself); such entries are treated as
// source-like even though they usually live under the output prefix.
func isIncPath(p, incRoot string) bool {
	return incRoot != "" && hasPathPrefix(p, incRoot) && p != incRoot
}

// isIllegalOutputFile reports whether p is a real output file not present
// in legal, i.e. an output-directory entry this scanner was never told
// about.
func isIllegalOutputFile(p string, legal artifact.LegalOutputMap, outputPrefix, incRoot string) bool {
	if !isRealOutputFile(p, outputPrefix, incRoot) {
		return false
	}
	_, ok := legal.Lookup(p)
	return !ok
}

// hasPathPrefix reports whether p is prefix or starts with prefix followed
// by a path separator, i.e. segment-wise containment rather than raw
// string containment (so "bazel-out2" doesn't match prefix "bazel-out").
func hasPathPrefix(p, prefix string) bool {
	if prefix == "" {
		return false
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}
