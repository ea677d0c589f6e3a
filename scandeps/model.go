// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scandeps computes the transitive closure of C/C++ headers a set
// of translation units pulls in, by textually extracting #include /
// #include_next directives and resolving them against a configured search
// path, without running a real preprocessor.
package scandeps

import (
	"fmt"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/scandeps/parser"
)

// InclusionKind is the flavor of a single #include directive, shared with
// the parser package so an Extractor's output needs no conversion.
type InclusionKind = parser.InclusionKind

// Inclusion kinds.
const (
	Quote     = parser.Quote
	Angle     = parser.Angle
	NextQuote = parser.NextQuote
	NextAngle = parser.NextAngle
	// Import is an Objective-C #import, deduplicated identically to #include.
	Import = parser.Import
)

// Inclusion is a single #include (or #import) directive as extracted by an
// Extractor, named before resolution against any search path.
type Inclusion = parser.Inclusion

// ContextKind records the flavor under which an including file was itself
// resolved, used to pick which search path to continue on for its own
// inclusions.
type ContextKind int

// Context kinds.
const (
	// ContextNone marks a top-level source, not reached via any inclusion.
	ContextNone ContextKind = iota
	ContextQuote
	ContextAngle
)

func (k ContextKind) String() string {
	switch k {
	case ContextNone:
		return "none"
	case ContextQuote:
		return "quote"
	case ContextAngle:
		return "angle"
	default:
		return fmt.Sprintf("ContextKind(%d)", int(k))
	}
}

// TopLevelContextPathPos is the contextPathPos value used for a source that
// was not reached via any inclusion.
const TopLevelContextPathPos = -1

// InclusionWithContext is the cache key for resolution and, together with
// the resolved artifact, the dedup key for traversal.
type InclusionWithContext struct {
	Inclusion      Inclusion
	ContextKind    ContextKind
	ContextPathPos int
}

// LocateResult is the outcome of resolving an InclusionWithContext against
// the search path.
type LocateResult struct {
	// Artifact is non-nil iff Found.
	Artifact *artifact.Artifact
	// IncludePosition is the 1-based index of the matching search-path
	// entry; 0 marks a hit outside the search path (a -F framework
	// directory), the same position a relatively resolved file gets.
	IncludePosition int
	// ViewedIllegal records whether resolution stepped past any path
	// prefix under the output directory that is not a legal output.
	ViewedIllegal bool
	Found         bool
}

func notFound(viewedIllegal bool) LocateResult {
	return LocateResult{ViewedIllegal: viewedIllegal}
}

func found(a *artifact.Artifact, pos int, viewedIllegal bool) LocateResult {
	return LocateResult{Artifact: a, IncludePosition: pos, ViewedIllegal: viewedIllegal, Found: true}
}

// ArtifactWithInclusionContext is the traversal dedup key: the same
// physical file may need revisiting under a different context, since its
// own #include_next will search differently.
type ArtifactWithInclusionContext struct {
	Artifact       *artifact.Artifact
	ContextKind    ContextKind
	ContextPathPos int
}

// SearchPath is the ordered set of directories searched for quote- and
// angle-form inclusions. Immutable for the lifetime of a scanner.
type SearchPath struct {
	// Quote is the quote-form search path: -iquote entries, then -I and
	// -isystem entries (the quote list is a superset of the angle list,
	// prefixed with the quote-only entries).
	Quote []string
	// Angle is the angle-form search path: -I and -isystem entries.
	Angle []string
	// Frameworks are -F framework search directories, consulted for
	// angle-form and #import inclusions shaped "Name/Header.h" after the
	// ordinary search path misses, by expanding to
	// "Name.framework/Headers/Header.h" under each directory.
	Frameworks []string
}

// pathsFor returns the search path a given context kind continues on.
func (sp SearchPath) pathsFor(ctxKind ContextKind) []string {
	if ctxKind == ContextQuote {
		return sp.Quote
	}
	return sp.Angle
}

// newInclusionWithContext builds the cache/dedup key for inc, inheriting the
// includer's own context where one exists. A file reached via relative
// resolution (or a top-level source) carries no inherited context, in which
// case the new inclusion's own form picks its context.
func newInclusionWithContext(inc Inclusion, ctxKind ContextKind, ctxPos int) InclusionWithContext {
	if ctxKind == ContextNone {
		if inc.Kind == Quote || inc.Kind == NextQuote {
			ctxKind = ContextQuote
		} else {
			ctxKind = ContextAngle
		}
	}
	return InclusionWithContext{Inclusion: inc, ContextKind: ctxKind, ContextPathPos: ctxPos}
}
