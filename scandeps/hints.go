// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"

	"go.chromium.org/infra/build/incscan/artifact"
)

// Hints is the external hint-database collaborator. Path-level hints
// add implicit headers for whole search-path directories; file-level hints
// add implicit headers whenever a given artifact is visited.
type Hints interface {
	// PathLevelHintedInclusions returns the artifacts implicitly included
	// because of the given quote search path. It returns a *MissingDepError
	// if the hint database's own dependencies haven't been computed yet.
	PathLevelHintedInclusions(ctx context.Context, quotePaths []string) ([]*artifact.Artifact, error)
	// FileLevelHintedInclusions returns the artifacts implicitly included
	// whenever a is visited.
	FileLevelHintedInclusions(ctx context.Context, a *artifact.Artifact) ([]*artifact.Artifact, error)
}

// NoHints is a Hints implementation with no path-level or file-level
// hints, for scanners that don't use a hint database.
type NoHints struct{}

// PathLevelHintedInclusions always returns no hints.
func (NoHints) PathLevelHintedInclusions(ctx context.Context, quotePaths []string) ([]*artifact.Artifact, error) {
	return nil, nil
}

// FileLevelHintedInclusions always returns no hints.
func (NoHints) FileLevelHintedInclusions(ctx context.Context, a *artifact.Artifact) ([]*artifact.Artifact, error) {
	return nil, nil
}

// StaticHints is a Hints implementation backed by fixed maps, useful for
// tests and for configurations whose hint database is computed once ahead
// of time rather than queried live.
type StaticHints struct {
	// PathLevel maps a quote search-path directory to the artifacts
	// implicitly included for files resolved against it.
	PathLevel map[string][]*artifact.Artifact
	// FileLevel maps an artifact's exec path to the artifacts implicitly
	// included whenever that artifact is visited.
	FileLevel map[string][]*artifact.Artifact
	// MissingDeps, if non-empty, makes PathLevelHintedInclusions fail with
	// a *MissingDepError carrying this reason.
	MissingDeps string
}

// PathLevelHintedInclusions returns the union of h.PathLevel[p] for each p
// in quotePaths.
func (h StaticHints) PathLevelHintedInclusions(ctx context.Context, quotePaths []string) ([]*artifact.Artifact, error) {
	if h.MissingDeps != "" {
		return nil, &MissingDepError{Reason: h.MissingDeps}
	}
	var out []*artifact.Artifact
	for _, p := range quotePaths {
		out = append(out, h.PathLevel[p]...)
	}
	return out, nil
}

// FileLevelHintedInclusions returns h.FileLevel[a.ExecPath()].
func (h StaticHints) FileLevelHintedInclusions(ctx context.Context, a *artifact.Artifact) ([]*artifact.Artifact, error) {
	if a == nil {
		return nil, nil
	}
	return h.FileLevel[a.ExecPath()], nil
}
