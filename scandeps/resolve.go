// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"errors"
	"path"
	"strings"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/scandeps/parser"
)

var errPathNotUnderBase = errors.New("path is not under base")

func containsUplevel(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// relativeResolve resolves a QUOTE or NEXT_QUOTE inclusion relative to the
// including artifact's own directory. It is intentionally not
// cached: the result depends on the includer, not just the inclusion name.
func relativeResolve(ctx context.Context, factory *artifact.Factory, pc *pathExistenceCache, legal artifact.LegalOutputMap, outputPrefix, incRoot string, includer *artifact.Artifact, name string) (*artifact.Artifact, bool, error) {
	parentExec := path.Dir(includer.ExecPath())
	candidateExec := path.Join(parentExec, name)

	if !isFile(ctx, pc, legal, outputPrefix, incRoot, parentExec, name, candidateExec, includer.IsSource()) {
		return nil, false, nil
	}

	parentRootRel := path.Dir(includer.RootRelative())
	candidateRootRel := path.Join(parentRootRel, name)
	if containsUplevel(candidateRootRel) {
		// Relative inclusion must not escape the includer's package root.
		return nil, false, nil
	}

	if a, ok := legal.Lookup(candidateExec); ok {
		return a, true, nil
	}

	a, err := factory.ResolveSourceArtifactWithAncestor(ctx, name, parentExec)
	if err != nil {
		if !containsUplevel(name) {
			return nil, false, nil
		}
		return nil, false, nil
	}
	return a, true, nil
}

// locateOnPaths walks the search path appropriate to iwc's context,
// applying uplevel normalization and selecting the right kind of artifact
// for each candidate that exists.
func locateOnPaths(ctx context.Context, factory *artifact.Factory, pc *pathExistenceCache, legal artifact.LegalOutputMap, execRoot, outputPrefix, incRoot string, sp SearchPath, iwc InclusionWithContext, onlyCheckGenerated bool) LocateResult {
	name := iwc.Inclusion.Name

	start := 0
	if iwc.Inclusion.Kind.IsNext() {
		start = iwc.ContextPathPos
	}
	paths := sp.pathsFor(iwc.ContextKind)

	var viewedIllegal bool
	for i := start; i < len(paths); i++ {
		prefix := paths[i]
		candidate := path.Join(prefix, name)

		if containsUplevel(candidate) {
			abs := path.Join(execRoot, candidate)
			if hasPathPrefix(abs, execRoot) {
				rel, err := pathRelativeTo(abs, execRoot)
				if err == nil {
					candidate = rel
				} else {
					candidate = abs
				}
			} else {
				candidate = abs
			}
			if containsUplevel(candidate) {
				// Defensive: may arise from Windows-style separators on a
				// POSIX filesystem. Skip this path entry.
				continue
			}
		}

		if onlyCheckGenerated && !isRealOutputFile(candidate, outputPrefix, incRoot) {
			continue
		}

		viewedIllegal = viewedIllegal || isIllegalOutputFile(candidate, legal, outputPrefix, incRoot)

		isSource := !isRealOutputFile(candidate, outputPrefix, incRoot)
		if !isFile(ctx, pc, legal, outputPrefix, incRoot, prefix, name, candidate, isSource) {
			continue
		}

		var a *artifact.Artifact
		switch {
		case isRealOutputFile(candidate, outputPrefix, incRoot):
			var ok bool
			a, ok = legal.Lookup(candidate)
			if !ok {
				// An output directory entry not declared as an output of
				// this scanner's dependency scope: don't search further.
				return notFound(viewedIllegal)
			}
		case !path.IsAbs(candidate):
			var err error
			a, err = factory.ResolveSourceArtifact(ctx, candidate)
			if err != nil {
				continue
			}
		default:
			var err error
			a, err = factory.GetSourceArtifact(ctx, name, prefix)
			if err != nil {
				continue
			}
		}
		return found(a, i+1, viewedIllegal)
	}
	if iwc.Inclusion.Kind == Angle || iwc.Inclusion.Kind == parser.Import {
		if r := frameworkLocate(ctx, factory, pc, sp.Frameworks, name); r.Found {
			r.ViewedIllegal = r.ViewedIllegal || viewedIllegal
			return r
		}
	}
	return notFound(viewedIllegal)
}

// frameworkLocate resolves "Name/Header.h" against a -F framework search
// path by expanding it to "Name.framework/Headers/Header.h" under each
// directory, the macOS/iOS framework-header convention.
func frameworkLocate(ctx context.Context, factory *artifact.Factory, pc *pathExistenceCache, frameworks []string, name string) LocateResult {
	slash := strings.IndexByte(name, '/')
	if slash < 0 {
		return notFound(false)
	}
	frameworkName, rest := name[:slash], name[slash+1:]
	for _, dir := range frameworks {
		candidate := path.Join(dir, frameworkName+".framework", "Headers", rest)
		if !isFile(ctx, pc, nil, "", "", dir, rest, candidate, !path.IsAbs(candidate)) {
			continue
		}
		var a *artifact.Artifact
		var err error
		if path.IsAbs(candidate) {
			a, err = factory.GetSourceArtifact(ctx, rest, dir)
		} else {
			a, err = factory.ResolveSourceArtifact(ctx, candidate)
		}
		if err != nil {
			continue
		}
		return found(a, 0, false)
	}
	return notFound(false)
}

// pathRelativeTo expresses p (assumed to be under base) relative to base,
// working on slash-separated logical paths rather than OS paths.
func pathRelativeTo(p, base string) (string, error) {
	p = path.Clean(p)
	base = path.Clean(base)
	if p == base {
		return ".", nil
	}
	if !hasPathPrefix(p, base) {
		return "", errPathNotUnderBase
	}
	return strings.TrimPrefix(p, base+"/"), nil
}
