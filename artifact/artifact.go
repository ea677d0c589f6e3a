// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package artifact models the build-system file handles an include scanner
// resolves inclusions into: source files, generated outputs, and entries of
// a symlinked include tree. Artifacts here carry no content digest — a
// scanner only ever needs existence and identity, never a file's bytes.
package artifact

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"go.chromium.org/infra/build/incscan/osfs"
)

// Artifact is an opaque handle for a file: a source file under the exec
// root, a generated output, or a symlinked include-tree entry. Artifacts
// are interned by their exec path, so two resolutions of the same file
// yield the same *Artifact pointer and can be compared by identity.
type Artifact struct {
	execPath     string
	rootRelative string
	isSource     bool
}

// ExecPath returns the artifact's path relative to the exec root (or an
// absolute path, for artifacts resolved outside of it).
func (a *Artifact) ExecPath() string {
	if a == nil {
		return ""
	}
	return a.execPath
}

// RootRelative returns the artifact's path relative to its own root (its
// source root for source artifacts, the output root for generated ones).
func (a *Artifact) RootRelative() string {
	if a == nil {
		return ""
	}
	return a.rootRelative
}

// IsSource reports whether the artifact is a source file, as opposed to a
// generated output.
func (a *Artifact) IsSource() bool {
	return a != nil && a.isSource
}

func (a *Artifact) String() string {
	if a == nil {
		return "<nil artifact>"
	}
	return a.execPath
}

// Factory resolves logical paths into interned artifacts.
type Factory struct {
	execRoot string
	fsys     *osfs.OSFS

	mu       sync.Mutex
	interned map[string]*Artifact
}

// New creates a Factory rooted at execRoot, an absolute path.
func New(execRoot string) *Factory {
	return &Factory{
		execRoot: execRoot,
		fsys:     osfs.New("artifact"),
		interned: make(map[string]*Artifact),
	}
}

// ExecRoot returns the factory's exec root.
func (f *Factory) ExecRoot() string {
	return f.execRoot
}

func (f *Factory) intern(execPath, rootRelative string, isSource bool) *Artifact {
	execPath = path.Clean(filepathToSlash(execPath))
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.interned[execPath]; ok {
		return a
	}
	a := &Artifact{execPath: execPath, rootRelative: path.Clean(filepathToSlash(rootRelative)), isSource: isSource}
	f.interned[execPath] = a
	return a
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ResolveSourceArtifact resolves fragment, a path relative to the exec
// root, as a source artifact. fragment's root-relative path is itself,
// since this module has no concept of external-repository roots distinct
// from the exec root.
func (f *Factory) ResolveSourceArtifact(ctx context.Context, fragment string) (*Artifact, error) {
	if path.IsAbs(fragment) {
		return nil, fmt.Errorf("artifact: fragment %q must be exec-root relative", fragment)
	}
	return f.intern(fragment, fragment, true), nil
}

// ResolveSourceArtifactWithAncestor resolves name relative to parentDir (an
// exec-root-relative directory) as a source artifact, the way the relative
// resolver looks up an inclusion next to its includer. A name whose uplevel
// references climb above parentDir, or a result that escapes the exec root,
// is an error.
func (f *Factory) ResolveSourceArtifactWithAncestor(ctx context.Context, name, parentDir string) (*Artifact, error) {
	if clean := path.Clean(name); clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, fmt.Errorf("artifact: %q escapes ancestor %q", name, parentDir)
	}
	fragment := path.Join(parentDir, name)
	if strings.Contains(fragment, "..") {
		return nil, fmt.Errorf("artifact: %q escapes exec root via %q", fragment, parentDir)
	}
	return f.intern(fragment, fragment, true), nil
}

// GetSourceArtifact resolves fragment as a source artifact under
// absoluteRoot, a root outside of the exec root entirely (the case for an
// absolute #include path). The caller is responsible for deciding whether
// an absolute-path artifact is acceptable; the factory always succeeds.
func (f *Factory) GetSourceArtifact(ctx context.Context, fragment, absoluteRoot string) (*Artifact, error) {
	abs := path.Join(absoluteRoot, fragment)
	return f.intern(abs, fragment, true), nil
}

// GetOutputArtifact returns (interning) the artifact for a generated output
// at execPath, as recorded in a legal-output map entry.
func (f *Factory) GetOutputArtifact(execPath, rootRelative string) *Artifact {
	return f.intern(execPath, rootRelative, false)
}

// OSFS returns the underlying OS filesystem accessor used to stat and read
// files under this factory's exec root.
func (f *Factory) OSFS() *osfs.OSFS {
	return f.fsys
}

// AbsolutePath returns the OS path backing a, joining its exec path onto
// the exec root unless it is already absolute (an artifact resolved
// outside of the exec root entirely, per GetSourceArtifact).
func (f *Factory) AbsolutePath(a *Artifact) string {
	if a == nil {
		return ""
	}
	if path.IsAbs(a.execPath) {
		return a.execPath
	}
	return path.Join(f.execRoot, a.execPath)
}
