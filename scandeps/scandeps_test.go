// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/scandeps/parser"
	"go.chromium.org/infra/build/incscan/sync/semaphore"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for fname, content := range files {
		full := filepath.Join(dir, fname)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestScanner(t *testing.T, execRoot string, strategy Strategy) (*Scanner, *artifact.Factory) {
	t.Helper()
	factory := artifact.New(execRoot)
	sem := semaphore.New(t.Name(), 4)
	s := New(factory, parser.Textual{}, NoHints{}, NewFileParseCache(), sem, strategy, "bazel-out", "bazel-out/inc")
	return s, factory
}

func execPaths(t *testing.T, result *Result) []string {
	t.Helper()
	var got []string
	for _, a := range result.Includes {
		got = append(got, a.ExecPath())
	}
	sort.Strings(got)
	return got
}

func sortStrings() cmp.Option {
	return cmpopts.SortSlices(func(a, b string) bool { return a < b })
}

// quote hit on first path.
func TestScanQuoteHitOnFirstPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc":   `#include "lib/x.h"` + "\n",
		"lib/x.h": "\n",
	})
	s, factory := newTestScanner(t, dir, ForkJoin)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Quote: []string{"", "gen"}, Angle: []string{"gen"}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	want := []string{"a.cc", "lib/x.h"}
	if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
		t.Errorf("Scan() diff -want +got:\n%s", diff)
	}
}

// #include_next skips the path on which the including file was found.
func TestScanIncludeNextSkipsEarlierPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc":      "#include <v.h>\n",
		"inc1/v.h":  "#include_next <v.h>\n",
		"inc2/v.h":  "\n",
	})
	s, factory := newTestScanner(t, dir, ForkJoin)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Angle: []string{"inc1", "inc2"}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	want := []string{"a.cc", "inc1/v.h", "inc2/v.h"}
	if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
		t.Errorf("Scan() diff -want +got:\n%s", diff)
	}
}

// an illegal output observed during resolution is not memoized.
func TestScanIllegalOutputNotCached(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc":             `#include "h.h"` + "\n",
		"bazel-out/gen/h.h": "\n",
	})
	s, factory := newTestScanner(t, dir, ForkJoin)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Quote: []string{"bazel-out/gen"}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	want := []string{"a.cc"}
	if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
		t.Errorf("Scan() diff -want +got:\n%s", diff)
	}

	rc := newResolutionCache()
	pc := newPathExistenceCache(s.fsys, factory.ExecRoot())
	key := newInclusionWithContext(Inclusion{Kind: Quote, Name: "h.h"}, ContextNone, TopLevelContextPathPos)
	rc.lookup(ctx, factory, pc, nil, factory.ExecRoot(), "bazel-out", "bazel-out/inc", req.SearchPath, key)
	if _, ok := rc.load(key); ok {
		t.Errorf("resolution cache unexpectedly has an entry for a key tainted by an illegal output")
	}
}

// traversal stops at a modular header.
func TestScanModularCutoff(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc":    `#include "mod.h"` + "\n",
		"mod.h":   `#include "deep.h"` + "\n",
		"deep.h":  "\n",
	})
	s, factory := newTestScanner(t, dir, ForkJoin)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	modHeader, err := factory.ResolveSourceArtifact(ctx, "mod.h")
	if err != nil {
		t.Fatal(err)
	}
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Quote: []string{""}},
		HeaderData: HeaderData{ModularHeaders: map[string]bool{modHeader.ExecPath(): true}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	want := []string{"a.cc", "mod.h"}
	if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
		t.Errorf("Scan() diff -want +got:\n%s", diff)
	}
}

// file-level hints expand the frontier x.h -> y.h -> z.h.
func TestScanHintFrontier(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc": `#include "x.h"` + "\n",
		"x.h":  "\n",
		"y.h":  "\n",
		"z.h":  "\n",
	})
	factory := artifact.New(dir)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	xh, _ := factory.ResolveSourceArtifact(ctx, "x.h")
	yh, _ := factory.ResolveSourceArtifact(ctx, "y.h")
	zh, _ := factory.ResolveSourceArtifact(ctx, "z.h")
	hints := StaticHints{FileLevel: map[string][]*artifact.Artifact{
		xh.ExecPath(): {yh},
		yh.ExecPath(): {zh},
	}}
	sem := semaphore.New(t.Name(), 4)
	s := New(factory, parser.Textual{}, hints, NewFileParseCache(), sem, ForkJoin, "", "")
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Quote: []string{""}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	got := execPaths(t, result)
	for _, want := range []string{"a.cc", "x.h", "y.h", "z.h"} {
		found := false
		for _, g := range got {
			if g == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Scan() result %v missing %q", got, want)
		}
	}
}

// a hint's own textual #includes must have their file-level hints followed
// too: a.cc's hint h1, h1's hint h2, and h2's textual #include h3, whose own
// hint h4 must still be reached even though h3 was discovered only while
// processing h2's textual includes, not as a direct hint of anything.
func TestScanHintFrontierFollowsTransitiveTextualIncludes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc": "\n",
		"h1.h": "\n",
		"h2.h": `#include "h3.h"` + "\n",
		"h3.h": "\n",
		"h4.h": "\n",
	})
	factory := artifact.New(dir)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	h1, _ := factory.ResolveSourceArtifact(ctx, "h1.h")
	h2, _ := factory.ResolveSourceArtifact(ctx, "h2.h")
	h3, _ := factory.ResolveSourceArtifact(ctx, "h3.h")
	h4, _ := factory.ResolveSourceArtifact(ctx, "h4.h")
	hints := StaticHints{FileLevel: map[string][]*artifact.Artifact{
		a.ExecPath():  {h1},
		h1.ExecPath(): {h2},
		h3.ExecPath(): {h4},
	}}
	sem := semaphore.New(t.Name(), 4)
	s := New(factory, parser.Textual{}, hints, NewFileParseCache(), sem, ForkJoin, "", "")
	req := &Request{
		Sources:    []*artifact.Artifact{a},
		SearchPath: SearchPath{Quote: []string{""}},
	}
	result, err := s.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	want := []string{"a.cc", "h1.h", "h2.h", "h3.h", "h4.h"}
	if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
		t.Errorf("Scan() diff -want +got:\n%s", diff)
	}
}

// a path-level hint database reporting missing deps fails the scan.
func TestScanMissingDep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.cc": "\n"})
	factory := artifact.New(dir)
	a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	hints := StaticHints{MissingDeps: "hint database not ready"}
	sem := semaphore.New(t.Name(), 4)
	s := New(factory, parser.Textual{}, hints, NewFileParseCache(), sem, ForkJoin, "", "")
	req := &Request{Sources: []*artifact.Artifact{a}, SearchPath: SearchPath{Quote: []string{""}}}
	_, err = s.Scan(ctx, req)
	if !IsMissingDep(err) {
		t.Errorf("Scan() err = %v, want a MissingDepError", err)
	}
}

// Both scheduling strategies must agree on the resulting set.
func TestScanStrategiesAgree(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.cc":    `#include "b.h"` + "\n" + `#include "c.h"` + "\n",
		"b.h":     `#include "d.h"` + "\n",
		"c.h":     `#include "d.h"` + "\n",
		"d.h":     "\n",
	})
	for _, strategy := range []Strategy{ForkJoin, FutureChaining} {
		s, factory := newTestScanner(t, dir, strategy)
		a, err := factory.ResolveSourceArtifact(ctx, "a.cc")
		if err != nil {
			t.Fatal(err)
		}
		req := &Request{Sources: []*artifact.Artifact{a}, SearchPath: SearchPath{Quote: []string{""}}}
		result, err := s.Scan(ctx, req)
		if err != nil {
			t.Fatalf("%s: Scan() = %v", strategy, err)
		}
		want := []string{"a.cc", "b.h", "c.h", "d.h"}
		if diff := cmp.Diff(want, execPaths(t, result), sortStrings()); diff != "" {
			t.Errorf("%s: Scan() diff -want +got:\n%s", strategy, diff)
		}
	}
}
