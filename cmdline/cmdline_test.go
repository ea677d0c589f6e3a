// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cmdline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseGCCStyle(t *testing.T) {
	ctx := context.Background()
	args := []string{
		"../../third_party/llvm-build/Release+Asserts/bin/clang++",
		"-DDCHECK_ALWAYS_ON=1",
		"-I../..",
		"-Igen",
		"-iquote", "../../base",
		"-isystem", "../../buildtools/third_party/libc++/trunk/include",
		"-F../../third_party/Frameworks",
		"-include", "build/build_config.h",
		"--sysroot=../../build/linux/debian_bullseye_amd64-sysroot",
		"-c",
		"../../base/base64.cc",
		"-o",
		"obj/base/base/base64.o",
	}
	p := Parse(ctx, args)

	want := ParsedArgs{
		Files:      []string{"../../base/base64.cc"},
		QuoteOnly:  []string{"../../base"},
		Angle:      []string{"../..", "gen", "../../buildtools/third_party/libc++/trunk/include"},
		Frameworks: []string{"../../third_party/Frameworks"},
		Sysroots: []string{
			"../../third_party/llvm-build/Release+Asserts",
			"../../build/linux/debian_bullseye_amd64-sysroot",
		},
		Includes: []string{"build/build_config.h"},
		Defines:  map[string]string{},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Parse() diff -want +got:\n%s", diff)
	}
}

func TestParseSearchPathOrdersQuoteOnlyFirst(t *testing.T) {
	ctx := context.Background()
	p := Parse(ctx, []string{
		"clang++",
		"-iquote", "quoteonly",
		"-I", "angle1",
		"-I", "angle2",
		"x.cc",
	})
	sp := p.SearchPath()
	want := []string{"quoteonly", "angle1", "angle2"}
	if diff := cmp.Diff(want, sp.Quote); diff != "" {
		t.Errorf("SearchPath().Quote diff -want +got:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"angle1", "angle2"}, sp.Angle); diff != "" {
		t.Errorf("SearchPath().Angle diff -want +got:\n%s", diff)
	}
}

func TestParseMSVCStyleHasNoQuoteOnlySplit(t *testing.T) {
	ctx := context.Background()
	p := Parse(ctx, []string{
		"cl.exe",
		"/I", "../../base",
		"/Igen",
		"/DNDEBUG",
		"../../base/base64.cc",
	})
	if len(p.Files) != 1 || p.Files[0] != "../../base/base64.cc" {
		t.Errorf("Parse(cl.exe) Files = %v", p.Files)
	}
	sp := p.SearchPath()
	if diff := cmp.Diff(sp.Quote, sp.Angle); diff != "" {
		t.Errorf("cl.exe invocation should search the same dirs for quote and angle forms, diff:\n%s", diff)
	}
	if len(sp.Angle) != 2 {
		t.Errorf("SearchPath().Angle = %v, want 2 entries", sp.Angle)
	}
}

func TestIsMSVCCmd(t *testing.T) {
	for _, tc := range []struct {
		arg  string
		want bool
	}{
		{"cl.exe", true},
		{"cl", true},
		{`C:\tools\cl.EXE`, true},
		{"clang-cl", false},
		{"clang++", false},
		{"gcc", false},
	} {
		if got := isMSVCCmd(tc.arg); got != tc.want {
			t.Errorf("isMSVCCmd(%q) = %v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestParseIgnoresUnrecognizedSourceExtensions(t *testing.T) {
	ctx := context.Background()
	p := Parse(ctx, []string{"clang++", "-c", "README.md", "a.cc"})
	if diff := cmp.Diff([]string{"a.cc"}, p.Files); diff != "" {
		t.Errorf("Parse() Files diff -want +got:\n%s", diff)
	}
}

