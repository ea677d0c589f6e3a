// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cmdline turns a compiler invocation's argv into a
// scandeps.Request, the way a build action would construct one before
// running the scanner ahead of the real compile.
package cmdline

import (
	"context"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/scandeps"
	"go.chromium.org/infra/build/incscan/toolsupport/gccutil"
	"go.chromium.org/infra/build/incscan/toolsupport/msvcutil"
)

// ParsedArgs is the compiler argv split into the pieces a Request needs,
// with quote-only (-iquote) search directories kept separate from
// angle-capable ones so SearchPath.Quote and SearchPath.Angle can be built
// correctly.
type ParsedArgs struct {
	Files      []string
	QuoteOnly  []string
	Angle      []string
	Frameworks []string
	Sysroots   []string
	Includes   []string
	Defines    map[string]string
}

// Parse extracts ParsedArgs from a compiler command line. A cl.exe-style
// invocation is delegated to toolsupport/msvcutil.ScanDepsParams, since
// MSVC has no quote-only search path to split out. Everything else is
// treated as clang/gcc and delegated to toolsupport/gccutil.ScanDepsParams,
// with -F/-include pulled out separately since gccutil doesn't recognize
// either flag.
func Parse(ctx context.Context, args []string) ParsedArgs {
	if len(args) > 0 && isMSVCCmd(args[0]) {
		return parseMSVC(ctx, args)
	}
	return parseGCC(ctx, args)
}

// parseGCC delegates to toolsupport/gccutil.ScanDepsParams for the
// clang/gcc argv walk, which already keeps -iquote directories separate
// from -I/-isystem/--include-directory ones.
func parseGCC(ctx context.Context, args []string) ParsedArgs {
	files, quoteDirs, angleDirs, sysroots, defines, err := gccutil.ScanDepsParams(ctx, args, nil)
	var p ParsedArgs
	p.Files = files
	p.QuoteOnly = quoteDirs
	p.Angle = angleDirs
	p.Sysroots = sysroots
	if err == nil {
		p.Defines = defines
	} else {
		p.Defines = make(map[string]string)
	}
	p.Frameworks, p.Includes = extractFrameworksAndIncludes(args)
	return p
}

// extractFrameworksAndIncludes pulls -F and -include out of a gcc/clang
// argv; gccutil.ScanDepsParams doesn't recognize either flag.
func extractFrameworksAndIncludes(args []string) (frameworks, includes []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-F":
			i++
			frameworks = append(frameworks, args[i])
			continue
		case "-include":
			i++
			includes = append(includes, args[i])
			continue
		}
		if strings.HasPrefix(arg, "-F") {
			frameworks = append(frameworks, strings.TrimPrefix(arg, "-F"))
		}
	}
	return frameworks, includes
}

// isMSVCCmd reports whether arg names the MSVC compiler driver, cl.exe,
// as opposed to clang-cl or another clang/gcc frontend which still take
// the -I/-D spelling and go through the gcc/clang parse path above.
func isMSVCCmd(arg string) bool {
	name := filepath.Base(strings.ReplaceAll(arg, `\`, "/"))
	name = strings.TrimSuffix(strings.ToLower(name), ".exe")
	return name == "cl"
}

// parseMSVC delegates to toolsupport/msvcutil.ScanDepsParams for a cl.exe
// invocation. MSVC searches the same directory list for both quoted and
// angle-bracket includes, so dirs fills ParsedArgs.Angle only; QuoteOnly
// stays empty, which makes SearchPath's quote list come out identical to
// its angle list rather than double-counting the same directories.
func parseMSVC(ctx context.Context, args []string) ParsedArgs {
	files, dirs, sysroots, defines, err := msvcutil.ScanDepsParams(ctx, args, nil)
	var p ParsedArgs
	p.Files = files
	p.Angle = dirs
	p.Sysroots = sysroots
	if err == nil {
		p.Defines = defines
	} else {
		p.Defines = make(map[string]string)
	}
	return p
}

// SearchPath builds a scandeps.SearchPath from parsed args: the quote list
// is quote-only entries followed by the angle-capable ones, per the
// convention that -iquote directories are searched first and only for
// quote-form includes.
func (p ParsedArgs) SearchPath() scandeps.SearchPath {
	quote := make([]string, 0, len(p.QuoteOnly)+len(p.Angle))
	quote = append(quote, p.QuoteOnly...)
	quote = append(quote, p.Angle...)
	return scandeps.SearchPath{
		Quote:      quote,
		Angle:      append([]string(nil), p.Angle...),
		Frameworks: append([]string(nil), p.Frameworks...),
	}
}

// BuildRequest resolves ParsedArgs into a scandeps.Request against factory.
// The first recognized source file becomes MainSource (-include arguments
// are resolved relative to it); all recognized sources are scanned.
func (p ParsedArgs) BuildRequest(ctx context.Context, factory *artifact.Factory, headerData scandeps.HeaderData) (*scandeps.Request, error) {
	sources := make([]*artifact.Artifact, 0, len(p.Files))
	for _, f := range p.Files {
		a, err := factory.ResolveSourceArtifact(ctx, f)
		if err != nil {
			return nil, err
		}
		sources = append(sources, a)
	}
	var mainSource *artifact.Artifact
	if len(sources) > 0 {
		mainSource = sources[0]
	}
	return &scandeps.Request{
		MainSource:      mainSource,
		Sources:         sources,
		SearchPath:      p.SearchPath(),
		CmdlineIncludes: append([]string(nil), p.Includes...),
		HeaderData:      headerData,
	}, nil
}
