// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/o11y/trace"
	"go.chromium.org/infra/build/incscan/osfs"
	"go.chromium.org/infra/build/incscan/scandeps/parser"
	"go.chromium.org/infra/build/incscan/sync/semaphore"
)

// Strategy selects how the traversal engine pipelines recursive work.
// Selection is global per Scanner: both strategies share the same
// resolution, caching and deduplication logic and differ only in whether a
// recursive processing step always goes through the pool or can run
// inline when the target is already parsed.
type Strategy int

const (
	// ForkJoin dispatches recursion on a not-yet-parsed file to the pool
	// but runs recursion on an already-parsed file inline, since pool
	// submission overhead would exceed the saved latency.
	ForkJoin Strategy = iota
	// FutureChaining always dispatches recursion through the pool,
	// composing each stage the way chained futures would.
	FutureChaining
)

func (s Strategy) String() string {
	switch s {
	case ForkJoin:
		return "fork-join"
	case FutureChaining:
		return "future-chaining"
	default:
		return "unknown"
	}
}

// Scanner holds the immutable configuration shared by every Scan call: the
// artifact factory, the textual parser, the hint database, the shared
// file-parse cache, and the bounded worker pool.
type Scanner struct {
	factory    *artifact.Factory
	fsys       *osfs.OSFS
	extractor  parser.Extractor
	hints      Hints
	fileParses *FileParseCache
	sem        *semaphore.Semaphore
	strategy   Strategy

	outputPrefix string
	incRoot      string
}

// New creates a Scanner. fileParses may be shared across multiple Scanners,
// matching the file-parse cache's external ownership. A nil hints
// defaults to NoHints.
func New(factory *artifact.Factory, extractor parser.Extractor, hints Hints, fileParses *FileParseCache, sem *semaphore.Semaphore, strategy Strategy, outputPrefix, incRoot string) *Scanner {
	if hints == nil {
		hints = NoHints{}
	}
	return &Scanner{
		factory:      factory,
		fsys:         factory.OSFS(),
		extractor:    extractor,
		hints:        hints,
		fileParses:   fileParses,
		sem:          sem,
		strategy:     strategy,
		outputPrefix: outputPrefix,
		incRoot:      incRoot,
	}
}

// run is the per-invocation state of a single Scan call: its own visited
// sets, caches keyed for this call's legal-output scope, and the errgroup
// currently fanning out work.
type run struct {
	s     *Scanner
	legal artifact.LegalOutputMap
	sp    SearchPath

	modularHeaders map[string]bool

	rcache *resolutionCache
	pcache *pathExistenceCache

	visited           *concurrentSet[string]
	visitedInclusions *concurrentSet[ArtifactWithInclusionContext]

	includesMu sync.Mutex
	includes   map[string]*artifact.Artifact

	eg *errgroup.Group
}

func (r *run) isModular(a *artifact.Artifact) bool {
	return r.modularHeaders != nil && r.modularHeaders[a.ExecPath()]
}

func (r *run) addVisited(a *artifact.Artifact) bool {
	novel := r.visited.Add(a.ExecPath())
	if novel {
		r.includesMu.Lock()
		r.includes[a.ExecPath()] = a
		r.includesMu.Unlock()
	}
	return novel
}

// runPhase dispatches tasks onto a fresh bounded-pool errgroup and blocks
// until they and anything they recursively dispatch have quiesced,
// surfacing the first failure.
func (r *run) runPhase(ctx context.Context, tasks []func(ctx context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}
	eg, gctx := errgroup.WithContext(ctx)
	r.eg = eg
	for _, t := range tasks {
		task := t
		eg.Go(func() error {
			return r.s.sem.Do(gctx, task)
		})
	}
	return eg.Wait()
}

// dispatch schedules f as a child of the phase currently in flight.
func (r *run) dispatch(ctx context.Context, f func(ctx context.Context) error) {
	r.eg.Go(func() error {
		return r.s.sem.Do(ctx, f)
	})
}

// visitArtifactTask adds a to the visited set and, if novel and not
// modular, parses and recurses into it — the shape shared by bulk source
// processing and hint-driven expansion, both of which start from an
// already-resolved Artifact rather than an unresolved Inclusion.
func visitArtifactTask(r *run, a *artifact.Artifact, ctxKind ContextKind, ctxPos int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if !r.addVisited(a) {
			return nil
		}
		if r.isModular(a) {
			return nil
		}
		return r.process(ctx, a, ctxKind, ctxPos)
	}
}

// process extracts source's inclusions (memoized) and resolves each one in
// a deterministically shuffled order.
func (r *run) process(ctx context.Context, source *artifact.Artifact, ctxKind ContextKind, ctxPos int) (err error) {
	ctx, span := trace.NewSpan(ctx, "process")
	span.SetAttr("source", source.ExecPath())
	defer func() { span.Close(err) }()

	if err := checkInterrupted(ctx, "parse", source); err != nil {
		return err
	}
	incs, err := r.s.fileParses.Load(ctx, source.ExecPath(), func(ctx context.Context) ([]Inclusion, error) {
		return r.extract(ctx, source)
	})
	if err != nil {
		return err
	}
	for _, inc := range shuffleInclusions(incs) {
		iwc := newInclusionWithContext(inc, ctxKind, ctxPos)
		if err := r.findAndProcess(ctx, iwc, source); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) extract(ctx context.Context, source *artifact.Artifact) ([]Inclusion, error) {
	abs := r.s.factory.AbsolutePath(source)
	rc, err := r.s.fsys.FileSource(abs).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	treatAsGenerated := isRealOutputFile(source.ExecPath(), r.s.outputPrefix, r.s.incRoot)
	return r.s.extractor.ExtractInclusions(ctx, content, treatAsGenerated)
}

// findAndProcess resolves a single inclusion in the context of includer,
// dedups it, and recurses if it hasn't already been handled.
func (r *run) findAndProcess(ctx context.Context, iwc InclusionWithContext, includer *artifact.Artifact) error {
	if err := checkInterrupted(ctx, "resolve", includer); err != nil {
		return err
	}

	var file *artifact.Artifact
	ctxPos := 0
	ctxKind := ContextNone

	if iwc.Inclusion.Kind == Quote {
		a, ok, err := relativeResolve(ctx, r.s.factory, r.pcache, r.legal, r.s.outputPrefix, r.s.incRoot, includer, iwc.Inclusion.Name)
		if err != nil {
			return err
		}
		if ok {
			file = a
		}
	}

	if file == nil {
		res := r.rcache.lookup(ctx, r.s.factory, r.pcache, r.legal, r.s.factory.ExecRoot(), r.s.outputPrefix, r.s.incRoot, r.sp, iwc)
		if !res.Found {
			return nil
		}
		file = res.Artifact
		ctxPos = res.IncludePosition
		ctxKind = iwc.ContextKind
	}

	if file == nil || isIllegalOutputFile(file.ExecPath(), r.legal, r.s.outputPrefix, r.s.incRoot) {
		return nil
	}

	key := ArtifactWithInclusionContext{Artifact: file, ContextKind: ctxKind, ContextPathPos: ctxPos}
	if !r.visitedInclusions.Add(key) {
		return nil
	}
	r.addVisited(file)
	if r.isModular(file) {
		return nil
	}
	return r.recurse(ctx, file, ctxKind, ctxPos)
}

// recurse applies the strategy's pipelining rule: fork/join runs an
// already-started parse inline, everything else goes through the pool.
func (r *run) recurse(ctx context.Context, file *artifact.Artifact, ctxKind ContextKind, ctxPos int) error {
	if r.s.strategy == ForkJoin && r.s.fileParses.Started(file.ExecPath()) {
		return r.process(ctx, file, ctxKind, ctxPos)
	}
	r.dispatch(ctx, func(ctx context.Context) error {
		return r.process(ctx, file, ctxKind, ctxPos)
	})
	return nil
}

// hintFrontierLoop expands file-level hints from the set of newly visited
// headers until no novel artifact remains. Each pass's frontier is every
// artifact newly added to r.visited during the previous pass: a hint's own
// textual #includes are discovered recursively by visitArtifactTask within
// the same runPhase, so the next frontier must include that whole
// transitive closure, not just the direct hints themselves — otherwise a
// header several #includes deep from a hint never gets its own file-level
// hints followed.
func (r *run) hintFrontierLoop(ctx context.Context) error {
	seen := make(map[string]bool)
	for _, k := range r.visited.Keys() {
		seen[k] = true
	}
	frontier := r.visited.Keys()
	for len(frontier) > 0 {
		adjacent := make(map[string]*artifact.Artifact)
		for _, execPath := range frontier {
			r.includesMu.Lock()
			a := r.includes[execPath]
			r.includesMu.Unlock()
			if a == nil {
				continue
			}
			hinted, err := r.s.hints.FileLevelHintedInclusions(ctx, a)
			if err != nil {
				return err
			}
			for _, h := range hinted {
				if !seen[h.ExecPath()] {
					adjacent[h.ExecPath()] = h
				}
			}
		}
		if len(adjacent) == 0 {
			return nil
		}
		var tasks []func(ctx context.Context) error
		for _, a := range adjacent {
			tasks = append(tasks, visitArtifactTask(r, a, ContextNone, TopLevelContextPathPos))
		}
		if err := r.runPhase(ctx, tasks); err != nil {
			return err
		}
		var next []string
		for _, k := range r.visited.Keys() {
			if !seen[k] {
				seen[k] = true
				next = append(next, k)
			}
		}
		frontier = next
	}
	return nil
}

// Scan computes the transitive closure of headers req's sources pull in.
func (s *Scanner) Scan(ctx context.Context, req *Request) (result *Result, err error) {
	ctx, span := trace.NewSpan(ctx, "scan")
	span.SetAttr("strategy", s.strategy.String())
	span.SetAttr("sources", len(req.Sources))
	defer func() { span.Close(err) }()

	r := &run{
		s:                 s,
		legal:             req.HeaderData.PathToLegalOutputArtifact,
		sp:                req.SearchPath,
		modularHeaders:    req.HeaderData.ModularHeaders,
		rcache:            newResolutionCache(),
		pcache:            newPathExistenceCache(s.fsys, s.factory.ExecRoot()),
		visited:           newConcurrentSet[string](),
		visitedInclusions: newConcurrentSet[ArtifactWithInclusionContext](),
		includes:          make(map[string]*artifact.Artifact),
	}

	pathHints, err := s.hints.PathLevelHintedInclusions(ctx, r.sp.Quote)
	if err != nil {
		return nil, err
	}

	if req.MainSource != nil && len(req.CmdlineIncludes) > 0 {
		tasks := make([]func(ctx context.Context) error, len(req.CmdlineIncludes))
		for i, name := range req.CmdlineIncludes {
			name := name
			tasks[i] = func(ctx context.Context) error {
				iwc := InclusionWithContext{
					Inclusion:      Inclusion{Kind: Quote, Name: name},
					ContextKind:    ContextQuote,
					ContextPathPos: TopLevelContextPathPos,
				}
				return r.findAndProcess(ctx, iwc, req.MainSource)
			}
		}
		if err = r.runPhase(ctx, tasks); err != nil {
			return nil, err
		}
	}

	if len(req.Sources) > 0 {
		tasks := make([]func(ctx context.Context) error, len(req.Sources))
		for i, src := range req.Sources {
			tasks[i] = visitArtifactTask(r, src, ContextNone, TopLevelContextPathPos)
		}
		if err = r.runPhase(ctx, tasks); err != nil {
			return nil, err
		}
	}

	if _, noHints := s.hints.(NoHints); !noHints {
		if len(pathHints) > 0 {
			tasks := make([]func(ctx context.Context) error, len(pathHints))
			for i, a := range pathHints {
				tasks[i] = visitArtifactTask(r, a, ContextNone, TopLevelContextPathPos)
			}
			if err = r.runPhase(ctx, tasks); err != nil {
				return nil, err
			}
		}

		if len(req.Sources) > 0 {
			tasks := make([]func(ctx context.Context) error, len(req.Sources))
			for i, src := range req.Sources {
				src := src
				tasks[i] = func(ctx context.Context) error {
					hinted, err := s.hints.FileLevelHintedInclusions(ctx, src)
					if err != nil {
						return err
					}
					for _, h := range hinted {
						if err := visitArtifactTask(r, h, ContextNone, TopLevelContextPathPos)(ctx); err != nil {
							return err
						}
					}
					return nil
				}
			}
			if err = r.runPhase(ctx, tasks); err != nil {
				return nil, err
			}
		}

		if err = r.hintFrontierLoop(ctx); err != nil {
			return nil, err
		}
	}

	result = &Result{Includes: make([]*artifact.Artifact, 0, len(r.includes))}
	for _, a := range r.includes {
		result.Includes = append(result.Includes, a)
	}
	return result, nil
}
