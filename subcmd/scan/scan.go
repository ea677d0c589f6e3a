// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scan is the scan subcommand: it runs the include scanner over a
// compiler invocation or a JSON request and prints the discovered headers.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/incscan/artifact"
	"go.chromium.org/infra/build/incscan/cmdline"
	"go.chromium.org/infra/build/incscan/o11y/trace"
	"go.chromium.org/infra/build/incscan/runtimex"
	"go.chromium.org/infra/build/incscan/scandeps"
	"go.chromium.org/infra/build/incscan/scandeps/parser"
	"go.chromium.org/infra/build/incscan/sync/semaphore"
)

const usage = `run the include scanner

 $ incscan scan -C <exec-root> -- <compiler> <args>...
 $ incscan scan -C <exec-root> -req '<json scandeps.Request>'

With -req, the JSON object holds exec-path strings (main_source, sources,
quote, angle, frameworks, cmdline_includes, modular_headers, legal_outputs)
and is converted into a scandeps.Request. Without -req, the remaining
arguments are treated as a full compiler command line and converted with
cmdline.Parse.
`

// Cmd returns the Command for the `scan` subcommand.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "scan [-C <dir>] [-req <json>] [-- <compiler args>...]",
		ShortDesc: "run the include scanner over a compile command or request",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	dir       string
	reqString string
	jobs      int
	chaining  bool
	trace     bool
}

func (c *run) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "exec root to resolve artifacts under")
	c.Flags.StringVar(&c.reqString, "req", "", "json format of a scandeps.Request, instead of a compiler command line")
	c.Flags.IntVar(&c.jobs, "j", runtimex.NumCPU(), "bounded pool size for the traversal")
	c.Flags.BoolVar(&c.chaining, "future-chaining", false, "use the future-chaining traversal strategy instead of fork/join")
	c.Flags.BoolVar(&c.trace, "trace", false, "print a span timing summary to stderr after the scan")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) error {
	var tr *trace.Context
	if c.trace {
		tr = trace.New(ctx)
		ctx = trace.NewContext(ctx, tr)
	}

	execRoot, err := absPath(c.dir)
	if err != nil {
		return err
	}
	factory := artifact.New(execRoot)

	var req *scandeps.Request
	switch {
	case c.reqString != "":
		var jreq jsonRequest
		if err := json.Unmarshal([]byte(c.reqString), &jreq); err != nil {
			return fmt.Errorf("unmarshal -req: %w", err)
		}
		req, err = jreq.toRequest(ctx, factory)
		if err != nil {
			return err
		}
	case len(args) > 0:
		parsed := cmdline.Parse(ctx, args)
		req, err = parsed.BuildRequest(ctx, factory, scandeps.HeaderData{})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("need -req or a compiler command line: %w", flag.ErrHelp)
	}

	strategy := scandeps.ForkJoin
	if c.chaining {
		strategy = scandeps.FutureChaining
	}
	sem := semaphore.New("incscan-scan", c.jobs)
	s := scandeps.New(factory, parser.Textual{}, scandeps.NoHints{}, scandeps.NewFileParseCache(), sem, strategy, "", "")

	result, err := s.Scan(ctx, req)
	if tr != nil {
		for _, sd := range tr.Spans() {
			fmt.Fprintf(os.Stderr, "trace: %-8s %-40s %v\n", tr.ID()[:8], sd.Name, sd.Duration())
		}
	}
	if err != nil {
		return err
	}
	for _, inc := range result.Includes {
		fmt.Println(inc.ExecPath())
	}
	return nil
}

// jsonRequest is the wire shape accepted by -req: plain strings rather than
// *artifact.Artifact, since artifacts are only ever produced by a Factory.
type jsonRequest struct {
	MainSource      string   `json:"main_source"`
	Sources         []string `json:"sources"`
	Quote           []string `json:"quote"`
	Angle           []string `json:"angle"`
	Frameworks      []string `json:"frameworks"`
	CmdlineIncludes []string `json:"cmdline_includes"`
	ModularHeaders  []string `json:"modular_headers"`
	LegalOutputs    []string `json:"legal_outputs"`
}

func (j jsonRequest) toRequest(ctx context.Context, factory *artifact.Factory) (*scandeps.Request, error) {
	sources := make([]*artifact.Artifact, 0, len(j.Sources))
	for _, s := range j.Sources {
		a, err := factory.ResolveSourceArtifact(ctx, s)
		if err != nil {
			return nil, err
		}
		sources = append(sources, a)
	}
	var mainSource *artifact.Artifact
	if j.MainSource != "" {
		a, err := factory.ResolveSourceArtifact(ctx, j.MainSource)
		if err != nil {
			return nil, err
		}
		mainSource = a
	}
	modular := make(map[string]bool, len(j.ModularHeaders))
	for _, h := range j.ModularHeaders {
		modular[h] = true
	}
	legal := make(artifact.LegalOutputMap, len(j.LegalOutputs))
	for _, o := range j.LegalOutputs {
		legal[o] = factory.GetOutputArtifact(o, o)
	}
	return &scandeps.Request{
		MainSource:      mainSource,
		Sources:         sources,
		SearchPath:      scandeps.SearchPath{Quote: j.Quote, Angle: j.Angle, Frameworks: j.Frameworks},
		CmdlineIncludes: j.CmdlineIncludes,
		HeaderData: scandeps.HeaderData{
			ModularHeaders:            modular,
			PathToLegalOutputArtifact: legal,
		},
	}, nil
}

func absPath(dir string) (string, error) {
	if strings.HasPrefix(dir, "/") {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return wd + "/" + dir, nil
}
