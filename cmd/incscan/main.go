// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command incscan is a transitive C/C++ include scanner for build systems:
// it extracts #include directives from a set of translation units and
// recursively resolves them against a configured search path, without
// running a real preprocessor.
package main

import (
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/infra/build/incscan/subcmd/scan"
)

func main() {
	app := &subcommands.DefaultApplication{
		Name:  "incscan",
		Title: "transitive C/C++ include scanner",
		Commands: []*subcommands.Command{
			scan.Cmd(),
			subcommands.CmdHelp,
		},
	}
	os.Exit(subcommands.Run(app, os.Args[1:]))
}
