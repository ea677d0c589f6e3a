// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"go.chromium.org/infra/build/incscan/artifact"
)

// HeaderData carries the parts of a scan request that come from the
// action's own header-compilation metadata rather than its command line.
type HeaderData struct {
	// ModularHeaders are headers already accounted for by a precompiled
	// C++ module; traversal stops at them rather than descending into
	// their own inclusions.
	ModularHeaders map[string]bool
	// PathToLegalOutputArtifact maps the exec path of every generated
	// file produced upstream within this scan's dependency scope to its
	// artifact.
	PathToLegalOutputArtifact artifact.LegalOutputMap
}

// Request is one scan invocation's inputs.
type Request struct {
	// MainSource, if non-nil, is the translation unit CmdlineIncludes are
	// resolved against.
	MainSource *artifact.Artifact
	// Sources are the top-level files to bulk-process.
	Sources []*artifact.Artifact
	// SearchPath is the quote/angle/framework search path.
	SearchPath SearchPath
	// CmdlineIncludes are -include-style forced includes, resolved as
	// synthetic QUOTE inclusions against MainSource.
	CmdlineIncludes []string
	HeaderData      HeaderData
}

// Result is the outcome of a successful Scan.
type Result struct {
	// Includes is the transitive closure of discovered headers, exclusive
	// of modular headers' own transitive tails and of illegal outputs.
	Includes []*artifact.Artifact
}
