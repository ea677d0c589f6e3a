// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package parser extracts textual #include / #include_next directives
// from a single file. It does not evaluate preprocessor conditionals,
// expand macros, or tolerate block comments wrapped around an #include.
package parser

import (
	"context"
	"fmt"
)

// InclusionKind is the flavor of a single #include directive.
type InclusionKind int

// Inclusion kinds.
const (
	Quote InclusionKind = iota
	Angle
	NextQuote
	NextAngle
	// Import marks an Objective-C #import, deduplicated identically to
	// #include.
	Import
)

// IsNext reports whether k is a #include_next variant.
func (k InclusionKind) IsNext() bool {
	return k == NextQuote || k == NextAngle
}

// IsQuote reports whether k searches the quote-form search path.
func (k InclusionKind) IsQuote() bool {
	return k == Quote || k == NextQuote
}

func (k InclusionKind) String() string {
	switch k {
	case Quote:
		return "quote"
	case Angle:
		return "angle"
	case NextQuote:
		return "next-quote"
	case NextAngle:
		return "next-angle"
	case Import:
		return "import"
	default:
		return fmt.Sprintf("InclusionKind(%d)", int(k))
	}
}

// Inclusion is a single #include (or #import) directive, named but not yet
// resolved against any search path.
type Inclusion struct {
	Kind InclusionKind
	Name string
}

// Extractor extracts the inclusions named by a single file's contents.
// Implementations may be blocking; the scanner wraps each call in its own
// shared per-file memoization, so an Extractor does not need to cache on
// its own.
type Extractor interface {
	// ExtractInclusions returns the inclusions textually present in
	// content. treatAsGenerated indicates the file lives under the output
	// prefix, which some extractors use to decide whether to spawn a
	// remote/subprocess scanner instead of parsing locally.
	ExtractInclusions(ctx context.Context, content []byte, treatAsGenerated bool) ([]Inclusion, error)
}
