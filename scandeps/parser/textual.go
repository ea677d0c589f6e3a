// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package parser

import (
	"bytes"
	"context"

	"go.chromium.org/infra/build/incscan/o11y/clog"
)

// Textual is the default Extractor: a line scanner that recognizes
// #include, #include_next and #import directives and nothing else. It does
// not expand macros, does not evaluate #if/#ifdef conditionals, and does
// not tolerate a directive split across a block comment — a file written
// that way needs a real preprocessor, not this scanner.
type Textual struct{}

// ExtractInclusions implements Extractor.
func (Textual) ExtractInclusions(ctx context.Context, content []byte, treatAsGenerated bool) ([]Inclusion, error) {
	var inclusions []Inclusion
	buf := content
	for len(buf) > 0 {
		buf = bytes.TrimLeft(buf, " \t\r\n")
		if len(buf) == 0 {
			break
		}
		var line []byte
		if i := bytes.IndexByte(buf, '\n'); i < 0 {
			line = buf
			buf = nil
		} else {
			line = buf[:i]
			buf = buf[i+1:]
		}
		line = bytes.TrimRight(line, " \t\r")
		if len(line) == 0 || line[0] != '#' {
			continue
		}
		line = bytes.TrimLeft(line[1:], " \t")

		var kind InclusionKind
		switch {
		case bytes.HasPrefix(line, []byte("include_next")):
			line = line[len("include_next"):]
			kind = NextQuote // corrected to NextAngle below once delimiter is known
		case bytes.HasPrefix(line, []byte("include")):
			line = line[len("include"):]
			kind = Quote
		case bytes.HasPrefix(line, []byte("import")):
			line = line[len("import"):]
			kind = Import
		default:
			continue
		}
		if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
			// Not actually "#include" etc, e.g. "#includeme".
			continue
		}
		line = bytes.TrimLeft(line, " \t")
		if len(line) == 0 {
			clog.Infof(ctx, "directive with no path: %q", line)
			continue
		}

		name, isAngle, ok := takeDelimited(line)
		if !ok {
			clog.Infof(ctx, "unclosed include path: %q", line)
			continue
		}
		if isAngle && kind == Quote {
			kind = Angle
		} else if isAngle && kind == NextQuote {
			kind = NextAngle
		}
		inclusions = append(inclusions, Inclusion{Kind: kind, Name: name})
	}
	return inclusions, nil
}

// takeDelimited extracts the path out of a "path" or <path> token at the
// start of line, reporting whether it was angle-delimited.
func takeDelimited(line []byte) (name string, isAngle, ok bool) {
	if len(line) == 0 {
		return "", false, false
	}
	var end byte
	switch line[0] {
	case '"':
		end = '"'
	case '<':
		end = '>'
		isAngle = true
	default:
		return "", false, false
	}
	i := bytes.IndexByte(line[1:], end)
	if i < 0 {
		return "", false, false
	}
	return string(line[1 : i+1]), isAngle, true
}
