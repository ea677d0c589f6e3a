// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package artifact

// LegalOutputMap maps the exec path of a generated file to the artifact
// that legally produces it within a scanner's dependency scope. A real
// output path absent from this map is an illegal output: an output
// directory entry this scanner was never told about.
type LegalOutputMap map[string]*Artifact

// Lookup returns the legal artifact for execPath, if any.
func (m LegalOutputMap) Lookup(execPath string) (*Artifact, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m[execPath]
	return a, ok
}
