// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"fmt"

	"go.chromium.org/infra/build/incscan/artifact"
)

// MissingDepError signals that an upstream dependency (e.g. a path-level
// hint set) has not been computed yet, so the outer build scheduler should
// restart the action once it has.
type MissingDepError struct {
	// Reason is a human-readable description of what is missing.
	Reason string
}

func (e *MissingDepError) Error() string {
	return fmt.Sprintf("missing dependency: %s", e.Reason)
}

// IsMissingDep reports whether err is (or wraps) a *MissingDepError.
func IsMissingDep(err error) bool {
	_, ok := asMissingDep(err)
	return ok
}

func asMissingDep(err error) (*MissingDepError, bool) {
	type wrapper interface{ Unwrap() error }
	for err != nil {
		if m, ok := err.(*MissingDepError); ok {
			return m, true
		}
		w, ok := err.(wrapper)
		if !ok {
			return nil, false
		}
		err = w.Unwrap()
	}
	return nil, false
}

// InterruptedError reports cooperative cancellation observed at a
// checkpoint, carrying the operation name and the artifact being processed
// when ctx was found done.
type InterruptedError struct {
	Operation string
	Source    *artifact.Artifact
	Cause     error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted during %s on %s: %v", e.Operation, e.Source, e.Cause)
}

func (e *InterruptedError) Unwrap() error {
	return e.Cause
}

func checkInterrupted(ctx context.Context, operation string, source *artifact.Artifact) error {
	if err := ctx.Err(); err != nil {
		return &InterruptedError{Operation: operation, Source: source, Cause: err}
	}
	return nil
}
