// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import "math/rand"

// shuffleSeed is fixed so fan-out order is reproducible across runs given
// the same inputs: the shuffle exists to decorrelate contention on
// shared cache entries between sibling inclusions, not to randomize
// results, which are set-valued and so order-independent.
const shuffleSeed = 0x5ca1ab1e

// shuffleInclusions returns a deterministically shuffled copy of incs.
func shuffleInclusions(incs []Inclusion) []Inclusion {
	if len(incs) < 2 {
		return incs
	}
	out := make([]Inclusion, len(incs))
	copy(out, incs)
	r := rand.New(rand.NewSource(shuffleSeed))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
