/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package theta

import (
	"slices"

	"github.com/prattrs/sketches-core/internal"
)

// ANotB computes the set difference A \ B: the hashes of A that do not
// appear in B, restricted to the window below the smaller of the two
// thetas. The result carries that smaller theta.
func ANotB(a, b Sketch, seed uint64, ordered bool) (*CompactSketch, error) {
	seedFp, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return nil, err
	}

	// nothing to subtract from, or nothing to subtract
	if a.IsEmpty() {
		return NewCompactSketch(a, ordered), nil
	}
	if b.IsEmpty() && a.NumRetained() > 0 {
		return NewCompactSketch(a, ordered), nil
	}

	if err := checkSameSeedFingerprint(seed, a); err != nil {
		return nil, err
	}
	if err := checkSameSeedFingerprint(seed, b); err != nil {
		return nil, err
	}

	threshold := min(a.Theta64(), b.Theta64())

	excluded := make(map[uint64]struct{}, b.NumRetained())
	for hash := range b.All() {
		if hash >= threshold {
			if b.IsOrdered() {
				break
			}
			continue
		}
		excluded[hash] = struct{}{}
	}

	var difference []uint64
	for hash := range a.All() {
		if hash >= threshold {
			if a.IsOrdered() {
				break
			}
			continue
		}
		if _, drop := excluded[hash]; !drop {
			difference = append(difference, hash)
		}
	}

	// an exact-mode difference that kept nothing is provably the empty set
	empty := len(difference) == 0 && threshold == MaxTheta

	resultOrdered := a.IsOrdered() || ordered
	if ordered && !a.IsOrdered() {
		slices.Sort(difference)
	}

	return newCompactFromParts(empty, resultOrdered, seedFp, threshold, difference), nil
}
