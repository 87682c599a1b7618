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
	"errors"
	"fmt"
	"slices"

	"github.com/prattrs/sketches-core/internal"
)

// ErrNoIntersectionResult is returned when the result is requested before
// any operand was absorbed; the intersection of nothing is undefined.
var ErrNoIntersectionResult = errors.New("intersection result is undefined before the first update")

// Intersection accumulates the hashes common to every operand. The running
// set starts as a copy of the first operand and shrinks with each further
// one; the running threshold is the minimum theta over all operands, and
// only hashes below it survive.
type Intersection struct {
	common    map[uint64]struct{}
	thetaLong uint64
	hashSeed  uint64
	empty     bool
	primed    bool
}

type intersectionConfig struct {
	hashSeed uint64
}

type IntersectionOptionFunc func(*intersectionConfig)

// WithIntersectionSeed sets the hash seed the operands were built with.
func WithIntersectionSeed(seed uint64) IntersectionOptionFunc {
	return func(cfg *intersectionConfig) {
		cfg.hashSeed = seed
	}
}

// NewIntersection creates an intersection with no operands yet.
func NewIntersection(opts ...IntersectionOptionFunc) *Intersection {
	cfg := &intersectionConfig{hashSeed: DefaultSeed}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Intersection{
		thetaLong: MaxTheta,
		hashSeed:  cfg.hashSeed,
	}
}

// Update intersects the running set with a sketch. An empty operand pins the
// result to the empty set; once there, further operands change nothing.
func (x *Intersection) Update(sk Sketch) error {
	if x.empty {
		return nil
	}

	if sk.IsEmpty() {
		x.primed = true
		x.empty = true
		x.thetaLong = MaxTheta
		x.common = nil
		return nil
	}

	if err := checkSameSeedFingerprint(x.hashSeed, sk); err != nil {
		return err
	}
	if t := sk.Theta64(); t < x.thetaLong {
		x.thetaLong = t
	}

	if !x.primed {
		// the first operand seeds the running set
		x.primed = true
		x.common = make(map[uint64]struct{}, sk.NumRetained())
		for hash := range sk.All() {
			if _, dup := x.common[hash]; dup {
				return fmt.Errorf("hash %d appears twice in the operand, image may be corrupted", hash)
			}
			x.common[hash] = struct{}{}
		}
		return nil
	}

	if len(x.common) == 0 {
		return nil
	}

	surviving := make(map[uint64]struct{}, min(len(x.common), int(sk.NumRetained())))
	for hash := range sk.All() {
		if hash >= x.thetaLong {
			if sk.IsOrdered() {
				break
			}
			continue
		}
		if _, ok := x.common[hash]; ok {
			surviving[hash] = struct{}{}
		}
	}
	x.common = surviving

	// with nothing retained and no sampling in play, the operands were
	// provably disjoint
	if len(surviving) == 0 && x.thetaLong == MaxTheta {
		x.empty = true
	}
	return nil
}

// HasResult reports whether at least one operand was absorbed.
func (x *Intersection) HasResult() bool {
	return x.primed
}

// Result freezes the current running set into a compact sketch.
func (x *Intersection) Result(ordered bool) (*CompactSketch, error) {
	if !x.primed {
		return nil, ErrNoIntersectionResult
	}

	seedFp, err := internal.ComputeSeedHash(int64(x.hashSeed))
	if err != nil {
		return nil, err
	}

	hashes := make([]uint64, 0, len(x.common))
	for hash := range x.common {
		if hash < x.thetaLong {
			hashes = append(hashes, hash)
		}
	}
	if ordered {
		slices.Sort(hashes)
	}

	return newCompactFromParts(x.empty, ordered, seedFp, x.thetaLong, hashes), nil
}

// OrderedResult freezes the current running set into an ordered compact
// sketch.
func (x *Intersection) OrderedResult() (*CompactSketch, error) {
	return x.Result(true)
}
