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
	"fmt"
	"slices"

	"github.com/prattrs/sketches-core/internal"
)

// Union accumulates the distinct-set union of Theta sketches. It keeps its
// own hash cache plus a running threshold: the minimum theta over every
// operand absorbed so far, which may drop further as the cache itself
// evicts.
type Union struct {
	acc        *hashCache
	unionTheta uint64
}

type unionConfig struct {
	hasher       Hasher
	hashSeed     uint64
	samplingP    float32
	lgNomEntries uint8
	growth       ResizeFactor
}

type UnionOptionFunc func(*unionConfig)

// WithUnionLgNomEntries sets log2 of the nominal number of entries the
// union retains.
func WithUnionLgNomEntries(lgNomEntries uint8) UnionOptionFunc {
	return func(cfg *unionConfig) {
		cfg.lgNomEntries = lgNomEntries
	}
}

// WithUnionSeed sets the hash seed the operands were built with.
func WithUnionSeed(seed uint64) UnionOptionFunc {
	return func(cfg *unionConfig) {
		cfg.hashSeed = seed
	}
}

// WithUnionSamplingProbability sets the up-front sampling probability of the
// union's own cache.
func WithUnionSamplingProbability(p float32) UnionOptionFunc {
	return func(cfg *unionConfig) {
		cfg.samplingP = p
	}
}

// WithUnionResizeFactor sets the growth step of the union's cache.
func WithUnionResizeFactor(growth ResizeFactor) UnionOptionFunc {
	return func(cfg *unionConfig) {
		cfg.growth = growth
	}
}

// WithUnionHasher sets the hash function the operands were built with.
func WithUnionHasher(hasher Hasher) UnionOptionFunc {
	return func(cfg *unionConfig) {
		cfg.hasher = hasher
	}
}

// NewUnion creates an empty union.
func NewUnion(opts ...UnionOptionFunc) (*Union, error) {
	cfg := &unionConfig{
		hasher:       PortableHasher{},
		hashSeed:     DefaultSeed,
		samplingP:    1.0,
		lgNomEntries: DefaultLgNomEntries,
		growth:       DefaultResizeFactor,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.lgNomEntries < MinLgNomEntries || cfg.lgNomEntries > MaxLgNomEntries {
		return nil, fmt.Errorf("lgNomEntries must be in [%d, %d]: %d",
			MinLgNomEntries, MaxLgNomEntries, cfg.lgNomEntries)
	}
	if cfg.samplingP <= 0 || cfg.samplingP > 1 {
		return nil, fmt.Errorf("sampling probability must be in (0, 1]: %f", cfg.samplingP)
	}

	theta := thetaFromP(cfg.samplingP)
	return &Union{
		acc: newHashCache(
			startingLgSlots(cfg.lgNomEntries+1, cfg.growth),
			cfg.lgNomEntries, cfg.growth, cfg.samplingP, theta, cfg.hashSeed, cfg.hasher,
		),
		unionTheta: theta,
	}, nil
}

// Update absorbs a sketch into the union. The running threshold drops to the
// operand's theta if that is lower; hashes at or above either threshold are
// skipped, and an ordered operand lets the scan stop at the first such hash.
func (u *Union) Update(sk Sketch) error {
	if sk.IsEmpty() {
		return nil
	}
	if err := checkSameSeedFingerprint(u.acc.hashSeed, sk); err != nil {
		return err
	}

	u.acc.seen = true
	if t := sk.Theta64(); t < u.unionTheta {
		u.unionTheta = t
	}

	for hash := range sk.All() {
		if hash >= u.unionTheta || hash >= u.acc.thetaLong {
			if sk.IsOrdered() {
				break
			}
			continue
		}
		if _, err := u.acc.admit(hash); err != nil {
			return err
		}
	}

	if u.acc.thetaLong < u.unionTheta {
		u.unionTheta = u.acc.thetaLong
	}
	return nil
}

// Result freezes the current state of the union into a compact sketch. The
// union keeps its state and can absorb further operands.
func (u *Union) Result(ordered bool) (*CompactSketch, error) {
	seedFp, err := internal.ComputeSeedHash(int64(u.acc.hashSeed))
	if err != nil {
		return nil, err
	}

	if !u.acc.seen {
		return newCompactFromParts(true, true, seedFp, u.unionTheta, nil), nil
	}

	theta := min(u.unionTheta, u.acc.thetaLong)
	hashes := make([]uint64, 0, u.acc.retained)
	for _, hash := range u.acc.slots {
		if hash != 0 && hash < theta {
			hashes = append(hashes, hash)
		}
	}

	// the cache may briefly hold more than the nominal capacity; the result
	// never does
	if nom := u.acc.nomEntries(); uint32(len(hashes)) > nom {
		internal.QuickSelect(hashes, 0, len(hashes)-1, int(nom))
		theta = hashes[nom]
		hashes = hashes[:nom]
	}

	if ordered {
		slices.Sort(hashes)
	}
	return newCompactFromParts(false, ordered, seedFp, theta, hashes), nil
}

// OrderedResult freezes the current state into an ordered compact sketch.
func (u *Union) OrderedResult() (*CompactSketch, error) {
	return u.Result(true)
}

// Reset returns the union to its initial empty state.
func (u *Union) Reset() {
	u.acc.reset()
	u.unionTheta = thetaFromP(u.acc.samplingP)
}
