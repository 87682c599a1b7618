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

package quantiles

import (
	"fmt"
	"math"
	"math/bits"
)

// DoublesUnion merges doubles sketches. The union result is equivalent to a
// single sketch fed the multiset union of all inputs; the effective accuracy
// parameter is the smallest k among the inputs (never above the configured
// maximum), so merging never claims more accuracy than the weakest input.
type DoublesUnion struct {
	gadget  *DoublesSketch
	maxK    int
	rngSeed uint64
}

type doublesUnionOptions struct {
	maxK    int
	rngSeed uint64
	seeded  bool
}

type DoublesUnionOptionFunc func(*doublesUnionOptions)

// WithUnionMaxK caps the accuracy parameter of the union result.
func WithUnionMaxK(maxK int) DoublesUnionOptionFunc {
	return func(opts *doublesUnionOptions) {
		opts.maxK = maxK
	}
}

// WithUnionRandomSeed seeds the union gadget's compaction coin flips.
func WithUnionRandomSeed(seed uint64) DoublesUnionOptionFunc {
	return func(opts *doublesUnionOptions) {
		opts.rngSeed = seed
		opts.seeded = true
	}
}

// NewDoublesUnion creates an empty union.
func NewDoublesUnion(opts ...DoublesUnionOptionFunc) (*DoublesUnion, error) {
	options := &doublesUnionOptions{maxK: DefaultK}
	for _, opt := range opts {
		opt(options)
	}
	if err := checkK(options.maxK); err != nil {
		return nil, err
	}
	if !options.seeded {
		options.rngSeed = nextRandomSeed()
	}

	return &DoublesUnion{maxK: options.maxK, rngSeed: options.rngSeed, gadget: nil}, nil
}

func (u *DoublesUnion) newGadget(k int) (*DoublesSketch, error) {
	// each gadget gets its own coin flip sequence off the union seed
	return NewDoublesSketch(WithK(k), WithRandomSeed(splitmix64(&u.rngSeed)))
}

// UpdateValue offers a single item to the union.
func (u *DoublesUnion) UpdateValue(value float64) error {
	if math.IsNaN(value) {
		return ErrNaN
	}
	if u.gadget == nil {
		gadget, err := u.newGadget(u.maxK)
		if err != nil {
			return err
		}
		u.gadget = gadget
	}
	return u.gadget.Update(value)
}

// Update merges the given sketch into the union.
func (u *DoublesUnion) Update(other *DoublesSketch) error {
	if other == nil || other.IsEmpty() {
		return nil
	}

	targetK := min(u.maxK, other.k)
	if u.gadget != nil {
		targetK = min(u.gadget.k, targetK)
	}

	if u.gadget == nil {
		gadget, err := u.newGadget(targetK)
		if err != nil {
			return err
		}
		u.gadget = gadget
	} else if targetK < u.gadget.k {
		// an input with smaller k caps the union accuracy from here on:
		// rebuild the gadget at the smaller k before absorbing the input
		rebuilt, err := u.newGadget(targetK)
		if err != nil {
			return err
		}
		if err := mergeInto(u.gadget, rebuilt); err != nil {
			return err
		}
		u.gadget = rebuilt
	}

	return mergeInto(other, u.gadget)
}

// Result returns the compact form of the union. The union keeps its state
// and can absorb further inputs.
func (u *DoublesUnion) Result() (*DoublesSketch, error) {
	if u.gadget == nil {
		empty, err := NewDoublesSketch(WithK(u.maxK))
		if err != nil {
			return nil, err
		}
		return empty.Compact(nil)
	}
	return u.gadget.Compact(nil)
}

// Reset returns the union to its empty state.
func (u *DoublesUnion) Reset() {
	u.gadget = nil
}

// IsEmpty returns true if the union has absorbed no items.
func (u *DoublesUnion) IsEmpty() bool {
	return u.gadget == nil || u.gadget.IsEmpty()
}

// mergeInto merges src into tgt. When src has a larger k its levels are
// downsampled by zipping with a power-of-two stride; equal-k levels carry
// straight across with the usual propagation rule.
func mergeInto(src, tgt *DoublesSketch) error {
	if src.IsEmpty() {
		return nil
	}
	if tgt.compactRpr {
		return ErrCompactSketch
	}
	if src.k < tgt.k {
		return fmt.Errorf("source k %d must not be less than target k %d", src.k, tgt.k)
	}
	downFactor := src.k / tgt.k
	if src.k%tgt.k != 0 || downFactor&(downFactor-1) != 0 {
		return fmt.Errorf("source k %d must be a power-of-two multiple of target k %d", src.k, tgt.k)
	}

	lgDownFactor := bits.TrailingZeros(uint(downFactor))

	// base buffer items feed through the ordinary update path
	srcAccessor := src.accessor(false)
	bbCount := srcAccessor.setLevel(baseBufferLevel).numItems()
	for i := 0; i < bbCount; i++ {
		if err := tgt.Update(srcAccessor.get(i)); err != nil {
			return err
		}
	}

	// populated source levels carry across ascending, weight-preserving:
	// a source level lvl of src.k items lands lgDownFactor levels higher
	for lvl, bitPattern := 0, src.BitPattern(); bitPattern != 0; lvl, bitPattern = lvl+1, bitPattern>>1 {
		if bitPattern&1 == 0 {
			continue
		}

		carry := srcAccessor.setLevel(lvl).getArray(0, src.k)
		if downFactor > 1 {
			carry = tgt.zipBufferWithStride(carry, downFactor, tgt.k)
		}

		tgtLevel := lvl + lgDownFactor
		newPattern, err := tgt.inPlacePropagateCarry(tgtLevel, carry, nil, false, tgt.BitPattern())
		if err != nil {
			return err
		}
		// keep n in lockstep with the pattern the carry produced
		tgt.n += (uint64(1) << tgtLevel) * uint64(2*tgt.k)
		if newPattern != tgt.BitPattern() {
			return fmt.Errorf("merge bookkeeping diverged: pattern %b vs %b",
				newPattern, tgt.BitPattern())
		}
		if err := tgt.syncPreamble(); err != nil {
			return err
		}
	}

	if src.minValue < tgt.minValue {
		tgt.minValue = src.minValue
	}
	if src.maxValue > tgt.maxValue {
		tgt.maxValue = src.maxValue
	}
	return tgt.syncPreamble()
}
