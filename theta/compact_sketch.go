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
	"iter"
	"slices"

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

// CompactSketch is the immutable form of a Theta sketch: the retained hashes
// packed densely, optionally in ascending order. It is the form that
// serializes and the form set operations produce.
type CompactSketch struct {
	hashes    []uint64
	thetaLong uint64
	seedFp    uint16
	empty     bool
	ordered   bool
}

// NewCompactSketch freezes the current state of any sketch. With ordered the
// hashes are sorted ascending; an already-ordered source stays ordered
// either way.
func NewCompactSketch(source Sketch, ordered bool) *CompactSketch {
	cs := &CompactSketch{
		thetaLong: source.Theta64(),
		empty:     source.IsEmpty(),
		ordered:   source.IsOrdered(),
	}
	cs.seedFp, _ = source.SeedHash()

	if !cs.empty {
		cs.hashes = slices.Collect(source.All())
		if ordered && !cs.ordered {
			slices.Sort(cs.hashes)
		}
		cs.ordered = cs.ordered || ordered
	}
	return cs
}

// newCompactFromParts assembles a compact sketch that a set operation has
// already screened and deduplicated.
func newCompactFromParts(empty, ordered bool, seedFp uint16, thetaLong uint64, hashes []uint64) *CompactSketch {
	return &CompactSketch{
		hashes:    hashes,
		thetaLong: thetaLong,
		seedFp:    seedFp,
		empty:     empty,
		ordered:   ordered || len(hashes) <= 1,
	}
}

// IsEmpty reports whether the source sketch never admitted an item.
func (s *CompactSketch) IsEmpty() bool {
	return s.empty
}

// NumRetained returns the number of retained hashes.
func (s *CompactSketch) NumRetained() uint32 {
	return uint32(len(s.hashes))
}

// Theta64 returns the hash threshold.
func (s *CompactSketch) Theta64() uint64 {
	return s.thetaLong
}

// SeedHash returns the fingerprint of the hash seed.
func (s *CompactSketch) SeedHash() (uint16, error) {
	return s.seedFp, nil
}

// IsOrdered reports whether the retained hashes are sorted ascending.
func (s *CompactSketch) IsOrdered() bool {
	return s.ordered
}

// All iterates over the retained hashes.
func (s *CompactSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, hash := range s.hashes {
			if !yield(hash) {
				return
			}
		}
	}
}

func (s *CompactSketch) preambleLongs() uint8 {
	return compactPreLongs(s.empty, s.thetaLong)
}

// SerializedSizeBytes returns the size of this sketch's compact image.
func (s *CompactSketch) SerializedSizeBytes() int {
	return int(s.preambleLongs())*8 + len(s.hashes)*8
}

// MaxCompactSketchBytes returns the largest compact image a sketch with the
// given retained count can produce.
func MaxCompactSketchBytes(numRetained uint32) int {
	return 24 + int(numRetained)*8
}

// ToByteArray serializes the sketch into a self-contained compact image.
func (s *CompactSketch) ToByteArray() ([]byte, error) {
	mem, err := memory.NewMemory(s.SerializedSizeBytes())
	if err != nil {
		return nil, err
	}
	if err := s.SerializeInto(mem); err != nil {
		return nil, err
	}
	return mem.Bytes(), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *CompactSketch) MarshalBinary() ([]byte, error) {
	return s.ToByteArray()
}

// SerializeInto writes the compact image into the given region, which must
// have at least SerializedSizeBytes capacity.
func (s *CompactSketch) SerializeInto(mem *memory.Memory) error {
	preLongs := s.preambleLongs()

	flags := uint8(1<<flagCompact) | uint8(1<<flagReadOnly)
	if s.empty {
		flags |= 1 << flagEmpty
	}
	if s.ordered {
		flags |= 1 << flagOrdered
	}

	if err := insertPreamble(mem, preLongs, uint8(internal.FamilyEnum.Compact.Id), flags,
		0, 0, s.seedFp); err != nil {
		return err
	}

	if preLongs >= 2 {
		if err := mem.PutInt(curCountInt, uint32(len(s.hashes))); err != nil {
			return err
		}
		if err := mem.PutInt(pFloat, float32ToBits(1.0)); err != nil {
			return err
		}
	}
	if preLongs >= 3 {
		if err := mem.PutLong(thetaLongLong, s.thetaLong); err != nil {
			return err
		}
	}

	return mem.PutLongArray(int(preLongs)*8, s.hashes)
}

// CompactToMemory writes the compact form of the source sketch into the
// given region and wraps the result. The source sketch is unmodified.
func CompactToMemory(source Sketch, dst *memory.Memory, ordered bool, seed uint64) (*WrappedCompactSketch, error) {
	compact := NewCompactSketch(source, ordered)
	if dst.Capacity() < compact.SerializedSizeBytes() {
		return nil, fmt.Errorf("destination capacity %d below required %d bytes",
			dst.Capacity(), compact.SerializedSizeBytes())
	}
	if err := compact.SerializeInto(dst); err != nil {
		return nil, err
	}
	return WrapCompactSketch(dst, seed)
}
