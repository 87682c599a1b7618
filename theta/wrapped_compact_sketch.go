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

	"github.com/prattrs/sketches-core/memory"
)

// WrappedCompactSketch is a read-only view over a serialized compact image.
// Hashes are read off the image on demand and never materialized; the image
// must not be mutated while the view is in use.
type WrappedCompactSketch struct {
	mem    *memory.Memory
	header *preambleData
}

// WrapCompactSketch wraps a serialized compact sketch image.
func WrapCompactSketch(mem *memory.Memory, seed uint64) (*WrappedCompactSketch, error) {
	header, err := decodeCompactPreamble(mem, seed)
	if err != nil {
		return nil, err
	}
	return &WrappedCompactSketch{
		mem:    mem.AsReadOnly(),
		header: header,
	}, nil
}

// WrapCompactSketchBytes wraps a serialized compact sketch held in a byte
// slice.
func WrapCompactSketchBytes(image []byte, seed uint64) (*WrappedCompactSketch, error) {
	return WrapCompactSketch(memory.WrapBytes(image), seed)
}

// IsEmpty reports whether the source sketch never admitted an item.
func (s *WrappedCompactSketch) IsEmpty() bool {
	return s.header.isEmpty()
}

// NumRetained returns the number of retained hashes.
func (s *WrappedCompactSketch) NumRetained() uint32 {
	return s.header.numEntries
}

// Theta64 returns the hash threshold.
func (s *WrappedCompactSketch) Theta64() uint64 {
	return s.header.theta
}

// SeedHash returns the fingerprint of the hash seed.
func (s *WrappedCompactSketch) SeedHash() (uint16, error) {
	return s.header.seedHash, nil
}

// IsOrdered reports whether the retained hashes are sorted ascending.
func (s *WrappedCompactSketch) IsOrdered() bool {
	return s.header.isOrdered() || s.header.numEntries <= 1
}

// All iterates over the retained hashes, read directly off the image.
func (s *WrappedCompactSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		start := s.header.entriesOffsetBytes()
		for i := uint32(0); i < s.header.numEntries; i++ {
			hash, err := s.mem.GetLong(start + int(i)*8)
			if err != nil {
				panic(fmt.Sprintf("wrapped image shrank underneath the sketch: %v", err))
			}
			if !yield(hash) {
				return
			}
		}
	}
}

// IsSameResource reports whether this view wraps the given region.
func (s *WrappedCompactSketch) IsSameResource(mem *memory.Memory) bool {
	return s.mem.IsSameResource(mem)
}

// ToByteArray returns a copy of the wrapped image.
func (s *WrappedCompactSketch) ToByteArray() ([]byte, error) {
	size := s.header.entriesOffsetBytes() + int(s.header.numEntries)*8
	return s.mem.GetBytes(0, size)
}
