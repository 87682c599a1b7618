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
	"sort"

	"github.com/prattrs/sketches-core/memory"
)

// ToByteArray serializes the sketch into a self-contained image. With
// compact=true the payload is densely packed and the image is read-only on
// wrap; ordered additionally sorts the base buffer.
func (s *DoublesSketch) ToByteArray(compact, ordered bool) ([]byte, error) {
	size := UpdatableStorageBytes(s.k, s.n)
	if compact {
		size = CompactStorageBytes(s.k, s.n)
	}
	mem, err := memory.NewMemory(size)
	if err != nil {
		return nil, err
	}
	if err := s.serializeInto(mem, compact, ordered); err != nil {
		return nil, err
	}
	return mem.Bytes(), nil
}

// serializeInto writes the sketch image into the given region.
func (s *DoublesSketch) serializeInto(mem *memory.Memory, compact, ordered bool) error {
	var flags uint8
	if ordered {
		flags |= 1 << flagOrdered
	}
	if compact {
		flags |= (1 << flagCompact) | (1 << flagReadOnly)
	}

	if s.IsEmpty() {
		flags |= 1 << flagEmpty
		return insertPre0(mem, 1, flags, s.k)
	}

	if err := insertPre0(mem, 2, flags, s.k); err != nil {
		return err
	}
	if err := mem.PutLong(nLong, s.n); err != nil {
		return err
	}
	if err := mem.PutDouble(minDoubleLong, s.minValue); err != nil {
		return err
	}
	if err := mem.PutDouble(maxDoubleLong, s.maxValue); err != nil {
		return err
	}

	a := s.accessor(!compact)

	// base buffer, sorted on request without disturbing the source
	bbCount := a.setLevel(baseBufferLevel).numItems()
	if bbCount > 0 {
		baseBuffer := a.getArray(0, bbCount)
		if ordered {
			sort.Float64s(baseBuffer)
		}
		if err := mem.PutDoubleArray(payloadStart, baseBuffer); err != nil {
			return err
		}
	}

	offsetBytes := payloadStart + 8*bbCount
	if !compact {
		offsetBytes = payloadStart + 8*2*s.k
	}

	bitPattern := s.BitPattern()
	totalLevels := computeTotalLevels(bitPattern)
	for lvl := 0; lvl < totalLevels; lvl++ {
		populated := bitPattern&(uint64(1)<<lvl) != 0
		if populated {
			if err := mem.PutDoubleArray(offsetBytes, a.setLevel(lvl).getArray(0, s.k)); err != nil {
				return err
			}
		}
		// the non-compact layout reserves every level slot up to the
		// highest populated one
		if populated || !compact {
			offsetBytes += 8 * s.k
		}
	}

	return nil
}

// Compact produces the immutable compact form of this sketch with a sorted
// base buffer. With a nil destination the result owns heap storage;
// otherwise it is written into dst and shares it. The source sketch is
// unmodified.
func (s *DoublesSketch) Compact(dst *memory.Memory) (*DoublesSketch, error) {
	size := CompactStorageBytes(s.k, s.n)

	if dst == nil {
		heapMem, err := memory.NewMemory(size)
		if err != nil {
			return nil, err
		}
		if err := s.serializeInto(heapMem, true, true); err != nil {
			return nil, err
		}
		return Heapify(heapMem)
	}

	if dst.Capacity() < size {
		return nil, fmt.Errorf("%w: destination capacity %d below required %d bytes",
			ErrCompactSketch, dst.Capacity(), size)
	}
	if err := s.serializeInto(dst, true, true); err != nil {
		return nil, err
	}
	return Wrap(dst)
}

// Heapify reconstructs a sketch from a serialized image onto the heap. An
// update-form image yields a mutable update sketch; a compact image yields a
// compact sketch. The source region is not retained.
func Heapify(mem *memory.Memory) (*DoublesSketch, error) {
	p, err := extractDoublesPreamble(mem)
	if err != nil {
		return nil, err
	}

	s := &DoublesSketch{
		k:          p.k,
		n:          p.n,
		minValue:   p.minValue,
		maxValue:   p.maxValue,
		compactRpr: p.isCompact(),
		rng:        newXorshiftRandom(nextRandomSeed()),
	}

	if p.isEmpty() {
		if !s.compactRpr {
			s.combined = make([]float64, combinedBufferItemCapacity(s.k, 0))
		}
		s.minValue = math.Inf(1)
		s.maxValue = math.Inf(-1)
		return s, nil
	}

	numItems := computeRetainedItems(p.k, p.n)
	if !p.isCompact() {
		numItems = combinedBufferItemCapacity(p.k, p.n)
	}
	s.combined, err = mem.GetDoubleArray(payloadStart, numItems)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// HeapifyBytes reconstructs a sketch from a serialized image held in a byte
// slice.
func HeapifyBytes(image []byte) (*DoublesSketch, error) {
	return Heapify(memory.WrapBytes(image))
}

// Wrap creates a sketch sharing the given region. A compact image yields a
// read-only sketch; an update-form image yields a mutable direct sketch
// whose further updates land in the region.
func Wrap(mem *memory.Memory) (*DoublesSketch, error) {
	p, err := extractDoublesPreamble(mem)
	if err != nil {
		return nil, err
	}

	s := &DoublesSketch{
		mem:        mem,
		k:          p.k,
		n:          p.n,
		minValue:   p.minValue,
		maxValue:   p.maxValue,
		compactRpr: p.isCompact(),
		rng:        newXorshiftRandom(nextRandomSeed()),
	}
	if p.isEmpty() {
		s.minValue = math.Inf(1)
		s.maxValue = math.Inf(-1)
	}
	if s.compactRpr {
		s.mem = mem.AsReadOnly()
	} else if p.isEmpty() && p.preLongs == 1 {
		// an 8-byte empty image cannot back a mutable direct sketch
		return nil, fmt.Errorf("image capacity %d cannot back a mutable sketch, heapify instead",
			mem.Capacity())
	}
	return s, nil
}
