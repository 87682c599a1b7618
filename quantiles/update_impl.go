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
	"sort"
)

// processFullBaseBuffer compacts a just-filled base buffer into the levels.
// It runs right after n became a multiple of 2k, so the pattern the carry
// propagates under is the one before this fill completed.
func (s *DoublesSketch) processFullBaseBuffer() error {
	baseBuffer := s.readPayloadItems(0, 2*s.k)
	sort.Float64s(baseBuffer)

	oldBitPattern := computeBitPattern(s.k, s.n) - 1
	_, err := s.inPlacePropagateCarry(0, nil, baseBuffer, true, oldBitPattern)
	return err
}

// inPlacePropagateCarry merges a carry into the levels starting at
// startingLevel under the given bit pattern and returns the new pattern.
// With doUpdateVersion the carry is size2KBuf (2k sorted items) and is
// halved into the target level; otherwise sizeKBuf (k sorted items) is
// copied in unchanged. Each halving step consumes one coin flip from the
// sketch-local generator.
func (s *DoublesSketch) inPlacePropagateCarry(startingLevel int, sizeKBuf, size2KBuf []float64, doUpdateVersion bool, bitPattern uint64) (uint64, error) {
	endingLevel := lowestZeroBitStartingAt(bitPattern, startingLevel)

	if err := s.ensureLevels(endingLevel + 1); err != nil {
		return bitPattern, err
	}

	tgt := s.accessor(true)
	if doUpdateVersion {
		// halve the 2k-item carry into the target level
		if err := s.zipBuffer(size2KBuf, tgt.setLevel(endingLevel)); err != nil {
			return bitPattern, err
		}
	} else {
		if err := tgt.setLevel(endingLevel).putArray(sizeKBuf, 0); err != nil {
			return bitPattern, err
		}
	}

	for lvl := startingLevel; lvl < endingLevel; lvl++ {
		merged := mergeTwoSizeKWindows(
			s.accessor(true).setLevel(lvl),
			s.accessor(true).setLevel(endingLevel),
			s.k,
		)
		if err := s.zipBuffer(merged, tgt.setLevel(endingLevel)); err != nil {
			return bitPattern, err
		}
	}

	// bits startingLevel..endingLevel-1 are all set, so the add carries
	// through them and sets endingLevel
	return bitPattern + (uint64(1) << startingLevel), nil
}

// zipBuffer halves a 2k-item sorted buffer into the k-item target window,
// keeping either the odd or the even positions by fair coin.
func (s *DoublesSketch) zipBuffer(buf []float64, tgt *doublesAccessor) error {
	offset := s.rng.nextBit()
	for i, j := offset, 0; j < s.k; i, j = i+2, j+1 {
		if err := tgt.set(j, buf[i]); err != nil {
			return err
		}
	}
	return nil
}

// zipBufferWithStride selects every stride-th item of a sorted buffer,
// starting at a uniformly random offset within the first stride. This is the
// generalization of zipBuffer used when downsampling a larger-k sketch.
func (s *DoublesSketch) zipBufferWithStride(buf []float64, stride, targetLen int) []float64 {
	offset := int(s.rng.next() % uint64(stride))
	out := make([]float64, targetLen)
	for i, j := offset, 0; j < targetLen; i, j = i+stride, j+1 {
		out[j] = buf[i]
	}
	return out
}

// mergeTwoSizeKWindows merges two sorted k-item windows into a sorted
// 2k-item buffer.
func mergeTwoSizeKWindows(a, b *doublesAccessor, k int) []float64 {
	out := make([]float64, 2*k)
	i, j := 0, 0
	for n := 0; n < 2*k; n++ {
		switch {
		case i == k:
			out[n] = b.get(j)
			j++
		case j == k:
			out[n] = a.get(i)
			i++
		case a.get(i) <= b.get(j):
			out[n] = a.get(i)
			i++
		default:
			out[n] = b.get(j)
			j++
		}
	}
	return out
}

// ensureLevels makes room for the given number of levels, growing the heap
// combined buffer or checking the direct region capacity.
func (s *DoublesSketch) ensureLevels(numLevels int) error {
	neededItems := (2 + numLevels) * s.k
	if s.mem != nil {
		required := payloadStart + 8*neededItems
		if s.mem.Capacity() < required {
			return fmt.Errorf("memory capacity %d below required %d bytes for k %d",
				s.mem.Capacity(), required, s.k)
		}
		return nil
	}
	s.growCombinedBuffer(neededItems)
	return nil
}

// readPayloadItems copies items straight out of the payload area, bypassing
// window accounting. Used when the derived base buffer count has already
// wrapped to zero but the items are still in place.
func (s *DoublesSketch) readPayloadItems(from, n int) []float64 {
	if s.mem != nil {
		out, err := s.mem.GetDoubleArray(payloadOffsetBytes(from), n)
		if err != nil {
			panic("payload read beyond sketch region: " + err.Error())
		}
		return out
	}
	out := make([]float64, n)
	copy(out, s.combined[from:from+n])
	return out
}
