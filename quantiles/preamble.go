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

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

// SerialVersion is the only serial version the core accepts. Decoders for
// retired versions live outside this package.
const SerialVersion = 3

// Byte offsets of the preamble fields.
const (
	preLongsByte   = 0
	serVerByte     = 1
	familyByte     = 2
	flagsByte      = 3
	kShort         = 4
	reservedShort  = 6
	nLong          = 8  // iff preLongs >= 2
	minDoubleLong  = 16 // iff preLongs >= 2 and not empty
	maxDoubleLong  = 24 // iff preLongs >= 2 and not empty
	payloadStart   = 32
	emptyImageSize = 8
)

// Serialization flags
const (
	flagBigEndian uint8 = iota
	flagReadOnly
	flagEmpty
	flagCompact
	flagOrdered
)

// payloadOffsetBytes maps an element index within the payload area to its
// byte offset in the image.
func payloadOffsetBytes(elemIndex int) int {
	return payloadStart + 8*elemIndex
}

type doublesPreamble struct {
	n        uint64
	minValue float64
	maxValue float64
	k        int
	preLongs uint8
	flags    uint8
}

func (p *doublesPreamble) isEmpty() bool {
	return p.flags&(1<<flagEmpty) != 0
}

func (p *doublesPreamble) isCompact() bool {
	return p.flags&(1<<flagCompact) != 0
}

func (p *doublesPreamble) isOrdered() bool {
	return p.flags&(1<<flagOrdered) != 0
}

// insertPre0 writes the first preamble long. It is a pure function of the
// view and the field values and may be called repeatedly.
func insertPre0(mem *memory.Memory, preLongs, flags uint8, k int) error {
	if err := mem.PutByte(preLongsByte, preLongs); err != nil {
		return err
	}
	if err := mem.PutByte(serVerByte, SerialVersion); err != nil {
		return err
	}
	if err := mem.PutByte(familyByte, uint8(internal.FamilyEnum.Quantiles.Id)); err != nil {
		return err
	}
	if err := mem.PutByte(flagsByte, flags); err != nil {
		return err
	}
	if err := mem.PutShort(kShort, uint16(k)); err != nil {
		return err
	}
	return mem.PutShort(reservedShort, 0)
}

// writeUpdatePreamble writes the full header of an update-form region. The
// update form always carries two preamble longs plus min and max, so the
// header occupies a fixed 32 bytes.
func writeUpdatePreamble(mem *memory.Memory, k int, n uint64, minValue, maxValue float64) error {
	var flags uint8
	if n == 0 {
		flags |= 1 << flagEmpty
	}
	if err := insertPre0(mem, 2, flags, k); err != nil {
		return err
	}
	if err := mem.PutLong(nLong, n); err != nil {
		return err
	}
	if err := mem.PutDouble(minDoubleLong, minValue); err != nil {
		return err
	}
	return mem.PutDouble(maxDoubleLong, maxValue)
}

// extractDoublesPreamble reads and validates the header of a doubles image
// per the decode contract: capacity, serial version, family, preLongs/flags
// consistency, endianness, empty-flag invariant, then payload capacity.
func extractDoublesPreamble(mem *memory.Memory) (*doublesPreamble, error) {
	if mem.Capacity() < emptyImageSize {
		return nil, fmt.Errorf("memory capacity below preamble minimum of 8 bytes: %d", mem.Capacity())
	}

	serVer, _ := mem.GetByte(serVerByte)
	if serVer != SerialVersion {
		return nil, fmt.Errorf("serial version mismatch: expected %d, actual %d", SerialVersion, serVer)
	}

	family, _ := mem.GetByte(familyByte)
	if int(family) != internal.FamilyEnum.Quantiles.Id {
		return nil, fmt.Errorf("unknown sketch family: %d", family)
	}

	p := &doublesPreamble{minValue: math.Inf(1), maxValue: math.Inf(-1)}
	p.preLongs, _ = mem.GetByte(preLongsByte)
	p.flags, _ = mem.GetByte(flagsByte)
	kField, _ := mem.GetShort(kShort)
	p.k = int(kField)

	if p.preLongs != 1 && p.preLongs != 2 {
		return nil, fmt.Errorf("preLongs must be 1 or 2: %d", p.preLongs)
	}
	if p.flags&(1<<flagBigEndian) != 0 {
		return nil, fmt.Errorf("big-endian images are not supported")
	}
	if p.preLongs == 1 && !p.isEmpty() {
		return nil, fmt.Errorf("single preamble long requires the empty flag")
	}
	if err := checkK(p.k); err != nil {
		return nil, err
	}

	if p.preLongs == 2 {
		if mem.Capacity() < payloadStart {
			return nil, fmt.Errorf("memory capacity below preamble size: %d < %d",
				mem.Capacity(), payloadStart)
		}
		p.n, _ = mem.GetLong(nLong)
		if !p.isEmpty() {
			p.minValue, _ = mem.GetDouble(minDoubleLong)
			p.maxValue, _ = mem.GetDouble(maxDoubleLong)
		}
	}

	if p.isEmpty() && p.n != 0 {
		return nil, fmt.Errorf("empty flag inconsistent with n = %d", p.n)
	}
	if !p.isEmpty() && p.n == 0 {
		return nil, fmt.Errorf("n = 0 requires the empty flag")
	}

	requiredPayload := CompactStorageBytes(p.k, p.n)
	if !p.isCompact() {
		requiredPayload = UpdatableStorageBytes(p.k, p.n)
	}
	if mem.Capacity() < requiredPayload {
		return nil, fmt.Errorf("at least %d bytes expected, actual %d", requiredPayload, mem.Capacity())
	}

	return p, nil
}
