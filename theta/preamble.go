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

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

// SerialVersion is the only serial version the core accepts. Decoders for
// retired versions live outside this package.
const SerialVersion = 3

// Byte offsets of the preamble fields shared by all theta images.
const (
	preLongsByte      = 0
	serVerByte        = 1
	familyByte        = 2
	flagsByte         = 3
	lgNomLongsByte    = 4
	lgArrLongsByte    = 5 // update-form images only
	seedHashShort     = 6
	curCountInt       = 8  // iff preLongs >= 2
	pFloat            = 12 // iff preLongs >= 2
	thetaLongLong     = 16 // iff preLongs >= 3
	updatePreambleLen = 24 // update-form images always carry 3 preamble longs
)

// Serialization flags
const (
	flagBigEndian uint8 = iota
	flagReadOnly
	flagEmpty
	flagCompact
	flagOrdered
)

// preambleData is the decoded header of a theta image.
type preambleData struct {
	theta      uint64
	numEntries uint32
	p          float32
	seedHash   uint16
	preLongs   uint8
	family     uint8
	flags      uint8
	lgNomLongs uint8
	lgArrLongs uint8
}

func (d *preambleData) isEmpty() bool {
	return d.flags&(1<<flagEmpty) != 0
}

func (d *preambleData) isCompact() bool {
	return d.flags&(1<<flagCompact) != 0
}

func (d *preambleData) isOrdered() bool {
	return d.flags&(1<<flagOrdered) != 0
}

// insertPreamble writes the shared preamble fields. It is a pure function of
// the view and the field values and may be called repeatedly.
func insertPreamble(mem *memory.Memory, preLongs, family, flags uint8, lgNomLongs, lgArrLongs uint8, seedHash uint16) error {
	if err := mem.PutByte(preLongsByte, preLongs); err != nil {
		return err
	}
	if err := mem.PutByte(serVerByte, SerialVersion); err != nil {
		return err
	}
	if err := mem.PutByte(familyByte, family); err != nil {
		return err
	}
	if err := mem.PutByte(flagsByte, flags); err != nil {
		return err
	}
	if err := mem.PutByte(lgNomLongsByte, lgNomLongs); err != nil {
		return err
	}
	if err := mem.PutByte(lgArrLongsByte, lgArrLongs); err != nil {
		return err
	}
	return mem.PutShort(seedHashShort, seedHash)
}

// extractPreamble reads and validates the header of a theta image per the
// decode contract: capacity, serial version, family, preLongs/flags
// consistency, endianness, the empty-flag invariant, then the seed
// fingerprint. Payload capacity is checked by the callers.
func extractPreamble(mem *memory.Memory, seed uint64) (*preambleData, error) {
	if mem.Capacity() < 8 {
		return nil, fmt.Errorf("memory capacity below preamble minimum of 8 bytes: %d", mem.Capacity())
	}

	serVer, _ := mem.GetByte(serVerByte)
	if serVer != SerialVersion {
		return nil, fmt.Errorf("serial version mismatch: expected %d, actual %d", SerialVersion, serVer)
	}

	family, _ := mem.GetByte(familyByte)
	if int(family) != internal.FamilyEnum.Compact.Id && int(family) != internal.FamilyEnum.QuickSelect.Id {
		return nil, fmt.Errorf("unknown sketch family: %d", family)
	}

	data := &preambleData{family: family, theta: MaxTheta, p: 1.0}
	data.preLongs, _ = mem.GetByte(preLongsByte)
	data.flags, _ = mem.GetByte(flagsByte)
	data.lgNomLongs, _ = mem.GetByte(lgNomLongsByte)
	data.lgArrLongs, _ = mem.GetByte(lgArrLongsByte)
	data.seedHash, _ = mem.GetShort(seedHashShort)

	if data.preLongs < 1 || data.preLongs > 3 {
		return nil, fmt.Errorf("preLongs must be 1, 2 or 3: %d", data.preLongs)
	}
	if data.flags&(1<<flagBigEndian) != 0 {
		return nil, fmt.Errorf("big-endian images are not supported")
	}
	if int(family) == internal.FamilyEnum.QuickSelect.Id && data.preLongs != 3 {
		return nil, fmt.Errorf("update-form image requires 3 preamble longs: %d", data.preLongs)
	}

	if mem.Capacity() < int(data.preLongs)*8 {
		return nil, fmt.Errorf("memory capacity below preamble size: %d < %d",
			mem.Capacity(), int(data.preLongs)*8)
	}

	if data.preLongs >= 2 {
		data.numEntries, _ = mem.GetInt(curCountInt)
		pBits, _ := mem.GetInt(pFloat)
		data.p = float32FromBits(pBits)
	}
	if data.preLongs >= 3 {
		data.theta, _ = mem.GetLong(thetaLongLong)
	}

	if data.isEmpty() && data.numEntries != 0 {
		return nil, fmt.Errorf("empty flag inconsistent with %d retained entries", data.numEntries)
	}

	if !data.isEmpty() {
		expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
		if err != nil {
			return nil, err
		}
		if data.seedHash != expectedSeedHash {
			return nil, fmt.Errorf("seed hash mismatch: image has %d, expected %d",
				data.seedHash, expectedSeedHash)
		}
	}

	return data, nil
}

// entriesOffsetBytes returns the byte offset at which cache entries start.
func (d *preambleData) entriesOffsetBytes() int {
	return int(d.preLongs) * 8
}

// compactPreLongs returns the preamble size in longs for a compact image:
// 3 in estimation mode, 1 when empty, 2 otherwise.
func compactPreLongs(isEmpty bool, theta uint64) uint8 {
	if theta < MaxTheta {
		return 3
	}
	if isEmpty {
		return 1
	}
	return 2
}
