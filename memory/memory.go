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

// Package memory provides a positional little-endian byte accessor over either
// a heap-owned region or a caller-supplied region. Update operations, queries
// and serialization all read and write through the same positional contract,
// so a sketch does not care which kind of region backs it.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrReadOnly is returned on any attempted write through a read-only view.
var ErrReadOnly = errors.New("memory region is read-only")

// Memory is a positional byte-addressed view of a fixed-size region.
// All multi-byte accessors are little-endian. Offsets are byte offsets from
// the start of the region; no pointer arithmetic is exposed.
type Memory struct {
	region   []byte
	direct   bool
	readOnly bool
}

// NewMemory allocates a zeroed heap-owned region of the given capacity.
func NewMemory(capacityBytes int) (*Memory, error) {
	if capacityBytes < 0 {
		return nil, fmt.Errorf("capacity must not be negative: %d", capacityBytes)
	}
	return &Memory{region: make([]byte, capacityBytes)}, nil
}

// WrapBytes wraps a caller-supplied region. The view does not own the region
// and never frees it; the caller guarantees the region outlives the view.
func WrapBytes(region []byte) *Memory {
	return &Memory{region: region, direct: true}
}

// AsReadOnly returns a read-only view over the same region.
// Writes through the returned view fail with ErrReadOnly.
func (m *Memory) AsReadOnly() *Memory {
	return &Memory{region: m.region, direct: m.direct, readOnly: true}
}

// Capacity returns the size of the region in bytes.
func (m *Memory) Capacity() int {
	return len(m.region)
}

// IsDirect returns true if the region was supplied by the caller rather than
// allocated by this view.
func (m *Memory) IsDirect() bool {
	return m.direct
}

// IsReadOnly returns true if writes through this view are rejected.
func (m *Memory) IsReadOnly() bool {
	return m.readOnly
}

// IsSameResource returns true if both views wrap the same underlying region
// with the same offset and capacity.
func (m *Memory) IsSameResource(other *Memory) bool {
	if other == nil {
		return false
	}
	if len(m.region) != len(other.region) {
		return false
	}
	if len(m.region) == 0 {
		return &m.region == &other.region
	}
	return &m.region[0] == &other.region[0]
}

func (m *Memory) checkBounds(offsetBytes, lengthBytes int) error {
	if offsetBytes < 0 || lengthBytes < 0 || offsetBytes+lengthBytes > len(m.region) {
		return fmt.Errorf("bounds violation: offset %d, length %d, capacity %d",
			offsetBytes, lengthBytes, len(m.region))
	}
	return nil
}

func (m *Memory) checkWritable(offsetBytes, lengthBytes int) error {
	if m.readOnly {
		return ErrReadOnly
	}
	return m.checkBounds(offsetBytes, lengthBytes)
}

// GetByte returns the byte at the given offset.
func (m *Memory) GetByte(offsetBytes int) (byte, error) {
	if err := m.checkBounds(offsetBytes, 1); err != nil {
		return 0, err
	}
	return m.region[offsetBytes], nil
}

// PutByte writes a byte at the given offset.
func (m *Memory) PutByte(offsetBytes int, value byte) error {
	if err := m.checkWritable(offsetBytes, 1); err != nil {
		return err
	}
	m.region[offsetBytes] = value
	return nil
}

// GetShort returns the little-endian uint16 at the given offset.
func (m *Memory) GetShort(offsetBytes int) (uint16, error) {
	if err := m.checkBounds(offsetBytes, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.region[offsetBytes:]), nil
}

// PutShort writes a little-endian uint16 at the given offset.
func (m *Memory) PutShort(offsetBytes int, value uint16) error {
	if err := m.checkWritable(offsetBytes, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.region[offsetBytes:], value)
	return nil
}

// GetInt returns the little-endian uint32 at the given offset.
func (m *Memory) GetInt(offsetBytes int) (uint32, error) {
	if err := m.checkBounds(offsetBytes, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.region[offsetBytes:]), nil
}

// PutInt writes a little-endian uint32 at the given offset.
func (m *Memory) PutInt(offsetBytes int, value uint32) error {
	if err := m.checkWritable(offsetBytes, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.region[offsetBytes:], value)
	return nil
}

// GetLong returns the little-endian uint64 at the given offset.
func (m *Memory) GetLong(offsetBytes int) (uint64, error) {
	if err := m.checkBounds(offsetBytes, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.region[offsetBytes:]), nil
}

// PutLong writes a little-endian uint64 at the given offset.
func (m *Memory) PutLong(offsetBytes int, value uint64) error {
	if err := m.checkWritable(offsetBytes, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.region[offsetBytes:], value)
	return nil
}

// GetDouble returns the little-endian float64 at the given offset.
func (m *Memory) GetDouble(offsetBytes int) (float64, error) {
	bits, err := m.GetLong(offsetBytes)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// PutDouble writes a little-endian float64 at the given offset.
func (m *Memory) PutDouble(offsetBytes int, value float64) error {
	return m.PutLong(offsetBytes, math.Float64bits(value))
}

// GetLongArray copies numLongs little-endian uint64 values starting at the
// given offset into a new slice.
func (m *Memory) GetLongArray(offsetBytes int, numLongs int) ([]uint64, error) {
	if err := m.checkBounds(offsetBytes, numLongs*8); err != nil {
		return nil, err
	}
	out := make([]uint64, numLongs)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(m.region[offsetBytes+i*8:])
	}
	return out, nil
}

// PutLongArray writes the given uint64 values little-endian starting at the
// given offset.
func (m *Memory) PutLongArray(offsetBytes int, values []uint64) error {
	if err := m.checkWritable(offsetBytes, len(values)*8); err != nil {
		return err
	}
	for i, v := range values {
		binary.LittleEndian.PutUint64(m.region[offsetBytes+i*8:], v)
	}
	return nil
}

// GetDoubleArray copies numDoubles little-endian float64 values starting at
// the given offset into a new slice.
func (m *Memory) GetDoubleArray(offsetBytes int, numDoubles int) ([]float64, error) {
	if err := m.checkBounds(offsetBytes, numDoubles*8); err != nil {
		return nil, err
	}
	out := make([]float64, numDoubles)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(m.region[offsetBytes+i*8:]))
	}
	return out, nil
}

// PutDoubleArray writes the given float64 values little-endian starting at
// the given offset.
func (m *Memory) PutDoubleArray(offsetBytes int, values []float64) error {
	if err := m.checkWritable(offsetBytes, len(values)*8); err != nil {
		return err
	}
	for i, v := range values {
		binary.LittleEndian.PutUint64(m.region[offsetBytes+i*8:], math.Float64bits(v))
	}
	return nil
}

// GetBytes copies lengthBytes bytes starting at the given offset into a new
// slice.
func (m *Memory) GetBytes(offsetBytes int, lengthBytes int) ([]byte, error) {
	if err := m.checkBounds(offsetBytes, lengthBytes); err != nil {
		return nil, err
	}
	out := make([]byte, lengthBytes)
	copy(out, m.region[offsetBytes:offsetBytes+lengthBytes])
	return out, nil
}

// PutBytes writes the given bytes starting at the given offset.
func (m *Memory) PutBytes(offsetBytes int, values []byte) error {
	if err := m.checkWritable(offsetBytes, len(values)); err != nil {
		return err
	}
	copy(m.region[offsetBytes:], values)
	return nil
}

// CopyTo copies lengthBytes bytes from this view into dst.
func (m *Memory) CopyTo(srcOffsetBytes int, dst *Memory, dstOffsetBytes int, lengthBytes int) error {
	if err := m.checkBounds(srcOffsetBytes, lengthBytes); err != nil {
		return err
	}
	if err := dst.checkWritable(dstOffsetBytes, lengthBytes); err != nil {
		return err
	}
	copy(dst.region[dstOffsetBytes:], m.region[srcOffsetBytes:srcOffsetBytes+lengthBytes])
	return nil
}

// Clear zeroes lengthBytes bytes starting at the given offset.
func (m *Memory) Clear(offsetBytes int, lengthBytes int) error {
	if err := m.checkWritable(offsetBytes, lengthBytes); err != nil {
		return err
	}
	clear(m.region[offsetBytes : offsetBytes+lengthBytes])
	return nil
}

// Bytes returns a copy of the entire region.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.region))
	copy(out, m.region)
	return out
}
