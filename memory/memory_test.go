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

package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapMemoryRoundtrip(t *testing.T) {
	mem, err := NewMemory(32)
	require.NoError(t, err)
	assert.Equal(t, 32, mem.Capacity())
	assert.False(t, mem.IsDirect())
	assert.False(t, mem.IsReadOnly())

	require.NoError(t, mem.PutByte(0, 0xFF))
	require.NoError(t, mem.PutShort(1, 0xFFFF))
	require.NoError(t, mem.PutInt(3, 0xDEADBEEF))
	require.NoError(t, mem.PutLong(8, 1<<30))
	require.NoError(t, mem.PutDouble(16, float64(uint64(1)<<40)))

	b, err := mem.GetByte(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	s, err := mem.GetShort(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), s)

	i, err := mem.GetInt(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), i)

	l, err := mem.GetLong(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<30), l)

	d, err := mem.GetDouble(16)
	require.NoError(t, err)
	assert.Equal(t, float64(uint64(1)<<40), d)
}

func TestLittleEndianLayout(t *testing.T) {
	mem, err := NewMemory(8)
	require.NoError(t, err)
	require.NoError(t, mem.PutLong(0, 0x0102030405060708))

	first, err := mem.GetByte(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x08), first)

	last, err := mem.GetByte(7)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), last)
}

func TestWrapBytesIsDirect(t *testing.T) {
	region := make([]byte, 16)
	mem := WrapBytes(region)
	assert.True(t, mem.IsDirect())

	require.NoError(t, mem.PutLong(0, 42))
	// writes land in the caller's region
	assert.Equal(t, byte(42), region[0])
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	mem, err := NewMemory(16)
	require.NoError(t, err)
	require.NoError(t, mem.PutLong(0, 7))

	ro := mem.AsReadOnly()
	assert.True(t, ro.IsReadOnly())

	v, err := ro.GetLong(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	assert.ErrorIs(t, ro.PutLong(0, 8), ErrReadOnly)
	assert.ErrorIs(t, ro.PutByte(0, 1), ErrReadOnly)
	assert.ErrorIs(t, ro.PutDoubleArray(0, []float64{1}), ErrReadOnly)
}

func TestBoundsViolations(t *testing.T) {
	mem, err := NewMemory(8)
	require.NoError(t, err)

	_, err = mem.GetLong(1)
	assert.ErrorContains(t, err, "bounds violation")

	_, err = mem.GetByte(-1)
	assert.ErrorContains(t, err, "bounds violation")

	assert.ErrorContains(t, mem.PutLong(8, 0), "bounds violation")
	_, err = mem.GetLongArray(0, 2)
	assert.ErrorContains(t, err, "bounds violation")
}

func TestIsSameResource(t *testing.T) {
	region := make([]byte, 16)
	a := WrapBytes(region)
	b := WrapBytes(region)
	c := WrapBytes(make([]byte, 16))

	assert.True(t, a.IsSameResource(b))
	assert.True(t, a.IsSameResource(a.AsReadOnly()))
	assert.False(t, a.IsSameResource(c))
	assert.False(t, a.IsSameResource(nil))
	assert.False(t, a.IsSameResource(WrapBytes(region[:8])))
}

func TestArrayCopies(t *testing.T) {
	mem, err := NewMemory(64)
	require.NoError(t, err)

	longs := []uint64{1, 2, 3, math.MaxUint64}
	require.NoError(t, mem.PutLongArray(0, longs))
	gotLongs, err := mem.GetLongArray(0, 4)
	require.NoError(t, err)
	assert.Equal(t, longs, gotLongs)

	doubles := []float64{-1.5, 0, math.Inf(1), 2.25}
	require.NoError(t, mem.PutDoubleArray(32, doubles))
	gotDoubles, err := mem.GetDoubleArray(32, 4)
	require.NoError(t, err)
	assert.Equal(t, doubles, gotDoubles)
}

func TestCopyTo(t *testing.T) {
	src, err := NewMemory(16)
	require.NoError(t, err)
	require.NoError(t, src.PutLong(8, 99))

	dst, err := NewMemory(8)
	require.NoError(t, err)
	require.NoError(t, src.CopyTo(8, dst, 0, 8))

	v, err := dst.GetLong(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), v)

	assert.Error(t, src.CopyTo(8, dst.AsReadOnly(), 0, 8))
}
