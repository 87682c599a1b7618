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

package internal

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

const (
	DEFAULT_UPDATE_SEED = uint64(9001)
)

// ErrZeroSeedHash indicates a seed whose 16-bit fingerprint collides with the
// reserved zero value.
var ErrZeroSeedHash = errors.New("seed hash is zero, try a different seed")

// ComputeSeedHash returns the 16-bit fingerprint of the given hash seed,
// carried in compact images to detect mixing sketches with incompatible hashes.
func ComputeSeedHash(seed int64) (uint16, error) {
	h1, _ := HashInt64SliceMurmur3([]int64{seed}, 0, 1, 0)
	seedHash := uint16(h1)
	if seedHash == 0 {
		return 0, ErrZeroSeedHash
	}
	return seedHash, nil
}

// GetShortLE gets a short value from a byte array in little endian format.
func GetShortLE(array []byte, offset int) int {
	return int(array[offset]&0xFF) | (int(array[offset+1]&0xFF) << 8)
}

// PutShortLE puts a short value into a byte array in little endian format.
func PutShortLE(array []byte, offset int, value int) {
	array[offset] = byte(value)
	array[offset+1] = byte(value >> 8)
}

// InvPow2 returns 2^(-e).
func InvPow2(e int) (float64, error) {
	if (e | (1024 - e - 1)) < 0 {
		return 0, fmt.Errorf("e cannot be negative or greater than 1023: " + strconv.Itoa(e))
	}
	return math.Float64frombits((1023 - uint64(e)) << 52), nil
}

// CeilPowerOf2 returns the smallest power of 2 greater than or equal to n.
func CeilPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	topIntPwrOf2 := 1 << 30
	if n >= topIntPwrOf2 {
		return topIntPwrOf2
	}
	return int(math.Pow(2, math.Ceil(math.Log2(float64(n)))))
}

// FloorPowerOf2 returns the largest power of 2 less than or equal to n,
// or 1 for n < 1.
func FloorPowerOf2(n int64) int64 {
	if n < 1 {
		return 1
	}
	return int64(1) << (62 - bits.LeadingZeros64(uint64(n)<<1))
}

// Log2Floor returns floor(log2(n)), or 0 for n = 0.
func Log2Floor(n uint32) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(31 - bits.LeadingZeros32(n))
}

// LgSizeFromCount returns the log2 of the smallest open-addressed table size
// that holds n entries under the given load factor with at least one slot free.
func LgSizeFromCount(n uint32, loadFactor float64) uint8 {
	lg := uint8(1)
	for uint32(1)<<lg <= n || uint32(math.Floor(loadFactor*float64(uint32(1)<<lg))) < n {
		lg++
	}
	return lg
}

func ExactLog2(powerOf2 int) (int, error) {
	if !IsPowerOf2(powerOf2) {
		return 0, fmt.Errorf("argument 'powerOf2' must be a positive power of 2")
	}
	return bits.TrailingZeros64(uint64(powerOf2)), nil
}

// IsPowerOf2 returns true if the given number is a power of 2.
func IsPowerOf2(powerOf2 int) bool {
	return powerOf2 > 0 && (powerOf2&(powerOf2-1)) == 0
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
