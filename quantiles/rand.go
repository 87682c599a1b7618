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
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// xorshiftRandom is the sketch-local generator behind the compaction coin
// flips. Each sketch owns one, seeded at construction, so compaction never
// draws from a process-global generator and tests can pin the sequence.
type xorshiftRandom struct {
	s0 uint64
	s1 uint64
}

func newXorshiftRandom(seed uint64) *xorshiftRandom {
	// small seeds must still produce well-mixed xorshift state
	r := &xorshiftRandom{}
	r.s0 = splitmix64(&seed)
	r.s1 = splitmix64(&seed)
	if r.s0 == 0 && r.s1 == 0 {
		r.s0 = 1
	}
	return r
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// next returns the next 64-bit value of the xorshift128+ sequence.
func (r *xorshiftRandom) next() uint64 {
	x := r.s0
	y := r.s1
	r.s0 = y
	x ^= x << 23
	r.s1 = x ^ y ^ (x >> 17) ^ (y >> 26)
	return r.s1 + y
}

// nextBit returns a fair coin flip: 0 or 1.
func (r *xorshiftRandom) nextBit() int {
	return int(r.next() >> 63)
}

var seedCounter atomic.Uint64

// nextRandomSeed produces a distinct default seed per sketch; coin flip
// sequences must not correlate across sketches in one process.
func nextRandomSeed() uint64 {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], seedCounter.Add(1))
	return xxhash.Sum64(scratch[:])
}
