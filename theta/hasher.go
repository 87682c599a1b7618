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
	"github.com/twmb/murmur3"

	"github.com/prattrs/sketches-core/internal"
)

// Hasher maps raw input to a 64-bit hash under a 64-bit seed. Sketches hashed
// with different hashers (or different seeds) cannot be mixed in set
// operations.
type Hasher interface {
	HashBytes(data []byte, seed uint64) uint64
	HashInt64(value int64, seed uint64) uint64
}

// PortableHasher hashes with the murmur3 port whose output matches the
// serialized images produced by the other language implementations of this
// format. This is the default.
type PortableHasher struct{}

func (PortableHasher) HashBytes(data []byte, seed uint64) uint64 {
	h1, _ := internal.HashByteArrMurmur3(data, 0, len(data), seed)
	return h1
}

func (PortableHasher) HashInt64(value int64, seed uint64) uint64 {
	h1, _ := internal.HashInt64SliceMurmur3([]int64{value}, 0, 1, seed)
	return h1
}

// FastHasher hashes with the vectorized murmur3 implementation. Its output is
// not interchangeable with images produced under PortableHasher.
type FastHasher struct{}

func (FastHasher) HashBytes(data []byte, seed uint64) uint64 {
	h1, _ := murmur3.SeedSum128(seed, seed, data)
	return h1
}

func (FastHasher) HashInt64(value int64, seed uint64) uint64 {
	var scratch [8]byte
	for i := 0; i < 8; i++ {
		scratch[i] = byte(value >> (i * 8))
	}
	h1, _ := murmur3.SeedSum128(seed, seed, scratch[:])
	return h1
}
