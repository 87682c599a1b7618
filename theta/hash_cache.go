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
	"errors"

	"github.com/prattrs/sketches-core/internal"
)

var (
	// ErrZeroHash marks the zero hash, which is the empty-slot sentinel and
	// can never be retained.
	ErrZeroHash = errors.New("zero hash is reserved for empty slots")
	// ErrHashAboveTheta marks a hash outside the sampling window.
	ErrHashAboveTheta = errors.New("hash at or above theta")
	// ErrCacheSaturated indicates a probe that visited every slot without
	// finding the key or a free slot.
	ErrCacheSaturated = errors.New("hash cache has no empty slots")
)

// hashCache is the open-addressed store of retained 63-bit hashes behind an
// update sketch or a union. Slot zero-ness marks emptiness, so the zero hash
// is never stored. The cache starts below its full size and grows by the
// configured factor; once at full size, breaching the load limit lowers
// thetaLong to the nominal-th smallest retained hash and evicts everything
// at or above it.
type hashCache struct {
	slots        []uint64
	hasher       Hasher
	thetaLong    uint64
	hashSeed     uint64
	retained     uint32
	samplingP    float32
	lgSlots      uint8
	lgNomEntries uint8
	growth       ResizeFactor
	seen         bool
}

func newHashCache(lgSlots, lgNomEntries uint8, growth ResizeFactor, p float32, thetaLong, seed uint64, hasher Hasher) *hashCache {
	if hasher == nil {
		hasher = PortableHasher{}
	}
	return &hashCache{
		slots:        make([]uint64, 1<<lgSlots),
		hasher:       hasher,
		thetaLong:    thetaLong,
		hashSeed:     seed,
		samplingP:    p,
		lgSlots:      lgSlots,
		lgNomEntries: lgNomEntries,
		growth:       growth,
	}
}

// nomEntries returns the nominal capacity the cache converges to.
func (c *hashCache) nomEntries() uint32 {
	return uint32(1) << c.lgNomEntries
}

// screen folds a raw 64-bit hash into the retained 63-bit domain and rejects
// anything outside the half-open window (0, thetaLong).
func (c *hashCache) screen(rawHash uint64) (uint64, error) {
	hash := rawHash >> 1
	switch {
	case hash == 0:
		return 0, ErrZeroHash
	case hash >= c.thetaLong:
		return 0, ErrHashAboveTheta
	}
	return hash, nil
}

// locateSlot probes for a hash. It reports the slot holding it, or the first
// free slot on the probe path with found = false. The stride is odd and
// drawn from the hash bits above the ones that chose the starting slot, so
// every slot is visited at most once.
func locateSlot(slots []uint64, lgSize uint8, hash uint64) (index int, found bool, err error) {
	mask := uint32(1)<<lgSize - 1
	stride := (uint32(hash>>lgSize) & mask) | 1
	slot := uint32(hash) & mask

	for probes := uint32(0); probes <= mask; probes++ {
		switch slots[slot] {
		case 0:
			return int(slot), false, nil
		case hash:
			return int(slot), true, nil
		}
		slot = (slot + stride) & mask
	}
	return 0, false, ErrCacheSaturated
}

// admit stores a screened hash. It reports false for a hash already present.
// Crossing the load limit grows the cache while it is below full size and
// evicts above a lowered theta once it is not.
func (c *hashCache) admit(hash uint64) (bool, error) {
	index, found, err := locateSlot(c.slots, c.lgSlots, hash)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	c.slots[index] = hash
	c.retained++

	if c.retained > c.loadLimit() {
		if c.lgSlots <= c.lgNomEntries {
			c.grow()
		} else {
			c.evictExcess()
		}
	}
	return true, nil
}

// loadLimit is the retained count above which the cache reorganizes: half
// load while it can still grow, 15/16 at full size.
func (c *hashCache) loadLimit() uint32 {
	if c.lgSlots <= c.lgNomEntries {
		return uint32(1) << (c.lgSlots - 1)
	}
	return uint32(15) << (c.lgSlots - 4)
}

// grow rehashes into the next table size, capped at twice the nominal
// capacity.
func (c *hashCache) grow() {
	lgNext := min(c.lgSlots+uint8(c.growth), c.lgNomEntries+1)
	old := c.slots
	c.slots = make([]uint64, 1<<lgNext)
	c.lgSlots = lgNext

	for _, hash := range old {
		if hash == 0 {
			continue
		}
		// a larger table always has a free slot on the probe path
		index, _, _ := locateSlot(c.slots, c.lgSlots, hash)
		c.slots[index] = hash
	}
}

// evictExcess lowers thetaLong to the nominal-th smallest retained hash,
// drops everything at or above it, and rehashes the survivors.
func (c *hashCache) evictExcess() {
	live := make([]uint64, 0, c.retained)
	for _, hash := range c.slots {
		if hash != 0 {
			live = append(live, hash)
		}
	}

	nom := int(c.nomEntries())
	internal.QuickSelect(live, 0, len(live)-1, nom)
	c.thetaLong = live[nom]

	clear(c.slots)
	c.retained = uint32(nom)
	for _, hash := range live[:nom] {
		index, _, _ := locateSlot(c.slots, c.lgSlots, hash)
		c.slots[index] = hash
	}
}

// trim evicts down to the nominal capacity if the cache holds more.
func (c *hashCache) trim() {
	if c.retained > c.nomEntries() {
		c.evictExcess()
	}
}

// reset returns the cache to its initial empty state, shrinking the table
// back to its starting size.
func (c *hashCache) reset() {
	lgStart := startingLgSlots(c.lgNomEntries+1, c.growth)
	if lgStart == c.lgSlots {
		clear(c.slots)
	} else {
		c.lgSlots = lgStart
		c.slots = make([]uint64, 1<<lgStart)
	}
	c.retained = 0
	c.thetaLong = thetaFromP(c.samplingP)
	c.seen = false
}
