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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheForTest(lgSlots, lgNom uint8) *hashCache {
	return newHashCache(lgSlots, lgNom, ResizeX2, 1.0, MaxTheta, DefaultSeed, nil)
}

func TestScreenWindow(t *testing.T) {
	cache := newCacheForTest(4, 4)

	t.Run("zero hash is the empty-slot sentinel", func(t *testing.T) {
		_, err := cache.screen(0)
		assert.ErrorIs(t, err, ErrZeroHash)
		// the raw hash 1 folds to zero as well
		_, err = cache.screen(1)
		assert.ErrorIs(t, err, ErrZeroHash)
	})

	t.Run("folded hash must fall below theta", func(t *testing.T) {
		hash, err := cache.screen(84)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), hash)

		tight := newHashCache(4, 4, ResizeX1, 1.0, 10, DefaultSeed, nil)
		_, err = tight.screen(84)
		assert.ErrorIs(t, err, ErrHashAboveTheta)
	})
}

func TestLocateSlot(t *testing.T) {
	slots := make([]uint64, 16)

	idx, found, err := locateSlot(slots, 4, 12345)
	require.NoError(t, err)
	assert.False(t, found)

	slots[idx] = 12345
	again, found, err := locateSlot(slots, 4, 12345)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, idx, again)

	t.Run("saturated table is detected", func(t *testing.T) {
		full := []uint64{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
		_, _, err := locateSlot(full, 4, 12345)
		assert.ErrorIs(t, err, ErrCacheSaturated)
	})
}

func TestAdmitDeduplicates(t *testing.T) {
	cache := newCacheForTest(4, 4)

	added, err := cache.admit(42)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, uint32(1), cache.retained)

	added, err = cache.admit(42)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, uint32(1), cache.retained)
}

func TestCacheGrowsToFullSize(t *testing.T) {
	cache := newHashCache(4, 6, ResizeX2, 1.0, MaxTheta, DefaultSeed, nil)
	require.Equal(t, 16, len(cache.slots))

	// stay below the nominal capacity so only growth, never eviction, fires
	for hash := uint64(1); hash <= 60; hash++ {
		_, err := cache.admit(hash * 1000)
		require.NoError(t, err)
	}

	assert.Equal(t, uint8(7), cache.lgSlots)
	assert.Equal(t, uint32(60), cache.retained)
	assert.Equal(t, MaxTheta, cache.thetaLong)

	// every admitted hash is still locatable after the rehashes
	for hash := uint64(1); hash <= 60; hash++ {
		_, found, err := locateSlot(cache.slots, cache.lgSlots, hash*1000)
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func TestEvictionLowersTheta(t *testing.T) {
	cache := newHashCache(5, 4, ResizeX1, 1.0, MaxTheta, DefaultSeed, nil)

	// screen before admitting, as the update path does: once theta drops,
	// later values are rejected instead of re-widening the window
	for v := uint64(1); v <= 100; v++ {
		hash, err := cache.screen(v << 1)
		if err != nil {
			assert.ErrorIs(t, err, ErrHashAboveTheta)
			continue
		}
		_, err = cache.admit(hash)
		require.NoError(t, err)
	}

	assert.Less(t, cache.thetaLong, MaxTheta)
	assert.Equal(t, cache.nomEntries(), cache.retained)

	// the survivors are exactly the nominal count of smallest hashes
	for _, hash := range cache.slots {
		if hash != 0 {
			assert.Less(t, hash, cache.thetaLong)
			assert.LessOrEqual(t, hash, uint64(cache.nomEntries()))
		}
	}
}

func TestTrim(t *testing.T) {
	cache := newHashCache(5, 4, ResizeX1, 1.0, MaxTheta, DefaultSeed, nil)

	// load past nominal but under the reorganize limit
	for hash := uint64(1); hash <= 20; hash++ {
		_, err := cache.admit(hash)
		require.NoError(t, err)
	}
	require.Equal(t, uint32(20), cache.retained)

	cache.trim()
	assert.Equal(t, cache.nomEntries(), cache.retained)
	assert.Less(t, cache.thetaLong, MaxTheta)

	t.Run("trim below nominal is a no-op", func(t *testing.T) {
		before := cache.retained
		theta := cache.thetaLong
		cache.trim()
		assert.Equal(t, before, cache.retained)
		assert.Equal(t, theta, cache.thetaLong)
	})
}

func TestCacheReset(t *testing.T) {
	cache := newHashCache(4, 6, ResizeX2, 0.5, thetaFromP(0.5), DefaultSeed, nil)
	cache.seen = true
	for hash := uint64(2); hash <= 40; hash++ {
		_, err := cache.admit(hash)
		require.NoError(t, err)
	}

	cache.reset()

	assert.False(t, cache.seen)
	assert.Zero(t, cache.retained)
	assert.Equal(t, thetaFromP(0.5), cache.thetaLong)
	assert.Equal(t, startingLgSlots(7, ResizeX2), cache.lgSlots)
	for _, slot := range cache.slots {
		assert.Zero(t, slot)
	}
}
