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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDoublesSketch(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		sketch, err := NewDoublesSketch()
		require.NoError(t, err)

		assert.Equal(t, DefaultK, sketch.K())
		assert.True(t, sketch.IsEmpty())
		assert.False(t, sketch.IsEstimationMode())
		assert.False(t, sketch.IsCompact())
		assert.False(t, sketch.IsDirect())
		assert.Equal(t, uint64(0), sketch.N())
		assert.True(t, math.IsInf(sketch.MinValue(), 1))
		assert.True(t, math.IsInf(sketch.MaxValue(), -1))
	})

	t.Run("invalid k", func(t *testing.T) {
		for _, k := range []int{0, 1, 3, 7, MaxK + 2, -2} {
			_, err := NewDoublesSketch(WithK(k))
			assert.ErrorContains(t, err, "k must be even", "k=%d", k)
		}
	})

	t.Run("valid k range", func(t *testing.T) {
		for _, k := range []int{2, 4, 128, 1024, MaxK} {
			_, err := NewDoublesSketch(WithK(k))
			assert.NoError(t, err, "k=%d", k)
		}
	})
}

func TestUpdateRejectsNaN(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(8))
	require.NoError(t, err)
	require.NoError(t, sketch.Update(1))

	err = sketch.Update(math.NaN())
	assert.ErrorIs(t, err, ErrNaN)

	// the failed update left no trace
	assert.Equal(t, uint64(1), sketch.N())
	assert.Equal(t, 1.0, sketch.MinValue())
	assert.Equal(t, 1.0, sketch.MaxValue())
}

func TestBaseBufferInvariant(t *testing.T) {
	const k = 8
	sketch, err := NewDoublesSketch(WithK(k))
	require.NoError(t, err)

	for i := 1; i <= 100; i++ {
		require.NoError(t, sketch.Update(float64(i)))
		assert.Equal(t, int(sketch.N())%(2*k), sketch.BaseBufferCount())
		assert.Equal(t, sketch.N()/(2*k), sketch.BitPattern())
		assert.Equal(t,
			sketch.BaseBufferCount()+k*popcount(sketch.BitPattern()),
			sketch.NumRetained())
	}
}

func popcount(v uint64) int {
	count := 0
	for ; v != 0; v &= v - 1 {
		count++
	}
	return count
}

func TestMinMaxTracking(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(16))
	require.NoError(t, err)

	for i := 13; i >= 1; i-- {
		require.NoError(t, sketch.Update(float64(i)))
	}

	assert.Equal(t, 1.0, sketch.MinValue())
	assert.Equal(t, 13.0, sketch.MaxValue())
	assert.Equal(t, uint64(13), sketch.N())
}

func TestCompactHasSortedBaseBuffer(t *testing.T) {
	const k = 4
	sketch, err := NewDoublesSketch(WithK(k), WithRandomSeed(32749))
	require.NoError(t, err)

	// descending inserts so the base buffer is unsorted before compaction
	for i := 13; i >= 1; i-- {
		require.NoError(t, sketch.Update(float64(i)))
	}

	compact, err := sketch.Compact(nil)
	require.NoError(t, err)

	assert.True(t, compact.IsCompact())
	assert.Equal(t, uint64(13), compact.N())
	assert.Equal(t, 1.0, compact.MinValue())
	assert.Equal(t, 13.0, compact.MaxValue())

	a := compact.accessor(false)
	bbCount := a.setLevel(baseBufferLevel).numItems()
	require.Equal(t, 13%(2*k), bbCount)
	for i := 1; i < bbCount; i++ {
		assert.Less(t, a.get(i-1), a.get(i))
	}

	// compact sketches reject mutation
	assert.ErrorIs(t, compact.Update(1), ErrCompactSketch)
	assert.ErrorIs(t, compact.Reset(), ErrCompactSketch)
}

func TestQuantileEndpoints(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(128))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}

	q0, err := sketch.Quantile(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, q0)

	q1, err := sketch.Quantile(1)
	require.NoError(t, err)
	assert.Equal(t, 999.0, q1)

	_, err = sketch.Quantile(-0.1)
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = sketch.Quantile(1.1)
	assert.ErrorIs(t, err, ErrInvalidRank)
}

func TestMedianOfRange(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(128), WithRandomSeed(32749))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}

	assert.Equal(t, 0.0, sketch.MinValue())
	assert.Equal(t, 999.0, sketch.MaxValue())

	median, err := sketch.Quantile(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, median, 1000*2*sketch.NormalizedRankError())
}

func TestEmptySketchBoundaries(t *testing.T) {
	sketch, err := NewDoublesSketch()
	require.NoError(t, err)

	q0, err := sketch.Quantile(0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(q0, 1))

	q1, err := sketch.Quantile(1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(q1, -1))

	qMid, err := sketch.Quantile(0.5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(qMid))

	quantiles, err := sketch.Quantiles([]float64{0.0, 0.5, 1.0})
	require.NoError(t, err)
	require.Len(t, quantiles, 3)
	assert.True(t, math.IsInf(quantiles[0], 1))
	assert.True(t, math.IsNaN(quantiles[1]))
	assert.True(t, math.IsInf(quantiles[2], -1))

	assert.Equal(t, uint64(0), sketch.N())

	_, err = sketch.Rank(1)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = sketch.CDF([]float64{1, 2})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRankQuantileConsistency(t *testing.T) {
	const n = 10000
	sketch, err := NewDoublesSketch(WithK(128), WithRandomSeed(32749))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}

	eps := sketch.NormalizedRankError()
	for q := 0.05; q < 1.0; q += 0.05 {
		quantile, err := sketch.Quantile(q)
		require.NoError(t, err)

		rank, err := sketch.Rank(quantile)
		require.NoError(t, err)

		assert.InDelta(t, q, rank, 3*eps, "q=%f quantile=%f rank=%f", q, quantile, rank)
	}
}

func TestQuantilesPreserveInputOrder(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(64), WithRandomSeed(1))
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}

	ranks := []float64{0.9, 0.1, 0.5}
	quantiles, err := sketch.Quantiles(ranks)
	require.NoError(t, err)
	require.Len(t, quantiles, 3)
	assert.Greater(t, quantiles[0], quantiles[2])
	assert.Less(t, quantiles[1], quantiles[2])
}

func TestCDFAndPMF(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(128), WithRandomSeed(7))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}

	splits := []float64{250, 500, 750}

	cdf, err := sketch.CDF(splits)
	require.NoError(t, err)
	require.Len(t, cdf, len(splits)+1)
	assert.Equal(t, 1.0, cdf[len(cdf)-1])
	for i := 1; i < len(cdf); i++ {
		assert.GreaterOrEqual(t, cdf[i], cdf[i-1])
	}
	assert.InDelta(t, 0.25, cdf[0], 0.05)
	assert.InDelta(t, 0.5, cdf[1], 0.05)

	pmf, err := sketch.PMF(splits)
	require.NoError(t, err)
	require.Len(t, pmf, len(splits)+1)
	var total float64
	for _, mass := range pmf {
		assert.GreaterOrEqual(t, mass, 0.0)
		total += mass
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	t.Run("invalid split points", func(t *testing.T) {
		_, err := sketch.CDF([]float64{2, 1})
		assert.ErrorIs(t, err, errInvalidSplitPoints)
		_, err = sketch.CDF([]float64{1, 1})
		assert.ErrorIs(t, err, errInvalidSplitPoints)
		_, err = sketch.CDF([]float64{1, math.NaN()})
		assert.ErrorIs(t, err, errInvalidSplitPoints)
		_, err = sketch.CDF([]float64{1, math.Inf(1)})
		assert.ErrorIs(t, err, errInvalidSplitPoints)
	})
}

func TestReset(t *testing.T) {
	sketch, err := NewDoublesSketch(WithK(16))
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		require.NoError(t, sketch.Update(float64(i)))
	}
	require.False(t, sketch.IsEmpty())

	require.NoError(t, sketch.Reset())
	assert.True(t, sketch.IsEmpty())
	assert.Equal(t, uint64(0), sketch.N())
	assert.True(t, math.IsInf(sketch.MinValue(), 1))

	require.NoError(t, sketch.Update(3))
	assert.Equal(t, uint64(1), sketch.N())
}

func TestDeterministicWithSeed(t *testing.T) {
	build := func() *DoublesSketch {
		sketch, err := NewDoublesSketch(WithK(32), WithRandomSeed(99))
		require.NoError(t, err)
		for i := 0; i < 10000; i++ {
			require.NoError(t, sketch.Update(float64(i)))
		}
		return sketch
	}

	s1 := build()
	s2 := build()

	img1, err := s1.ToByteArray(true, true)
	require.NoError(t, err)
	img2, err := s2.ToByteArray(true, true)
	require.NoError(t, err)
	assert.Equal(t, img1, img2)
}
