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
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrapForTest serializes a compact sketch and wraps the resulting image.
func wrapForTest(t *testing.T, compact *CompactSketch) *WrappedCompactSketch {
	t.Helper()
	image, err := compact.ToByteArray()
	require.NoError(t, err)
	wrapped, err := WrapCompactSketchBytes(image, DefaultSeed)
	require.NoError(t, err)
	return wrapped
}

func TestWrappedViewMirrorsCompactSketch(t *testing.T) {
	cases := []struct {
		name string
		n    int64
	}{
		{"empty", 0},
		{"single hash", 1},
		{"exact mode", 500},
		{"estimation mode", 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compact := streamSketch(t, 0, tc.n, WithLgNomEntries(10)).CompactOrdered()
			wrapped := wrapForTest(t, compact)

			assert.Equal(t, compact.IsEmpty(), wrapped.IsEmpty())
			assert.Equal(t, compact.IsOrdered(), wrapped.IsOrdered())
			assert.Equal(t, compact.NumRetained(), wrapped.NumRetained())
			assert.Equal(t, compact.Theta64(), wrapped.Theta64())

			compactFp, err := compact.SeedHash()
			require.NoError(t, err)
			wrappedFp, err := wrapped.SeedHash()
			require.NoError(t, err)
			assert.Equal(t, compactFp, wrappedFp)

			assert.Equal(t, slices.Collect(compact.All()), slices.Collect(wrapped.All()))
		})
	}
}

func TestWrappedViewEstimators(t *testing.T) {
	compact := streamSketch(t, 0, 50000, WithLgNomEntries(9)).CompactOrdered()
	wrapped := wrapForTest(t, compact)

	assert.Equal(t, Estimate(compact), Estimate(wrapped))
	assert.Equal(t, Theta(compact), Theta(wrapped))
	assert.True(t, IsEstimationMode(wrapped))

	compactLB, err := LowerBound(compact, 2)
	require.NoError(t, err)
	wrappedLB, err := LowerBound(wrapped, 2)
	require.NoError(t, err)
	assert.Equal(t, compactLB, wrappedLB)

	compactUB, err := UpperBound(compact, 2)
	require.NoError(t, err)
	wrappedUB, err := UpperBound(wrapped, 2)
	require.NoError(t, err)
	assert.Equal(t, compactUB, wrappedUB)
}

func TestWrappedViewExactMode(t *testing.T) {
	compact := streamSketch(t, 0, 3).CompactOrdered()
	wrapped := wrapForTest(t, compact)

	assert.False(t, IsEstimationMode(wrapped))
	assert.Equal(t, 3.0, Estimate(wrapped))

	lb, err := LowerBound(wrapped, 2)
	require.NoError(t, err)
	ub, err := UpperBound(wrapped, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, lb)
	assert.Equal(t, 3.0, ub)
}

func TestWrappedViewLazyIteration(t *testing.T) {
	compact := streamSketch(t, 0, 100).CompactOrdered()
	wrapped := wrapForTest(t, compact)

	// early termination must not read past the break point
	var first uint64
	for hash := range wrapped.All() {
		first = hash
		break
	}
	assert.Equal(t, slices.Collect(compact.All())[0], first)

	assert.True(t, slices.IsSorted(slices.Collect(wrapped.All())))
}

func TestWrappedViewSummary(t *testing.T) {
	compact := streamSketch(t, 0, 2).CompactOrdered()
	wrapped := wrapForTest(t, compact)

	brief := Summary(wrapped, false)
	assert.Contains(t, brief, "retained hashes      : 2")
	assert.NotContains(t, brief, "### Retained hashes")

	full := Summary(wrapped, true)
	assert.Contains(t, full, "### Retained hashes")
	for hash := range wrapped.All() {
		assert.Contains(t, full, strconv.FormatUint(hash, 10))
	}
}

func TestWrappedViewRejectsMismatchedSeed(t *testing.T) {
	image, err := streamSketch(t, 0, 100).CompactOrdered().ToByteArray()
	require.NoError(t, err)

	_, err = WrapCompactSketchBytes(image, 31337)
	assert.ErrorContains(t, err, "seed hash")
}

func TestWrappedViewIsUsableAsSetOperand(t *testing.T) {
	a := streamSketch(t, 0, 1000)
	b := streamSketch(t, 500, 1500)

	wrappedA := wrapForTest(t, a.CompactOrdered())

	union, err := NewUnion()
	require.NoError(t, err)
	require.NoError(t, union.Update(wrappedA))
	require.NoError(t, union.Update(b))

	result, err := union.Result(true)
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), result.NumRetained())
}
