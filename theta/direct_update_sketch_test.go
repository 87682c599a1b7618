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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prattrs/sketches-core/memory"
)

func newDirectSketchForTest(t *testing.T, lgK uint8) (*DirectQuickSelectSketch, *memory.Memory) {
	t.Helper()
	mem, err := memory.NewMemory(MaxUpdateSketchBytes(lgK))
	require.NoError(t, err)
	sketch, err := NewUpdateSketch(
		WithLgNomEntries(lgK),
		WithMemory(mem),
	)
	require.NoError(t, err)
	direct, ok := sketch.(*DirectQuickSelectSketch)
	require.True(t, ok)
	return direct, mem
}

func TestDirectSketchEmptyState(t *testing.T) {
	sketch, mem := newDirectSketchForTest(t, 6)

	assert.True(t, sketch.IsEmpty())
	assert.False(t, IsEstimationMode(sketch))
	assert.Equal(t, MaxTheta, sketch.Theta64())
	assert.Equal(t, 0.0, Estimate(sketch))
	assert.True(t, sketch.IsSameResource(mem))
}

func TestDirectSketchMatchesHeapSketch(t *testing.T) {
	const lgK = 6
	direct, _ := newDirectSketchForTest(t, lgK)
	heap, err := NewQuickSelectUpdateSketch(WithLgNomEntries(lgK))
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		_ = direct.UpdateInt64(int64(i))
		_ = heap.UpdateInt64(int64(i))
	}

	assert.Equal(t, heap.NumRetained(), direct.NumRetained())
	assert.Equal(t, heap.Theta64(), direct.Theta64())

	heapEntries := slices.Collect(heap.All())
	directEntries := slices.Collect(direct.All())
	slices.Sort(heapEntries)
	slices.Sort(directEntries)
	assert.Equal(t, heapEntries, directEntries)
}

func TestDirectSketchEstimation(t *testing.T) {
	sketch, _ := newDirectSketchForTest(t, 8)

	n := 10000
	for i := 0; i < n; i++ {
		_ = sketch.UpdateInt64(int64(i))
	}

	assert.True(t, IsEstimationMode(sketch))
	assert.InEpsilon(t, float64(n), Estimate(sketch), 0.25)

	lb, err := LowerBound(sketch, 2)
	require.NoError(t, err)
	ub, err := UpperBound(sketch, 2)
	require.NoError(t, err)
	assert.Less(t, lb, float64(n))
	assert.Greater(t, ub, float64(n))

	sketch.Trim()
	assert.Equal(t, uint32(1<<8), sketch.NumRetained())
}

func TestDirectSketchStateSurvivesRewrap(t *testing.T) {
	sketch, mem := newDirectSketchForTest(t, 6)
	for i := 0; i < 3000; i++ {
		_ = sketch.UpdateInt64(int64(i))
	}

	rewrapped, err := WrapUpdateSketch(mem, DefaultSeed)
	require.NoError(t, err)

	assert.Equal(t, sketch.NumRetained(), rewrapped.NumRetained())
	assert.Equal(t, sketch.Theta64(), rewrapped.Theta64())
	assert.Equal(t, sketch.LgNomEntries(), rewrapped.LgNomEntries())
	assert.False(t, rewrapped.IsEmpty())

	// further updates through the new view land in the shared region
	before := rewrapped.NumRetained()
	err = rewrapped.UpdateString("fresh item")
	if err != nil {
		// the only acceptable outcome besides insertion is theta screening
		assert.ErrorIs(t, err, ErrHashAboveTheta)
	}
	assert.GreaterOrEqual(t, rewrapped.NumRetained(), before)
}

func TestDirectSketchRejectsUndersizedMemory(t *testing.T) {
	mem, err := memory.NewMemory(64)
	require.NoError(t, err)

	_, err = NewUpdateSketch(
		WithLgNomEntries(10),
		WithMemory(mem),
	)
	assert.ErrorContains(t, err, "below required")
}

func TestDirectSketchRejectsReadOnlyMemory(t *testing.T) {
	mem, err := memory.NewMemory(MaxUpdateSketchBytes(4))
	require.NoError(t, err)

	_, err = NewUpdateSketch(
		WithLgNomEntries(4),
		WithMemory(mem.AsReadOnly()),
	)
	assert.ErrorIs(t, err, memory.ErrReadOnly)
}

func TestDirectSketchReset(t *testing.T) {
	sketch, _ := newDirectSketchForTest(t, 5)
	for i := 0; i < 5000; i++ {
		_ = sketch.UpdateInt64(int64(i))
	}
	require.False(t, sketch.IsEmpty())

	sketch.Reset()
	assert.True(t, sketch.IsEmpty())
	assert.Zero(t, sketch.NumRetained())
	assert.Equal(t, MaxTheta, sketch.Theta64())
	assert.Empty(t, slices.Collect(sketch.All()))

	_ = sketch.UpdateInt64(42)
	assert.Equal(t, uint32(1), sketch.NumRetained())
}

func TestDirectSketchCompactAndSetOps(t *testing.T) {
	direct, _ := newDirectSketchForTest(t, 12)
	heap, err := NewQuickSelectUpdateSketch()
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		_ = direct.UpdateInt64(int64(i))
	}
	for i := 500; i < 1500; i++ {
		_ = heap.UpdateInt64(int64(i))
	}

	intersection := NewIntersection()
	require.NoError(t, intersection.Update(direct.CompactOrdered()))
	require.NoError(t, intersection.Update(heap.CompactOrdered()))

	result, err := intersection.Result(true)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), result.NumRetained())

	union, err := NewUnion()
	require.NoError(t, err)
	require.NoError(t, union.Update(direct))
	require.NoError(t, union.Update(heap))
	unionResult, err := union.Result(true)
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), unionResult.NumRetained())
}
