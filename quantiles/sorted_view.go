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
	"container/heap"
	"math"
	"sort"
)

// doublesSortedView is the auxiliary structure behind quantile queries: all
// retained items merged into one sorted sequence with cumulative weights.
// Level i contributes each of its items with weight 2^(i+1); base buffer items
// have weight 1.
type doublesSortedView struct {
	items      []float64
	cumWeights []uint64
	n          uint64
}

// levelCursor walks one sorted window during the k-way merge.
type levelCursor struct {
	items  []float64
	weight uint64
	pos    int
}

type cursorHeap []*levelCursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	return h[i].items[h[i].pos] < h[j].items[h[j].pos]
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*levelCursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// newSortedView merges the retained items of the sketch with a min-heap
// across the base buffer and level cursors.
func newSortedView(s *DoublesSketch) *doublesSortedView {
	a := s.accessor(false)

	var cursors cursorHeap

	bbCount := a.setLevel(baseBufferLevel).numItems()
	if bbCount > 0 {
		bb := a.getArray(0, bbCount)
		sort.Float64s(bb)
		cursors = append(cursors, &levelCursor{items: bb, weight: 1})
	}

	for lvl, bitPattern := 0, s.BitPattern(); bitPattern != 0; lvl, bitPattern = lvl+1, bitPattern>>1 {
		if bitPattern&1 == 0 {
			continue
		}
		items := a.setLevel(lvl).getArray(0, s.k)
		// a level lvl item stands for 2^(lvl+1) stream items
		cursors = append(cursors, &levelCursor{items: items, weight: uint64(1) << (lvl + 1)})
	}

	view := &doublesSortedView{
		items:      make([]float64, 0, s.NumRetained()),
		cumWeights: make([]uint64, 0, s.NumRetained()),
		n:          s.n,
	}

	heap.Init(&cursors)
	var cumWeight uint64
	for cursors.Len() > 0 {
		cur := cursors[0]
		view.items = append(view.items, cur.items[cur.pos])
		cumWeight += cur.weight
		view.cumWeights = append(view.cumWeights, cumWeight)

		cur.pos++
		if cur.pos == len(cur.items) {
			heap.Pop(&cursors)
		} else {
			heap.Fix(&cursors, 0)
		}
	}

	return view
}

// quantile returns the item at the natural rank ceil(rank*n)-1 of the merged
// sequence.
func (v *doublesSortedView) quantile(rank float64) float64 {
	pos := int64(math.Ceil(rank*float64(v.n))) - 1
	if pos < 0 {
		pos = 0
	}

	idx := sort.Search(len(v.cumWeights), func(i int) bool {
		return v.cumWeights[i] > uint64(pos)
	})
	if idx == len(v.items) {
		return v.items[len(v.items)-1]
	}
	return v.items[idx]
}
