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

import "math"

// Rank returns the approximate normalized rank of the given value: the
// fraction of the input stream less than or equal to it.
func (s *DoublesSketch) Rank(value float64) (float64, error) {
	if math.IsNaN(value) {
		return 0, ErrNaN
	}
	if s.IsEmpty() {
		return 0, ErrEmpty
	}

	a := s.accessor(false)

	var weightedCount uint64
	bbCount := a.setLevel(baseBufferLevel).numItems()
	for i := 0; i < bbCount; i++ {
		if a.get(i) <= value {
			weightedCount++
		}
	}

	for lvl, bitPattern := 0, s.BitPattern(); bitPattern != 0; lvl, bitPattern = lvl+1, bitPattern>>1 {
		if bitPattern&1 == 0 {
			continue
		}
		a.setLevel(lvl)
		// a level lvl item stands for 2^(lvl+1) stream items
		weight := uint64(1) << (lvl + 1)
		for i := 0; i < s.k; i++ {
			if a.get(i) <= value {
				weightedCount += weight
			}
		}
	}

	return float64(weightedCount) / float64(s.n), nil
}

// Quantile returns the approximate value at the given normalized rank.
// Rank 0 maps to the minimum and rank 1 to the maximum. On an empty sketch
// the boundary ranks return the min/max sentinels (+Inf and -Inf) and every
// interior rank returns NaN.
func (s *DoublesSketch) Quantile(rank float64) (float64, error) {
	if rank < 0 || rank > 1 || math.IsNaN(rank) {
		return 0, ErrInvalidRank
	}
	if s.IsEmpty() {
		switch rank {
		case 0:
			return s.minValue, nil
		case 1:
			return s.maxValue, nil
		default:
			return math.NaN(), nil
		}
	}
	if rank == 0 {
		return s.minValue, nil
	}
	if rank == 1 {
		return s.maxValue, nil
	}
	return newSortedView(s).quantile(rank), nil
}

// Quantiles returns the approximate values at the given normalized ranks,
// preserving input order.
func (s *DoublesSketch) Quantiles(ranks []float64) ([]float64, error) {
	for _, rank := range ranks {
		if rank < 0 || rank > 1 || math.IsNaN(rank) {
			return nil, ErrInvalidRank
		}
	}

	out := make([]float64, len(ranks))
	var view *doublesSortedView
	for i, rank := range ranks {
		switch {
		case s.IsEmpty():
			q, _ := s.Quantile(rank)
			out[i] = q
		case rank == 0:
			out[i] = s.minValue
		case rank == 1:
			out[i] = s.maxValue
		default:
			if view == nil {
				view = newSortedView(s)
			}
			out[i] = view.quantile(rank)
		}
	}
	return out, nil
}

// Median returns the approximate median of the input stream.
func (s *DoublesSketch) Median() (float64, error) {
	if s.IsEmpty() {
		return 0, ErrEmpty
	}
	return s.Quantile(0.5)
}

// CDF returns an approximation to the cumulative distribution function of
// the input stream evaluated at the given split points, which must be unique,
// monotonically increasing and finite. The result has one more entry than
// splitPoints; the last entry is always 1.
func (s *DoublesSketch) CDF(splitPoints []float64) ([]float64, error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	if err := validateSplitPoints(splitPoints); err != nil {
		return nil, err
	}

	out := make([]float64, len(splitPoints)+1)
	for i, sp := range splitPoints {
		rank, err := s.Rank(sp)
		if err != nil {
			return nil, err
		}
		out[i] = rank
	}
	out[len(splitPoints)] = 1.0
	return out, nil
}

// PMF returns an approximation to the probability mass function of the input
// stream over the intervals defined by the given split points. The result has
// one more entry than splitPoints and sums to 1.
func (s *DoublesSketch) PMF(splitPoints []float64) ([]float64, error) {
	buckets, err := s.CDF(splitPoints)
	if err != nil {
		return nil, err
	}
	for i := len(splitPoints); i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}
	return buckets, nil
}
