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
	"fmt"
	"math"

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/internal/binomialproportionsbounds"
)

// jaccardStdDevs fixes the confidence interval of the Jaccard bounds at two
// standard deviations, roughly 95.4%.
const jaccardStdDevs = 2.0

// JaccardSimilarityResult brackets the Jaccard index J(A,B) = |A∩B| / |A∪B|
// with a lower bound, an estimate and an upper bound. J = 1 means the sets
// are identical, J = 0 disjoint.
type JaccardSimilarityResult struct {
	LowerBound float64
	Estimate   float64
	UpperBound float64
}

// Jaccard computes bounds on the Jaccard index of the sets behind two
// sketches. Both must have been built under the given seed. Sketches with
// nominal sizes at the top of the allowed range may exceed the accuracy the
// bounds assume.
func Jaccard(a, b Sketch, seed uint64) (JaccardSimilarityResult, error) {
	switch {
	case a == b, a.IsEmpty() && b.IsEmpty():
		return JaccardSimilarityResult{1, 1, 1}, nil
	case a.IsEmpty() || b.IsEmpty():
		return JaccardSimilarityResult{0, 0, 0}, nil
	}

	unionAB, err := unionForPair(a, b, seed)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	if coverSameSet(a, b, unionAB) {
		return JaccardSimilarityResult{1, 1, 1}, nil
	}

	// intersecting with the union as well keeps the intersection a strict
	// subset of it
	inter := NewIntersection(WithIntersectionSeed(seed))
	for _, operand := range []Sketch{a, b, unionAB} {
		if err := inter.Update(operand); err != nil {
			return JaccardSimilarityResult{}, err
		}
	}
	interABU, err := inter.Result(false)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}

	lb, err := ratioLowerBound(unionAB, interABU)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	est, err := ratioEstimate(unionAB, interABU)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	ub, err := ratioUpperBound(unionAB, interABU)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	return JaccardSimilarityResult{LowerBound: lb, Estimate: est, UpperBound: ub}, nil
}

// IsExactlyEqual reports whether two sketches describe the same retained
// set under the same theta.
func IsExactlyEqual(a, b Sketch, seed uint64) (bool, error) {
	switch {
	case a == b, a.IsEmpty() && b.IsEmpty():
		return true, nil
	case a.IsEmpty() || b.IsEmpty():
		return false, nil
	}

	unionAB, err := unionForPair(a, b, seed)
	if err != nil {
		return false, err
	}
	return coverSameSet(a, b, unionAB), nil
}

// IsSimilar reports, with roughly 97.7% confidence, that the set behind
// actual covers at least the given fraction of the set behind expected: the
// lower Jaccard bound must reach the threshold.
func IsSimilar(actual, expected Sketch, threshold float64, seed uint64) (bool, error) {
	bounds, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return bounds.LowerBound >= threshold, nil
}

// IsDissimilar reports, with roughly 97.7% confidence, that the overlap of
// the two sets stays below the given fraction: the upper Jaccard bound must
// not exceed the threshold.
func IsDissimilar(actual, expected Sketch, threshold float64, seed uint64) (bool, error) {
	bounds, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return bounds.UpperBound <= threshold, nil
}

// unionForPair unions two sketches at a nominal size just large enough to
// hold both retained sets without eviction.
func unionForPair(a, b Sketch, seed uint64) (Sketch, error) {
	combined := internal.CeilPowerOf2(int(a.NumRetained() + b.NumRetained()))
	lgNom := max(MinLgNomEntries, min(MaxLgNomEntries, internal.Log2Floor(uint32(combined))))

	u, err := NewUnion(WithUnionLgNomEntries(lgNom), WithUnionSeed(seed))
	if err != nil {
		return nil, err
	}
	if err := u.Update(a); err != nil {
		return nil, err
	}
	if err := u.Update(b); err != nil {
		return nil, err
	}
	return u.Result(false)
}

// coverSameSet reports whether both operands retained exactly what their
// union retained, under the same theta.
func coverSameSet(a, b, unionAB Sketch) bool {
	return a.NumRetained() == unionAB.NumRetained() &&
		b.NumRetained() == unionAB.NumRetained() &&
		a.Theta64() == unionAB.Theta64() &&
		b.Theta64() == unionAB.Theta64()
}

// The ratio bounds treat the subset sketch as a Bernoulli sample of the
// superset: every item of the superset lands in the subset's sampling
// window independently with probability f = theta(sub), and the observed
// fraction bounds the true ratio |sub| / |super| through an approximate
// Clopper-Pearson interval.

// ratioSample reduces a superset/subset sketch pair to the sampled-set
// triple (trials, successes, inclusion probability).
func ratioSample(super, sub Sketch) (trials, successes uint64, f float64, err error) {
	thetaSuper := super.Theta64()
	thetaSub := sub.Theta64()
	if thetaSub > thetaSuper {
		return 0, 0, 0, fmt.Errorf("subset theta %d above superset theta %d", thetaSub, thetaSuper)
	}

	successes = uint64(sub.NumRetained())
	if thetaSub == thetaSuper {
		trials = uint64(super.NumRetained())
	} else {
		for hash := range super.All() {
			if hash < thetaSub {
				trials++
			}
		}
	}
	if successes > trials {
		return 0, 0, 0, fmt.Errorf("subset retained %d exceeds superset trials %d", successes, trials)
	}
	return trials, successes, Theta(sub), nil
}

func ratioEstimate(super, sub Sketch) (float64, error) {
	trials, successes, _, err := ratioSample(super, sub)
	if err != nil {
		return 0, err
	}
	if trials == 0 {
		return 0.5, nil
	}
	return float64(successes) / float64(trials), nil
}

func ratioLowerBound(super, sub Sketch) (float64, error) {
	trials, successes, f, err := ratioSample(super, sub)
	if err != nil {
		return 0, err
	}
	if trials == 0 {
		return 0, nil
	}
	if f == 1 {
		return float64(successes) / float64(trials), nil
	}
	return binomialproportionsbounds.ApproximateLowerBoundOnP(
		trials, successes, jaccardStdDevs*inclusionAdjustedStdDevs(f))
}

func ratioUpperBound(super, sub Sketch) (float64, error) {
	trials, successes, f, err := ratioSample(super, sub)
	if err != nil {
		return 0, err
	}
	if trials == 0 {
		return 1, nil
	}
	if f == 1 {
		return float64(successes) / float64(trials), nil
	}
	return binomialproportionsbounds.ApproximateUpperBoundOnP(
		trials, successes, jaccardStdDevs*inclusionAdjustedStdDevs(f))
}

// inclusionAdjustedStdDevs scales the two-standard-deviation interval by
// sqrt(1 - f), which narrows it as the inclusion probability f grows; above
// f = 1/2 a small term 0.01*(f - 1/2) widens it again slightly.
func inclusionAdjustedStdDevs(f float64) float64 {
	adjusted := math.Sqrt(1.0 - f)
	if f <= 0.5 {
		return adjusted
	}
	return adjusted + 0.01*(f-0.5)
}
