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

// Package binomialbounds computes frequentist confidence bounds on the number
// of independent Bernoulli trials given the observed number of successes and
// the success probability theta.
//
// In the sketching setting, every distinct input item is a trial that succeeds
// (is retained) with probability theta, numSamples is the observed number of
// retained entries, and the bounds bracket the unknown true cardinality.
package binomialbounds

import (
	"errors"
	"math"

	"github.com/prattrs/sketches-core/internal/binomialproportionsbounds"
)

var (
	ErrInvalidTheta      = errors.New("theta must be in [0, 1]")
	ErrInvalidNumStdDevs = errors.New("numStdDevs must be 1, 2 or 3")
)

// nearlyOneTheta is the threshold above which sampling is treated as
// effectively exhaustive.
const nearlyOneTheta = 1.0 - 1e-5

// LowerBound returns the approximate lower bound on the number of trials,
// given numSamples successes observed at success probability theta, for a
// confidence interval of 1, 2 or 3 standard deviations.
func LowerBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	if err := checkArgs(theta, numStdDevs); err != nil {
		return 0, err
	}

	numSamplesF := float64(numSamples)
	switch {
	case numSamples == 0:
		return 0, nil
	case theta == 1.0:
		return numSamplesF, nil
	case theta > nearlyOneTheta:
		return numSamplesF, nil
	}

	var rawLB float64
	if numSamples == 1 {
		delta := deltaOfNumStdDevs(numStdDevs)
		rawLB = math.Log(1.0-delta) / math.Log(1.0-theta)
	} else {
		rawLB = contClassicLB(numSamplesF, theta, float64(numStdDevs))
	}

	// the true count is at least the observed count, and the lower bound
	// never exceeds the estimate
	estimate := numSamplesF / theta
	return math.Min(estimate, math.Max(numSamplesF, rawLB)), nil
}

// UpperBound returns the approximate upper bound on the number of trials,
// given numSamples successes observed at success probability theta, for a
// confidence interval of 1, 2 or 3 standard deviations.
func UpperBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	if err := checkArgs(theta, numStdDevs); err != nil {
		return 0, err
	}

	numSamplesF := float64(numSamples)
	switch {
	case theta == 1.0:
		return numSamplesF, nil
	case numSamples == 0:
		// invert P(zero successes out of N) = (1-theta)^N = delta
		delta := deltaOfNumStdDevs(numStdDevs)
		return math.Log(delta) / math.Log(1.0-theta), nil
	case theta > nearlyOneTheta:
		return numSamplesF + 1.0, nil
	}

	rawUB := contClassicUB(numSamplesF, theta, float64(numStdDevs))
	estimate := numSamplesF / theta
	return math.Max(estimate, rawUB), nil
}

func checkArgs(theta float64, numStdDevs uint) error {
	if theta < 0 || theta > 1 {
		return ErrInvalidTheta
	}
	if numStdDevs < 1 || numStdDevs > 3 {
		return ErrInvalidNumStdDevs
	}
	return nil
}

// deltaOfNumStdDevs is the tail probability left beyond numStdDevs of a
// standard normal distribution.
func deltaOfNumStdDevs(numStdDevs uint) float64 {
	return binomialproportionsbounds.NormalCDF(-1.0 * float64(numStdDevs))
}

// contClassicLB and contClassicUB are the classic continuous approximations
// to the binomial tail inversion, accurate away from the tiny-sample and
// near-exhaustive corners which are special-cased above.
func contClassicLB(numSamplesF, theta, numSDev float64) float64 {
	nHat := (numSamplesF - (numSDev * numSDev / 2.0)) / theta
	b := numSDev * math.Sqrt((1.0-theta)/theta)
	d := 0.5 * b * math.Sqrt((b*b)+(4.0*nHat))
	center := nHat + ((b * b) / 2.0)
	return center - d
}

func contClassicUB(numSamplesF, theta, numSDev float64) float64 {
	nHat := (numSamplesF + (numSDev * numSDev / 2.0)) / theta
	b := numSDev * math.Sqrt((1.0-theta)/theta)
	d := 0.5 * b * math.Sqrt((b*b)+(4.0*nHat))
	center := nHat + ((b * b) / 2.0)
	return center + d
}
