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
	"strings"

	"github.com/prattrs/sketches-core/internal/binomialbounds"
)

// Theta returns the effective sampling rate of the sketch as a fraction in
// (0, 1].
func Theta(s Sketch) float64 {
	return float64(s.Theta64()) / float64(MaxTheta)
}

// IsEstimationMode reports whether the sketch answers approximately: its
// threshold has dropped below MaxTheta, scaling every retained hash by
// 1/theta.
func IsEstimationMode(s Sketch) bool {
	return s.Theta64() < MaxTheta && !s.IsEmpty()
}

// Estimate returns the unbiased estimate of the number of distinct items
// offered to the sketch: the retained count divided by the sampling rate.
func Estimate(s Sketch) float64 {
	return float64(s.NumRetained()) / Theta(s)
}

// LowerBound returns the lower confidence bound on the distinct count for
// 1, 2 or 3 standard deviations (roughly 67%, 95% and 99% intervals).
// Outside estimation mode the retained count is exact and is returned as is.
func LowerBound(s Sketch, numStdDevs uint8) (float64, error) {
	if !IsEstimationMode(s) {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.LowerBound(uint64(s.NumRetained()), Theta(s), uint(numStdDevs))
}

// UpperBound returns the upper confidence bound on the distinct count for
// 1, 2 or 3 standard deviations.
func UpperBound(s Sketch, numStdDevs uint8) (float64, error) {
	if !IsEstimationMode(s) {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.UpperBound(uint64(s.NumRetained()), Theta(s), uint(numStdDevs))
}

// Summary renders a human-readable description of any sketch. With
// withEntries the retained hashes are listed after the summary block.
func Summary(s Sketch, withEntries bool) string {
	seedFp, _ := s.SeedHash()
	lb, _ := LowerBound(s, 2)
	ub, _ := UpperBound(s, 2)

	var sb strings.Builder
	sb.WriteString("### Theta sketch summary:\n")
	sb.WriteString(fmt.Sprintf("   retained hashes      : %d\n", s.NumRetained()))
	sb.WriteString(fmt.Sprintf("   seed hash            : %d\n", seedFp))
	sb.WriteString(fmt.Sprintf("   empty?               : %t\n", s.IsEmpty()))
	sb.WriteString(fmt.Sprintf("   ordered?             : %t\n", s.IsOrdered()))
	sb.WriteString(fmt.Sprintf("   estimation mode?     : %t\n", IsEstimationMode(s)))
	sb.WriteString(fmt.Sprintf("   theta (fraction)     : %f\n", Theta(s)))
	sb.WriteString(fmt.Sprintf("   theta (raw 64-bit)   : %d\n", s.Theta64()))
	sb.WriteString(fmt.Sprintf("   estimate             : %f\n", Estimate(s)))
	sb.WriteString(fmt.Sprintf("   lower bound 95%% conf : %f\n", lb))
	sb.WriteString(fmt.Sprintf("   upper bound 95%% conf : %f\n", ub))
	sb.WriteString("### End sketch summary\n")

	if withEntries {
		sb.WriteString("### Retained hashes\n")
		for hash := range s.All() {
			sb.WriteString(fmt.Sprintf("%d\n", hash))
		}
		sb.WriteString("### End retained hashes\n")
	}
	return sb.String()
}
