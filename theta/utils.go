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
)

// thetaFromP maps the up-front sampling probability to the initial hash
// threshold. p == 1 must yield MaxTheta exactly, so the multiplication is
// reserved for true subsampling.
func thetaFromP(p float32) uint64 {
	if p >= 1 {
		return MaxTheta
	}
	return uint64(float64(MaxTheta) * float64(p))
}

// startingLgSlots picks the initial cache size: the smallest sub-multiple of
// the full size that the growth factor can reach in whole steps.
func startingLgSlots(lgTarget uint8, growth ResizeFactor) uint8 {
	if lgTarget <= MinLgNomEntries {
		return MinLgNomEntries
	}
	lgStep := uint8(growth)
	if lgStep == 0 {
		return lgTarget
	}
	return MinLgNomEntries + (lgTarget-MinLgNomEntries)%lgStep
}

// checkSameSeedFingerprint verifies that the sketch was hashed under the
// given seed before its hashes are mixed into a set operation.
func checkSameSeedFingerprint(seed uint64, sk Sketch) error {
	expected, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return err
	}
	actual, err := sk.SeedHash()
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("seed hash mismatch: operand has %d, expected %d", actual, expected)
	}
	return nil
}

func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func float32ToBits(value float32) uint32 {
	return math.Float32bits(value)
}
