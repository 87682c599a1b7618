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

// Package theta implements the Theta sketch family: a mergeable summary of
// distinct-item cardinality built on a bottom-k selection over 63-bit hashes.
// An update sketch (heap or direct) absorbs a stream of items; a compact
// sketch is its immutable, serializable form; unions, intersections and set
// differences operate on any mix of the two.
//
// The Sketch interface exposes only the state every representation carries.
// The shared estimators live as free functions (Estimate, LowerBound,
// UpperBound, Theta, IsEstimationMode, Summary) over that interface, so no
// representation inherits behavior from another.
package theta

import "iter"

// Sketch is the read surface common to every representation of a Theta
// sketch.
type Sketch interface {
	// IsEmpty reports whether the sketch has never admitted an item.
	// Not the same as having no retained hashes: a p-sampled sketch can be
	// non-empty with an empty cache.
	IsEmpty() bool

	// NumRetained returns the number of retained hashes.
	NumRetained() uint32

	// Theta64 returns the hash threshold as a positive integer no greater
	// than MaxTheta. Only hashes strictly below it are retained.
	Theta64() uint64

	// SeedHash returns the 16-bit fingerprint of the hash seed the sketch
	// was built with.
	SeedHash() (uint16, error)

	// IsOrdered reports whether the retained hashes iterate in ascending
	// order.
	IsOrdered() bool

	// All iterates over the retained hashes.
	All() iter.Seq[uint64]
}
