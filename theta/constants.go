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

import "math"

// MaxTheta is the upper end of the half-open hash window (0, MaxTheta].
// A sketch whose threshold sits at MaxTheta retains every hash it sees and
// answers exactly; anything lower puts it in estimation mode.
const MaxTheta uint64 = math.MaxInt64

// Bounds and default for lgNomLongs, the log2 of the nominal number of
// retained entries.
const (
	MinLgNomEntries     uint8 = 4
	MaxLgNomEntries     uint8 = 26
	DefaultLgNomEntries uint8 = 12
)

// DefaultSeed is the library-fixed hash seed. Sketches hashed under
// different seeds cannot be mixed in set operations.
const DefaultSeed uint64 = 9001

// ResizeFactor is the log2 step by which the hash cache grows toward its
// full size.
type ResizeFactor uint8

const (
	ResizeX1 ResizeFactor = iota // no growth steps, allocate full size up front
	ResizeX2
	ResizeX4
	ResizeX8
)

// DefaultResizeFactor grows the cache by 8x per step.
const DefaultResizeFactor = ResizeX8
