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

// baseBufferLevel selects the base buffer window of an accessor.
const baseBufferLevel = -1

// doublesAccessor is a uniform positional view over a sketch's payload: the
// base buffer and each level appear as a window of items addressed by index.
// The same accessor serves heap and direct, update and compact
// representations, so the algorithms above it never branch on storage.
//
// In full mode every level inside an update representation reports the full
// level width k even when unpopulated; this is the view used when writing
// non-compact images.
type doublesAccessor struct {
	s      *DoublesSketch
	full   bool
	level  int
	offset int
	count  int
}

func (s *DoublesSketch) accessor(full bool) *doublesAccessor {
	a := &doublesAccessor{s: s, full: full}
	a.setLevel(baseBufferLevel)
	return a
}

// setLevel switches the window: baseBufferLevel for the base buffer, or a
// level index starting at zero. It returns the accessor for chaining.
func (a *doublesAccessor) setLevel(lvl int) *doublesAccessor {
	a.level = lvl
	if lvl == baseBufferLevel {
		a.offset = 0
		a.count = a.s.BaseBufferCount()
		return a
	}

	bitPattern := a.s.BitPattern()
	populated := bitPattern&(uint64(1)<<lvl) != 0

	if a.s.compactRpr {
		// packed layout: base buffer items, then populated levels ascending
		off := a.s.BaseBufferCount()
		for i := 0; i < lvl; i++ {
			if bitPattern&(uint64(1)<<i) != 0 {
				off += a.s.k
			}
		}
		a.offset = off
		a.count = 0
		if populated {
			a.count = a.s.k
		}
		return a
	}

	// update layout: base buffer capacity 2k, then one slot of k per level
	a.offset = (2 + lvl) * a.s.k
	a.count = 0
	if populated || a.full {
		a.count = a.s.k
	}
	return a
}

// numItems returns the number of items in the current window.
func (a *doublesAccessor) numItems() int {
	return a.count
}

// get returns the item at position i of the current window.
func (a *doublesAccessor) get(i int) float64 {
	if a.s.mem != nil {
		v, err := a.s.mem.GetDouble(payloadOffsetBytes(a.offset + i))
		if err != nil {
			panic("accessor read beyond sketch region: " + err.Error())
		}
		return v
	}
	return a.s.combined[a.offset+i]
}

// set writes the item at position i of the current window.
func (a *doublesAccessor) set(i int, value float64) error {
	if a.s.compactRpr {
		return ErrCompactSketch
	}
	if a.s.mem != nil {
		return a.s.mem.PutDouble(payloadOffsetBytes(a.offset+i), value)
	}
	a.s.combined[a.offset+i] = value
	return nil
}

// getArray copies n items starting at position from of the current window.
func (a *doublesAccessor) getArray(from, n int) []float64 {
	if a.s.mem != nil {
		out, err := a.s.mem.GetDoubleArray(payloadOffsetBytes(a.offset+from), n)
		if err != nil {
			panic("accessor read beyond sketch region: " + err.Error())
		}
		return out
	}
	out := make([]float64, n)
	copy(out, a.s.combined[a.offset+from:a.offset+from+n])
	return out
}

// putArray writes the given items starting at position to of the current
// window.
func (a *doublesAccessor) putArray(values []float64, to int) error {
	if a.s.compactRpr {
		return ErrCompactSketch
	}
	if a.s.mem != nil {
		return a.s.mem.PutDoubleArray(payloadOffsetBytes(a.offset+to), values)
	}
	copy(a.s.combined[a.offset+to:], values)
	return nil
}
