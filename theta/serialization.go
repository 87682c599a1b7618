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
	"errors"
	"fmt"

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

// ErrNotCompactImage indicates an attempt to wrap an update-form image as a
// compact sketch.
var ErrNotCompactImage = errors.New("image is not in compact form")

// decodeCompactPreamble validates a compact image and returns its header.
func decodeCompactPreamble(mem *memory.Memory, seed uint64) (*preambleData, error) {
	data, err := extractPreamble(mem, seed)
	if err != nil {
		return nil, err
	}
	if int(data.family) != internal.FamilyEnum.Compact.Id {
		return nil, ErrNotCompactImage
	}
	if !data.isCompact() {
		return nil, ErrNotCompactImage
	}

	if data.isEmpty() {
		return data, nil
	}

	expectedSize := data.entriesOffsetBytes() + int(data.numEntries)*8
	if mem.Capacity() < expectedSize {
		return nil, fmt.Errorf("at least %d bytes expected, actual %d", expectedSize, mem.Capacity())
	}
	return data, nil
}

// Heapify reconstructs a sketch from a serialized image onto the heap. A
// compact image yields a CompactSketch; an update-form image yields a
// QuickSelectUpdateSketch ready for further updates.
func Heapify(mem *memory.Memory, seed uint64) (Sketch, error) {
	family, err := mem.GetByte(familyByte)
	if err != nil {
		return nil, fmt.Errorf("memory capacity below preamble minimum of 8 bytes: %d", mem.Capacity())
	}

	if int(family) == internal.FamilyEnum.QuickSelect.Id {
		return HeapifyUpdateSketch(mem, seed)
	}

	data, err := decodeCompactPreamble(mem, seed)
	if err != nil {
		return nil, err
	}

	var entries []uint64
	if data.numEntries > 0 {
		entries, err = mem.GetLongArray(data.entriesOffsetBytes(), int(data.numEntries))
		if err != nil {
			return nil, err
		}
	}

	return newCompactFromParts(
		data.isEmpty(),
		data.isOrdered(),
		data.seedHash,
		data.theta,
		entries,
	), nil
}

// HeapifyBytes reconstructs a sketch from a serialized image held in a byte
// slice.
func HeapifyBytes(image []byte, seed uint64) (Sketch, error) {
	return Heapify(memory.WrapBytes(image), seed)
}

// HeapifyUpdateSketch reconstructs a mutable sketch from an update-form
// image onto the heap. Further updates do not touch the source image.
func HeapifyUpdateSketch(mem *memory.Memory, seed uint64, opts ...UpdateSketchOptionFunc) (*QuickSelectUpdateSketch, error) {
	header, err := extractPreamble(mem, seed)
	if err != nil {
		return nil, err
	}
	if int(header.family) != internal.FamilyEnum.QuickSelect.Id {
		return nil, fmt.Errorf("sketch family mismatch: expected %d, actual %d",
			internal.FamilyEnum.QuickSelect.Id, header.family)
	}
	if header.lgNomLongs < MinLgNomEntries || header.lgNomLongs > MaxLgNomEntries {
		return nil, fmt.Errorf("lgNomEntries out of range [%d, %d]: %d",
			MinLgNomEntries, MaxLgNomEntries, header.lgNomLongs)
	}
	if header.lgArrLongs < MinLgNomEntries || header.lgArrLongs > header.lgNomLongs+1 {
		return nil, fmt.Errorf("lg cache size out of range [%d, %d]: %d",
			MinLgNomEntries, header.lgNomLongs+1, header.lgArrLongs)
	}

	slotCount := 1 << header.lgArrLongs
	expectedSize := updatePreambleLen + slotCount*8
	if mem.Capacity() < expectedSize {
		return nil, fmt.Errorf("at least %d bytes expected, actual %d", expectedSize, mem.Capacity())
	}

	imageSlots, err := mem.GetLongArray(updatePreambleLen, slotCount)
	if err != nil {
		return nil, err
	}

	cfg, err := resolveSketchConfig(
		WithLgNomEntries(header.lgNomLongs),
		WithSamplingProbability(header.p),
		WithSeed(seed),
	)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cache := newHashCache(header.lgArrLongs, header.lgNomLongs, cfg.growth,
		header.p, header.theta, seed, cfg.hasher)
	cache.seen = !header.isEmpty()

	for _, hash := range imageSlots {
		if hash == 0 {
			continue
		}
		if hash >= header.theta {
			return nil, fmt.Errorf("cache entry %d at or above theta %d", hash, header.theta)
		}
		index, found, err := locateSlot(cache.slots, cache.lgSlots, hash)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, fmt.Errorf("duplicate cache entry %d in image", hash)
		}
		cache.slots[index] = hash
		cache.retained++
	}
	if cache.retained != header.numEntries {
		return nil, fmt.Errorf("retained entries mismatch: expected %d, actual %d",
			header.numEntries, cache.retained)
	}

	return &QuickSelectUpdateSketch{cache: cache}, nil
}

// Wrap creates a read-only sketch sharing the given compact image.
// Update-form images cannot be wrapped read-only; use WrapUpdateSketch.
func Wrap(mem *memory.Memory, seed uint64) (*WrappedCompactSketch, error) {
	return WrapCompactSketch(mem, seed)
}
