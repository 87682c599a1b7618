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
	"iter"

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

// ErrMemoryTooSmallToGrow indicates that the backing region of a direct
// sketch cannot hold the next cache size.
var ErrMemoryTooSmallToGrow = errors.New("backing region too small to grow the hash cache")

// DirectQuickSelectSketch is an update sketch whose entire state lives in a
// caller-supplied region: the update-form preamble followed by the hash
// cache. The sketch mutates the region in place and never frees it.
type DirectQuickSelectSketch struct {
	mem          *memory.Memory
	hasher       Hasher
	thetaLong    uint64
	hashSeed     uint64
	retained     uint32
	samplingP    float32
	lgSlots      uint8
	lgNomEntries uint8
	growth       ResizeFactor
	seen         bool
}

func newDirectQuickSelectSketch(cfg *sketchConfig) (*DirectQuickSelectSketch, error) {
	mem := cfg.region
	if mem.IsReadOnly() {
		return nil, memory.ErrReadOnly
	}
	required := MaxUpdateSketchBytes(cfg.lgNomEntries)
	if mem.Capacity() < required {
		return nil, fmt.Errorf("memory capacity %d below required %d bytes for lgNomEntries %d",
			mem.Capacity(), required, cfg.lgNomEntries)
	}

	s := &DirectQuickSelectSketch{
		mem:          mem,
		hasher:       cfg.hasher,
		thetaLong:    thetaFromP(cfg.samplingP),
		hashSeed:     cfg.hashSeed,
		samplingP:    cfg.samplingP,
		lgSlots:      startingLgSlots(cfg.lgNomEntries+1, cfg.growth),
		lgNomEntries: cfg.lgNomEntries,
		growth:       cfg.growth,
	}

	if err := s.writeState(); err != nil {
		return nil, err
	}
	if err := mem.Clear(updatePreambleLen, 8*(1<<s.lgSlots)); err != nil {
		return nil, err
	}
	return s, nil
}

// WrapUpdateSketch resumes a direct update sketch over an existing
// update-form image. Further updates mutate the image in place.
func WrapUpdateSketch(mem *memory.Memory, seed uint64, opts ...UpdateSketchOptionFunc) (*DirectQuickSelectSketch, error) {
	if mem.IsReadOnly() {
		return nil, memory.ErrReadOnly
	}

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

	expectedSize := updatePreambleLen + 8*(1<<header.lgArrLongs)
	if mem.Capacity() < expectedSize {
		return nil, fmt.Errorf("at least %d bytes expected, actual %d", expectedSize, mem.Capacity())
	}

	cfg := &sketchConfig{growth: DefaultResizeFactor, hasher: PortableHasher{}}
	for _, opt := range opts {
		opt(cfg)
	}

	return &DirectQuickSelectSketch{
		mem:          mem,
		hasher:       cfg.hasher,
		thetaLong:    header.theta,
		hashSeed:     seed,
		retained:     header.numEntries,
		samplingP:    header.p,
		lgSlots:      header.lgArrLongs,
		lgNomEntries: header.lgNomLongs,
		growth:       cfg.growth,
		seen:         !header.isEmpty(),
	}, nil
}

// writeState rewrites the full preamble from the cached state.
func (s *DirectQuickSelectSketch) writeState() error {
	seedFp, err := internal.ComputeSeedHash(int64(s.hashSeed))
	if err != nil {
		return err
	}

	var flags uint8
	if !s.seen {
		flags |= 1 << flagEmpty
	}

	if err := insertPreamble(s.mem, 3, uint8(internal.FamilyEnum.QuickSelect.Id), flags,
		s.lgNomEntries, s.lgSlots, seedFp); err != nil {
		return err
	}
	if err := s.mem.PutInt(curCountInt, s.retained); err != nil {
		return err
	}
	if err := s.mem.PutInt(pFloat, float32ToBits(s.samplingP)); err != nil {
		return err
	}
	return s.mem.PutLong(thetaLongLong, s.thetaLong)
}

// IsEmpty reports whether the sketch has never admitted an item.
func (s *DirectQuickSelectSketch) IsEmpty() bool {
	return !s.seen
}

// NumRetained returns the number of retained hashes.
func (s *DirectQuickSelectSketch) NumRetained() uint32 {
	return s.retained
}

// Theta64 returns the hash threshold.
func (s *DirectQuickSelectSketch) Theta64() uint64 {
	if !s.seen {
		return MaxTheta
	}
	return s.thetaLong
}

// SeedHash returns the fingerprint of the hash seed.
func (s *DirectQuickSelectSketch) SeedHash() (uint16, error) {
	return internal.ComputeSeedHash(int64(s.hashSeed))
}

// IsOrdered reports whether the retained hashes iterate in ascending order.
func (s *DirectQuickSelectSketch) IsOrdered() bool {
	return s.retained <= 1
}

// LgNomEntries returns the configured log2 nominal capacity.
func (s *DirectQuickSelectSketch) LgNomEntries() uint8 {
	return s.lgNomEntries
}

// ResizeFactor returns the configured cache growth step.
func (s *DirectQuickSelectSketch) ResizeFactor() ResizeFactor {
	return s.growth
}

// IsSameResource reports whether this sketch mutates the given region.
func (s *DirectQuickSelectSketch) IsSameResource(mem *memory.Memory) bool {
	return s.mem.IsSameResource(mem)
}

func (s *DirectQuickSelectSketch) slotOffset(slot uint32) int {
	return updatePreambleLen + int(slot)*8
}

// locateInMem probes the in-region cache the same way locateSlot probes a
// heap cache: it reports the slot holding the hash, or the first free slot
// on the probe path with found = false.
func (s *DirectQuickSelectSketch) locateInMem(hash uint64) (uint32, bool, error) {
	mask := uint32(1)<<s.lgSlots - 1
	stride := (uint32(hash>>s.lgSlots) & mask) | 1
	slot := uint32(hash) & mask

	for probes := uint32(0); probes <= mask; probes++ {
		occupant, err := s.mem.GetLong(s.slotOffset(slot))
		if err != nil {
			return 0, false, err
		}
		switch occupant {
		case 0:
			return slot, false, nil
		case hash:
			return slot, true, nil
		}
		slot = (slot + stride) & mask
	}
	return 0, false, ErrCacheSaturated
}

// insertHash screens a raw hash against the sampling window and admits it
// into the region.
func (s *DirectQuickSelectSketch) insertHash(rawHash uint64) error {
	if !s.seen {
		s.seen = true
		if err := s.writeState(); err != nil {
			return err
		}
	}

	hash := rawHash >> 1
	switch {
	case hash == 0:
		return ErrZeroHash
	case hash >= s.thetaLong:
		return ErrHashAboveTheta
	}

	slot, found, err := s.locateInMem(hash)
	if err != nil {
		return err
	}
	if found {
		return ErrDuplicateItem
	}
	return s.admit(slot, hash)
}

func (s *DirectQuickSelectSketch) admit(slot uint32, hash uint64) error {
	if err := s.mem.PutLong(s.slotOffset(slot), hash); err != nil {
		return err
	}
	s.retained++
	if err := s.mem.PutInt(curCountInt, s.retained); err != nil {
		return err
	}

	limit := uint32(1) << (s.lgSlots - 1)
	if s.lgSlots > s.lgNomEntries {
		limit = uint32(15) << (s.lgSlots - 4)
	}
	if s.retained <= limit {
		return nil
	}
	if s.lgSlots <= s.lgNomEntries {
		return s.grow()
	}
	return s.evictExcess()
}

// grow rehashes the region-resident cache into the next table size.
func (s *DirectQuickSelectSketch) grow() error {
	oldSize := 1 << s.lgSlots
	lgNext := min(s.lgSlots+uint8(s.growth), s.lgNomEntries+1)
	nextSize := 1 << lgNext

	if s.mem.Capacity() < updatePreambleLen+8*nextSize {
		return ErrMemoryTooSmallToGrow
	}

	live, err := s.mem.GetLongArray(updatePreambleLen, oldSize)
	if err != nil {
		return err
	}
	if err := s.mem.Clear(updatePreambleLen, 8*nextSize); err != nil {
		return err
	}

	s.lgSlots = lgNext
	if err := s.mem.PutByte(lgArrLongsByte, s.lgSlots); err != nil {
		return err
	}

	for _, hash := range live {
		if hash == 0 {
			continue
		}
		// a larger table always has a free slot on the probe path
		slot, _, _ := s.locateInMem(hash)
		if err := s.mem.PutLong(s.slotOffset(slot), hash); err != nil {
			return err
		}
	}
	return nil
}

// evictExcess lowers thetaLong to the nominal-th smallest retained hash,
// drops everything at or above it, and rehashes the survivors in place.
func (s *DirectQuickSelectSketch) evictExcess() error {
	size := 1 << s.lgSlots
	nom := 1 << s.lgNomEntries

	slots, err := s.mem.GetLongArray(updatePreambleLen, size)
	if err != nil {
		return err
	}
	live := make([]uint64, 0, s.retained)
	for _, hash := range slots {
		if hash != 0 {
			live = append(live, hash)
		}
	}

	internal.QuickSelect(live, 0, len(live)-1, nom)
	s.thetaLong = live[nom]
	if err := s.mem.PutLong(thetaLongLong, s.thetaLong); err != nil {
		return err
	}

	if err := s.mem.Clear(updatePreambleLen, 8*size); err != nil {
		return err
	}
	s.retained = uint32(nom)
	if err := s.mem.PutInt(curCountInt, s.retained); err != nil {
		return err
	}

	for _, hash := range live[:nom] {
		slot, _, _ := s.locateInMem(hash)
		if err := s.mem.PutLong(s.slotOffset(slot), hash); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInt64 offers a signed 64-bit integer.
func (s *DirectQuickSelectSketch) UpdateInt64(value int64) error {
	return s.insertHash(s.hasher.HashInt64(value, s.hashSeed))
}

// UpdateUint64 offers an unsigned 64-bit integer.
func (s *DirectQuickSelectSketch) UpdateUint64(value uint64) error {
	return s.UpdateInt64(int64(value))
}

// UpdateFloat64 offers a double-precision value.
func (s *DirectQuickSelectSketch) UpdateFloat64(value float64) error {
	return s.UpdateInt64(canonicalFloat64Bits(value))
}

// UpdateString offers a string. The empty string is rejected.
func (s *DirectQuickSelectSketch) UpdateString(value string) error {
	if value == "" {
		return ErrEmptyStringItem
	}
	return s.insertHash(s.hasher.HashBytes([]byte(value), s.hashSeed))
}

// UpdateBytes offers raw bytes.
func (s *DirectQuickSelectSketch) UpdateBytes(data []byte) error {
	return s.insertHash(s.hasher.HashBytes(data, s.hashSeed))
}

// Trim evicts retained hashes in excess of the nominal capacity.
func (s *DirectQuickSelectSketch) Trim() {
	if s.retained > uint32(1)<<s.lgNomEntries {
		_ = s.evictExcess()
	}
}

// Reset returns the sketch to its initial empty state.
func (s *DirectQuickSelectSketch) Reset() {
	oldSize := 1 << s.lgSlots
	s.lgSlots = startingLgSlots(s.lgNomEntries+1, s.growth)
	s.retained = 0
	s.thetaLong = thetaFromP(s.samplingP)
	s.seen = false
	_ = s.mem.Clear(updatePreambleLen, 8*oldSize)
	_ = s.writeState()
}

// All iterates over the retained hashes in slot order.
func (s *DirectQuickSelectSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		size := uint32(1) << s.lgSlots
		for slot := uint32(0); slot < size; slot++ {
			hash, err := s.mem.GetLong(s.slotOffset(slot))
			if err != nil {
				return
			}
			if hash != 0 && !yield(hash) {
				return
			}
		}
	}
}

// Compact freezes the current state into the immutable compact form.
func (s *DirectQuickSelectSketch) Compact(ordered bool) *CompactSketch {
	return NewCompactSketch(s, ordered)
}

// CompactOrdered freezes the current state into the ordered compact form.
func (s *DirectQuickSelectSketch) CompactOrdered() *CompactSketch {
	return s.Compact(true)
}

// ToByteArray returns a copy of the update-form image.
func (s *DirectQuickSelectSketch) ToByteArray() ([]byte, error) {
	return s.mem.GetBytes(0, updatePreambleLen+8*(1<<s.lgSlots))
}

var (
	_ UpdateSketch = (*DirectQuickSelectSketch)(nil)
	_ UpdateSketch = (*QuickSelectUpdateSketch)(nil)
	_ Sketch       = (*CompactSketch)(nil)
	_ Sketch       = (*WrappedCompactSketch)(nil)
)
