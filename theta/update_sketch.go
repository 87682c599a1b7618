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
	"math"

	"github.com/prattrs/sketches-core/internal"
	"github.com/prattrs/sketches-core/memory"
)

var (
	// ErrDuplicateItem marks an update whose hash the sketch already holds.
	ErrDuplicateItem = errors.New("item already present")
	// ErrEmptyStringItem marks an update with the empty string, which has
	// no canonical byte form.
	ErrEmptyStringItem = errors.New("cannot update with an empty string")
)

// UpdateSketch is the mutable form of a Theta sketch: it absorbs a stream of
// items and can be frozen into the compact form at any point.
type UpdateSketch interface {
	Sketch

	// UpdateInt64 offers a signed 64-bit integer.
	UpdateInt64(value int64) error

	// UpdateFloat64 offers a double-precision value.
	UpdateFloat64(value float64) error

	// UpdateString offers a string.
	UpdateString(value string) error

	// UpdateBytes offers raw bytes.
	UpdateBytes(data []byte) error

	// Compact freezes the current state into the immutable compact form.
	Compact(ordered bool) *CompactSketch

	// Trim evicts retained hashes in excess of the nominal capacity.
	Trim()

	// Reset returns the sketch to its initial empty state.
	Reset()
}

type sketchConfig struct {
	region       *memory.Memory
	hasher       Hasher
	hashSeed     uint64
	samplingP    float32
	lgNomEntries uint8
	growth       ResizeFactor
}

type UpdateSketchOptionFunc func(*sketchConfig)

// WithLgNomEntries sets log2 of the nominal number of retained entries.
// Larger values trade space for a tighter estimate.
func WithLgNomEntries(lgNomEntries uint8) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.lgNomEntries = lgNomEntries
	}
}

// WithSamplingProbability sets the up-front sampling probability p in
// (0, 1]. The default of 1 retains everything until the cache fills, at
// which point theta eviction takes over.
func WithSamplingProbability(p float32) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.samplingP = p
	}
}

// WithSeed sets the 64-bit hash seed. Sketches built under different seeds
// cannot be mixed in set operations.
func WithSeed(seed uint64) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.hashSeed = seed
	}
}

// WithResizeFactor sets the growth step of the hash cache.
func WithResizeFactor(growth ResizeFactor) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.growth = growth
	}
}

// WithHasher injects the 64-bit hash function. The default PortableHasher
// matches the serialized images of the other implementations of this format;
// sketches built under different hashers cannot be mixed.
func WithHasher(hasher Hasher) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.hasher = hasher
	}
}

// WithMemory supplies a backing region for a direct sketch. The sketch
// mutates the region in place and never frees it; the caller guarantees the
// region outlives the sketch and meets MaxUpdateSketchBytes of the
// configured size.
func WithMemory(region *memory.Memory) UpdateSketchOptionFunc {
	return func(cfg *sketchConfig) {
		cfg.region = region
	}
}

func resolveSketchConfig(opts ...UpdateSketchOptionFunc) (*sketchConfig, error) {
	cfg := &sketchConfig{
		hasher:       PortableHasher{},
		hashSeed:     DefaultSeed,
		samplingP:    1.0,
		lgNomEntries: DefaultLgNomEntries,
		growth:       DefaultResizeFactor,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.lgNomEntries < MinLgNomEntries || cfg.lgNomEntries > MaxLgNomEntries {
		return nil, fmt.Errorf("lgNomEntries must be in [%d, %d]: %d",
			MinLgNomEntries, MaxLgNomEntries, cfg.lgNomEntries)
	}
	if cfg.samplingP <= 0 || cfg.samplingP > 1 {
		return nil, fmt.Errorf("sampling probability must be in (0, 1]: %f", cfg.samplingP)
	}
	return cfg, nil
}

// NewUpdateSketch builds an empty update sketch. With WithMemory the sketch
// is direct and lives in the supplied region; otherwise it owns heap
// storage.
func NewUpdateSketch(opts ...UpdateSketchOptionFunc) (UpdateSketch, error) {
	cfg, err := resolveSketchConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.region != nil {
		return newDirectQuickSelectSketch(cfg)
	}
	return newQuickSelectUpdateSketch(cfg), nil
}

// NewQuickSelectUpdateSketch builds an empty heap-backed update sketch.
func NewQuickSelectUpdateSketch(opts ...UpdateSketchOptionFunc) (*QuickSelectUpdateSketch, error) {
	cfg, err := resolveSketchConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newQuickSelectUpdateSketch(cfg), nil
}

// QuickSelectUpdateSketch is the heap-backed update sketch. Eviction picks
// the nominal-th smallest retained hash by quickselect, which gives the
// family its name.
type QuickSelectUpdateSketch struct {
	cache *hashCache
}

func newQuickSelectUpdateSketch(cfg *sketchConfig) *QuickSelectUpdateSketch {
	return &QuickSelectUpdateSketch{
		cache: newHashCache(
			startingLgSlots(cfg.lgNomEntries+1, cfg.growth),
			cfg.lgNomEntries,
			cfg.growth,
			cfg.samplingP,
			thetaFromP(cfg.samplingP),
			cfg.hashSeed,
			cfg.hasher,
		),
	}
}

// IsEmpty reports whether the sketch has never admitted an item.
func (s *QuickSelectUpdateSketch) IsEmpty() bool {
	return !s.cache.seen
}

// NumRetained returns the number of retained hashes.
func (s *QuickSelectUpdateSketch) NumRetained() uint32 {
	return s.cache.retained
}

// Theta64 returns the hash threshold.
func (s *QuickSelectUpdateSketch) Theta64() uint64 {
	if s.IsEmpty() {
		return MaxTheta
	}
	return s.cache.thetaLong
}

// SeedHash returns the fingerprint of the hash seed.
func (s *QuickSelectUpdateSketch) SeedHash() (uint16, error) {
	return internal.ComputeSeedHash(int64(s.cache.hashSeed))
}

// IsOrdered reports whether the retained hashes iterate in ascending order,
// which for an open-addressed cache only holds trivially.
func (s *QuickSelectUpdateSketch) IsOrdered() bool {
	return s.cache.retained <= 1
}

// All iterates over the retained hashes in slot order.
func (s *QuickSelectUpdateSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, hash := range s.cache.slots {
			if hash != 0 && !yield(hash) {
				return
			}
		}
	}
}

// LgNomEntries returns the configured log2 nominal capacity.
func (s *QuickSelectUpdateSketch) LgNomEntries() uint8 {
	return s.cache.lgNomEntries
}

// ResizeFactor returns the configured cache growth step.
func (s *QuickSelectUpdateSketch) ResizeFactor() ResizeFactor {
	return s.cache.growth
}

// insertHash screens a raw hash against the sampling window and admits it.
// The sketch stops being empty on the first offered item even if the hash is
// screened out.
func (s *QuickSelectUpdateSketch) insertHash(rawHash uint64) error {
	s.cache.seen = true

	hash, err := s.cache.screen(rawHash)
	if err != nil {
		return err
	}

	added, err := s.cache.admit(hash)
	if err != nil {
		return err
	}
	if !added {
		return ErrDuplicateItem
	}
	return nil
}

// UpdateInt64 offers a signed 64-bit integer.
func (s *QuickSelectUpdateSketch) UpdateInt64(value int64) error {
	return s.insertHash(s.cache.hasher.HashInt64(value, s.cache.hashSeed))
}

// UpdateUint64 offers an unsigned 64-bit integer.
func (s *QuickSelectUpdateSketch) UpdateUint64(value uint64) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt32 offers a signed 32-bit integer.
func (s *QuickSelectUpdateSketch) UpdateInt32(value int32) error {
	return s.UpdateInt64(int64(value))
}

// UpdateUint32 offers an unsigned 32-bit integer.
func (s *QuickSelectUpdateSketch) UpdateUint32(value uint32) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt16 offers a signed 16-bit integer.
func (s *QuickSelectUpdateSketch) UpdateInt16(value int16) error {
	return s.UpdateInt64(int64(value))
}

// UpdateUint16 offers an unsigned 16-bit integer.
func (s *QuickSelectUpdateSketch) UpdateUint16(value uint16) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt8 offers a signed 8-bit integer.
func (s *QuickSelectUpdateSketch) UpdateInt8(value int8) error {
	return s.UpdateInt64(int64(value))
}

// UpdateUint8 offers an unsigned 8-bit integer.
func (s *QuickSelectUpdateSketch) UpdateUint8(value uint8) error {
	return s.UpdateInt64(int64(value))
}

// UpdateFloat64 offers a double-precision value.
func (s *QuickSelectUpdateSketch) UpdateFloat64(value float64) error {
	return s.UpdateInt64(canonicalFloat64Bits(value))
}

// UpdateFloat32 offers a single-precision value.
func (s *QuickSelectUpdateSketch) UpdateFloat32(value float32) error {
	return s.UpdateFloat64(float64(value))
}

// canonicalFloat64Bits collapses -0.0 with 0.0 and every NaN payload with
// the canonical NaN; equal values must hash identically.
func canonicalFloat64Bits(value float64) int64 {
	switch {
	case math.IsNaN(value):
		return 0x7ff8000000000000
	case value == 0:
		return 0
	}
	return int64(math.Float64bits(value))
}

// UpdateString offers a string. The empty string is rejected.
func (s *QuickSelectUpdateSketch) UpdateString(value string) error {
	if value == "" {
		return ErrEmptyStringItem
	}
	return s.insertHash(s.cache.hasher.HashBytes([]byte(value), s.cache.hashSeed))
}

// UpdateBytes offers raw bytes.
func (s *QuickSelectUpdateSketch) UpdateBytes(data []byte) error {
	return s.insertHash(s.cache.hasher.HashBytes(data, s.cache.hashSeed))
}

// Trim evicts retained hashes in excess of the nominal capacity.
func (s *QuickSelectUpdateSketch) Trim() {
	s.cache.trim()
}

// Reset returns the sketch to its initial empty state.
func (s *QuickSelectUpdateSketch) Reset() {
	s.cache.reset()
}

// Compact freezes the current state into the immutable compact form.
func (s *QuickSelectUpdateSketch) Compact(ordered bool) *CompactSketch {
	return NewCompactSketch(s, ordered)
}

// CompactOrdered freezes the current state into the ordered compact form.
func (s *QuickSelectUpdateSketch) CompactOrdered() *CompactSketch {
	return s.Compact(true)
}

// ToByteArray serializes the sketch in its update form: a 3-long preamble
// followed by the full hash cache including empty slots.
func (s *QuickSelectUpdateSketch) ToByteArray() ([]byte, error) {
	mem, err := memory.NewMemory(updatePreambleLen + 8*len(s.cache.slots))
	if err != nil {
		return nil, err
	}
	if err := s.serializeInto(mem); err != nil {
		return nil, err
	}
	return mem.Bytes(), nil
}

func (s *QuickSelectUpdateSketch) serializeInto(mem *memory.Memory) error {
	seedFp, err := s.SeedHash()
	if err != nil {
		return err
	}

	var flags uint8
	if s.IsEmpty() {
		flags |= 1 << flagEmpty
	}

	if err := insertPreamble(mem, 3, uint8(internal.FamilyEnum.QuickSelect.Id), flags,
		s.cache.lgNomEntries, s.cache.lgSlots, seedFp); err != nil {
		return err
	}
	if err := mem.PutInt(curCountInt, s.cache.retained); err != nil {
		return err
	}
	if err := mem.PutInt(pFloat, float32ToBits(s.cache.samplingP)); err != nil {
		return err
	}
	if err := mem.PutLong(thetaLongLong, s.cache.thetaLong); err != nil {
		return err
	}
	return mem.PutLongArray(updatePreambleLen, s.cache.slots)
}

// MaxUpdateSketchBytes returns the storage an update sketch of the given
// size needs once its cache has grown to full size.
func MaxUpdateSketchBytes(lgNomEntries uint8) int {
	return updatePreambleLen + 8*(1<<(lgNomEntries+1))
}
