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

// Package kll is an implementation of a very compact quantiles sketch with lazy
// compaction scheme and nearly optimal accuracy per retained quantile.
//
// Reference: https://arxiv.org/abs/1603.05346v2 Optimal Quantile Approximation in Streams
//
// The default k of 200 yields a "single-sided" epsilon of about 1.33% and a
// "double-sided" (PMF) epsilon of about 1.65%, with a confidence of 99%.
//
// The serialized form is byte-compatible with the Apache DataSketches KLL
// float and double sketches, so sketches can be exchanged with the C++ and
// Java implementations.
//
// A sketch instance is not safe for concurrent use: queries lazily sort the
// level zero buffer, so even read paths mutate internal state. Callers that
// share one sketch across goroutines must serialize all access externally.
// Distinct sketches need no coordination.
//
// See https://datasketches.apache.org/docs/KLL/KLLSketch.html
package kll

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Value is the set of item types a Sketch can ingest: any floating-point type.
// The serialized payload width follows the type: 4 bytes for float32 items,
// 8 bytes for float64 items.
type Value interface {
	constraints.Float
}

// FloatSketch tracks the quantile distribution of a float32 stream.
type FloatSketch = Sketch[float32]

// DoubleSketch tracks the quantile distribution of a float64 stream.
type DoubleSketch = Sketch[float64]

// Sketch is a KLL quantiles sketch of numeric values.
type Sketch[V Value] struct {
	// k is the config that controls the accuracy of the sketch and its memory space usage.
	// The default k = 200 results in a normalized rank error of about 1.65%.
	k uint16
	// m is the minimum level size of the KLL array
	m                 uint8
	minK              uint16
	numLevels         uint8
	isLevelZeroSorted bool
	n                 uint64
	levels            []uint32
	items             []V
	minValue          *V
	maxValue          *V
	sortedView        *SortedView[V]
	bits              BitSource
}

const (
	_DEFAULT_K = uint16(200)
	_DEFAULT_M = uint8(8)
	_MIN_K     = uint16(_DEFAULT_M)
	_MAX_K     = (1 << 16) - 1
	_MIN_M     = 2 //The minimum M
	_MAX_M     = 8 //The maximum M
)

var powersOfThree = []uint64{1, 3, 9, 27, 81, 243, 729, 2187, 6561, 19683, 59049, 177147, 531441,
	1594323, 4782969, 14348907, 43046721, 129140163, 387420489, 1162261467,
	3486784401, 10460353203, 31381059609, 94143178827, 282429536481,
	847288609443, 2541865828329, 7625597484987, 22876792454961, 68630377364883,
	205891132094649}

type config struct {
	k    uint16
	bits BitSource
}

// Option configures a sketch at construction time.
type Option func(*config) error

// WithK sets the accuracy parameter k. Larger k has smaller error but the
// sketch will be larger (and slower). The default k = 200 results in a
// normalized rank error of about 1.65%.
func WithK(k uint16) Option {
	return func(c *config) error {
		if err := checkK(k, _DEFAULT_M); err != nil {
			return err
		}
		c.k = k
		return nil
	}
}

// WithBitSource sets the source of the coin flip consumed by each compaction,
// so that compaction can be made deterministic for reproducibility.
func WithBitSource(bits BitSource) Option {
	return func(c *config) error {
		if bits == nil {
			return fmt.Errorf("%w: nil bit source", ErrInvalidParameter)
		}
		c.bits = bits
		return nil
	}
}

// New creates an empty sketch for items of type V.
func New[V Value](opts ...Option) (*Sketch[V], error) {
	cfg := config{k: _DEFAULT_K}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.bits == nil {
		cfg.bits = newRandomBitSource()
	}
	return &Sketch[V]{
		k:         cfg.k,
		m:         _DEFAULT_M,
		minK:      cfg.k,
		numLevels: uint8(1),
		levels:    []uint32{uint32(cfg.k), uint32(cfg.k)},
		items:     make([]V, cfg.k),
		bits:      cfg.bits,
	}, nil
}

// NewFloatSketch creates an empty sketch of float32 items.
func NewFloatSketch(opts ...Option) (*FloatSketch, error) {
	return New[float32](opts...)
}

// NewDoubleSketch creates an empty sketch of float64 items.
func NewDoubleSketch(opts ...Option) (*DoubleSketch, error) {
	return New[float64](opts...)
}

// NewFloatSketchWithK creates an empty sketch of float32 items with the given
// accuracy parameter.
func NewFloatSketchWithK(k uint16) (*FloatSketch, error) {
	return New[float32](WithK(k))
}

// NewDoubleSketchWithK creates an empty sketch of float64 items with the given
// accuracy parameter.
func NewDoubleSketchWithK(k uint16) (*DoubleSketch, error) {
	return New[float64](WithK(k))
}

// IsEmpty returns true if the sketch is empty, otherwise false.
func (s *Sketch[V]) IsEmpty() bool {
	return s.n == 0
}

// GetN returns the value of n (the length of the input stream offered to the sketch).
func (s *Sketch[V]) GetN() uint64 {
	return s.n
}

// GetK returns the value of k (which controls the accuracy of the sketch and its memory space usage).
func (s *Sketch[V]) GetK() uint16 {
	return s.k
}

// GetNumRetained returns the number of quantiles retained by the sketch.
func (s *Sketch[V]) GetNumRetained() uint32 {
	return s.levels[s.numLevels] - s.levels[0]
}

// GetMinValue returns the minimum value of the stream. This is tracked
// exactly, independently of the compaction process; it may be distinct from
// the smallest value retained by the sketch algorithm.
func (s *Sketch[V]) GetMinValue() (V, error) {
	if s.IsEmpty() {
		return *new(V), fmt.Errorf("%w: get min value", ErrEmptySketch)
	}
	return *s.minValue, nil
}

// GetMaxValue returns the maximum value of the stream. This is tracked
// exactly, independently of the compaction process; it may be distinct from
// the largest value retained by the sketch algorithm.
func (s *Sketch[V]) GetMaxValue() (V, error) {
	if s.IsEmpty() {
		return *new(V), fmt.Errorf("%w: get max value", ErrEmptySketch)
	}
	return *s.maxValue, nil
}

// IsEstimationMode returns true once any compaction has occurred. The
// transition is irreversible for a given stream: only Reset returns the
// sketch to the exact regime.
func (s *Sketch[V]) IsEstimationMode() bool {
	return s.numLevels > 1
}

// GetNormalizedRankError returns the approximate rank error of this sketch
// normalized as a fraction between zero and one.
// The epsilon returned is a best fit to 99 percent confidence empirically
// measured max error in thousands of trials.
// If pmf is true, returns the "double-sided" normalized rank error for the
// GetPMF function; otherwise it is the "single-sided" normalized rank error
// for all the other queries.
func (s *Sketch[V]) GetNormalizedRankError(pmf bool) float64 {
	return getNormalizedRankError(s.minK, pmf)
}

// Update this sketch with the given value. Non-finite values are rejected
// with ErrInvalidValue and leave the sketch unchanged: NaN has no place in an
// ordering-based structure, and accepting it would silently corrupt
// compaction.
func (s *Sketch[V]) Update(v V) error {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return fmt.Errorf("%w: cannot update sketch with non-finite value", ErrInvalidValue)
	}
	s.updateValue(v)
	s.sortedView = nil
	return nil
}

// GetRank returns the normalized rank of the given value: the fraction of the
// stream's total weight at (inclusive) or below (exclusive) the value.
func (s *Sketch[V]) GetRank(value V, inclusive bool) (float64, error) {
	if s.IsEmpty() {
		return 0, fmt.Errorf("%w: get rank", ErrEmptySketch)
	}
	if math.IsNaN(float64(value)) {
		return 0, fmt.Errorf("%w: rank of NaN is undefined", ErrInvalidValue)
	}
	if err := s.setupSortedView(); err != nil {
		return 0, err
	}
	return s.sortedView.GetRank(value, inclusive)
}

// GetRanks returns the normalized ranks corresponding to the given values,
// sharing a single sorted view across the batch.
func (s *Sketch[V]) GetRanks(values []V, inclusive bool) ([]float64, error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: get ranks", ErrEmptySketch)
	}
	if err := s.setupSortedView(); err != nil {
		return nil, err
	}
	ranks := make([]float64, len(values))
	for i := range values {
		if math.IsNaN(float64(values[i])) {
			return nil, fmt.Errorf("%w: rank of NaN is undefined", ErrInvalidValue)
		}
		rank, err := s.sortedView.GetRank(values[i], inclusive)
		if err != nil {
			return nil, err
		}
		ranks[i] = rank
	}
	return ranks, nil
}

// GetQuantile returns the approximate quantile of the given normalized rank
// fraction in [0, 1].
// If inclusive, the given rank includes all quantiles <= the quantile directly
// corresponding to the given rank.
// If exclusive, the given rank includes all quantiles < the quantile directly
// corresponding to the given rank.
// Fractions of exactly 0 and 1 return the exact minimum and maximum values.
func (s *Sketch[V]) GetQuantile(fraction float64, inclusive bool) (V, error) {
	if s.IsEmpty() {
		return *new(V), fmt.Errorf("%w: get quantile", ErrEmptySketch)
	}
	if err := checkNormalizedRankBounds(fraction); err != nil {
		return *new(V), err
	}
	if fraction == 0.0 {
		return *s.minValue, nil
	}
	if fraction == 1.0 {
		return *s.maxValue, nil
	}
	if err := s.setupSortedView(); err != nil {
		return *new(V), err
	}
	return s.sortedView.GetQuantile(fraction, inclusive)
}

// GetQuantiles returns the quantiles corresponding to the given array of rank
// fractions. The sorted view is built once and reused for the whole batch;
// results are identical to calling GetQuantile per fraction.
func (s *Sketch[V]) GetQuantiles(fractions []float64, inclusive bool) ([]V, error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: get quantiles", ErrEmptySketch)
	}
	if err := s.setupSortedView(); err != nil {
		return nil, err
	}
	quantiles := make([]V, len(fractions))
	for i := range fractions {
		q, err := s.GetQuantile(fractions[i], inclusive)
		if err != nil {
			return nil, err
		}
		quantiles[i] = q
	}
	return quantiles, nil
}

// GetQuantilesEvenlySpaced returns num quantiles at the fractions i/(num-1)
// for i in [0, num), from the minimum value to the maximum value inclusive.
// num must be at least 2.
func (s *Sketch[V]) GetQuantilesEvenlySpaced(num int, inclusive bool) ([]V, error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: get evenly spaced quantiles", ErrEmptySketch)
	}
	fractions, err := evenlySpacedFractions(num)
	if err != nil {
		return nil, err
	}
	return s.GetQuantiles(fractions, inclusive)
}

// GetPMF returns an approximation to the Probability Mass Function (PMF) of
// the input stream as probability masses on the intervals defined by the
// given split points, which must be unique, monotonically increasing and
// finite. The returned slice has len(splitPoints)+1 entries summing to 1.0.
func (s *Sketch[V]) GetPMF(splitPoints []V, inclusive bool) ([]float64, error) {
	buckets, err := s.GetCDF(splitPoints, inclusive)
	if err != nil {
		return nil, err
	}
	for i := len(buckets) - 1; i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}
	return buckets, nil
}

// GetCDF returns an approximation to the Cumulative Distribution Function
// (CDF) of the input stream as a monotonically increasing array of ranks on
// the interval [0.0, 1.0], one per split point plus a trailing 1.0. Split
// points must be unique, monotonically increasing and finite.
func (s *Sketch[V]) GetCDF(splitPoints []V, inclusive bool) ([]float64, error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: get CDF", ErrEmptySketch)
	}
	if err := checkSplitPoints(splitPoints); err != nil {
		return nil, err
	}
	if err := s.setupSortedView(); err != nil {
		return nil, err
	}
	return s.sortedView.GetCDF(splitPoints, inclusive)
}

// GetSortedView returns the sorted view of this sketch. The view is cached
// until the next Update, Merge or Reset.
func (s *Sketch[V]) GetSortedView() (*SortedView[V], error) {
	if s.IsEmpty() {
		return nil, fmt.Errorf("%w: get sorted view", ErrEmptySketch)
	}
	if err := s.setupSortedView(); err != nil {
		return nil, err
	}
	return s.sortedView, nil
}

// GetIterator returns an iterator over the retained items, which is not sorted.
func (s *Sketch[V]) GetIterator() *Iterator[V] {
	return newIterator[V](
		s.getTotalItemsArray(),
		s.getLevelsArray(),
		s.getNumLevels(),
	)
}

// Reset this sketch to the empty state.
func (s *Sketch[V]) Reset() {
	s.n = 0
	s.isLevelZeroSorted = false
	s.numLevels = 1
	s.levels = []uint32{uint32(s.k), uint32(s.k)}
	s.minValue = nil
	s.maxValue = nil
	s.items = make([]V, s.k)
	s.sortedView = nil
}

//
// Private methods
//

func (s *Sketch[V]) updateValue(v V) {
	if s.IsEmpty() {
		s.minValue = &v
		s.maxValue = &v
	} else {
		if v < *s.minValue {
			s.minValue = &v
		}
		if v > *s.maxValue {
			s.maxValue = &v
		}
	}
	level0space := s.levels[0]
	if level0space == 0 {
		s.compressWhileUpdating()
		level0space = s.levels[0]
	}
	s.n++
	s.isLevelZeroSorted = false
	nextPos := level0space - 1
	s.levels[0] = nextPos
	s.items[nextPos] = v
}

func (s *Sketch[V]) getNumLevels() int {
	return int(s.numLevels)
}

func (s *Sketch[V]) getLevelsArray() []uint32 {
	levels := make([]uint32, len(s.levels))
	copy(levels, s.levels)
	return levels
}

// getTotalItemsArray returns a copy of the entire internal items array,
// including any unoccupied space below levels[0].
func (s *Sketch[V]) getTotalItemsArray() []V {
	if s.n == 0 {
		return make([]V, s.k)
	}
	outArr := make([]V, len(s.items))
	copy(outArr, s.items)
	return outArr
}

func (s *Sketch[V]) getRetainedItemsArray() []V {
	numRet := s.GetNumRetained()
	outArr := make([]V, numRet)
	copy(outArr, s.items[s.levels[0]:])
	return outArr
}

// getSingleItem requires n == 1, established by the caller.
func (s *Sketch[V]) getSingleItem() V {
	return s.items[s.levels[0]]
}

func (s *Sketch[V]) setupSortedView() error {
	if s.sortedView == nil {
		sView, err := newSortedView(s)
		if err != nil {
			return err
		}
		s.sortedView = sView
	}
	return nil
}
