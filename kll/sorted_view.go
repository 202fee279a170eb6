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

package kll

import (
	"fmt"
	"slices"

	"github.com/quantilesketch/kll-go/internal"
)

// SortedView is the merged, weight-sorted view of a sketch's retained items:
// the items in ascending order paired with their cumulative weights. Rank and
// quantile queries binary-search the cumulative-weight curve.
type SortedView[V Value] struct {
	quantiles  []V
	cumWeights []int64
	totalN     uint64
	minValue   V
	maxValue   V
}

func newSortedView[V Value](sketch *Sketch[V]) (*SortedView[V], error) {
	if sketch.IsEmpty() {
		return nil, fmt.Errorf("%w: sorted view", ErrEmptySketch)
	}
	totalN := sketch.GetN()
	srcQuantiles := sketch.getTotalItemsArray()
	srcLevels := sketch.getLevelsArray()
	srcNumLevels := sketch.numLevels

	if !sketch.isLevelZeroSorted {
		// the copy is sorted, not the live buffer; the sketch keeps its own flag
		slices.Sort(srcQuantiles[srcLevels[0]:srcLevels[1]])
	}
	numQuantiles := srcLevels[srcNumLevels] - srcLevels[0]

	quantiles, cumWeights := populateFromSketch(srcQuantiles, srcLevels, srcNumLevels, numQuantiles)
	return &SortedView[V]{
		quantiles:  quantiles,
		cumWeights: cumWeights,
		totalN:     totalN,
		minValue:   *sketch.minValue,
		maxValue:   *sketch.maxValue,
	}, nil
}

// GetRank returns the normalized rank of the given value.
func (s *SortedView[V]) GetRank(value V, inclusive bool) (float64, error) {
	if s.totalN == 0 {
		return 0, fmt.Errorf("%w: get rank", ErrEmptySketch)
	}
	length := len(s.quantiles)
	crit := internal.InequalityLT
	if inclusive {
		crit = internal.InequalityLE
	}
	index := internal.FindWithInequality(s.quantiles, 0, length-1, value, crit, func(a, b V) bool {
		return a < b
	})
	if index == -1 {
		return 0, nil //EXCLUSIVE (LT) case: quantile <= minQuantile; INCLUSIVE (LE) case: quantile < minQuantile
	}
	return float64(s.cumWeights[index]) / float64(s.totalN), nil
}

// GetQuantile returns the approximate quantile of the given normalized rank.
func (s *SortedView[V]) GetQuantile(rank float64, inclusive bool) (V, error) {
	if s.totalN == 0 {
		return *new(V), fmt.Errorf("%w: get quantile", ErrEmptySketch)
	}
	if err := checkNormalizedRankBounds(rank); err != nil {
		return *new(V), err
	}
	index := s.getQuantileIndex(rank, inclusive)
	return s.quantiles[index], nil
}

// GetCDF returns the ranks at the given split points plus a trailing 1.0.
func (s *SortedView[V]) GetCDF(splitPoints []V, inclusive bool) ([]float64, error) {
	if s.totalN == 0 {
		return nil, fmt.Errorf("%w: get CDF", ErrEmptySketch)
	}
	if err := checkSplitPoints(splitPoints); err != nil {
		return nil, err
	}
	buckets := make([]float64, len(splitPoints)+1)
	for i := range splitPoints {
		rank, err := s.GetRank(splitPoints[i], inclusive)
		if err != nil {
			return nil, err
		}
		buckets[i] = rank
	}
	buckets[len(splitPoints)] = 1.0
	return buckets, nil
}

// GetPMF returns the probability masses of the intervals defined by the given
// split points.
func (s *SortedView[V]) GetPMF(splitPoints []V, inclusive bool) ([]float64, error) {
	buckets, err := s.GetCDF(splitPoints, inclusive)
	if err != nil {
		return nil, err
	}
	for i := len(buckets) - 1; i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}
	return buckets, nil
}

// Iterator returns an iterator over the sorted view in ascending order.
func (s *SortedView[V]) Iterator() *SortedViewIterator[V] {
	return newSortedViewIterator(s.quantiles, s.cumWeights)
}

func (s *SortedView[V]) getQuantileIndex(rank float64, inclusive bool) int {
	length := len(s.quantiles)
	naturalRank := getNaturalRank(rank, s.totalN, inclusive)
	// inclusive: smallest item whose cumulative weight reaches the natural
	// rank; exclusive: smallest item whose cumulative weight exceeds it
	crit := internal.InequalityGT
	if inclusive {
		crit = internal.InequalityGE
	}
	index := internal.FindWithInequality(s.cumWeights, 0, length-1, naturalRank, crit, func(a, b int64) bool {
		return a < b
	})
	if index == -1 {
		return length - 1
	}
	return index
}

// populateFromSketch flattens the occupied part of the levels structure,
// assigns each item the 2^level weight of its level, merge sorts the levels
// into a single ascending run and converts the weights to cumulative form.
func populateFromSketch[V Value](srcQuantiles []V, levels []uint32, numLevels uint8, numQuantiles uint32) ([]V, []int64) {
	quantiles := make([]V, numQuantiles)
	cumWeights := make([]int64, numQuantiles)
	myLevels := make([]uint32, numLevels+1)
	offset := levels[0]
	for i := uint32(0); i < numQuantiles; i++ {
		quantiles[i] = srcQuantiles[i+offset]
	}
	srcLevel := uint8(0)
	dstLevel := uint8(0)
	weight := int64(1)
	for srcLevel < numLevels {
		fromIndex := levels[srcLevel] - offset
		toIndex := levels[srcLevel+1] - offset // exclusive
		if fromIndex < toIndex {               // if equal, skip empty level
			for i := fromIndex; i < toIndex; i++ {
				cumWeights[i] = weight
			}
			myLevels[dstLevel] = fromIndex
			myLevels[dstLevel+1] = toIndex
			dstLevel++
		}
		srcLevel++
		weight *= 2
	}
	blockyTandemMergeSort(quantiles, cumWeights, myLevels, dstLevel)
	convertToCumulative(cumWeights)
	return quantiles, cumWeights
}

func blockyTandemMergeSort[V Value](quantiles []V, weights []int64, levels []uint32, numLevels uint8) {
	if numLevels == 1 {
		return
	}

	// duplicate the input in preparation for the "ping-pong" copy reduction strategy.
	quantilesTmp := make([]V, len(quantiles))
	copy(quantilesTmp, quantiles)
	weightsTmp := make([]int64, len(weights))
	copy(weightsTmp, weights)

	blockyTandemMergeSortRecursion(quantilesTmp, weightsTmp, quantiles, weights, levels, 0, numLevels)
}

func blockyTandemMergeSortRecursion[V Value](quantilesSrc []V, weightsSrc []int64, quantilesDst []V, weightsDst []int64, levels []uint32, startingLevel uint8, numLevels uint8) {
	if numLevels == 1 {
		return
	}
	numLevels1 := numLevels / 2
	numLevels2 := numLevels - numLevels1
	startingLevel1 := startingLevel
	startingLevel2 := startingLevel + numLevels1
	// swap roles of src and dst
	blockyTandemMergeSortRecursion(quantilesDst, weightsDst, quantilesSrc, weightsSrc, levels, startingLevel1, numLevels1)
	blockyTandemMergeSortRecursion(quantilesDst, weightsDst, quantilesSrc, weightsSrc, levels, startingLevel2, numLevels2)
	tandemMerge(quantilesSrc, weightsSrc, quantilesDst, weightsDst, levels, startingLevel1, numLevels1, startingLevel2, numLevels2)
}

func tandemMerge[V Value](quantilesSrc []V, weightsSrc []int64, quantilesDst []V, weightsDst []int64, levels []uint32, startingLevel1 uint8, numLevels1 uint8, startingLevel2 uint8, numLevels2 uint8) {
	fromIndex1 := levels[startingLevel1]
	toIndex1 := levels[startingLevel1+numLevels1] // exclusive
	fromIndex2 := levels[startingLevel2]
	toIndex2 := levels[startingLevel2+numLevels2] // exclusive
	iSrc1 := fromIndex1
	iSrc2 := fromIndex2
	iDst := fromIndex1

	for iSrc1 < toIndex1 && iSrc2 < toIndex2 {
		if quantilesSrc[iSrc1] < quantilesSrc[iSrc2] {
			quantilesDst[iDst] = quantilesSrc[iSrc1]
			weightsDst[iDst] = weightsSrc[iSrc1]
			iSrc1++
		} else {
			quantilesDst[iDst] = quantilesSrc[iSrc2]
			weightsDst[iDst] = weightsSrc[iSrc2]
			iSrc2++
		}
		iDst++
	}
	if iSrc1 < toIndex1 {
		copy(quantilesDst[iDst:], quantilesSrc[iSrc1:toIndex1])
		copy(weightsDst[iDst:], weightsSrc[iSrc1:toIndex1])
	} else if iSrc2 < toIndex2 {
		copy(quantilesDst[iDst:], quantilesSrc[iSrc2:toIndex2])
		copy(weightsDst[iDst:], weightsSrc[iSrc2:toIndex2])
	}
}
