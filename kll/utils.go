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
	"math"
	"math/bits"

	"github.com/quantilesketch/kll-go/internal"
)

const (
	tailRoundingFactor = 1e7

	_PMF_COEF = 2.446
	_PMF_EXP  = 0.9433
	_CDF_COEF = 2.296
	_CDF_EXP  = 0.9723
)

func convertToCumulative(array []int64) int64 {
	subtotal := int64(0)
	for i := range array {
		subtotal += array[i]
		array[i] = subtotal
	}
	return subtotal
}

func getNaturalRank(normalizedRank float64, totalN uint64, inclusive bool) int64 {
	naturalRank := normalizedRank * float64(totalN)
	if totalN <= tailRoundingFactor {
		naturalRank = math.Round(naturalRank*tailRoundingFactor) / tailRoundingFactor
	}
	if inclusive {
		return int64(math.Ceil(naturalRank))
	}
	return int64(math.Floor(naturalRank))
}

func checkK(k uint16, m uint8) error {
	if k < uint16(m) || k > _MAX_K {
		return fmt.Errorf("%w: k must be >= %d and <= %d: %d", ErrInvalidParameter, m, _MAX_K, k)
	}
	return nil
}

func checkNormalizedRankBounds(rank float64) error {
	if !(rank >= 0 && rank <= 1) { // also rejects NaN
		return fmt.Errorf("%w: normalized rank must be between 0 and 1 inclusive: %f", ErrInvalidParameter, rank)
	}
	return nil
}

// checkSplitPoints verifies that PMF/CDF split points are finite, unique and
// monotonically increasing.
func checkSplitPoints[V Value](splitPoints []V) error {
	for i := range splitPoints {
		f := float64(splitPoints[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: split points must be finite", ErrInvalidValue)
		}
		if i > 0 && splitPoints[i-1] >= splitPoints[i] {
			return fmt.Errorf("%w: split points must be unique and monotonically increasing", ErrInvalidParameter)
		}
	}
	return nil
}

// evenlySpacedFractions returns num fractions i/(num-1) for i in [0, num).
// num must be at least 2, otherwise the spacing is undefined.
func evenlySpacedFractions(num int) ([]float64, error) {
	if num < 2 {
		return nil, fmt.Errorf("%w: number of evenly spaced fractions must be >= 2: %d", ErrInvalidParameter, num)
	}
	fractions := make([]float64, num)
	fractions[num-1] = 1.0
	for i := 1; i < num-1; i++ {
		fractions[i] = float64(i) / float64(num-1)
	}
	return fractions, nil
}

// ubOnNumLevels returns an upper bound on the number of levels a sketch of n
// items can have, used to size merge work arrays.
func ubOnNumLevels(n uint64) int {
	v := internal.FloorPowerOf2(int64(n))
	return 1 + bits.TrailingZeros64(uint64(v))
}

func getNumRetainedAboveLevelZero(numLevels uint8, levels []uint32) uint32 {
	return levels[numLevels] - levels[1]
}

func currentLevelSize(level uint8, numLevels uint8, levels []uint32) uint32 {
	if level >= numLevels {
		return 0
	}
	return levels[level+1] - levels[level]
}

func getNormalizedRankError(k uint16, pmf bool) float64 {
	if pmf {
		return _PMF_COEF / math.Pow(float64(k), _PMF_EXP)
	}
	return _CDF_COEF / math.Pow(float64(k), _CDF_EXP)
}
