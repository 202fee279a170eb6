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

import "fmt"

// Merge the given sketch into this sketch, leaving the other sketch
// unmodified. Sketches with different k may be merged: the destination keeps
// its k, and once either side has compacted data the reported rank error
// degrades to the smaller of the two parameters (tracked via minK).
// n adds exactly; min and max remain the exact extremes of both streams.
func (s *Sketch[V]) Merge(other *Sketch[V]) error {
	if other == nil || other.IsEmpty() {
		return nil
	}
	if s.m != other.m {
		return fmt.Errorf("%w: base level sizes differ: %d != %d", ErrIncompatibleMerge, s.m, other.m)
	}
	s.mergeSketch(other)
	s.sortedView = nil
	return nil
}

func (s *Sketch[V]) mergeSketch(other *Sketch[V]) {
	// capture my key mutable fields before doing any merging
	myEmpty := s.IsEmpty()
	var myMin, myMax V
	if !myEmpty {
		myMin = *s.minValue
		myMax = *s.maxValue
	}
	myMinK := s.minK
	finalN := s.n + other.n

	// buffers that are referenced multiple times
	otherNumLevels := other.numLevels
	otherLevelsArr := other.levels
	otherItemsArr := other.getTotalItemsArray()

	// MERGE: update this sketch with level0 items from the other sketch
	for i := otherLevelsArr[0]; i < otherLevelsArr[1]; i++ {
		s.updateValue(otherItemsArr[i])
	}

	// After the level 0 update, we capture the intermediate state of levels and items arrays...
	myCurNumLevels := s.numLevels
	myCurLevelsArr := s.levels
	myCurItemsArr := s.getTotalItemsArray()

	// then rename them and initialize in case there are no higher levels
	myNewNumLevels := myCurNumLevels
	myNewLevelsArr := myCurLevelsArr
	myNewItemsArr := myCurItemsArr

	//merge higher levels if they exist
	if otherNumLevels > 1 {
		tmpSpaceNeeded := s.GetNumRetained() + getNumRetainedAboveLevelZero(otherNumLevels, otherLevelsArr)
		workbuf := make([]V, tmpSpaceNeeded)
		ub := ubOnNumLevels(finalN)
		worklevels := make([]uint32, ub+2) // ub+1 does not work
		outlevels := make([]uint32, ub+2)

		provisionalNumLevels := max(myCurNumLevels, otherNumLevels)

		populateWorkArrays(workbuf, worklevels, provisionalNumLevels,
			myCurNumLevels, myCurLevelsArr, myCurItemsArr,
			otherNumLevels, otherLevelsArr, otherItemsArr)

		// notice that workbuf is being used as both the input and output
		resultNumLevels, targetItemCount, curItemCount := generalCompress(s.k, s.m, provisionalNumLevels,
			workbuf, worklevels, workbuf, outlevels, s.isLevelZeroSorted, s.bits)

		// now we need to finalize the results for this sketch

		//THE NEW NUM LEVELS
		myNewNumLevels = resultNumLevels

		// THE NEW ITEMS ARRAY
		if int(targetItemCount) == len(myCurItemsArr) {
			myNewItemsArr = myCurItemsArr
		} else {
			myNewItemsArr = make([]V, targetItemCount)
		}
		freeSpaceAtBottom := targetItemCount - curItemCount

		//shift the new items array to create space at the bottom
		for i := uint32(0); i < curItemCount; i++ {
			myNewItemsArr[freeSpaceAtBottom+i] = workbuf[outlevels[0]+i]
		}
		theShift := freeSpaceAtBottom - outlevels[0]

		//calculate the new levels array length
		var finalLevelsArrLen uint32
		if uint32(len(myCurLevelsArr)) < uint32(myNewNumLevels+1) {
			finalLevelsArrLen = uint32(myNewNumLevels + 1)
		} else {
			finalLevelsArrLen = uint32(len(myCurLevelsArr))
		}

		//THE NEW LEVELS ARRAY
		myNewLevelsArr = make([]uint32, finalLevelsArrLen)
		for lvl := uint8(0); lvl < myNewNumLevels+1; lvl++ { // includes the "extra" index
			myNewLevelsArr[lvl] = outlevels[lvl] + theShift
		}
	}

	// Update Preamble:
	s.n = finalN
	if other.IsEstimationMode() { //otherwise the merge brings over exact items.
		s.minK = min(myMinK, other.minK)
	}

	// Update numLevels, levelsArray, items
	s.numLevels = myNewNumLevels
	s.levels = myNewLevelsArr
	s.items = myNewItemsArr

	// Update min and max values
	if myEmpty {
		s.minValue = other.minValue
		s.maxValue = other.maxValue
	} else {
		if myMin < *other.minValue {
			s.minValue = &myMin
		} else {
			s.minValue = other.minValue
		}

		if *other.maxValue < myMax {
			s.maxValue = &myMax
		} else {
			s.maxValue = other.maxValue
		}
	}
}

func populateWorkArrays[V Value](workbuf []V, worklevels []uint32, provisionalNumLevels uint8,
	myCurNumLevels uint8, myCurLevelsArr []uint32, myCurItemsArr []V,
	otherNumLevels uint8, otherLevelsArr []uint32, otherItemsArr []V) {

	worklevels[0] = 0
	// Note: the level zero data from "other" was already inserted into "self"
	selfPopZero := currentLevelSize(0, myCurNumLevels, myCurLevelsArr)
	for i := uint32(0); i < selfPopZero; i++ {
		workbuf[worklevels[0]+i] = myCurItemsArr[myCurLevelsArr[0]+i]
	}
	worklevels[1] = worklevels[0] + selfPopZero

	for lvl := uint8(1); lvl < provisionalNumLevels; lvl++ {
		selfPop := currentLevelSize(lvl, myCurNumLevels, myCurLevelsArr)
		otherPop := currentLevelSize(lvl, otherNumLevels, otherLevelsArr)
		worklevels[lvl+1] = worklevels[lvl] + selfPop + otherPop

		if selfPop > 0 && otherPop == 0 {
			for i := uint32(0); i < selfPop; i++ {
				workbuf[worklevels[lvl]+i] = myCurItemsArr[myCurLevelsArr[lvl]+i]
			}
		} else if selfPop == 0 && otherPop > 0 {
			for i := uint32(0); i < otherPop; i++ {
				workbuf[worklevels[lvl]+i] = otherItemsArr[otherLevelsArr[lvl]+i]
			}
		} else if selfPop > 0 && otherPop > 0 {
			mergeSortedArrays(
				myCurItemsArr, myCurLevelsArr[lvl], selfPop,
				otherItemsArr, otherLevelsArr[lvl], otherPop,
				workbuf, worklevels[lvl])
		}
	}
}
