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
	"encoding/binary"
	"fmt"
)

// FromSlice reconstructs a sketch from its serialized byte array. The buffer
// is validated before anything is trusted: preamble combination, family, k
// and m ranges, flag consistency with the declared structure, and every size
// field against the actual buffer length. The top index of the levels array
// is not stored in the compact format and is always recomputed from the
// capacity schedule.
func FromSlice[V Value](srcMem []byte) (*Sketch[V], error) {
	memVal, err := newMemoryValidate(srcMem, itemSizeBytes[V]())
	if err != nil {
		return nil, err
	}

	var (
		k        = memVal.k
		width    = itemSizeBytes[V]()
		minValue *V
		maxValue *V
		items    []V
	)

	switch memVal.sketchStructure {
	case _COMPACT_EMPTY:
		items = make([]V, k)
	case _COMPACT_SINGLE:
		v := getItem[V](srcMem[_DATA_START_ADR_SINGLE_ITEM:])
		minValue = &v
		maxValue = &v
		items = make([]V, k)
		items[k-1] = v
	case _COMPACT_FULL:
		offset := _DATA_START_ADR + int(memVal.numLevels)*4
		minV := getItem[V](srcMem[offset:])
		minValue = &minV
		offset += width
		maxV := getItem[V](srcMem[offset:])
		maxValue = &maxV
		offset += width
		levelsArr := memVal.levelsArr
		numRetained := levelsArr[memVal.numLevels] - levelsArr[0]
		items = make([]V, levelsArr[memVal.numLevels])
		copy(items[levelsArr[0]:], getItems[V](srcMem[offset:], int(numRetained)))
	}

	return &Sketch[V]{
		k:                 k,
		m:                 memVal.m,
		minK:              memVal.minK,
		numLevels:         memVal.numLevels,
		isLevelZeroSorted: memVal.level0SortedFlag,
		n:                 memVal.n,
		levels:            memVal.levelsArr,
		items:             items,
		minValue:          minValue,
		maxValue:          maxValue,
		bits:              newRandomBitSource(),
	}, nil
}

// FloatSketchFromSlice reconstructs a sketch of float32 items.
func FloatSketchFromSlice(srcMem []byte) (*FloatSketch, error) {
	return FromSlice[float32](srcMem)
}

// DoubleSketchFromSlice reconstructs a sketch of float64 items.
func DoubleSketchFromSlice(srcMem []byte) (*DoubleSketch, error) {
	return FromSlice[float64](srcMem)
}

type memoryValidate struct {
	sketchStructure sketchStructure

	k uint16
	m uint8

	//Flag bits:
	emptyFlag        bool
	level0SortedFlag bool
	singleItemFlag   bool

	// depending on the layout, the next 8-16 bytes of the preamble may be
	// derived by assumption. For example, if the layout is compact & empty,
	// n = 0; if compact & single, n = 1.
	n         uint64
	minK      uint16
	numLevels uint8
	levelsArr []uint32 //starts at byte 20, adjusted to include the top index here

	sketchBytes int
}

func newMemoryValidate(srcMem []byte, typeBytes int) (*memoryValidate, error) {
	if len(srcMem) < _DATA_START_ADR_SINGLE_ITEM {
		return nil, fmt.Errorf("%w: buffer too small: %d", ErrMalformedInput, len(srcMem))
	}
	structure, err := getSketchStructure(getPreInts(srcMem), getSerVer(srcMem))
	if err != nil {
		return nil, err
	}
	if structure == _UPDATABLE {
		return nil, fmt.Errorf("%w: updatable layout is not supported", ErrMalformedInput)
	}
	if famID := getFamilyID(srcMem); famID != _FAMILY_ID {
		return nil, fmt.Errorf("%w: source not KLL: family %d", ErrMalformedInput, famID)
	}
	k := getK(srcMem)
	m := getM(srcMem)
	if m < _MIN_M || m > _MAX_M || ((m & 1) == 1) {
		return nil, fmt.Errorf("%w: m must be >= 2, <= 8 and even: %d", ErrMalformedInput, m)
	}
	if k < uint16(m) || k > _MAX_K {
		return nil, fmt.Errorf("%w: k out of range: %d", ErrMalformedInput, k)
	}
	vlid := &memoryValidate{
		sketchStructure:  structure,
		k:                k,
		m:                m,
		emptyFlag:        getEmptyFlag(srcMem),
		level0SortedFlag: getLevelZeroSortedFlag(srcMem),
		singleItemFlag:   getSingleItemFlag(srcMem),
	}
	err = vlid.validate(srcMem, typeBytes)
	if err != nil {
		return nil, err
	}
	return vlid, nil
}

func (vlid *memoryValidate) validate(srcMem []byte, typeBytes int) error {
	switch vlid.sketchStructure {
	case _COMPACT_EMPTY:
		if !vlid.emptyFlag || vlid.singleItemFlag {
			return fmt.Errorf("%w: flags contradict compact empty structure", ErrMalformedInput)
		}
		vlid.n = 0 //assumed
		vlid.minK = vlid.k
		vlid.numLevels = 1 //assumed
		vlid.levelsArr = []uint32{uint32(vlid.k), uint32(vlid.k)}
		vlid.sketchBytes = _DATA_START_ADR_SINGLE_ITEM

	case _COMPACT_SINGLE:
		if vlid.emptyFlag || !vlid.singleItemFlag {
			return fmt.Errorf("%w: flags contradict compact single structure", ErrMalformedInput)
		}
		vlid.n = 1 //assumed
		vlid.minK = vlid.k
		vlid.numLevels = 1 //assumed
		vlid.levelsArr = []uint32{uint32(vlid.k) - 1, uint32(vlid.k)}
		vlid.sketchBytes = _DATA_START_ADR_SINGLE_ITEM + typeBytes

	case _COMPACT_FULL:
		if vlid.emptyFlag || vlid.singleItemFlag {
			return fmt.Errorf("%w: flags contradict compact full structure", ErrMalformedInput)
		}
		if len(srcMem) < _DATA_START_ADR {
			return fmt.Errorf("%w: buffer too small for full preamble: %d", ErrMalformedInput, len(srcMem))
		}
		vlid.n = getN(srcMem)
		vlid.minK = getMinK(srcMem)
		if vlid.minK < uint16(vlid.m) || vlid.minK > vlid.k {
			return fmt.Errorf("%w: min k out of range: %d", ErrMalformedInput, vlid.minK)
		}
		vlid.numLevels = getNumLevels(srcMem)
		if vlid.numLevels == 0 {
			return fmt.Errorf("%w: level count cannot be zero", ErrMalformedInput)
		}
		if len(srcMem) < _DATA_START_ADR+int(vlid.numLevels)*4 {
			return fmt.Errorf("%w: buffer too small for %d levels", ErrMalformedInput, vlid.numLevels)
		}
		// The stored levels array omits the top index; it is recomputed from
		// the capacity schedule rather than trusted from the buffer.
		capacityItems := computeTotalItemCapacity(vlid.k, vlid.m, vlid.numLevels)
		vlid.levelsArr = make([]uint32, vlid.numLevels+1)
		for i := uint8(0); i < vlid.numLevels; i++ {
			vlid.levelsArr[i] = binary.LittleEndian.Uint32(srcMem[_DATA_START_ADR+int(i)*4:])
			if i > 0 && vlid.levelsArr[i] < vlid.levelsArr[i-1] {
				return fmt.Errorf("%w: levels array is not monotonic", ErrMalformedInput)
			}
		}
		if vlid.levelsArr[vlid.numLevels-1] > capacityItems {
			return fmt.Errorf("%w: level offset %d exceeds capacity %d",
				ErrMalformedInput, vlid.levelsArr[vlid.numLevels-1], capacityItems)
		}
		vlid.levelsArr[vlid.numLevels] = capacityItems //load the last one
		numRetained := vlid.levelsArr[vlid.numLevels] - vlid.levelsArr[0]
		vlid.sketchBytes = _DATA_START_ADR + int(vlid.numLevels)*4 + (2+int(numRetained))*typeBytes
	}

	if len(srcMem) < vlid.sketchBytes {
		return fmt.Errorf("%w: buffer truncated: %d bytes, need %d", ErrMalformedInput, len(srcMem), vlid.sketchBytes)
	}
	return nil
}
