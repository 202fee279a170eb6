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
	"math"
	"unsafe"
)

// Item payloads are little-endian IEEE-754 of the width of V: 4 bytes for
// float32 items, 8 bytes for float64 items, matching the cross-language
// format. unsafe.Sizeof is the type-width probe so that named types with a
// float32/float64 underlying type serialize identically.

func itemSizeBytes[V Value]() int {
	var v V
	return int(unsafe.Sizeof(v))
}

func putItem[V Value](b []byte, v V) {
	if unsafe.Sizeof(v) == 4 {
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	} else {
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	}
}

func getItem[V Value](b []byte) V {
	var v V
	if unsafe.Sizeof(v) == 4 {
		return V(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return V(math.Float64frombits(binary.LittleEndian.Uint64(b)))
}

func putItems[V Value](b []byte, items []V) {
	width := itemSizeBytes[V]()
	for i, v := range items {
		putItem(b[i*width:], v)
	}
}

func getItems[V Value](b []byte, numItems int) []V {
	width := itemSizeBytes[V]()
	items := make([]V, numItems)
	for i := range items {
		items[i] = getItem[V](b[i*width:])
	}
	return items
}

// ToSlice returns the serialized byte array of this sketch in the compact
// cross-language format. Empty and single-item sketches use the short
// layouts; everything else serializes the full preamble, the levels array
// (top index omitted), min, max and the retained items in level order.
func (s *Sketch[V]) ToSlice() []byte {
	var tgtStructure = _COMPACT_FULL
	if s.n == 0 {
		tgtStructure = _COMPACT_EMPTY
	} else if s.n == 1 {
		tgtStructure = _COMPACT_SINGLE
	}
	bytesOut := make([]byte, s.GetSerializedSizeBytes())

	//ints 0,1
	preInts := byte(tgtStructure.getPreInts())
	serVer := byte(tgtStructure.getSerVer())
	famId := byte(_FAMILY_ID)
	flags := byte(0)
	if s.IsEmpty() {
		flags |= _EMPTY_BIT_MASK
	}
	if s.isLevelZeroSorted {
		flags |= _LEVEL_ZERO_SORTED_BIT_MASK
	}
	if s.n == 1 {
		flags |= _SINGLE_ITEM_BIT_MASK
	}

	bytesOut[_PREAMBLE_INTS_BYTE_ADR] = preInts
	bytesOut[_SER_VER_BYTE_ADR] = serVer
	bytesOut[_FAMILY_BYTE_ADR] = famId
	bytesOut[_FLAGS_BYTE_ADR] = flags
	binary.LittleEndian.PutUint16(bytesOut[_K_SHORT_ADR:], s.k)
	bytesOut[_M_BYTE_ADR] = s.m

	if tgtStructure == _COMPACT_EMPTY {
		return bytesOut
	}

	if tgtStructure == _COMPACT_SINGLE {
		putItem(bytesOut[_DATA_START_ADR_SINGLE_ITEM:], s.getSingleItem())
		return bytesOut
	}

	// COMPACT_FULL
	width := itemSizeBytes[V]()
	binary.LittleEndian.PutUint64(bytesOut[_N_LONG_ADR:], s.n)
	binary.LittleEndian.PutUint16(bytesOut[_MIN_K_SHORT_ADR:], s.minK)
	bytesOut[_NUM_LEVELS_BYTE_ADR] = s.numLevels
	//end of full preamble
	offset := _DATA_START_ADR
	for i := uint8(0); i < s.numLevels; i++ {
		binary.LittleEndian.PutUint32(bytesOut[offset:], s.levels[i])
		offset += 4
	}
	putItem(bytesOut[offset:], *s.minValue)
	offset += width
	putItem(bytesOut[offset:], *s.maxValue)
	offset += width
	putItems(bytesOut[offset:], s.getRetainedItemsArray())
	return bytesOut
}

// GetSerializedSizeBytes returns the number of bytes this sketch requires
// when serialized in compact form.
func (s *Sketch[V]) GetSerializedSizeBytes() int {
	width := itemSizeBytes[V]()
	if s.n == 0 {
		return _N_LONG_ADR
	}
	if s.n == 1 {
		return _DATA_START_ADR_SINGLE_ITEM + width
	}
	return _DATA_START_ADR + int(s.numLevels)*4 + (2+int(s.GetNumRetained()))*width
}
