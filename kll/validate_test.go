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
	"testing"

	"github.com/stretchr/testify/assert"
)

func validEmptyImage() []byte {
	return []byte{2, 1, 15, 1, 200, 0, 8, 0}
}

func validFullImage(t *testing.T) []byte {
	sketch, err := NewDoubleSketch(WithK(8), WithBitSource(&alternatingBitSource{}))
	assert.NoError(t, err)
	for i := 1; i <= 1000; i++ {
		assert.NoError(t, sketch.Update(float64(i)))
	}
	return sketch.ToSlice()
}

func TestValidate_BufferTooSmall(t *testing.T) {
	for _, mem := range [][]byte{nil, {}, {2}, {2, 1, 15, 1}, validEmptyImage()[:7]} {
		_, err := DoubleSketchFromSlice(mem)
		assert.ErrorIs(t, err, ErrMalformedInput)
	}
}

func TestValidate_BadPreambleCombo(t *testing.T) {
	mem := validEmptyImage()
	mem[_PREAMBLE_INTS_BYTE_ADR] = 3
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	mem = validEmptyImage()
	mem[_SER_VER_BYTE_ADR] = 9
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_UpdatableLayoutRejected(t *testing.T) {
	mem := validFullImage(t)
	mem[_SER_VER_BYTE_ADR] = _SERIAL_VERSION_UPDATABLE
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_WrongFamily(t *testing.T) {
	mem := validEmptyImage()
	mem[_FAMILY_BYTE_ADR] = 16
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_BadKAndM(t *testing.T) {
	mem := validEmptyImage()
	mem[_K_SHORT_ADR] = 0
	mem[_K_SHORT_ADR+1] = 0
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	mem = validEmptyImage()
	mem[_M_BYTE_ADR] = 7 // odd
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	mem = validEmptyImage()
	mem[_M_BYTE_ADR] = 10 // too large
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_FlagContradictions(t *testing.T) {
	// empty structure without the empty flag
	mem := validEmptyImage()
	mem[_FLAGS_BYTE_ADR] = 0
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// empty structure claiming a single item
	mem = validEmptyImage()
	mem[_FLAGS_BYTE_ADR] = _EMPTY_BIT_MASK | _SINGLE_ITEM_BIT_MASK
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// single structure without the single item flag
	sketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.NoError(t, sketch.Update(1))
	mem = sketch.ToSlice()
	mem[_FLAGS_BYTE_ADR] = 0
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// full structure claiming to be empty
	mem = validFullImage(t)
	mem[_FLAGS_BYTE_ADR] |= _EMPTY_BIT_MASK
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_FullPreambleFields(t *testing.T) {
	// minK above k
	mem := validFullImage(t)
	mem[_MIN_K_SHORT_ADR] = 255
	mem[_MIN_K_SHORT_ADR+1] = 255
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// zero levels
	mem = validFullImage(t)
	mem[_NUM_LEVELS_BYTE_ADR] = 0
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// more levels than the buffer can hold
	mem = validFullImage(t)
	mem[_NUM_LEVELS_BYTE_ADR] = 200
	_, err = DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_NonMonotonicLevels(t *testing.T) {
	mem := validFullImage(t)
	// corrupt the second level offset so it sorts above every later offset
	mem[_DATA_START_ADR+4] = 0xFF
	mem[_DATA_START_ADR+5] = 0xFF
	mem[_DATA_START_ADR+6] = 0xFF
	mem[_DATA_START_ADR+7] = 0xFF
	_, err := DoubleSketchFromSlice(mem)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_TruncatedFullImage(t *testing.T) {
	mem := validFullImage(t)
	_, err := DoubleSketchFromSlice(mem[:len(mem)-1])
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = DoubleSketchFromSlice(mem[:_DATA_START_ADR])
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidate_ValidImagesAccepted(t *testing.T) {
	_, err := DoubleSketchFromSlice(validEmptyImage())
	assert.NoError(t, err)
	_, err = DoubleSketchFromSlice(validFullImage(t))
	assert.NoError(t, err)
}
