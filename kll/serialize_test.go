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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialize_EmptyGoldenBytes(t *testing.T) {
	// preamble ints 2, serial version 1, family 15, empty flag,
	// k=200 little-endian, m=8, unused byte
	expected := []byte{2, 1, 15, 1, 200, 0, 8, 0}

	fsketch, err := NewFloatSketch()
	assert.NoError(t, err)
	assert.Equal(t, expected, fsketch.ToSlice())

	// the empty image does not depend on the item type
	dsketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.Equal(t, expected, dsketch.ToSlice())
}

func TestSerialize_SingleItemGoldenBytes(t *testing.T) {
	fsketch, err := NewFloatSketch()
	assert.NoError(t, err)
	assert.NoError(t, fsketch.Update(1))
	// serial version 2, single item flag, then 1.0 as little-endian float32
	assert.Equal(t, []byte{2, 2, 15, 4, 200, 0, 8, 0, 0, 0, 128, 63}, fsketch.ToSlice())

	dsketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.NoError(t, dsketch.Update(1))
	assert.Equal(t, []byte{2, 2, 15, 4, 200, 0, 8, 0, 0, 0, 0, 0, 0, 0, 240, 63}, dsketch.ToSlice())
}

func TestSerialize_SizeMatchesSlice(t *testing.T) {
	sketch, err := NewDoubleSketch(WithK(8))
	assert.NoError(t, err)
	assert.Len(t, sketch.ToSlice(), sketch.GetSerializedSizeBytes())

	assert.NoError(t, sketch.Update(1))
	assert.Len(t, sketch.ToSlice(), sketch.GetSerializedSizeBytes())

	for i := 2; i <= 1000; i++ {
		assert.NoError(t, sketch.Update(float64(i)))
	}
	assert.Len(t, sketch.ToSlice(), sketch.GetSerializedSizeBytes())
}

func TestSerialize_DeserializeEmpty(t *testing.T) {
	sketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	decoded, err := DoubleSketchFromSlice(sketch.ToSlice())
	assert.NoError(t, err)
	assert.True(t, decoded.IsEmpty())
	assert.Equal(t, sketch.GetK(), decoded.GetK())
	assert.Equal(t, uint64(0), decoded.GetN())

	// a deserialized sketch must accept further updates
	assert.NoError(t, decoded.Update(5))
	q, err := decoded.GetQuantile(0.5, true)
	assert.NoError(t, err)
	assert.Equal(t, float64(5), q)
}

func TestSerialize_DeserializeSingleItem(t *testing.T) {
	sketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.NoError(t, sketch.Update(3.14))
	decoded, err := DoubleSketchFromSlice(sketch.ToSlice())
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), decoded.GetN())
	assert.Equal(t, uint32(1), decoded.GetNumRetained())
	minV, err := decoded.GetMinValue()
	assert.NoError(t, err)
	assert.Equal(t, 3.14, minV)
	maxV, err := decoded.GetMaxValue()
	assert.NoError(t, err)
	assert.Equal(t, 3.14, maxV)
}

func TestSerialize_RoundTripDouble(t *testing.T) {
	sketch, err := NewDoubleSketch(WithK(8), WithBitSource(&alternatingBitSource{}))
	assert.NoError(t, err)
	for i := 1; i <= 10000; i++ {
		assert.NoError(t, sketch.Update(float64(i)))
	}
	bytes := sketch.ToSlice()

	decoded, err := DoubleSketchFromSlice(bytes)
	assert.NoError(t, err)
	assert.Equal(t, sketch.GetN(), decoded.GetN())
	assert.Equal(t, sketch.GetK(), decoded.GetK())
	assert.Equal(t, sketch.minK, decoded.minK)
	assert.Equal(t, sketch.numLevels, decoded.numLevels)
	assert.Equal(t, sketch.GetNumRetained(), decoded.GetNumRetained())

	for _, fraction := range []float64{0, 0.25, 0.5, 0.75, 1} {
		expected, err := sketch.GetQuantile(fraction, true)
		assert.NoError(t, err)
		actual, err := decoded.GetQuantile(fraction, true)
		assert.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	// serializing the reconstruction reproduces the image byte for byte
	assert.Equal(t, bytes, decoded.ToSlice())
}

func TestSerialize_RoundTripFloat(t *testing.T) {
	sketch, err := NewFloatSketch(WithBitSource(&alternatingBitSource{}))
	assert.NoError(t, err)
	for i := 1; i <= 10000; i++ {
		assert.NoError(t, sketch.Update(float32(i)))
	}
	bytes := sketch.ToSlice()

	decoded, err := FloatSketchFromSlice(bytes)
	assert.NoError(t, err)
	assert.Equal(t, sketch.GetN(), decoded.GetN())
	assert.Equal(t, sketch.GetNumRetained(), decoded.GetNumRetained())
	rank, err := decoded.GetRank(5000, true)
	assert.NoError(t, err)
	assert.InDelta(t, 0.5, rank, decoded.GetNormalizedRankError(false))
	assert.Equal(t, bytes, decoded.ToSlice())
}

func TestSerialize_JSONRoundTrip(t *testing.T) {
	sketch, err := NewDoubleSketch(WithK(8), WithBitSource(&alternatingBitSource{}))
	assert.NoError(t, err)
	for i := 1; i <= 1000; i++ {
		assert.NoError(t, sketch.Update(float64(i)))
	}

	data, err := json.Marshal(sketch)
	assert.NoError(t, err)

	decoded, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, sketch.GetN(), decoded.GetN())
	assert.Equal(t, sketch.GetK(), decoded.GetK())
	assert.Equal(t, sketch.ToSlice(), decoded.ToSlice())
}

func TestSerialize_JSONBadInput(t *testing.T) {
	sketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"not base64!!"`), sketch), ErrMalformedInput)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"QUJD"`), sketch), ErrMalformedInput) // valid base64, bad image
}

func TestSerialize_EmbeddedInDocument(t *testing.T) {
	type snapshot struct {
		Name   string        `json:"name"`
		Sketch *DoubleSketch `json:"sketch"`
	}

	sketch, err := NewDoubleSketch()
	assert.NoError(t, err)
	for i := 1; i <= 100; i++ {
		assert.NoError(t, sketch.Update(float64(i)))
	}
	data, err := json.Marshal(snapshot{Name: "latency", Sketch: sketch})
	assert.NoError(t, err)

	var decoded snapshot
	decoded.Sketch, err = NewDoubleSketch()
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "latency", decoded.Name)
	assert.Equal(t, uint64(100), decoded.Sketch.GetN())
}
