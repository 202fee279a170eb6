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

import "errors"

// Sentinel errors returned by the sketch. All errors produced by this package
// wrap one of these, so callers can classify failures with errors.Is.
var (
	// ErrInvalidParameter indicates a structural argument out of range, such as
	// a k below the minimum or a rank fraction outside [0, 1].
	ErrInvalidParameter = errors.New("kll: invalid parameter")

	// ErrInvalidValue indicates a data value the sketch cannot order, such as
	// NaN or an infinity.
	ErrInvalidValue = errors.New("kll: invalid value")

	// ErrEmptySketch indicates a query that has no defined result on an empty
	// sketch.
	ErrEmptySketch = errors.New("kll: empty sketch")

	// ErrIncompatibleMerge indicates two sketches whose configurations cannot
	// be combined.
	ErrIncompatibleMerge = errors.New("kll: incompatible merge")

	// ErrMalformedInput indicates a serialized image that fails validation.
	ErrMalformedInput = errors.New("kll: malformed input")
)
