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

package internal

// LessFn reports whether its first operand sorts before its second.
type LessFn[C comparable] func(C, C) bool

type Inequality int64

const (
	InequalityLT Inequality = iota
	InequalityLE
	InequalityGE
	InequalityGT
)

// FindWithInequality performs a binary search over arr[low:high+1], which must be
// sorted with respect to lessFn, and returns the index that satisfies the given
// inequality relative to v, or -1 if no element does.
//
// InequalityLT/LE return the highest index whose element is less than (or equal to) v.
// InequalityGE/GT return the lowest index whose element is greater than (or equal to) v.
func FindWithInequality[C comparable](arr []C, low int, high int, v C, crit Inequality, lessFn LessFn[C]) int {
	if len(arr) == 0 {
		return -1
	}
	lo := low
	hi := high
	for lo <= hi {
		if hi-lo <= 1 {
			return resolve(arr, lo, hi, v, crit, lessFn)
		}
		mid := lo + (hi-lo)/2
		ret := compare(arr, mid, mid+1, v, crit, lessFn)
		if ret == -1 {
			hi = mid
		} else if ret == 1 {
			lo = mid + 1
		} else {
			return getIndex(crit, mid, mid+1)
		}
	}
	return -1
}

func resolve[C comparable](arr []C, lo int, hi int, v C, crit Inequality, lessFn LessFn[C]) int {
	result := 0
	switch crit {
	case InequalityLT:
		if lo == hi {
			if !lessFn(v, arr[hi]) && v != arr[hi] {
				result = lo
			} else {
				result = -1
			}
		} else {
			if !lessFn(v, arr[hi]) && v != arr[hi] {
				result = hi
			} else if !lessFn(v, arr[lo]) && v != arr[lo] {
				result = lo
			} else {
				result = -1
			}
		}
	case InequalityLE:
		if lo == hi {
			if !lessFn(v, arr[lo]) {
				result = lo
			} else {
				result = -1
			}
		} else {
			if !lessFn(v, arr[hi]) {
				result = hi
			} else if !lessFn(v, arr[lo]) {
				result = lo
			} else {
				result = -1
			}
		}
	case InequalityGE:
		if lo == hi {
			if lessFn(v, arr[lo]) || v == arr[lo] {
				result = lo
			} else {
				result = -1
			}
		} else {
			if lessFn(v, arr[lo]) || v == arr[lo] {
				result = lo
			} else if lessFn(v, arr[hi]) || v == arr[hi] {
				result = hi
			} else {
				result = -1
			}
		}
	case InequalityGT:
		if lo == hi {
			if lessFn(v, arr[lo]) {
				result = lo
			} else {
				result = -1
			}
		} else {
			if lessFn(v, arr[lo]) {
				result = lo
			} else if lessFn(v, arr[hi]) {
				result = hi
			} else {
				result = -1
			}
		}
	default:
		panic("invalid inequality")
	}

	return result
}

func compare[C comparable](arr []C, a int, b int, v C, crit Inequality, lessFn LessFn[C]) int {
	result := 0
	switch crit {
	case InequalityLT, InequalityGE:
		if lessFn(v, arr[a]) || arr[a] == v {
			result = -1
		} else if lessFn(arr[b], v) {
			result = 1
		}
	case InequalityLE, InequalityGT:
		if lessFn(v, arr[a]) {
			result = -1
		} else if lessFn(arr[b], v) || arr[b] == v {
			result = 1
		}
	default:
		panic("invalid inequality")
	}
	return result
}

func getIndex(crit Inequality, a int, b int) int {
	switch crit {
	case InequalityLT, InequalityLE:
		return a
	case InequalityGE, InequalityGT:
		return b
	default:
		panic("invalid inequality")
	}
}
