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
	"math/rand"
	"time"
)

// BitSource supplies the single coin flip consumed by each compaction. The
// flip selects whether the odd or even positions of a level survive. The
// default source is pseudo-random; tests inject a deterministic one through
// WithBitSource.
type BitSource interface {
	// Bit returns 0 or 1.
	Bit() int
}

type randomBitSource struct {
	rnd *rand.Rand
}

func newRandomBitSource() *randomBitSource {
	return &randomBitSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *randomBitSource) Bit() int {
	return int(r.rnd.Int63() & 1)
}

// alternatingBitSource yields 0, 1, 0, 1, ... so compaction tests are
// reproducible without fixing a generator seed.
type alternatingBitSource struct {
	next int
}

func (a *alternatingBitSource) Bit() int {
	bit := a.next
	a.next ^= 1
	return bit
}
