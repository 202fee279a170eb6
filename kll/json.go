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
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the sketch as a JSON string holding the base64 of its
// binary form, so sketches can ride inside JSON documents without losing
// byte compatibility with the cross-language format.
func (s *Sketch[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(s.ToSlice()))
}

// UnmarshalJSON replaces the sketch's state with the one decoded from a JSON
// string produced by MarshalJSON. On failure the sketch is left unchanged.
func (s *Sketch[V]) UnmarshalJSON(data []byte) error {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	decoded, err := FromSlice[V](raw)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
