// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import "strconv"

// ParseOptionalFloat converts an upstream numeric string into an optional
// value. The upstream reports missing figures as an empty string or the
// literal "None"; both become nil, as does any string that fails to parse.
// A missing value is never coerced to zero.
func ParseOptionalFloat(raw string) *float64 {
	if raw == "" || raw == "None" {
		return nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	return &val
}
