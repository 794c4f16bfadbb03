// Copyright 2021-2023
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

package dataframe

import (
	"errors"
	"time"
)

// DataFrame stores a table of values organized by an index (typically a date).
// Vals is column major - e.g.,
//
//	  A      B
//	  1      4
//	  2      5
//	  3      6
//
//	Vals[0] = [1, 2, 3]
//	Vals[1] = [4, 5, 6]
//
// Missing observations are stored as math.NaN()
type DataFrame[T string | time.Time] struct {
	Index    []T
	ColNames []string
	Vals     [][]float64
}

var (
	ErrDateIndexNotAligned = errors.New("date index does not align")
	ErrIndexNotDate        = errors.New("index is not a date index")
)
