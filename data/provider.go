// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"time"
)

// Metric selects which value a provider returns for each observation
type Metric string

const (
	// MetricClose is the closing level of the symbol
	MetricClose Metric = "Close"

	// MetricChange is the fractional close-to-close change, e.g. 0.015 for +1.5%
	MetricChange Metric = "Change"
)

// Observation is a single dated value of a symbol's series
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Provider returns the ordered observations of a symbol from begin (inclusive)
// through the latest available date. An empty result is not an error.
type Provider interface {
	DataType() string
	GetSeries(ctx context.Context, symbol string, metric Metric, begin time.Time) ([]*Observation, error)
}
