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
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-nav/common"
)

// changeLookback is how far before begin closes are requested so that the
// first change on or after begin has a prior close to compare against
const changeLookback = 14

// lookbackStart returns the date providers should start fetching closes from
func lookbackStart(begin time.Time, metric Metric) time.Time {
	if metric == MetricChange {
		return begin.AddDate(0, 0, -changeLookback)
	}
	return begin
}

// closesToMetric converts ascending closes into the requested metric and drops
// observations before begin
func closesToMetric(closes []*Observation, metric Metric, begin time.Time) ([]*Observation, error) {
	var res []*Observation
	switch metric {
	case MetricClose:
		res = closes
	case MetricChange:
		res = make([]*Observation, 0, len(closes))
		for idx := 1; idx < len(closes); idx++ {
			prev := closes[idx-1].Value
			if prev == 0 || math.IsNaN(prev) || math.IsNaN(closes[idx].Value) {
				continue
			}
			res = append(res, &Observation{
				Date:  closes[idx].Date,
				Value: closes[idx].Value/prev - 1,
			})
		}
	default:
		return nil, ErrUnsupportedMetric
	}

	begin = common.Day(begin)
	start := sort.Search(len(res), func(i int) bool {
		return !res[i].Date.Before(begin)
	})
	return res[start:], nil
}

func partitionArray(arr []string, size int) [][]string {
	var chunks [][]string
	for {
		if len(arr) == 0 {
			break
		}

		if len(arr) < size {
			size = len(arr)
		}

		chunks = append(chunks, arr[0:size])
		arr = arr[size:]
	}

	return chunks
}
