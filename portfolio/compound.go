// Copyright 2021-2022
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

package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
)

// accumulatorPlaces bounds the digits of the running index value
const accumulatorPlaces = 12

var one = decimal.NewFromInt(1)

// Point is a single index value
type Point struct {
	Date  time.Time
	Value decimal.Decimal
}

// ChangeLookup answers the fractional change of an instrument on a date.
// data.PriceChangeTable satisfies it.
type ChangeLookup interface {
	Change(code string, dt time.Time) (float64, bool)
}

// CompoundInput is everything needed to extend one portfolio's index
type CompoundInput struct {
	Seed           decimal.Decimal
	StartDate      time.Time
	IsContinuation bool
	CalcDates      []time.Time
	Weights        *WeightTable
	Changes        ChangeLookup
}

// DailyReturn is sum(weight% * change) / 100 over the instruments with a
// known change on dt. Instruments without one contribute nothing.
func DailyReturn(weights WeightVector, changes ChangeLookup, dt time.Time) decimal.Decimal {
	sum := decimal.Zero
	for code, weight := range weights {
		change, ok := changes.Change(code, dt)
		if !ok {
			continue
		}
		sum = sum.Add(weight.Mul(decimal.NewFromFloat(change)))
	}
	return sum.Shift(-2)
}

// Compound returns the ascending index values of the calc dates. A cold start
// also emits the seed on the start date; a continuation does not.
func Compound(in *CompoundInput) []*Point {
	start := common.Day(in.StartDate)
	points := make([]*Point, 0, len(in.CalcDates)+1)

	if !in.IsContinuation {
		points = append(points, &Point{Date: start, Value: in.Seed})
	}

	current := in.Seed
	for _, dt := range in.CalcDates {
		dt = common.Day(dt)
		if !dt.After(start) {
			continue
		}

		ret := decimal.Zero
		if weights, _, ok := in.Weights.EffectiveBefore(dt); ok && len(weights) > 0 {
			ret = DailyReturn(weights, in.Changes, dt)
		}

		current = current.Mul(one.Add(ret)).Round(accumulatorPlaces)
		points = append(points, &Point{Date: dt, Value: current})
	}

	return points
}
