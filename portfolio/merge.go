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
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
)

// OutputPlaces is the number of decimal places values are published with
const OutputPlaces = 2

// Merge combines the persisted series with freshly computed rows. When both
// contain a date the fresh row replaces the old one entirely. Every value is
// rounded half-to-even to OutputPlaces and rows are returned in date order.
// Columns keep their old order with new columns appended.
func Merge(old, fresh *Series) *Series {
	merged := NewSeries()
	byDate := make(map[time.Time]*Row)

	for _, s := range []*Series{old, fresh} {
		if s == nil {
			continue
		}
		for _, col := range s.Columns {
			merged.AddColumn(col)
		}
		for _, row := range s.Rows {
			dt := common.Day(row.Date)
			rounded := &Row{
				Date:   dt,
				Values: make(map[string]decimal.Decimal, len(row.Values)),
			}
			for name, val := range row.Values {
				merged.AddColumn(name)
				rounded.Values[name] = val.RoundBank(OutputPlaces)
			}
			byDate[dt] = rounded
		}
	}

	for _, row := range byDate {
		merged.Rows = append(merged.Rows, row)
	}
	sort.Slice(merged.Rows, func(i, j int) bool {
		return merged.Rows[i].Date.Before(merged.Rows[j].Date)
	})

	return merged
}
