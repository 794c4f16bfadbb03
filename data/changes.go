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
	"github.com/penny-vault/pv-nav/dataframe"
)

// PriceChangeTable holds, for one run window, the daily fractional change of
// each instrument and the closing level of each benchmark. Dates are calendar
// days (see common.Day) and nothing after the window's end is kept.
type PriceChangeTable struct {
	changes *dataframe.DataFrame[time.Time]
	levels  *dataframe.DataFrame[time.Time]
}

// NewPriceChangeTable builds the table from instrument changes (keyed by
// instrument code) and benchmark closes (keyed by benchmark name). Observations
// after end are dropped.
func NewPriceChangeTable(changes map[string][]*Observation, levels map[string][]*Observation, end time.Time) *PriceChangeTable {
	end = common.Day(end)
	return &PriceChangeTable{
		changes: buildFrame(changes, end),
		levels:  buildFrame(levels, end),
	}
}

func buildFrame(series map[string][]*Observation, end time.Time) *dataframe.DataFrame[time.Time] {
	colNames := make([]string, 0, len(series))
	for name := range series {
		colNames = append(colNames, name)
	}
	sort.Strings(colNames)

	rows := make(map[time.Time]map[string]float64)
	for name, obs := range series {
		for _, o := range obs {
			dt := common.Day(o.Date)
			if dt.After(end) {
				continue
			}
			row, ok := rows[dt]
			if !ok {
				row = make(map[string]float64, len(colNames))
				rows[dt] = row
			}
			row[name] = o.Value
		}
	}

	dates := make([]time.Time, 0, len(rows))
	for dt := range rows {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	df := dataframe.New[time.Time](colNames...)
	for _, dt := range dates {
		df.InsertMap(dt, rows[dt])
	}
	return df
}

// Empty returns true if neither instrument changes nor benchmark levels are present
func (pct *PriceChangeTable) Empty() bool {
	return pct.changes.Len() == 0 && pct.levels.Len() == 0
}

// Instruments returns the codes of instruments with at least one observation
func (pct *PriceChangeTable) Instruments() []string {
	return pct.changes.ColNames
}

// Benchmarks returns the names of benchmarks with at least one observation
func (pct *PriceChangeTable) Benchmarks() []string {
	return pct.levels.ColNames
}

// CalcDates returns the ascending dates strictly after start on which any
// instrument has an observation; these are the dates a return is computed for
func (pct *PriceChangeTable) CalcDates(start time.Time) []time.Time {
	start = common.Day(start)
	idx := sort.Search(pct.changes.Len(), func(i int) bool {
		return pct.changes.Index[i].After(start)
	})
	res := make([]time.Time, pct.changes.Len()-idx)
	copy(res, pct.changes.Index[idx:])
	return res
}

// Change returns the instrument's fractional change on dt. The second return
// value is false if the instrument has no observation on that date.
func (pct *PriceChangeTable) Change(code string, dt time.Time) (float64, bool) {
	return lookup(pct.changes, code, dt)
}

// Level returns the benchmark's closing level on dt
func (pct *PriceChangeTable) Level(name string, dt time.Time) (float64, bool) {
	return lookup(pct.levels, name, dt)
}

// Changes returns the underlying instrument change frame
func (pct *PriceChangeTable) Changes() *dataframe.DataFrame[time.Time] {
	return pct.changes
}

// Levels returns the underlying benchmark level frame
func (pct *PriceChangeTable) Levels() *dataframe.DataFrame[time.Time] {
	return pct.levels
}

func lookup(df *dataframe.DataFrame[time.Time], col string, dt time.Time) (float64, bool) {
	vals := df.Column(col)
	if vals == nil {
		return 0, false
	}
	rowIdx := df.IndexOf(common.Day(dt))
	if rowIdx == -1 {
		return 0, false
	}
	v := vals[rowIdx]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
