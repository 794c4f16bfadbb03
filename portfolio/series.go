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
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/dataframe"
)

// Row is the published values of a single date. A series without an entry in
// Values has no value on that date.
type Row struct {
	Date   time.Time                  `json:"date"`
	Values map[string]decimal.Decimal `json:"values"`
}

// Series is the published table: one row per date in ascending order and one
// column per portfolio or benchmark
type Series struct {
	Columns []string `json:"columns"`
	Rows    []*Row   `json:"rows"`
}

func NewSeries(columns ...string) *Series {
	s := &Series{
		Columns: make([]string, 0, len(columns)),
		Rows:    make([]*Row, 0),
	}
	for _, col := range columns {
		s.AddColumn(col)
	}
	return s
}

// Len returns the number of rows
func (s *Series) Len() int {
	return len(s.Rows)
}

func (s *Series) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// Last returns the most recent row or nil if the series is empty
func (s *Series) Last() *Row {
	if s.Empty() {
		return nil
	}
	return s.Rows[len(s.Rows)-1]
}

// HasColumn returns true if name is one of the series columns
func (s *Series) HasColumn(name string) bool {
	for _, col := range s.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column if it does not already exist
func (s *Series) AddColumn(name string) {
	if !s.HasColumn(name) {
		s.Columns = append(s.Columns, name)
	}
}

func (s *Series) search(dt time.Time) int {
	return sort.Search(len(s.Rows), func(i int) bool {
		return !s.Rows[i].Date.Before(dt)
	})
}

// Row returns the row of dt or nil
func (s *Series) Row(dt time.Time) *Row {
	dt = common.Day(dt)
	idx := s.search(dt)
	if idx < len(s.Rows) && s.Rows[idx].Date.Equal(dt) {
		return s.Rows[idx]
	}
	return nil
}

// Set stores value for name on dt, inserting the row and column as needed
func (s *Series) Set(dt time.Time, name string, value decimal.Decimal) {
	dt = common.Day(dt)
	s.AddColumn(name)

	idx := s.search(dt)
	if idx < len(s.Rows) && s.Rows[idx].Date.Equal(dt) {
		s.Rows[idx].Values[name] = value
		return
	}

	row := &Row{
		Date:   dt,
		Values: map[string]decimal.Decimal{name: value},
	}
	s.Rows = append(s.Rows, nil)
	copy(s.Rows[idx+1:], s.Rows[idx:])
	s.Rows[idx] = row
}

// Value returns name's value on dt
func (s *Series) Value(dt time.Time, name string) (decimal.Decimal, bool) {
	row := s.Row(dt)
	if row == nil {
		return decimal.Zero, false
	}
	val, ok := row.Values[name]
	return val, ok
}

// Points returns every value of the named column in date order
func (s *Series) Points(name string) []*Point {
	points := make([]*Point, 0, len(s.Rows))
	for _, row := range s.Rows {
		if val, ok := row.Values[name]; ok {
			points = append(points, &Point{Date: row.Date, Value: val})
		}
	}
	return points
}

// Tail returns a series with the last n rows. Rows are shared with s.
func (s *Series) Tail(n int) *Series {
	if n > len(s.Rows) {
		n = len(s.Rows)
	}
	if n < 0 {
		n = 0
	}
	return &Series{
		Columns: append([]string{}, s.Columns...),
		Rows:    s.Rows[len(s.Rows)-n:],
	}
}

// Between returns the rows dated in [begin, end]. A zero bound is open.
func (s *Series) Between(begin, end time.Time) *Series {
	res := &Series{
		Columns: append([]string{}, s.Columns...),
		Rows:    make([]*Row, 0, len(s.Rows)),
	}
	for _, row := range s.Rows {
		if !begin.IsZero() && row.Date.Before(begin) {
			continue
		}
		if !end.IsZero() && row.Date.After(end) {
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// DataFrame converts the series to a float dataframe; missing values are NaN
func (s *Series) DataFrame() *dataframe.DataFrame[time.Time] {
	df := dataframe.New[time.Time](s.Columns...)
	for _, row := range s.Rows {
		vals := make(map[string]float64, len(row.Values))
		for name, val := range row.Values {
			vals[name] = val.InexactFloat64()
		}
		df.InsertMap(row.Date, vals)
	}
	return df
}

// Floats returns the named column as floats aligned with Rows
func (s *Series) Floats(name string) []float64 {
	res := make([]float64, len(s.Rows))
	for idx, row := range s.Rows {
		if val, ok := row.Values[name]; ok {
			res[idx] = val.InexactFloat64()
		} else {
			res[idx] = math.NaN()
		}
	}
	return res
}
