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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// New creates an empty dataframe with the given columns
func New[T string | time.Time](colNames ...string) *DataFrame[T] {
	df := &DataFrame[T]{
		Index:    make([]T, 0),
		ColNames: make([]string, len(colNames)),
		Vals:     make([][]float64, len(colNames)),
	}
	copy(df.ColNames, colNames)
	for idx := range df.Vals {
		df.Vals[idx] = make([]float64, 0)
	}
	return df
}

// Get index of specified column; returns -1 if column doesn't exist
func (df *DataFrame[T]) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame[T]) ColCount() int {
	return len(df.ColNames)
}

// Column returns the values of the named column or nil if the column does not exist
func (df *DataFrame[T]) Column(colName string) []float64 {
	colIdx := df.ColIndex(colName)
	if colIdx == -1 {
		return nil
	}
	return df.Vals[colIdx]
}

// Copy creates a copy of the dataframe
func (df *DataFrame[T]) Copy() *DataFrame[T] {
	df2 := &DataFrame[T]{
		ColNames: make([]string, len(df.ColNames)),
		Index:    make([]T, len(df.Index)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Index, df.Index)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// End returns the last time in the DataFrame
func (df *DataFrame[T]) End() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if lastDate, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
		return lastDate
	}

	return time.Time{}
}

// Insert a new column to the end of the dataframe
func (df *DataFrame[T]) Insert(name string, col []float64) *DataFrame[T] {
	if len(col) != len(df.Index) {
		log.Panic().Str("Column", name).Int("ColLen", len(col)).Int("IndexLen", len(df.Index)).Msg("column length must equal index length")
	}
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, col)
	return df
}

// InsertMap adds a new row to the dataframe. Date must be after the last date in the dataframe otherwise panic.
// all columns must already exist in the dataframe, any additional columns in vals is ignored
func (df *DataFrame[T]) InsertMap(idx T, vals map[string]float64) *DataFrame[T] {
	// Check that the last date in the dataframe is prior to the new date
	if len(df.Index) != 0 {
		if last, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
			newDate := any(idx).(time.Time) // safe because if last is time.Time then idx must be time.Time
			if !last.Before(newDate) {
				log.Panic().Time("lastDate", last).Time("newDate", newDate).Msg("newDate must be after lastDate")
			}
		}
	}

	df.Index = append(df.Index, idx)
	for colIdx, colName := range df.ColNames {
		if val, ok := vals[colName]; ok {
			df.Vals[colIdx] = append(df.Vals[colIdx], val)
		} else {
			df.Vals[colIdx] = append(df.Vals[colIdx], math.NaN())
		}
	}

	return df
}

// IndexOf returns the row number of the given date or -1 if the date is not in the index.
// NOTE: only date indexes are searched, for any other index -1 is returned
func (df *DataFrame[T]) IndexOf(dt time.Time) int {
	if len(df.Index) == 0 {
		return -1
	}

	if _, ok := any(df.Index[0]).(time.Time); !ok {
		return -1
	}

	idx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return !idxVal.Before(dt)
	})

	if idx < len(df.Index) && any(df.Index[idx]).(time.Time).Equal(dt) {
		return idx
	}

	return -1
}

// Len returns the number of rows in the dataframe
func (df *DataFrame[T]) Len() int {
	return len(df.Index)
}

// Max selects the max value for each row and returns a new dataframe
func (df *DataFrame[T]) Max() *DataFrame[T] {
	maxDf := &DataFrame[T]{
		ColNames: []string{"max"},
		Index:    df.Index,
		Vals:     [][]float64{make([]float64, len(df.Index))},
	}

	for rowIdx := range df.Index {
		row := df.row(rowIdx)
		if len(row) == 0 {
			maxDf.Vals[0][rowIdx] = math.NaN()
			continue
		}
		maxDf.Vals[0][rowIdx] = floats.Max(row)
	}

	return maxDf
}

// Min selects the min value for each row and returns a new dataframe
func (df *DataFrame[T]) Min() *DataFrame[T] {
	minDf := &DataFrame[T]{
		ColNames: []string{"min"},
		Index:    df.Index,
		Vals:     [][]float64{make([]float64, len(df.Index))},
	}

	for rowIdx := range df.Index {
		row := df.row(rowIdx)
		if len(row) == 0 {
			minDf.Vals[0][rowIdx] = math.NaN()
			continue
		}
		minDf.Vals[0][rowIdx] = floats.Min(row)
	}

	return minDf
}

// row returns the non-NaN values of the row at rowIdx
func (df *DataFrame[T]) row(rowIdx int) []float64 {
	row := make([]float64, 0, len(df.ColNames))
	for colIdx := range df.ColNames {
		if v := df.Vals[colIdx][rowIdx]; !math.IsNaN(v) {
			row = append(row, v)
		}
	}
	return row
}

// Start returns the first date of the dataframe
func (df *DataFrame[T]) Start() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if firstDate, ok := any(df.Index[0]).(time.Time); ok {
		return firstDate
	}

	return time.Time{}
}

// Table renders an ASCII formatted table; values are printed with 2 decimal places
// and missing values are left blank
func (df *DataFrame[T]) Table() string {
	if len(df.Index) == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the dataframe
	}

	// construct table header
	tableCols := append([]string{"Date"}, df.ColNames...)

	// initialize table
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for idx, rowIdx := range df.Index {
		row := make([]string, 0, len(df.Vals)+1)

		if date, ok := any(rowIdx).(time.Time); ok {
			row = append(row, date.Format("2006-01-02"))
		} else {
			row = append(row, any(rowIdx).(string))
		}

		for _, col := range df.Vals {
			if math.IsNaN(col[idx]) {
				row = append(row, "")
			} else {
				row = append(row, fmt.Sprintf("%.2f", col[idx]))
			}
		}

		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Tail returns a new dataframe with the last n rows
func (df *DataFrame[T]) Tail(n int) *DataFrame[T] {
	if n >= df.Len() {
		return df
	}
	if n < 0 {
		n = 0
	}

	start := df.Len() - n
	tail := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    df.Index[start:],
		Vals:     make([][]float64, len(df.Vals)),
	}
	for colIdx, col := range df.Vals {
		tail.Vals[colIdx] = col[start:]
	}
	return tail
}

// Trim the dataframe to the specified date range (inclusive)
// NOTE: If T is not time.Time then an empty dataframe is returned
func (df *DataFrame[T]) Trim(begin, end time.Time) *DataFrame[T] {
	df2 := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    []T{},
		Vals:     make([][]float64, len(df.Vals)),
	}
	for colIdx := range df2.Vals {
		df2.Vals[colIdx] = []float64{}
	}

	// requested range is invalid or there is nothing to trim
	if end.Before(begin) || df.Len() == 0 {
		return df2
	}

	// ensure that index is a date index
	first, ok := any(df.Index[0]).(time.Time)
	if !ok {
		return df2
	}
	last := any(df.Index[len(df.Index)-1]).(time.Time)

	if end.Before(first) || begin.After(last) {
		return df2
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return !idxVal.Before(begin)
	})

	endIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return idxVal.After(end)
	})

	df2.Index = df.Index[beginIdx:endIdx]
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}
