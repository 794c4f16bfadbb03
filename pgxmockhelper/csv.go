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

package pgxmockhelper

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

// CSVRows turns a CSV fixture into pgxmock rows. Columns listed in the type map
// are converted to `date`, `float64` or `int` values; all others are strings.
type CSVRows struct {
	rows    [][]any
	header  []string
	dateCol int
}

func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		dateCol: -1,
		rows:    make([][]any, 0),
	}
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	// break raw data into an array of lines
	lines := strings.Split(string(rawData), "\n")

	// sanity checks:
	// - array length is at least 2 (header + trailing newline)
	// - make sure last line ends in newline
	if len(lines) < 2 {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file does not have enough lines, need at least 2 (header + trailing new line)")
	}
	if lines[len(lines)-1] != "" {
		subLog.Panic().Msg("input file is missing a trailing new line")
	}

	rows.header = strings.Split(lines[0], ",")
	lines = lines[1 : len(lines)-1] // discard header and trailing newline

	for _, ll := range lines {
		cols := make([]any, len(rows.header))
		for idx, val := range strings.Split(ll, ",") {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
				rows.dateCol = idx
			case "float64":
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = parsed
			case "int":
				parsed, err := strconv.Atoi(val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to int")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

// Since keeps rows on or after a
func (csvRows *CSVRows) Since(a time.Time) *CSVRows {
	return csvRows.Between(a, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
}

// Between keeps rows whose date column falls within [a, b]
func (csvRows *CSVRows) Between(a time.Time, b time.Time) *CSVRows {
	newRows := make([][]any, 0, len(csvRows.rows))
	if len(csvRows.rows) == 0 {
		return csvRows
	}
	if csvRows.dateCol == -1 {
		log.Panic().Time("a", a).Time("b", b).Msg("no date column found")
	}
	for _, row := range csvRows.rows {
		t := row[csvRows.dateCol].(time.Time)
		if !t.Before(a) && !t.After(b) {
			newRows = append(newRows, row)
		}
	}
	csvRows.rows = newRows
	return csvRows
}

// Where keeps rows whose column equals val
func (csvRows *CSVRows) Where(colName string, val any) *CSVRows {
	colIdx := -1
	for idx, name := range csvRows.header {
		if name == colName {
			colIdx = idx
		}
	}
	if colIdx == -1 {
		log.Panic().Str("Column", colName).Msg("column not found")
	}

	newRows := make([][]any, 0, len(csvRows.rows))
	for _, row := range csvRows.rows {
		if row[colIdx] == val {
			newRows = append(newRows, row)
		}
	}
	csvRows.rows = newRows
	return csvRows
}

// Columns restricts the returned rows to the named columns in the given order
func (csvRows *CSVRows) Columns(colNames ...string) *CSVRows {
	indexes := make([]int, 0, len(colNames))
	for _, colName := range colNames {
		found := false
		for idx, name := range csvRows.header {
			if name == colName {
				indexes = append(indexes, idx)
				found = true
			}
		}
		if !found {
			log.Panic().Str("Column", colName).Msg("column not found")
		}
	}

	newRows := make([][]any, 0, len(csvRows.rows))
	dateCol := -1
	for _, row := range csvRows.rows {
		newRow := make([]any, len(indexes))
		for ii, idx := range indexes {
			newRow[ii] = row[idx]
			if idx == csvRows.dateCol {
				dateCol = ii
			}
		}
		newRows = append(newRows, newRow)
	}

	csvRows.header = colNames
	csvRows.rows = newRows
	csvRows.dateCol = dateCol
	return csvRows
}

// Len returns the number of rows
func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// MockDBEodQuery expects the eod close query for ticker and answers it from fn
func MockDBEodQuery(db pgxmock.PgxConnIface, fn string, ticker string, since time.Time) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date, close FROM eod").WithArgs(ticker, pgxmock.AnyArg()).WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
			"close":      "float64",
		}).Where("ticker", ticker).Since(since).Columns("event_date", "close").Rows())
	db.ExpectCommit()
}

// MockDBSeriesQuery expects the persisted nav series query and answers it from fn
func MockDBSeriesQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date, series, value").WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
			"value":      "string",
		}).Rows())
	db.ExpectCommit()
}

// MockDBWeightsQuery expects the portfolio weights query and answers it from fn
func MockDBWeightsQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date, instrument_code, portfolio_name, weight").WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
		}).Rows())
	db.ExpectCommit()
}
