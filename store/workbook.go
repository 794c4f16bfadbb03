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

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

const (
	DefaultSeriesSheet  = "기준가"
	DefaultWeightsSheet = "NEW"
	DateHeader          = "Date"
)

var (
	dateHeaders      = []string{"날짜", "date", "effective_date"}
	codeHeaders      = []string{"코드", "instrument_code", "code"}
	portfolioHeaders = []string{"상품명", "portfolio_name", "portfolio"}
	weightHeaders    = []string{"비중", "weight", "weight_percent"}
)

// Workbook keeps the published series and the weight input in a single xlsx
// file. Saving replaces the series sheet and leaves every other sheet as is.
type Workbook struct {
	Path         string
	SeriesSheet  string
	WeightsSheet string

	locker sync.Mutex
}

// NewWorkbook returns a workbook store; blank sheet names use the defaults
func NewWorkbook(path, seriesSheet, weightsSheet string) *Workbook {
	if seriesSheet == "" {
		seriesSheet = DefaultSeriesSheet
	}
	if weightsSheet == "" {
		weightsSheet = DefaultWeightsSheet
	}
	return &Workbook{
		Path:         path,
		SeriesSheet:  seriesSheet,
		WeightsSheet: weightsSheet,
	}
}

func (wb *Workbook) open() (*xlsx.File, error) {
	if _, err := os.Stat(wb.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorkbookNotFound, wb.Path)
		}
		return nil, err
	}

	f, err := xlsx.OpenFile(wb.Path)
	if err != nil {
		log.Error().Err(err).Str("Path", wb.Path).Msg("could not open workbook")
		return nil, err
	}
	return f, nil
}

// LoadSeries reads the series sheet. A missing or empty sheet is an empty
// series; a missing workbook is an error.
func (wb *Workbook) LoadSeries(ctx context.Context) (*portfolio.Series, error) {
	wb.locker.Lock()
	defer wb.locker.Unlock()

	f, err := wb.open()
	if err != nil {
		return nil, err
	}

	sheet, ok := f.Sheet[wb.SeriesSheet]
	if !ok {
		log.Info().Str("Path", wb.Path).Str("Sheet", wb.SeriesSheet).Msg("series sheet does not exist yet")
		return portfolio.NewSeries(), nil
	}

	return readSeries(sheet, f.Date1904)
}

func readSeries(sheet *xlsx.Sheet, date1904 bool) (*portfolio.Series, error) {
	series := portfolio.NewSeries()
	var header []string
	dateCol := 0
	rowNum := 0

	err := sheet.ForEachRow(func(row *xlsx.Row) error {
		rowNum++
		if header == nil {
			var err error
			if header, err = rowStrings(row); err != nil {
				return err
			}
			for idx, name := range header {
				if name == DateHeader {
					dateCol = idx
				}
			}
			for idx, name := range header {
				if idx != dateCol && name != "" {
					series.AddColumn(name)
				}
			}
			return nil
		}

		dateCell := row.GetCell(dateCol)
		if strings.TrimSpace(dateCell.Value) == "" {
			return nil
		}
		dt, err := cellDate(dateCell, date1904)
		if err != nil {
			return fmt.Errorf("%w: sheet %s row %d: %w", ErrInvalidDate, sheet.Name, rowNum, err)
		}

		for idx, name := range header {
			if idx == dateCol || name == "" {
				continue
			}
			val, ok, err := cellDecimal(row.GetCell(idx))
			if err != nil {
				return fmt.Errorf("%w: sheet %s row %d column %s: %w", ErrInvalidValue, sheet.Name, rowNum, name, err)
			}
			if ok {
				series.Set(dt, name, val)
			}
		}
		return nil
	}, xlsx.SkipEmptyRows)
	if err != nil {
		log.Error().Err(err).Str("Sheet", sheet.Name).Msg("could not read series sheet")
		return nil, err
	}

	return series, nil
}

// SaveSeries replaces the series sheet. The workbook is written to a
// temporary file first and renamed over the original.
func (wb *Workbook) SaveSeries(ctx context.Context, series *portfolio.Series) error {
	wb.locker.Lock()
	defer wb.locker.Unlock()

	f, err := wb.open()
	if err != nil {
		return err
	}

	sheet, err := xlsx.NewSheet(wb.SeriesSheet)
	if err != nil {
		return err
	}
	sheet.File = f

	header := sheet.AddRow()
	header.AddCell().SetString(DateHeader)
	for _, col := range series.Columns {
		header.AddCell().SetString(col)
	}

	dateOpts := xlsx.DateTimeOptions{Location: time.UTC, ExcelTimeFormat: "yyyy-mm-dd"}
	for _, r := range series.Rows {
		row := sheet.AddRow()
		row.AddCell().SetDateWithOptions(r.Date, dateOpts)
		for _, col := range series.Columns {
			cell := row.AddCell()
			if val, ok := r.Values[col]; ok {
				cell.SetFloatWithFormat(val.InexactFloat64(), "0.00")
			}
		}
	}

	replaced := false
	for idx, existing := range f.Sheets {
		if existing.Name == wb.SeriesSheet {
			f.Sheets[idx] = sheet
			replaced = true
		}
	}
	if !replaced {
		f.Sheets = append(f.Sheets, sheet)
	}
	f.Sheet[wb.SeriesSheet] = sheet

	tmp := filepath.Join(filepath.Dir(wb.Path), fmt.Sprintf(".%s.tmp", filepath.Base(wb.Path)))
	if err := f.Save(tmp); err != nil {
		log.Error().Err(err).Str("Path", tmp).Msg("could not write workbook")
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, wb.Path); err != nil {
		log.Error().Err(err).Str("Path", wb.Path).Msg("could not replace workbook")
		return err
	}

	log.Info().Str("Path", wb.Path).Str("Sheet", wb.SeriesSheet).Int("NumRows", series.Len()).Msg("saved series to workbook")
	return nil
}

// LoadWeights reads the weight sheet: the configured sheet if it exists,
// otherwise the first sheet that is not the series sheet
func (wb *Workbook) LoadWeights(ctx context.Context) ([]*portfolio.WeightRecord, error) {
	wb.locker.Lock()
	defer wb.locker.Unlock()

	f, err := wb.open()
	if err != nil {
		return nil, err
	}

	sheet, ok := f.Sheet[wb.WeightsSheet]
	if !ok {
		for _, s := range f.Sheets {
			if s.Name != wb.SeriesSheet {
				sheet = s
				break
			}
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoWeightSheet, wb.Path)
	}

	return readWeights(sheet, f.Date1904)
}

func readWeights(sheet *xlsx.Sheet, date1904 bool) ([]*portfolio.WeightRecord, error) {
	subLog := log.With().Str("Sheet", sheet.Name).Logger()
	records := make([]*portfolio.WeightRecord, 0)

	var dateCol, codeCol, portfolioCol, weightCol int
	haveHeader := false
	rowNum := 0
	dropped := 0

	err := sheet.ForEachRow(func(row *xlsx.Row) error {
		rowNum++
		if !haveHeader {
			header, err := rowStrings(row)
			if err != nil {
				return err
			}
			if dateCol, err = findColumn(header, dateHeaders); err != nil {
				return err
			}
			if codeCol, err = findColumn(header, codeHeaders); err != nil {
				return err
			}
			if portfolioCol, err = findColumn(header, portfolioHeaders); err != nil {
				return err
			}
			if weightCol, err = findColumn(header, weightHeaders); err != nil {
				return err
			}
			haveHeader = true
			return nil
		}

		code, ok := portfolio.NormalizeCode(row.GetCell(codeCol).String())
		if !ok {
			dropped++
			return nil
		}

		dateCell := row.GetCell(dateCol)
		if strings.TrimSpace(dateCell.Value) == "" {
			subLog.Warn().Int("Row", rowNum).Str("Code", code).Msg("effective date is blank; ignoring row")
			dropped++
			return nil
		}
		dt, err := cellDate(dateCell, date1904)
		if err != nil {
			return fmt.Errorf("%w: sheet %s row %d: %w", ErrInvalidDate, sheet.Name, rowNum, err)
		}

		weight, ok, err := cellDecimal(row.GetCell(weightCol))
		if err != nil {
			return fmt.Errorf("%w: sheet %s row %d: %w", ErrInvalidValue, sheet.Name, rowNum, err)
		}
		if !ok {
			subLog.Warn().Int("Row", rowNum).Str("Code", code).Msg("weight is blank; ignoring row")
			dropped++
			return nil
		}

		records = append(records, &portfolio.WeightRecord{
			Portfolio:      strings.TrimSpace(row.GetCell(portfolioCol).String()),
			EffectiveDate:  dt,
			InstrumentCode: code,
			WeightPercent:  weight,
		})
		return nil
	}, xlsx.SkipEmptyRows)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read weights")
		return nil, err
	}
	if !haveHeader {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrMissingColumn, sheet.Name)
	}

	subLog.Info().Int("NumRecords", len(records)).Int("NumDropped", dropped).Msg("loaded weight records")
	return records, nil
}

func rowStrings(row *xlsx.Row) ([]string, error) {
	res := make([]string, 0)
	err := row.ForEachCell(func(cell *xlsx.Cell) error {
		res = append(res, strings.TrimSpace(cell.String()))
		return nil
	})
	return res, err
}

func findColumn(header []string, names []string) (int, error) {
	for idx, col := range header {
		for _, name := range names {
			if strings.EqualFold(col, name) {
				return idx, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(names, "|"))
}

func cellDate(cell *xlsx.Cell, date1904 bool) (time.Time, error) {
	if cell.IsTime() {
		dt, err := cell.GetTime(date1904)
		if err != nil {
			return time.Time{}, err
		}
		return common.Day(dt), nil
	}

	if cell.Type() == xlsx.CellTypeNumeric {
		f, err := cell.Float()
		if err != nil {
			return time.Time{}, err
		}
		return common.Day(xlsx.TimeFromExcelTime(f, date1904)), nil
	}

	return common.ParseDay(cell.String())
}

// cellDecimal returns false for blank cells
func cellDecimal(cell *xlsx.Cell) (decimal.Decimal, bool, error) {
	raw := strings.TrimSpace(cell.Value)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return decimal.Zero, false, nil
	}
	val, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, false, err
	}
	return val, true, nil
}
