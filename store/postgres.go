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
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/data/database"
	"github.com/penny-vault/pv-nav/portfolio"
)

const (
	seriesSQL       = "SELECT event_date, series, value::text FROM nav_series ORDER BY event_date ASC, position ASC"
	deleteSeriesSQL = "DELETE FROM nav_series"
	insertSeriesSQL = "INSERT INTO nav_series (event_date, series, position, value) VALUES ($1, $2, $3, $4)"
	weightsSQL      = "SELECT event_date, instrument_code, portfolio_name, weight::text FROM portfolio_weights ORDER BY event_date ASC"
)

// Postgres keeps the published series in `nav_series`, one row per date and
// series, and reads weights from `portfolio_weights`. Column order is kept in
// the position column.
type Postgres struct{}

func NewPostgres() *Postgres {
	return &Postgres{}
}

func rollback(ctx context.Context, trx pgx.Tx) {
	if err := trx.Rollback(ctx); err != nil {
		log.Error().Err(err).Msg("could not rollback transaction")
	}
}

func (p *Postgres) LoadSeries(ctx context.Context) (*portfolio.Series, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	rows, err := trx.Query(ctx, seriesSQL)
	if err != nil {
		log.Error().Err(err).Str("Query", seriesSQL).Msg("could not load nav series")
		rollback(ctx, trx)
		return nil, err
	}

	series := portfolio.NewSeries()
	for rows.Next() {
		var dt time.Time
		var name string
		var raw string
		if err := rows.Scan(&dt, &name, &raw); err != nil {
			log.Error().Err(err).Msg("could not scan nav series row")
			rows.Close()
			rollback(ctx, trx)
			return nil, err
		}
		val, err := decimal.NewFromString(raw)
		if err != nil {
			rows.Close()
			rollback(ctx, trx)
			return nil, fmt.Errorf("%w: %s %s: %w", ErrInvalidValue, name, dt.Format(common.DateFormat), err)
		}
		series.Set(dt, name, val)
	}
	if err := rows.Err(); err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Debug().Int("NumRows", series.Len()).Msg("loaded nav series from database")
	return series, nil
}

// SaveSeries replaces the whole table inside a single transaction
func (p *Postgres) SaveSeries(ctx context.Context, series *portfolio.Series) error {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return err
	}

	if _, err := trx.Exec(ctx, deleteSeriesSQL); err != nil {
		log.Error().Err(err).Msg("could not clear nav series")
		rollback(ctx, trx)
		return err
	}

	numValues := 0
	for _, row := range series.Rows {
		for position, name := range series.Columns {
			val, ok := row.Values[name]
			if !ok {
				continue
			}
			if _, err := trx.Exec(ctx, insertSeriesSQL, row.Date, name, position, val.String()); err != nil {
				log.Error().Err(err).Time("Date", row.Date).Str("Series", name).Msg("could not insert nav value")
				rollback(ctx, trx)
				return err
			}
			numValues++
		}
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("could not commit nav series")
		return err
	}

	log.Info().Int("NumRows", series.Len()).Int("NumValues", numValues).Msg("saved nav series to database")
	return nil
}

func (p *Postgres) LoadWeights(ctx context.Context) ([]*portfolio.WeightRecord, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	rows, err := trx.Query(ctx, weightsSQL)
	if err != nil {
		log.Error().Err(err).Str("Query", weightsSQL).Msg("could not load weights")
		rollback(ctx, trx)
		return nil, err
	}

	records := make([]*portfolio.WeightRecord, 0)
	dropped := 0
	for rows.Next() {
		var dt time.Time
		var code, name, raw pgtype.Text
		if err := rows.Scan(&dt, &code, &name, &raw); err != nil {
			log.Error().Err(err).Msg("could not scan weight row")
			rows.Close()
			rollback(ctx, trx)
			return nil, err
		}

		if code.Status != pgtype.Present {
			dropped++
			continue
		}
		normalized, ok := portfolio.NormalizeCode(code.String)
		if !ok {
			dropped++
			continue
		}
		if raw.Status != pgtype.Present {
			log.Warn().Time("EventDate", dt).Str("Code", normalized).Msg("weight is null; ignoring row")
			dropped++
			continue
		}
		weight, err := decimal.NewFromString(raw.String)
		if err != nil {
			rows.Close()
			rollback(ctx, trx)
			return nil, fmt.Errorf("%w: weight of %s: %w", ErrInvalidValue, normalized, err)
		}

		records = append(records, &portfolio.WeightRecord{
			Portfolio:      name.String,
			EffectiveDate:  common.Day(dt),
			InstrumentCode: normalized,
			WeightPercent:  weight,
		})
	}
	if err := rows.Err(); err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Int("NumRecords", len(records)).Int("NumDropped", dropped).Msg("loaded weight records from database")
	return records, nil
}
