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

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/data/database"
	"github.com/penny-vault/pv-nav/observability/opentelemetry"
)

const eodSQL = "SELECT event_date, close FROM eod WHERE ticker=$1 AND event_date >= $2 ORDER BY event_date ASC"

// PvDb reads end-of-day closes from the `eod` table
type PvDb struct{}

func NewPvDb() *PvDb {
	return &PvDb{}
}

func (p *PvDb) DataType() string {
	return "pvdb"
}

func (p *PvDb) GetSeries(ctx context.Context, symbol string, metric Metric, begin time.Time) ([]*Observation, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.GetSeries")
	defer span.End()

	span.SetAttributes(attribute.String("Symbol", symbol), attribute.String("Metric", string(metric)))
	subLog := log.With().Str("Symbol", symbol).Str("Metric", string(metric)).Time("Begin", begin).Logger()

	if metric != MetricClose && metric != MetricChange {
		span.SetStatus(codes.Error, "un-supported metric")
		return nil, ErrUnsupportedMetric
	}

	if !database.Connected() {
		return nil, ErrDatabaseUnavailable
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		subLog.Error().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	rows, err := trx.Query(ctx, eodSQL, symbol, lookbackStart(begin, metric))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "eod query failed")
		subLog.Warn().Err(err).Str("Query", eodSQL).Msg("eod query failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	closes := make([]*Observation, 0, 64)
	for rows.Next() {
		var dt time.Time
		var val float64
		if err := rows.Scan(&dt, &val); err != nil {
			span.RecordError(err)
			subLog.Warn().Err(err).Msg("could not scan eod row")
			rows.Close()
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		closes = append(closes, &Observation{
			Date:  common.Day(dt),
			Value: val,
		})
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		subLog.Warn().Err(err).Msg("eod query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Err(err).Msg("could not commit transaction")
		return nil, err
	}

	return closesToMetric(closes, metric, begin)
}
