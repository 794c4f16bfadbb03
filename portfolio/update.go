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
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-nav/data"
	"github.com/penny-vault/pv-nav/observability/opentelemetry"
)

// SeriesStore reads and replaces the published series. Load returns an empty
// series when nothing has been published yet.
type SeriesStore interface {
	LoadSeries(ctx context.Context) (*Series, error)
	SaveSeries(ctx context.Context, series *Series) error
}

// WeightSource reads every weight record of every portfolio
type WeightSource interface {
	LoadWeights(ctx context.Context) ([]*WeightRecord, error)
}

// Notifier is told about every run that wrote to the store
type Notifier interface {
	SeriesUpdated(ctx context.Context, result *Result) error
}

type Outcome string

const (
	OutcomeNoop      Outcome = "NOOP"
	OutcomePersisted Outcome = "PERSISTED"
)

// Result summarizes a run
type Result struct {
	RunID          uuid.UUID
	Outcome        Outcome
	Reason         string
	StartDate      time.Time
	EndDate        time.Time
	IsContinuation bool

	// Computed is the number of rows produced per portfolio
	Computed map[string]int
	Skipped  []string

	Instruments *data.FetchReport
	Benchmarks  *data.FetchReport

	// Fresh holds the rows computed by this run and Series the merged table
	// that was saved
	Fresh  *Series
	Series *Series
}

// Updater extends the published series with every trading day since it was
// last updated
type Updater struct {
	Config   *Config
	Store    SeriesStore
	Weights  WeightSource
	Provider data.Provider
	Notifier Notifier
}

func (u *Updater) noop(result *Result, reason string) *Result {
	result.Outcome = OutcomeNoop
	result.Reason = reason
	log.Info().Str("RunID", result.RunID.String()).Str("Reason", reason).Msg("nothing to update")
	return result
}

// Run performs a single update. now is the wall clock time of the run and
// determines the last date that is computed. Only setup problems and a failed
// save are returned as errors; a run with nothing to do is an OutcomeNoop.
func (u *Updater) Run(ctx context.Context, now time.Time) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "portfolio.Updater.Run")
	defer span.End()

	result := &Result{
		RunID:    uuid.New(),
		Computed: make(map[string]int),
		Skipped:  make([]string, 0),
	}
	span.SetAttributes(attribute.String("RunID", result.RunID.String()))

	subLog := log.With().Str("RunID", result.RunID.String()).Logger()

	old, err := u.Store.LoadSeries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load series")
		subLog.Error().Stack().Err(err).Msg("could not load published series")
		return nil, fmt.Errorf("%w: load series: %w", ErrSetup, err)
	}
	if old == nil {
		old = NewSeries()
	}

	state, err := Resume(old, u.Config, now)
	result.StartDate = state.StartDate
	result.EndDate = state.EndDate
	result.IsContinuation = state.IsContinuation
	span.SetAttributes(
		attribute.String("StartDate", state.StartDate.Format("2006-01-02")),
		attribute.String("EndDate", state.EndDate.Format("2006-01-02")),
		attribute.Bool("IsContinuation", state.IsContinuation),
	)
	subLog = subLog.With().Time("StartDate", state.StartDate).Time("EndDate", state.EndDate).Bool("IsContinuation", state.IsContinuation).Logger()
	if errors.Is(err, ErrUpToDate) {
		return u.noop(result, "already up to date"), nil
	}

	records, err := u.Weights.LoadWeights(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not load weights")
		subLog.Error().Stack().Err(err).Msg("could not load weight records")
		return nil, fmt.Errorf("%w: load weights: %w", ErrSetup, err)
	}
	if len(records) == 0 {
		span.SetStatus(codes.Error, "no weights")
		return nil, fmt.Errorf("%w: %w", ErrSetup, ErrNoWeights)
	}

	groups := GroupWeights(records)
	tables := make(map[string]*WeightTable, len(u.Config.Portfolios))
	for _, p := range u.Config.Portfolios {
		if recs, ok := groups[p.Name]; ok {
			tables[p.Name] = NewWeightTable(recs)
		}
	}

	result.Instruments = data.Fetch(ctx, u.Provider, instrumentCodes(tables), data.MetricChange, state.StartDate)
	result.Instruments.Log(subLog)

	symbols := make([]string, 0, len(u.Config.Benchmarks))
	for _, b := range u.Config.Benchmarks {
		symbols = append(symbols, b.Symbol)
	}
	result.Benchmarks = data.Fetch(ctx, u.Provider, symbols, data.MetricClose, state.StartDate)
	result.Benchmarks.Log(subLog)

	levels := make(map[string][]*data.Observation)
	bySymbol := result.Benchmarks.Series()
	for _, b := range u.Config.Benchmarks {
		if obs, ok := bySymbol[b.Symbol]; ok {
			levels[b.Name] = obs
		}
	}

	changes := data.NewPriceChangeTable(result.Instruments.Series(), levels, state.EndDate)
	if changes.Empty() {
		return u.noop(result, "no price data for the window"), nil
	}

	calcDates := changes.CalcDates(state.StartDate)
	if len(calcDates) == 0 {
		return u.noop(result, "no new trading days"), nil
	}
	subLog.Info().Int("NumCalcDates", len(calcDates)).Time("FirstCalcDate", calcDates[0]).Time("LastCalcDate", calcDates[len(calcDates)-1]).Msg("computing index values")

	fresh := NewSeries()
	for _, p := range u.Config.Portfolios {
		table, ok := tables[p.Name]
		if !ok {
			subLog.Warn().Str("Portfolio", p.Name).Msg("portfolio has no weight records; skipping")
			result.Skipped = append(result.Skipped, p.Name)
			continue
		}

		points := Compound(&CompoundInput{
			Seed:           state.Seeds[p.Name],
			StartDate:      state.StartDate,
			IsContinuation: state.IsContinuation,
			CalcDates:      calcDates,
			Weights:        table,
			Changes:        changes,
		})
		for _, pt := range points {
			fresh.Set(pt.Date, p.Name, pt.Value)
		}
		result.Computed[p.Name] = len(points)

		if len(points) > 0 {
			last := points[len(points)-1]
			subLog.Info().Str("Portfolio", p.Name).Int("NumPoints", len(points)).Time("LastDate", last.Date).Str("LastValue", last.Value.StringFixed(OutputPlaces)).Msg("compounded portfolio")
		}
	}

	if len(result.Computed) == 0 {
		return u.noop(result, "no configured portfolio has weights"), nil
	}

	joinBenchmarks(fresh, changes, u.Config.Benchmarks)
	result.Fresh = fresh
	result.Series = Merge(old, fresh)

	if err := u.Store.SaveSeries(ctx, result.Series); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not save series")
		subLog.Error().Stack().Err(err).Msg("could not save series")
		return result, err
	}

	result.Outcome = OutcomePersisted
	subLog.Info().Int("NumFreshRows", fresh.Len()).Int("NumRows", result.Series.Len()).Msg("series saved")

	if u.Notifier != nil {
		if err := u.Notifier.SeriesUpdated(ctx, result); err != nil {
			subLog.Warn().Err(err).Msg("could not send series updated notification")
		}
	}

	return result, nil
}

// instrumentCodes returns the sorted, distinct codes held by any table
func instrumentCodes(tables map[string]*WeightTable) []string {
	seen := make(map[string]bool)
	instruments := make([]string, 0)
	for _, table := range tables {
		for _, code := range table.Instruments() {
			if !seen[code] {
				seen[code] = true
				instruments = append(instruments, code)
			}
		}
	}
	sort.Strings(instruments)
	return instruments
}

// joinBenchmarks adds the benchmark levels of every date already in fresh
func joinBenchmarks(fresh *Series, changes *data.PriceChangeTable, benchmarks []*Benchmark) {
	available := make(map[string]bool)
	for _, name := range changes.Benchmarks() {
		available[name] = true
	}

	for _, b := range benchmarks {
		if !available[b.Name] {
			continue
		}
		fresh.AddColumn(b.Name)
		for _, row := range fresh.Rows {
			if level, ok := changes.Level(b.Name, row.Date); ok {
				row.Values[b.Name] = decimal.NewFromFloat(level)
			}
		}
	}
}
