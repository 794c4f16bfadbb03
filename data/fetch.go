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
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/penny-vault/pv-nav/observability/opentelemetry"
)

// fetchConcurrency is the number of symbols downloaded at once
const fetchConcurrency = 10

// FetchResult is the outcome of fetching a single symbol: either the series
// (possibly empty) or the reason the fetch failed
type FetchResult struct {
	Symbol string
	Metric Metric
	Series []*Observation
	Err    error
}

// Ok returns true if the symbol was fetched without error
func (fr *FetchResult) Ok() bool {
	return fr.Err == nil
}

// FetchReport collects the per-symbol results of a fetch, ordered by symbol
type FetchReport struct {
	Metric  Metric
	Begin   time.Time
	Results []*FetchResult
}

// Succeeded returns the results that were fetched without error
func (report *FetchReport) Succeeded() []*FetchResult {
	res := make([]*FetchResult, 0, len(report.Results))
	for _, r := range report.Results {
		if r.Ok() {
			res = append(res, r)
		}
	}
	return res
}

// Failed returns the results that could not be fetched
func (report *FetchReport) Failed() []*FetchResult {
	res := make([]*FetchResult, 0)
	for _, r := range report.Results {
		if !r.Ok() {
			res = append(res, r)
		}
	}
	return res
}

// Series returns the successfully fetched, non-empty series keyed by symbol
func (report *FetchReport) Series() map[string][]*Observation {
	res := make(map[string][]*Observation, len(report.Results))
	for _, r := range report.Results {
		if r.Ok() && len(r.Series) > 0 {
			res[r.Symbol] = r.Series
		}
	}
	return res
}

// Log writes a warning for each failed symbol and a summary of the fetch
func (report *FetchReport) Log(logger zerolog.Logger) {
	failed := report.Failed()
	for _, r := range failed {
		logger.Warn().Err(r.Err).Str("Symbol", r.Symbol).Str("Metric", string(r.Metric)).Msg("could not fetch symbol; treating as no data")
	}
	logger.Info().Str("Metric", string(report.Metric)).Int("NumSymbols", len(report.Results)).Int("NumFailed", len(failed)).Int("NumWithData", len(report.Series())).Msg("fetch complete")
}

// Fetch downloads every symbol from provider concurrently. Failures are captured
// per symbol in the returned report and never abort the other downloads.
func Fetch(ctx context.Context, provider Provider, symbols []string, metric Metric, begin time.Time) *FetchReport {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "data.Fetch")
	defer span.End()

	span.SetAttributes(
		attribute.String("Provider", provider.DataType()),
		attribute.String("Metric", string(metric)),
		attribute.Int("NumSymbols", len(symbols)),
	)

	subLog := log.With().Str("Provider", provider.DataType()).Str("Metric", string(metric)).Time("Begin", begin).Logger()

	report := &FetchReport{
		Metric:  metric,
		Begin:   begin,
		Results: make([]*FetchResult, 0, len(symbols)),
	}

	ch := make(chan *FetchResult)
	chunks := partitionArray(dedupe(symbols), fetchConcurrency)
	for idx, chunk := range chunks {
		subLog.Debug().Int("Chunk", idx).Int("TotalChunks", len(chunks)).Msg("fetch chunk")
		for ii := range chunk {
			go downloadWorker(ctx, ch, provider, chunk[ii], metric, begin)
		}

		for range chunk {
			report.Results = append(report.Results, <-ch)
		}
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Symbol < report.Results[j].Symbol
	})

	span.SetAttributes(attribute.Int("NumFailed", len(report.Failed())))
	return report
}

func downloadWorker(ctx context.Context, result chan<- *FetchResult, provider Provider, symbol string, metric Metric, begin time.Time) {
	series, err := provider.GetSeries(ctx, symbol, metric, begin)
	result <- &FetchResult{
		Symbol: symbol,
		Metric: metric,
		Series: series,
		Err:    err,
	}
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	res := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		res = append(res, s)
	}
	return res
}
