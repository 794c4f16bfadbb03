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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/observability/opentelemetry"
)

const DefaultTiingoURL = "https://api.tiingo.com"

type Tiingo struct {
	apikey  string
	baseURL string
	client  *http.Client
}

type tiingoJSONResponse struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Open     float64 `json:"open"`
	Volume   int64   `json:"volume"`
	AdjClose float64 `json:"adjClose"`
}

// NewTiingo Create a new Tiingo data provider
func NewTiingo(key string, baseURL string) *Tiingo {
	if baseURL == "" {
		baseURL = DefaultTiingoURL
	}
	return &Tiingo{
		apikey:  key,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// Provider functions

func (t *Tiingo) DataType() string {
	return "tiingo"
}

func (t *Tiingo) pricesURL(symbol string, begin time.Time) string {
	return fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&token=%s", t.baseURL, url.PathEscape(symbol), begin.Format(common.DateFormat), url.QueryEscape(t.apikey))
}

// GetSeries downloads the daily closes of symbol from begin and converts them to metric
func (t *Tiingo) GetSeries(ctx context.Context, symbol string, metric Metric, begin time.Time) ([]*Observation, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.GetSeries")
	defer span.End()

	subLog := log.With().Str("Symbol", symbol).Str("Metric", string(metric)).Time("Begin", begin).Logger()

	if metric != MetricClose && metric != MetricChange {
		span.SetStatus(codes.Error, "un-supported metric")
		return nil, ErrUnsupportedMetric
	}

	fetchFrom := lookbackStart(begin, metric)
	span.SetAttributes(
		attribute.String("Url", fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s", t.baseURL, symbol, fetchFrom.Format(common.DateFormat))),
		attribute.String("Symbol", symbol),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.pricesURL(symbol, fetchFrom), nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "tiingo http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		msg := "could not read tiingo body"
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Err(err).Msg(msg)
		return nil, err
	}

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))
		msg := "tiingo returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Int("HTTPResponseStatusCode", resp.StatusCode).Bytes("Body", body).Msg(msg)
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	jsonResp := []*tiingoJSONResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		span.RecordError(err)
		msg := "could not unmarshal json"
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Err(err).Bytes("Body", body).Msg(msg)
		return nil, err
	}

	closes := make([]*Observation, 0, len(jsonResp))
	for _, quote := range jsonResp {
		dtParts := strings.Split(quote.Date, "T")
		dt, err := time.Parse(common.DateFormat, dtParts[0])
		if err != nil {
			span.RecordError(err)
			subLog.Warn().Err(err).Str("DateStr", quote.Date).Msg("cannot parse date string")
			return nil, err
		}
		closes = append(closes, &Observation{
			Date:  common.Day(dt),
			Value: quote.Close,
		})
	}

	sort.Slice(closes, func(i, j int) bool {
		return closes[i].Date.Before(closes[j].Date)
	})

	subLog.Debug().Int("NumQuotes", len(closes)).Msg("loaded quotes from tiingo")
	return closesToMetric(closes, metric, begin)
}
