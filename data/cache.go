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
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"

	"github.com/penny-vault/pv-nav/common"
)

// CachedProvider memoizes another provider's series in the common cache.
// Entries are keyed by the day they were fetched so a new trading day always
// misses.
type CachedProvider struct {
	provider Provider
	now      func() time.Time
}

func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		now:      time.Now,
	}
}

func (cp *CachedProvider) DataType() string {
	return cp.provider.DataType()
}

func (cp *CachedProvider) cacheKey(symbol string, metric Metric, begin time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s:%s:%s", cp.provider.DataType(), symbol, metric,
		begin.Format(common.DateFormat), cp.now().Format(common.DateFormat))
	sum := blake3.Sum256([]byte(raw))
	return "series:" + hex.EncodeToString(sum[:])
}

func (cp *CachedProvider) GetSeries(ctx context.Context, symbol string, metric Metric, begin time.Time) ([]*Observation, error) {
	key := cp.cacheKey(symbol, metric, begin)
	subLog := log.With().Str("Symbol", symbol).Str("Metric", string(metric)).Str("CacheKey", key).Logger()

	if cached, err := common.CacheGet(ctx, key); err == nil {
		series := make([]*Observation, 0)
		if err := json.Unmarshal(cached, &series); err == nil {
			subLog.Debug().Int("NumObservations", len(series)).Msg("series loaded from cache")
			return series, nil
		}
		subLog.Warn().Err(err).Msg("could not decode cached series")
	}

	series, err := cp.provider.GetSeries(ctx, symbol, metric, begin)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(series)
	if err != nil {
		subLog.Warn().Err(err).Msg("could not encode series for cache")
		return series, nil
	}

	if err := common.CacheSet(ctx, key, encoded); err != nil {
		subLog.Warn().Err(err).Msg("could not save series to cache")
	}

	return series, nil
}
