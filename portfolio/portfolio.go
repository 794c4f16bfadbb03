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
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
)

const DefaultAnchorDate = "2025-12-30"

// Portfolio is a tracked fund and the index value it is seeded with on the
// anchor date
type Portfolio struct {
	Name         string          `toml:"name"`
	InitialValue decimal.Decimal `toml:"initial_value"`
}

// Benchmark is a market index whose closing level is published next to the
// portfolio index values
type Benchmark struct {
	Name   string `toml:"name"`
	Symbol string `toml:"symbol"`
}

// Config is the static configuration of a run; it is immutable once built
type Config struct {
	Portfolios []*Portfolio
	Benchmarks []*Benchmark
	AnchorDate time.Time
	Location   *time.Location
}

type portfolioEntry struct {
	Name         string  `mapstructure:"name"`
	InitialValue float64 `mapstructure:"initial_value"`
}

type benchmarkEntry struct {
	Name   string `mapstructure:"name"`
	Symbol string `mapstructure:"symbol"`
}

// DefaultConfig returns the funds, benchmarks and anchor date the index was
// first published with
func DefaultConfig() *Config {
	anchor, _ := common.ParseDay(DefaultAnchorDate)
	return &Config{
		Portfolios: []*Portfolio{
			{Name: "트루밸류", InitialValue: decimal.RequireFromString("2021.31")},
			{Name: "Value ESG", InitialValue: decimal.RequireFromString("1980.49")},
			{Name: "자문형 랩", InitialValue: decimal.RequireFromString("1518.52")},
		},
		Benchmarks: []*Benchmark{
			{Name: "KOSPI", Symbol: "KS11"},
			{Name: "KOSDAQ", Symbol: "KQ11"},
		},
		AnchorDate: anchor,
		Location:   common.GetTimezone(),
	}
}

// ConfigFromViper builds the configuration from the `nav` section. Anything
// not configured falls back to DefaultConfig.
func ConfigFromViper() (*Config, error) {
	cfg := DefaultConfig()

	if s := viper.GetString("nav.anchor_date"); s != "" {
		anchor, err := common.ParseDay(s)
		if err != nil {
			return nil, fmt.Errorf("%w: nav.anchor_date %q: %w", ErrInvalidConfig, s, err)
		}
		cfg.AnchorDate = anchor
	}

	if viper.IsSet("nav.portfolios") {
		entries := make([]*portfolioEntry, 0)
		if err := viper.UnmarshalKey("nav.portfolios", &entries); err != nil {
			return nil, fmt.Errorf("%w: nav.portfolios: %w", ErrInvalidConfig, err)
		}
		cfg.Portfolios = make([]*Portfolio, 0, len(entries))
		for _, entry := range entries {
			cfg.Portfolios = append(cfg.Portfolios, &Portfolio{
				Name:         strings.TrimSpace(entry.Name),
				InitialValue: decimal.NewFromFloat(entry.InitialValue),
			})
		}
	}

	if viper.IsSet("nav.benchmarks") {
		entries := make([]*benchmarkEntry, 0)
		if err := viper.UnmarshalKey("nav.benchmarks", &entries); err != nil {
			return nil, fmt.Errorf("%w: nav.benchmarks: %w", ErrInvalidConfig, err)
		}
		cfg.Benchmarks = make([]*Benchmark, 0, len(entries))
		for _, entry := range entries {
			cfg.Benchmarks = append(cfg.Benchmarks, &Benchmark{
				Name:   strings.TrimSpace(entry.Name),
				Symbol: strings.TrimSpace(entry.Symbol),
			})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Int("NumPortfolios", len(cfg.Portfolios)).Int("NumBenchmarks", len(cfg.Benchmarks)).
		Time("AnchorDate", cfg.AnchorDate).Str("Timezone", cfg.Location.String()).Msg("loaded nav configuration")
	return cfg, nil
}

// Validate checks that names are present and unique across portfolios and
// benchmarks; they share the columns of the published series
func (cfg *Config) Validate() error {
	if len(cfg.Portfolios) == 0 {
		return fmt.Errorf("%w: no portfolios configured", ErrInvalidConfig)
	}
	if cfg.AnchorDate.IsZero() {
		return fmt.Errorf("%w: anchor date is not set", ErrInvalidConfig)
	}
	if cfg.Location == nil {
		return fmt.Errorf("%w: market timezone is not set", ErrInvalidConfig)
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Portfolios {
		if p.Name == "" {
			return fmt.Errorf("%w: portfolio without a name", ErrInvalidConfig)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate series name %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true
	}
	for _, b := range cfg.Benchmarks {
		if b.Name == "" || b.Symbol == "" {
			return fmt.Errorf("%w: benchmark requires a name and a symbol", ErrInvalidConfig)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate series name %q", ErrInvalidConfig, b.Name)
		}
		seen[b.Name] = true
	}

	return nil
}

// Portfolio returns the named portfolio or nil
func (cfg *Config) Portfolio(name string) *Portfolio {
	for _, p := range cfg.Portfolios {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SeriesNames returns the portfolio names followed by the benchmark names
func (cfg *Config) SeriesNames() []string {
	names := make([]string, 0, len(cfg.Portfolios)+len(cfg.Benchmarks))
	for _, p := range cfg.Portfolios {
		names = append(names, p.Name)
	}
	for _, b := range cfg.Benchmarks {
		names = append(names, b.Name)
	}
	return names
}
