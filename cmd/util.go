// Copyright 2021 JD Fergason
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

package cmd

import (
	"context"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/data"
	"github.com/penny-vault/pv-nav/data/database"
	"github.com/penny-vault/pv-nav/messenger"
	"github.com/penny-vault/pv-nav/observability/opentelemetry"
	"github.com/penny-vault/pv-nav/portfolio"
	"github.com/penny-vault/pv-nav/store"
)

// startProfile begins CPU profiling when --cpu-profile is set; the returned
// function stops it
func startProfile() func() {
	if !Profile {
		return func() {}
	}
	f, err := os.Create("profile.out")
	if err != nil {
		log.Fatal().Err(err).Msg("could not create profile output file")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		log.Fatal().Err(err).Msg("could not start CPU profile")
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}
}

// setupTracing registers the OTLP exporter when one is configured
func setupTracing(ctx context.Context) func() {
	if !opentelemetry.Enabled() {
		return func() {}
	}
	shutdown, err := opentelemetry.Setup(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not setup tracing; continuing without it")
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	}
}

// needsDatabase returns true when the configured store or provider reads from
// PostgreSQL
func needsDatabase() bool {
	return viper.GetString("store.kind") == store.KindPostgres || viper.GetString("data.provider") == "pvdb"
}

// openStore connects to the database when needed and returns the configured
// series store
func openStore(ctx context.Context) (store.Store, error) {
	if needsDatabase() && !database.Connected() {
		if err := database.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return store.FromViper()
}

// newUpdater wires the configured store, provider and notifier together
func newUpdater(ctx context.Context) (*portfolio.Updater, error) {
	if err := common.SetupCache(); err != nil {
		log.Warn().Err(err).Msg("could not setup cache; downloads will not be cached")
	}

	cfg, err := portfolio.ConfigFromViper()
	if err != nil {
		return nil, err
	}

	seriesStore, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := data.NewManager().Provider(viper.GetString("data.provider"))
	if err != nil {
		return nil, err
	}

	updater := &portfolio.Updater{
		Config:   cfg,
		Store:    seriesStore,
		Weights:  seriesStore,
		Provider: provider,
	}

	if messenger.Enabled() {
		if err := messenger.Initialize(); err != nil {
			log.Warn().Err(err).Msg("could not connect to NATS; updates will not be announced")
		} else if notifier, err := messenger.NewSeriesNotifier(); err == nil {
			updater.Notifier = notifier
		}
	}

	return updater, nil
}
