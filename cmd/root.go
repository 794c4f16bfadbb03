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
	"fmt"
	"os"

	"github.com/penny-vault/pv-nav/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool

func init() {
	// Logging configuration
	viper.BindEnv("log.level", "PVNAV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "PVNAV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "PVNAV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "PVNAV_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Write human readable log lines instead of JSON")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Series store
	viper.BindEnv("store.kind", "PVNAV_STORE")
	rootCmd.PersistentFlags().String("store", "workbook", "Where the series is kept: `workbook` or `postgres`")
	viper.BindPFlag("store.kind", rootCmd.PersistentFlags().Lookup("store"))

	viper.BindEnv("store.path", "PVNAV_WORKBOOK")
	rootCmd.PersistentFlags().String("workbook", "", "Path of the xlsx workbook holding the series and the weights")
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("workbook"))

	rootCmd.PersistentFlags().String("sheet", "", "Name of the sheet holding the series")
	viper.BindPFlag("store.sheet", rootCmd.PersistentFlags().Lookup("sheet"))

	rootCmd.PersistentFlags().String("weights-sheet", "", "Name of the sheet holding the weights")
	viper.BindPFlag("store.weights_sheet", rootCmd.PersistentFlags().Lookup("weights-sheet"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Market data
	viper.BindEnv("data.provider", "PVNAV_PROVIDER")
	rootCmd.PersistentFlags().String("provider", "tiingo", "Market data provider: `tiingo` or `pvdb`")
	viper.BindPFlag("data.provider", rootCmd.PersistentFlags().Lookup("provider"))

	viper.BindEnv("tiingo.token", "TIINGO_TOKEN")
	rootCmd.PersistentFlags().String("tiingo-token", "", "Tiingo API token")
	viper.BindPFlag("tiingo.token", rootCmd.PersistentFlags().Lookup("tiingo-token"))

	viper.BindEnv("tiingo.url", "TIINGO_URL")
	rootCmd.PersistentFlags().String("tiingo-url", "", "Override the Tiingo API base URL")
	viper.BindPFlag("tiingo.url", rootCmd.PersistentFlags().Lookup("tiingo-url"))

	viper.BindEnv("market.timezone", "PVNAV_TIMEZONE")
	rootCmd.PersistentFlags().String("timezone", common.DefaultTimezone, "Timezone of the market the portfolios trade in")
	viper.BindPFlag("market.timezone", rootCmd.PersistentFlags().Lookup("timezone"))

	rootCmd.PersistentFlags().String("anchor-date", "", "First date of the index when the series is empty (YYYY-MM-DD)")
	viper.BindPFlag("nav.anchor_date", rootCmd.PersistentFlags().Lookup("anchor-date"))

	// Cache
	rootCmd.PersistentFlags().Int("cache-local-size", common.DefaultLocalCacheSize, "Number of downloads kept in the in-process cache")
	viper.BindPFlag("cache.local_size", rootCmd.PersistentFlags().Lookup("cache-local-size"))

	rootCmd.PersistentFlags().Bool("cache-redis", false, "Share downloads through redis")
	viper.BindPFlag("cache.redis", rootCmd.PersistentFlags().Lookup("cache-redis"))

	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("cache-redis-url", "redis://localhost:6379/0", "Redis connection string")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("cache-redis-url"))

	rootCmd.PersistentFlags().Int("cache-ttl", 3600, "Seconds a cached download is valid for")
	viper.BindPFlag("cache.ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))

	// Notifications
	viper.BindEnv("nats.server", "NATS_SERVER")
	rootCmd.PersistentFlags().String("nats-server", "", "NATS server to announce updates on, if blank don't announce")
	viper.BindPFlag("nats.server", rootCmd.PersistentFlags().Lookup("nats-server"))

	viper.BindEnv("nats.credentials", "NATS_CREDENTIALS")
	rootCmd.PersistentFlags().String("nats-credentials", "", "NATS user credentials file")
	viper.BindPFlag("nats.credentials", rootCmd.PersistentFlags().Lookup("nats-credentials"))

	rootCmd.PersistentFlags().String("nats-subject", "nav.series.updated", "Subject series updates are published on")
	viper.BindPFlag("nats.subject", rootCmd.PersistentFlags().Lookup("nats-subject"))

	// Tracing
	viper.BindEnv("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OpenTelemetry collector endpoint, if blank tracing is disabled")
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	rootCmd.PersistentFlags().Bool("otlp-http", false, "Connect to the collector with HTTP instead of gRPC")
	viper.BindPFlag("otlp.http", rootCmd.PersistentFlags().Lookup("otlp-http"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
}

var rootCmd = &cobra.Command{
	Use:     "pvnav",
	Version: common.CurrentVersion.String(),
	Short:   "Compute the daily base price of model portfolios",
	Long: `pvnav extends a published table of daily index values (base prices) for a
set of model portfolios. Each trading day the weighted price change of the
holdings is compounded onto the previous value and the closing levels of the
benchmark indices are stored alongside.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
