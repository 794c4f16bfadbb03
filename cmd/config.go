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

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

type navSection struct {
	AnchorDate string                 `toml:"anchor_date"`
	Portfolios []*portfolio.Portfolio `toml:"portfolios"`
	Benchmarks []*portfolio.Benchmark `toml:"benchmarks"`
}

type storeSection struct {
	Kind         string `toml:"kind"`
	Path         string `toml:"path,omitempty"`
	Sheet        string `toml:"sheet,omitempty"`
	WeightsSheet string `toml:"weights_sheet,omitempty"`
}

type marketSection struct {
	Timezone string   `toml:"timezone"`
	Holidays []string `toml:"holidays,omitempty"`
}

type effectiveConfig struct {
	Schedule string        `toml:"schedule"`
	Provider string        `toml:"provider"`
	Store    storeSection  `toml:"store"`
	Market   marketSection `toml:"market"`
	Nav      navSection    `toml:"nav"`
}

// buildEffectiveConfig collects the settings a run would use
func buildEffectiveConfig() (*effectiveConfig, error) {
	cfg, err := portfolio.ConfigFromViper()
	if err != nil {
		return nil, err
	}

	schedule := viper.GetString("schedule")
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &effectiveConfig{
		Schedule: schedule,
		Provider: viper.GetString("data.provider"),
		Store: storeSection{
			Kind:         viper.GetString("store.kind"),
			Path:         viper.GetString("store.path"),
			Sheet:        viper.GetString("store.sheet"),
			WeightsSheet: viper.GetString("store.weights_sheet"),
		},
		Market: marketSection{
			Timezone: cfg.Location.String(),
			Holidays: viper.GetStringSlice("market.holidays"),
		},
		Nav: navSection{
			AnchorDate: cfg.AnchorDate.Format(common.DateFormat),
			Portfolios: cfg.Portfolios,
			Benchmarks: cfg.Benchmarks,
		},
	}, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		effective, err := buildEffectiveConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		out, err := toml.Marshal(effective)
		if err != nil {
			log.Fatal().Err(err).Msg("could not serialize configuration")
		}
		fmt.Print(string(out))
	},
}
