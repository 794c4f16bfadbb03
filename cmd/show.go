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
	"fmt"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

var ShowRows int
var ChartSeries string
var ChartHeight int
var ChartPoints int

func init() {
	showCmd.Flags().IntVarP(&ShowRows, "rows", "n", 10, "Number of rows to print")
	showCmd.Flags().StringVar(&ChartSeries, "chart", "", "Plot the named portfolio or benchmark")
	showCmd.Flags().IntVar(&ChartHeight, "chart-height", 15, "Height of the chart in lines")
	showCmd.Flags().IntVar(&ChartPoints, "chart-points", 120, "Number of most recent values to plot, 0 for all")
	rootCmd.AddCommand(showCmd)
}

// chart plots the last n points of the named column
func chart(series *portfolio.Series, name string, n, height int) (string, error) {
	if !series.HasColumn(name) {
		return "", fmt.Errorf("%q is not a column of the series", name)
	}
	points := series.Points(name)
	if n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	if len(points) == 0 {
		return "", fmt.Errorf("%q has no values", name)
	}

	vals := make([]float64, len(points))
	for idx, pt := range points {
		vals[idx] = pt.Value.InexactFloat64()
	}
	caption := fmt.Sprintf("%s %s to %s", name, points[0].Date.Format(common.DateFormat),
		points[len(points)-1].Date.Format(common.DateFormat))
	return asciigraph.Plot(vals, asciigraph.Height(height), asciigraph.Caption(caption)), nil
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the most recent rows of the published series",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		seriesStore, err := openStore(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("could not open store")
		}

		series, err := seriesStore.LoadSeries(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("could not load series")
		}
		if series.Empty() {
			fmt.Println("series is empty")
			return
		}

		fmt.Println(series.Tail(ShowRows).DataFrame().Table())

		if ChartSeries != "" {
			plot, err := chart(series, ChartSeries, ChartPoints, ChartHeight)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Println(plot)
		}
	},
}
