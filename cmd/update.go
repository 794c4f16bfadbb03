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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

var ThroughDate string
var TailRows int

func init() {
	updateCmd.Flags().StringVar(&ThroughDate, "through", "", "Compute index values through this date (YYYY-MM-DD); defaults to yesterday")
	updateCmd.Flags().IntVar(&TailRows, "tail", 5, "Number of rows to print after the series is saved")
	rootCmd.AddCommand(updateCmd)
}

// runClock returns the wall clock a run should see. A through date D is
// reported as the first moment of D+1 so that D is the last computed day.
func runClock(through string) (time.Time, error) {
	tz := common.GetTimezone()
	if through == "" {
		return time.Now().In(tz), nil
	}
	dt, err := common.ParseDay(through)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(dt.Year(), dt.Month(), dt.Day()+1, 0, 0, 0, 0, tz), nil
}

// printResult writes the outcome of a run to stdout
func printResult(result *portfolio.Result, tail int) {
	if result.Outcome == portfolio.OutcomeNoop {
		fmt.Printf("nothing to update (%s): %s to %s\n", result.Reason,
			result.StartDate.Format(common.DateFormat), result.EndDate.Format(common.DateFormat))
		return
	}

	mode := "cold start"
	if result.IsContinuation {
		mode = "continuation"
	}
	fmt.Printf("saved %d new rows (%s from %s through %s)\n", result.Fresh.Len(), mode,
		result.StartDate.Format(common.DateFormat), result.EndDate.Format(common.DateFormat))
	for _, name := range result.Skipped {
		fmt.Printf("skipped %s: no weights\n", name)
	}
	if failed := result.Instruments.Failed(); len(failed) > 0 {
		fmt.Printf("%d instruments could not be downloaded\n", len(failed))
	}
	fmt.Println(result.Series.Tail(tail).DataFrame().Table())
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Extend the published series through yesterday",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		log.Info().Msg("initialized logging")

		defer startProfile()()

		ctx := context.Background()
		defer setupTracing(ctx)()

		now, err := runClock(ThroughDate)
		if err != nil {
			log.Fatal().Err(err).Str("InputStr", ThroughDate).Msg("could not parse through date - expected format 2006-01-02")
		}

		updater, err := newUpdater(ctx)
		if err != nil {
			log.Error().Err(err).Msg("could not setup update")
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		result, err := updater.Run(ctx, now)
		if err != nil {
			if errors.Is(err, portfolio.ErrSetup) {
				log.Error().Err(err).Msg("update failed before anything was computed")
			} else {
				log.Error().Err(err).Msg("update failed")
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		printResult(result, TailRows)
	},
}
