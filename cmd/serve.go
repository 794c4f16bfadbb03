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
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/handler"
	"github.com/penny-vault/pv-nav/messenger"
	"github.com/penny-vault/pv-nav/middleware"
	"github.com/penny-vault/pv-nav/portfolio"
	"github.com/penny-vault/pv-nav/router"
	"github.com/penny-vault/pv-nav/tradecron"
)

const DefaultSchedule = "30 @close * * 1-5"

var RunOnStart bool

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("schedule", "PVNAV_SCHEDULE")
	serveCmd.Flags().String("schedule", DefaultSchedule, "Market aware cron spec of when to update the series")
	viper.BindPFlag("schedule", serveCmd.Flags().Lookup("schedule"))

	serveCmd.Flags().String("cors-origins", "*", "Comma separated list of origins allowed to read the API")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	serveCmd.Flags().BoolVar(&RunOnStart, "run-now", false, "Update the series once before waiting for the schedule")

	rootCmd.AddCommand(serveCmd)
}

// scheduledUpdate runs the updater when the trading calendar says the
// schedule fires at now
type scheduledUpdate struct {
	updater  *portfolio.Updater
	schedule *tradecron.TradeCron
	series   *handler.Series
	locker   sync.Mutex
}

func (su *scheduledUpdate) run(force bool) {
	su.locker.Lock()
	defer su.locker.Unlock()

	now := time.Now()
	if !force && !su.schedule.Fires(now) {
		log.Debug().Time("Now", now).Str("Schedule", su.schedule.ScheduleString).Msg("not a scheduled trading day; skipping update")
		return
	}

	result, err := su.updater.Run(context.Background(), now)
	if err != nil {
		log.Error().Err(err).Msg("scheduled update failed")
		return
	}
	su.series.SetLastRun(result, time.Now())
	log.Info().Str("RunID", result.RunID.String()).Str("Outcome", string(result.Outcome)).Str("Reason", result.Reason).
		Time("NextRun", su.schedule.Next(time.Now())).Msg("scheduled update finished")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pvnav server",
	Long:  `Update the series on a market aware schedule and serve it over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		defer startProfile()()

		common.SetupLogging()
		log.Info().Msg("initialized logging")

		ctx := context.Background()
		defer setupTracing(ctx)()

		updater, err := newUpdater(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not setup updater")
		}
		defer messenger.Close()

		calendar, err := tradecron.CalendarFromViper()
		if err != nil {
			log.Fatal().Err(err).Msg("could not build trading calendar")
		}

		spec := viper.GetString("schedule")
		if spec == "" {
			spec = DefaultSchedule
		}
		schedule, err := tradecron.New(spec, calendar)
		if err != nil {
			log.Fatal().Err(err).Str("Schedule", spec).Msg("could not parse schedule")
		}

		series := handler.NewSeries(updater.Store)
		job := &scheduledUpdate{
			updater:  updater,
			schedule: schedule,
			series:   series,
		}

		// the cron expression fires on every candidate minute; job.run checks
		// holidays and date modifiers against the calendar
		scheduler := gocron.NewScheduler(calendar.Location())
		if _, err := scheduler.Cron(schedule.TimeSpec).SingletonMode().Do(job.run, false); err != nil {
			log.Fatal().Err(err).Str("TimeSpec", schedule.TimeSpec).Msg("could not schedule update")
		}
		scheduler.StartAsync()
		log.Info().Str("Schedule", spec).Time("NextRun", schedule.Next(time.Now())).Msg("scheduled updates")

		if RunOnStart {
			go job.run(true)
		}

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			scheduler.Stop()
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown server")
			}
		}()

		// Configure CORS
		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,HEAD",
		}))

		// Setup logging middleware
		app.Use(middleware.NewLogger())
		app.Use(middleware.NewTracer())

		router.SetupRoutes(app, series)

		err = app.Listen(":" + viper.GetString("server.port"))
		if err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
