// Copyright 2021-2023
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

package tradecron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	AtOpen       = "@open"
	AtClose      = "@close"
	AtWeekBegin  = "@weekbegin"
	AtWeekEnd    = "@weekend"
	AtMonthBegin = "@monthbegin"
	AtMonthEnd   = "@monthend"
)

// maxIters bounds the search for the next run
const maxIters = 100_000

// MarketHours are the open and close times of a regular session as HHMM
type MarketHours struct {
	Open  int
	Close int
}

var (
	// KRXHours is the regular session of the Korea Exchange
	KRXHours = MarketHours{
		Open:  900,
		Close: 1530,
	}
	// RegularHours is the regular session of the US exchanges
	RegularHours = MarketHours{
		Open:  930,
		Close: 1600,
	}
)

// Validate checks both times are valid HHMM values with open before close
func (mh MarketHours) Validate() error {
	valid := func(hhmm int) bool {
		return hhmm >= 0 && hhmm/100 < 24 && hhmm%100 < 60
	}
	if !valid(mh.Open) || !valid(mh.Close) || mh.Open >= mh.Close {
		return fmt.Errorf("%w: open=%d close=%d", ErrMalformedHours, mh.Open, mh.Close)
	}
	return nil
}

type TradeCron struct {
	Schedule       cron.Schedule
	ScheduleString string
	TimeSpec       string
	TimeFlag       string
	DateFlag       string
	calendar       *Calendar
}

// New parses a market aware cron spec. It supports schedules via the standard
// CRON format of: Minutes(Min) Hours(H) DayOfMonth(DoM) Month(M) DayOfWeek(DoW)
// See: https://en.wikipedia.org/wiki/Cron
//
// Plain specs only fire while the market is open. Specs anchored with @open
// or @close fire on every market day at the resulting time, even if that is
// outside of trading hours.
//
// Additional market-aware modifiers are supported:
//
//	@open       - relative to market open; replaces Minute and Hour field
//	              e.g., @open * * *
//	@close      - relative to market close; replaces Minute and Hour field
//	@weekbegin  - first trading day of week
//	@weekend    - last trading day of week
//	@monthbegin - first trading day of month
//	@monthend   - last trading day of month
//
// Examples:
//   - every 5 minutes: */5 * * * *
//   - 30 minutes after the close on weekdays: 30 @close * * 1-5
//   - 15 minutes after market open: 15 @open * * *
//   - market close on last trading day of month: @close @monthend
func New(cronSpec string, calendar *Calendar) (*TradeCron, error) {
	specParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	scheduleStr := strings.TrimSpace(cronSpec)
	if scheduleStr == "" {
		return nil, ErrEmptySpec
	}
	scheduleStr = expandBriefFormat(scheduleStr)

	// separate special tokens from timespec
	timeSpecTokens := make([]string, 0, 5)
	specialTokens := make([]string, 0, 2)
	for _, token := range strings.Fields(scheduleStr) {
		if token[0] == '@' {
			specialTokens = append(specialTokens, token)
		} else {
			timeSpecTokens = append(timeSpecTokens, token)
		}
	}

	hours := calendar.Hours()
	var timeSpec string
	var timeFlag string
	var dateFlag string
	var err error
	for _, token := range specialTokens {
		switch token {
		case AtOpen, AtClose:
			if timeFlag != "" {
				return nil, ErrConflictingModifiers
			}
			anchor := hours.Open
			if token == AtClose {
				anchor = hours.Close
			}
			if timeSpec, err = parseTimeRelativeTo(timeSpecTokens, anchor); err != nil {
				return nil, err
			}
			timeFlag = token
		case AtWeekBegin, AtWeekEnd, AtMonthBegin, AtMonthEnd:
			if dateFlag != "" {
				return nil, ErrConflictingModifiers
			}
			dateFlag = token
		default:
			return nil, ErrUnknownModifier
		}
	}

	if timeSpec == "" {
		timeSpec = strings.Join(timeSpecTokens, " ")
	}

	schedule, err := specParser.Parse(timeSpec)
	if err != nil {
		log.Error().Err(err).Str("TimeSpec", timeSpec).Str("TradeCronSpec", cronSpec).Msg("robfig/cron could not parse timespec")
		return nil, err
	}

	return &TradeCron{
		Schedule:       schedule,
		ScheduleString: cronSpec,
		TimeSpec:       timeSpec,
		DateFlag:       dateFlag,
		TimeFlag:       timeFlag,
		calendar:       calendar,
	}, nil
}

// dayMatches evaluates the date portion of the schedule
func (tc *TradeCron) dayMatches(t time.Time) bool {
	switch tc.DateFlag {
	case AtWeekBegin:
		return tc.calendar.IsFirstTradingDayOfWeek(t)
	case AtWeekEnd:
		return tc.calendar.IsLastTradingDayOfWeek(t)
	case AtMonthBegin:
		return tc.calendar.IsFirstTradingDayOfMonth(t)
	case AtMonthEnd:
		return tc.calendar.IsLastTradingDayOfMonth(t)
	default:
		return tc.calendar.IsMarketDay(t)
	}
}

// IsTradeDay evaluates the given date against the schedule and returns true if the date falls
// on a trading day according to the schedule. The time portion of the schedule is ignored when
// evaluating this function
func (tc *TradeCron) IsTradeDay(forDate time.Time) bool {
	t1 := tc.calendar.midnight(forDate)
	next := tc.Next(t1.Add(-time.Nanosecond))
	return tc.calendar.midnight(next).Equal(t1)
}

// Next returns the first time after forDate the schedule fires
func (tc *TradeCron) Next(forDate time.Time) time.Time {
	checkDate := forDate.In(tc.calendar.tz)
	for iter := 0; iter < maxIters; iter++ {
		checkDate = tc.Schedule.Next(checkDate)
		if checkDate.IsZero() {
			break
		}

		if !tc.dayMatches(checkDate) {
			// skip the rest of the day
			checkDate = tc.calendar.midnight(checkDate).AddDate(0, 0, 1).Add(-time.Nanosecond)
			continue
		}

		if tc.TimeFlag != "" || tc.calendar.IsMarketOpen(checkDate) {
			return checkDate
		}
	}

	log.Panic().Str("TimeSpec", tc.TimeSpec).Str("DateFlag", tc.DateFlag).Time("ForDate", forDate).Msg("tradecron schedule never fires")
	return time.Time{}
}

// Fires returns true if the schedule fires during the minute that contains t
func (tc *TradeCron) Fires(t time.Time) bool {
	minute := t.In(tc.calendar.tz).Truncate(time.Minute)
	return tc.Next(minute.Add(-time.Nanosecond)).Equal(minute)
}
