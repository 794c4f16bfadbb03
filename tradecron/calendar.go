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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
)

// Calendar knows the trading days and hours of a single exchange
type Calendar struct {
	hours MarketHours
	tz    *time.Location

	// holidays maps midnight of a date to its early close time (HHMM) or 0
	// when the market is closed the whole day
	holidays      map[time.Time]int
	holidayLocker sync.RWMutex
}

func NewCalendar(hours MarketHours, tz *time.Location) *Calendar {
	return &Calendar{
		hours:    hours,
		tz:       tz,
		holidays: make(map[time.Time]int),
	}
}

// CalendarFromViper builds the calendar from `market.open`, `market.close`
// and `market.holidays` in the `market.timezone` timezone
func CalendarFromViper() (*Calendar, error) {
	hours := KRXHours
	if viper.IsSet("market.open") {
		hours.Open = viper.GetInt("market.open")
	}
	if viper.IsSet("market.close") {
		hours.Close = viper.GetInt("market.close")
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	cal := NewCalendar(hours, common.GetTimezone())
	if err := cal.LoadHolidays(viper.GetStringSlice("market.holidays")); err != nil {
		return nil, err
	}
	return cal, nil
}

// LoadHolidays replaces the calendar's holidays. Each entry is a date, e.g.
// 2026-01-01, optionally followed by =HHMM for a day that closes early.
func (cal *Calendar) LoadHolidays(specs []string) error {
	holidays := make(map[time.Time]int, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(strings.TrimSpace(spec), "=", 2)
		dt, err := common.ParseDay(parts[0])
		if err != nil {
			return fmt.Errorf("%w: %q", ErrMalformedHoliday, spec)
		}

		closeTime := 0
		if len(parts) == 2 {
			if closeTime, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil || closeTime <= 0 || closeTime > 2359 {
				return fmt.Errorf("%w: %q", ErrMalformedHoliday, spec)
			}
		}
		holidays[dt] = closeTime
	}

	cal.holidayLocker.Lock()
	cal.holidays = holidays
	cal.holidayLocker.Unlock()

	log.Debug().Int("NumHolidays", len(holidays)).Msg("loaded market holidays")
	return nil
}

// Location returns the exchange timezone
func (cal *Calendar) Location() *time.Location {
	return cal.tz
}

// Hours returns the regular trading hours
func (cal *Calendar) Hours() MarketHours {
	return cal.hours
}

func (cal *Calendar) holiday(t time.Time) (int, bool) {
	cal.holidayLocker.RLock()
	defer cal.holidayLocker.RUnlock()
	closeTime, ok := cal.holidays[common.Day(t.In(cal.tz))]
	return closeTime, ok
}

// EarlyClose returns close time of an early close market day, e.g. 1300
func (cal *Calendar) EarlyClose(t time.Time) int {
	closeTime, _ := cal.holiday(t)
	return closeTime
}

// IsMarketHoliday returns true if the market is closed all day
func (cal *Calendar) IsMarketHoliday(t time.Time) bool {
	closeTime, ok := cal.holiday(t)
	return ok && closeTime == 0
}

// IsMarketDay returns true if t falls on a weekday that is not a holiday
func (cal *Calendar) IsMarketDay(t time.Time) bool {
	t = t.In(cal.tz)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !cal.IsMarketHoliday(t)
}

// IsMarketOpen returns true if t is during trading hours of a market day
func (cal *Calendar) IsMarketOpen(t time.Time) bool {
	if !cal.IsMarketDay(t) {
		return false
	}

	closeTime := cal.hours.Close
	if early := cal.EarlyClose(t); early != 0 {
		closeTime = early
	}

	t = t.In(cal.tz)
	timeOfDay := t.Hour()*100 + t.Minute()
	return timeOfDay >= cal.hours.Open && timeOfDay <= closeTime
}

func (cal *Calendar) midnight(t time.Time) time.Time {
	t = t.In(cal.tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, cal.tz)
}

// anyMarketDay returns true if any day in [from, to] is a market day
func (cal *Calendar) anyMarketDay(from, to time.Time) bool {
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if cal.IsMarketDay(d) {
			return true
		}
	}
	return false
}

// IsFirstTradingDayOfWeek returns true if t is the first market day of its
// Monday to Sunday week
func (cal *Calendar) IsFirstTradingDayOfWeek(t time.Time) bool {
	d := cal.midnight(t)
	if !cal.IsMarketDay(d) {
		return false
	}
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return !cal.anyMarketDay(monday, d.AddDate(0, 0, -1))
}

// IsLastTradingDayOfWeek returns true if t is the last market day of its week
func (cal *Calendar) IsLastTradingDayOfWeek(t time.Time) bool {
	d := cal.midnight(t)
	if !cal.IsMarketDay(d) {
		return false
	}
	offset := (int(d.Weekday()) + 6) % 7
	sunday := d.AddDate(0, 0, 6-offset)
	return !cal.anyMarketDay(d.AddDate(0, 0, 1), sunday)
}

// IsFirstTradingDayOfMonth returns true if t is the first market day of its month
func (cal *Calendar) IsFirstTradingDayOfMonth(t time.Time) bool {
	d := cal.midnight(t)
	if !cal.IsMarketDay(d) {
		return false
	}
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, cal.tz)
	return !cal.anyMarketDay(first, d.AddDate(0, 0, -1))
}

// IsLastTradingDayOfMonth returns true if t is the last market day of its month
func (cal *Calendar) IsLastTradingDayOfMonth(t time.Time) bool {
	d := cal.midnight(t)
	if !cal.IsMarketDay(d) {
		return false
	}
	last := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, cal.tz).AddDate(0, 1, -1)
	return !cal.anyMarketDay(d.AddDate(0, 0, 1), last)
}

// PreviousMarketDay returns midnight of the last market day strictly before t
func (cal *Calendar) PreviousMarketDay(t time.Time) time.Time {
	d := cal.midnight(t).AddDate(0, 0, -1)
	for !cal.IsMarketDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
