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

package common

import (
	"errors"
	"strings"
	"time"
)

const DateFormat = "2006-01-02"

var (
	ErrUnknownDateFormat = errors.New("unrecognized date format")
)

var dateLayouts = []string{
	DateFormat,
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Day truncates t to its calendar date. The date is read in t's own location
// and the result is midnight UTC so that days from different sources compare
// equal regardless of the timezone they were parsed in.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Yesterday returns the calendar day before now as observed in tz
func Yesterday(now time.Time, tz *time.Location) time.Time {
	local := now.In(tz)
	return Day(local).AddDate(0, 0, -1)
}

// ParseDay parses a date string in any of the commonly seen layouts
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if dt, err := time.Parse(layout, s); err == nil {
			return Day(dt), nil
		}
	}
	return time.Time{}, ErrUnknownDateFormat
}
