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
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
)

// ResumeState is where a run picks up: the date of the last published value,
// the value each portfolio compounds from, and the last date to compute
type ResumeState struct {
	StartDate      time.Time
	EndDate        time.Time
	IsContinuation bool
	Seeds          map[string]decimal.Decimal
}

// Resume inspects the persisted series. A non-empty series continues from its
// last row; otherwise the run is a cold start from the anchor date. EndDate is
// yesterday in the market timezone. If there is no date left to compute the
// state is returned with ErrUpToDate.
func Resume(series *Series, cfg *Config, now time.Time) (*ResumeState, error) {
	state := &ResumeState{
		EndDate: common.Yesterday(now, cfg.Location),
		Seeds:   make(map[string]decimal.Decimal, len(cfg.Portfolios)),
	}

	if last := series.Last(); last != nil {
		state.StartDate = common.Day(last.Date)
		state.IsContinuation = true
		for _, p := range cfg.Portfolios {
			if val, ok := last.Values[p.Name]; ok {
				state.Seeds[p.Name] = val
			} else {
				state.Seeds[p.Name] = p.InitialValue
			}
		}
	} else {
		state.StartDate = common.Day(cfg.AnchorDate)
		for _, p := range cfg.Portfolios {
			state.Seeds[p.Name] = p.InitialValue
		}
	}

	if !state.StartDate.Before(state.EndDate) {
		return state, ErrUpToDate
	}

	return state, nil
}
