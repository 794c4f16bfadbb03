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
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pv-nav/common"
)

// CodeWidth is the fixed width instrument codes are zero-padded to
const CodeWidth = 6

// WeightRecord is one row of the weight input: the percent of a portfolio
// allocated to an instrument as of the close of EffectiveDate
type WeightRecord struct {
	Portfolio      string
	EffectiveDate  time.Time
	InstrumentCode string
	WeightPercent  decimal.Decimal
}

// WeightVector maps an instrument code to its weight in percent (0-100)
type WeightVector map[string]decimal.Decimal

type snapshot struct {
	date    time.Time
	weights WeightVector
}

// WeightTable is the sparse, date ordered set of weight snapshots of a single
// portfolio. Each snapshot is the full weight vector on its date; instruments
// missing from a snapshot have weight 0.
type WeightTable struct {
	snapshots []*snapshot
}

// NormalizeCode trims an instrument code and left pads it with zeros. The
// second return value is false for blank codes (including a literal "nan"),
// which are discarded.
func NormalizeCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if code == "" || strings.EqualFold(code, "nan") {
		return "", false
	}

	// numeric cells sometimes arrive formatted as floats
	code = strings.TrimSuffix(code, ".0")

	if len(code) < CodeWidth {
		code = strings.Repeat("0", CodeWidth-len(code)) + code
	}
	return code, true
}

// GroupWeights splits records by portfolio name
func GroupWeights(records []*WeightRecord) map[string][]*WeightRecord {
	groups := make(map[string][]*WeightRecord)
	for _, r := range records {
		groups[r.Portfolio] = append(groups[r.Portfolio], r)
	}
	return groups
}

// NewWeightTable builds the table from the records of one portfolio. When the
// same instrument appears twice on one date the last record wins.
func NewWeightTable(records []*WeightRecord) *WeightTable {
	byDate := make(map[time.Time]WeightVector)
	for _, r := range records {
		dt := common.Day(r.EffectiveDate)
		vec, ok := byDate[dt]
		if !ok {
			vec = make(WeightVector)
			byDate[dt] = vec
		}
		if prev, ok := vec[r.InstrumentCode]; ok {
			log.Warn().Str("Portfolio", r.Portfolio).Time("EffectiveDate", dt).Str("Code", r.InstrumentCode).
				Str("Previous", prev.String()).Str("Weight", r.WeightPercent.String()).Msg("duplicate weight record; keeping the last one")
		}
		vec[r.InstrumentCode] = r.WeightPercent
	}

	wt := &WeightTable{
		snapshots: make([]*snapshot, 0, len(byDate)),
	}
	for dt, vec := range byDate {
		wt.snapshots = append(wt.snapshots, &snapshot{date: dt, weights: vec})
	}
	sort.Slice(wt.snapshots, func(i, j int) bool {
		return wt.snapshots[i].date.Before(wt.snapshots[j].date)
	})

	return wt
}

// Len returns the number of snapshots
func (wt *WeightTable) Len() int {
	return len(wt.snapshots)
}

// Dates returns the ascending snapshot dates
func (wt *WeightTable) Dates() []time.Time {
	dates := make([]time.Time, len(wt.snapshots))
	for idx, s := range wt.snapshots {
		dates[idx] = s.date
	}
	return dates
}

// Instruments returns every instrument code appearing in any snapshot, sorted
func (wt *WeightTable) Instruments() []string {
	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, s := range wt.snapshots {
		for code := range s.weights {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	sort.Strings(codes)
	return codes
}

// EffectiveOn returns the weight vector in force at the close of dt, that is
// the snapshot of the latest record date <= dt. The vector is empty if no
// snapshot is that old.
func (wt *WeightTable) EffectiveOn(dt time.Time) WeightVector {
	dt = common.Day(dt)
	idx := sort.Search(len(wt.snapshots), func(i int) bool {
		return wt.snapshots[i].date.After(dt)
	})
	if idx == 0 {
		return WeightVector{}
	}
	return wt.snapshots[idx-1].weights
}

// EffectiveBefore returns the weight vector used to compute the return of dt
// and the date of the snapshot it came from. Only snapshots strictly before dt
// qualify; ok is false if there are none.
func (wt *WeightTable) EffectiveBefore(dt time.Time) (weights WeightVector, effective time.Time, ok bool) {
	dt = common.Day(dt)
	idx := sort.Search(len(wt.snapshots), func(i int) bool {
		return !wt.snapshots[i].date.Before(dt)
	})
	if idx == 0 {
		return WeightVector{}, time.Time{}, false
	}
	s := wt.snapshots[idx-1]
	return s.weights, s.date, true
}
