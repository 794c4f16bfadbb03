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

package store

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/portfolio"
)

const (
	KindWorkbook = "workbook"
	KindPostgres = "postgres"
)

// Store is both the home of the published series and the source of the
// weight records
type Store interface {
	portfolio.SeriesStore
	portfolio.WeightSource
}

// New returns the store named by kind. The postgres store expects
// database.Connect to have been called.
func New(kind, path, seriesSheet, weightsSheet string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindWorkbook, "":
		if path == "" {
			return nil, fmt.Errorf("%w: store.path is not set", ErrWorkbookNotFound)
		}
		return NewWorkbook(path, seriesSheet, weightsSheet), nil
	case KindPostgres:
		return NewPostgres(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreKind, kind)
	}
}

// FromViper builds the store from the `store` section
func FromViper() (Store, error) {
	return New(viper.GetString("store.kind"), viper.GetString("store.path"),
		viper.GetString("store.sheet"), viper.GetString("store.weights_sheet"))
}
