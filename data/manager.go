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

package data

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
)

// Manager keeps the registry of available price providers
type Manager struct {
	providers map[string]Provider
	locker    sync.RWMutex
}

// NewManager creates a manager with the providers that can be built from the
// current configuration. Tiingo is only registered when a token is available.
func NewManager() *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
	}

	if token := viper.GetString("tiingo.token"); token != "" {
		m.RegisterDataProvider(NewTiingo(token, viper.GetString("tiingo.url")))
	} else {
		log.Debug().Msg("no tiingo API key provided")
	}

	m.RegisterDataProvider(NewPvDb())
	return m
}

// RegisterDataProvider add a data provider to the system
func (m *Manager) RegisterDataProvider(p Provider) {
	m.locker.Lock()
	defer m.locker.Unlock()
	m.providers[p.DataType()] = p
}

// Names returns the registered provider names in sorted order
func (m *Manager) Names() []string {
	m.locker.RLock()
	defer m.locker.RUnlock()
	names := make([]string, 0, len(m.providers))
	for k := range m.providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Provider returns the named provider, wrapped in a CachedProvider when the
// common cache has been set up
func (m *Manager) Provider(name string) (Provider, error) {
	m.locker.RLock()
	p, ok := m.providers[name]
	m.locker.RUnlock()

	if !ok {
		if name == "tiingo" {
			return nil, fmt.Errorf("%w: tiingo.token", ErrMissingCredentials)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	if common.CacheEnabled() {
		return NewCachedProvider(p), nil
	}
	return p, nil
}
