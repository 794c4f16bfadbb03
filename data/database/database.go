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

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// types

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNotConnected = errors.New("database pool has not been configured")
	ErrNoURL        = errors.New("database.url is not set")
)

// Private

var pool PgxIface
var openTransactions map[string]string
var trxLocker sync.Mutex

// Public

func SetPool(myPool PgxIface) {
	trxLocker.Lock()
	openTransactions = make(map[string]string)
	trxLocker.Unlock()
	pool = myPool
}

// Connected returns true if a pool has been set
func Connected() bool {
	return pool != nil
}

func Connect(ctx context.Context) error {
	url := viper.GetString("database.url")
	if url == "" {
		return ErrNoURL
	}

	myPool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxLocker.Lock()
	defer trxLocker.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// Trx begins a new transaction that is tracked until it is committed or rolled back
func Trx(ctx context.Context) (pgx.Tx, error) {
	if pool == nil {
		return nil, ErrNotConnected
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	// record transactions in openTransaction log
	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()

	trxLocker.Lock()
	openTransactions[trxID] = caller
	trxLocker.Unlock()

	return &PvDbTx{
		id: trxID,
		tx: trx,
	}, nil
}

// OpenTransactionCount returns the number of transactions that have not been closed
func OpenTransactionCount() int {
	trxLocker.Lock()
	defer trxLocker.Unlock()
	return len(openTransactions)
}

func untrack(id string) {
	trxLocker.Lock()
	delete(openTransactions, id)
	trxLocker.Unlock()
}
