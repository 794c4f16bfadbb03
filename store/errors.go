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

import "errors"

var (
	ErrWorkbookNotFound = errors.New("workbook does not exist")
	ErrNoWeightSheet    = errors.New("workbook has no weight sheet")
	ErrMissingColumn    = errors.New("required column is missing")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidValue     = errors.New("invalid numeric value")
	ErrUnknownStoreKind = errors.New("unknown store kind")
)
