// Copyright 2025
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
package data

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Company is one row of the companies table. Companies are seeded by the
// `companies import` bootstrap; the pipeline only touches UpdatedAt.
type Company struct {
	ID       int64  `csv:"-"`
	Symbol   string `csv:"symbol"`
	Name     string `csv:"name"`
	Sector   string `csv:"sector"`
	Industry string `csv:"industry"`

	CreatedAt time.Time `csv:"-"`
	UpdatedAt time.Time `csv:"-"`
}

// SaveDB upserts the company keyed on its ticker symbol.
func (company *Company) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	sql := `INSERT INTO companies (
		"symbol",
		"name",
		"sector",
		"industry"
	) VALUES (
		$1, $2, $3, $4
	) ON CONFLICT (symbol) DO UPDATE SET
		name = EXCLUDED.name,
		sector = EXCLUDED.sector,
		industry = EXCLUDED.industry,
		updated_at = NOW()`

	_, err := dbConn.Exec(ctx, sql, company.Symbol, company.Name, company.Sector, company.Industry)
	if err != nil {
		log.Error().Err(err).Str("Symbol", company.Symbol).Msg("save company to DB failed")
		return err
	}

	return nil
}
