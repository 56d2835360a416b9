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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// StatementRecord is one extracted fact from an annual report. The natural
// key is (company, statement type, fiscal year, fiscal period, metric name);
// re-ingestion overwrites the value and raw payload, never duplicates.
type StatementRecord struct {
	CompanyID        int64
	StatementType    StatementType
	FiscalYear       int
	FiscalPeriod     string
	MetricName       string
	MetricValue      *float64
	ReportedCurrency string

	// RawData holds the full upstream report this value was extracted from,
	// serialized as JSON, for audit and debugging.
	RawData []byte
}

// BulkSaveStatements upserts all records in a single transaction keyed on
// the natural key. It returns the number of records attempted, not the rows
// actually changed, so repeated runs over the same year report the same
// count.
func BulkSaveStatements(ctx context.Context, dbConn *pgxpool.Conn, records []*StatementRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	sql := `INSERT INTO financial_statements (
		"company_id",
		"statement_type",
		"fiscal_year",
		"fiscal_period",
		"metric_name",
		"metric_value",
		"reported_currency",
		"raw_data"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8
	) ON CONFLICT (company_id, statement_type, fiscal_year, fiscal_period, metric_name) DO UPDATE SET
		metric_value = EXCLUDED.metric_value,
		raw_data = EXCLUDED.raw_data,
		created_at = NOW()`

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(sql,
			record.CompanyID,
			record.StatementType,
			record.FiscalYear,
			record.FiscalPeriod,
			record.MetricName,
			record.MetricValue,
			record.ReportedCurrency,
			record.RawData,
		)
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, err
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		log.Error().Err(err).Int("NumRecords", len(records)).Msg("bulk statement upsert failed")
		if err2 := tx.Rollback(ctx); err2 != nil {
			log.Error().Err(err2).Msg("error rolling back statement tx")
		}
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("error committing statement transaction to database")
		return 0, err
	}

	return len(records), nil
}
