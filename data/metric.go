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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CalculatedMetric is one derived ratio for a company and fiscal year.
// Recomputation overwrites the value and category and refreshes
// calculated_at; rows are never deleted.
type CalculatedMetric struct {
	CompanyID   int64
	FiscalYear  int
	MetricName  string
	MetricValue float64
	Category    MetricCategory
}

func (metric *CalculatedMetric) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	sql := `INSERT INTO calculated_metrics (
		"company_id",
		"fiscal_year",
		"metric_name",
		"metric_value",
		"metric_category"
	) VALUES (
		$1, $2, $3, $4, $5
	) ON CONFLICT (company_id, fiscal_year, metric_name) DO UPDATE SET
		metric_value = EXCLUDED.metric_value,
		metric_category = EXCLUDED.metric_category,
		calculated_at = NOW()`

	_, err := dbConn.Exec(ctx, sql,
		metric.CompanyID,
		metric.FiscalYear,
		metric.MetricName,
		metric.MetricValue,
		metric.Category,
	)

	if err != nil {
		log.Error().Err(err).Object("Metric", metric).Msg("save calculated metric to DB failed")
		return err
	}

	return nil
}

// SaveMetrics upserts a year's worth of derived metrics in one transaction.
func SaveMetrics(ctx context.Context, dbConn *pgxpool.Conn, metrics []*CalculatedMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	for _, metric := range metrics {
		sql := `INSERT INTO calculated_metrics (
			"company_id",
			"fiscal_year",
			"metric_name",
			"metric_value",
			"metric_category"
		) VALUES (
			$1, $2, $3, $4, $5
		) ON CONFLICT (company_id, fiscal_year, metric_name) DO UPDATE SET
			metric_value = EXCLUDED.metric_value,
			metric_category = EXCLUDED.metric_category,
			calculated_at = NOW()`

		if _, err := tx.Exec(ctx, sql,
			metric.CompanyID,
			metric.FiscalYear,
			metric.MetricName,
			metric.MetricValue,
			metric.Category,
		); err != nil {
			log.Error().Err(err).Object("Metric", metric).Msg("save calculated metric to DB failed")
			if err2 := tx.Rollback(ctx); err2 != nil {
				log.Error().Err(err2).Msg("error rolling back metric tx")
			}
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("error committing metric transaction to database")
		return err
	}

	return nil
}

func (metric *CalculatedMetric) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("CompanyID", metric.CompanyID)
	e.Int("FiscalYear", metric.FiscalYear)
	e.Str("MetricName", metric.MetricName)
	e.Float64("MetricValue", metric.MetricValue)
	e.Str("Category", string(metric.Category))
}
