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
package library

import (
	"context"
	"errors"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/windvane/finetl/data"
)

// ErrCompanyNotFound reports a symbol with no row in the companies table.
// This is a valid outcome (company not configured), not a database failure;
// callers skip the symbol and count the miss.
var ErrCompanyNotFound = errors.New("company not found")

// Library wraps the finetl database. Each logical write acquires a
// connection, performs one transaction, and commits, so partial progress up
// to a failure point stays durable.
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool

	companyIDs *haxmap.Map[string, int64]
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(context.Background(), myLibrary.DBUrl)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool
	myLibrary.companyIDs = haxmap.New[string, int64]()

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	myLibrary.Pool.Close()
}

// NewFromDB creates a connected library for the given database URL
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	myLibrary := &Library{DBUrl: dbURL}
	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}

	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return myLibrary, nil
}

// CompanyID looks a company up by its ticker symbol. Hits are cached for
// the life of the pool; the companies table is append-mostly and symbols
// never change id.
func (myLibrary *Library) CompanyID(ctx context.Context, symbol string) (int64, error) {
	if id, ok := myLibrary.companyIDs.Get(symbol); ok {
		return id, nil
	}

	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx, "SELECT id FROM companies WHERE symbol = $1", symbol).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCompanyNotFound
	}
	if err != nil {
		return 0, err
	}

	myLibrary.companyIDs.Set(symbol, id)
	return id, nil
}

// Companies returns every configured company
func (myLibrary *Library) Companies(ctx context.Context) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, myLibrary.Pool, &companies,
		`SELECT id, symbol, name, sector, industry, created_at, updated_at FROM companies ORDER BY symbol`)
	return companies, err
}

// SaveCompanies upserts the given companies keyed on symbol
func (myLibrary *Library) SaveCompanies(ctx context.Context, companies []*data.Company) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, company := range companies {
		if err := company.SaveDB(ctx, conn); err != nil {
			return err
		}
	}

	return nil
}

// BulkSaveStatements upserts statement records on their natural key and
// returns the count attempted.
func (myLibrary *Library) BulkSaveStatements(ctx context.Context, records []*data.StatementRecord) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	return data.BulkSaveStatements(ctx, conn, records)
}

// TouchCompany refreshes a company's last-updated marker after its
// statements load; downstream freshness checks read it.
func (myLibrary *Library) TouchCompany(ctx context.Context, companyID int64) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, "UPDATE companies SET updated_at = NOW() WHERE id = $1", companyID)
	return err
}

// FiscalYears returns the distinct fiscal years with statement data for a
// company, newest first.
func (myLibrary *Library) FiscalYears(ctx context.Context, companyID int64) ([]int, error) {
	var years []int
	err := pgxscan.Select(ctx, myLibrary.Pool, &years,
		`SELECT DISTINCT fiscal_year FROM financial_statements WHERE company_id = $1 ORDER BY fiscal_year DESC`,
		companyID)
	return years, err
}

// StatementData returns the flat metric name to value map for one company
// and fiscal year, read from the persisted statement rows. Null values are
// omitted so presence in the map means a reported, numeric figure.
func (myLibrary *Library) StatementData(ctx context.Context, companyID int64, fiscalYear int) (map[string]float64, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx,
		`SELECT metric_name, metric_value FROM financial_statements WHERE company_id = $1 AND fiscal_year = $2`,
		companyID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var name string
		var value *float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}

		if value != nil {
			values[name] = *value
		}
	}

	return values, rows.Err()
}

// SaveMetrics upserts a batch of calculated metrics
func (myLibrary *Library) SaveMetrics(ctx context.Context, metrics []*data.CalculatedMetric) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return data.SaveMetrics(ctx, conn, metrics)
}

// LogRun appends one audit row for the pipeline invocation
func (myLibrary *Library) LogRun(ctx context.Context, stats *data.RunStats) error {
	run, err := data.NewETLRun(stats)
	if err != nil {
		return err
	}

	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return run.SaveDB(ctx, conn)
}

// LastRun returns the most recent etl_runs row, or nil when no run has been
// recorded yet.
func (myLibrary *Library) LastRun(ctx context.Context) (*data.ETLRun, error) {
	var runs []*data.ETLRun
	err := pgxscan.Select(ctx, myLibrary.Pool, &runs,
		`SELECT id, run_date, workflow_name, companies_processed, api_calls_made, api_failures,
data_quality_errors, execution_time_seconds, status, coalesce(error_details, '') as error_details
FROM etl_runs ORDER BY run_date DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

// LastUpdated returns the newest company refresh timestamp
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var lastUpdated time.Time
	err = conn.QueryRow(ctx,
		"SELECT coalesce(max(updated_at), '0001-01-01'::timestamp) FROM companies").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// TotalStatementRecords returns the number of statement facts in the library
func (myLibrary *Library) TotalStatementRecords(ctx context.Context) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM financial_statements").Scan(&count)
	return count, err
}

// TotalCalculatedMetrics returns the number of derived metric rows
func (myLibrary *Library) TotalCalculatedMetrics(ctx context.Context) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM calculated_metrics").Scan(&count)
	return count, err
}
