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

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ETLRun is one append-only audit row in etl_runs. Exactly one row is
// written per pipeline invocation, success or failure.
type ETLRun struct {
	ID                   uuid.UUID `db:"id"`
	RunDate              time.Time `db:"run_date"`
	WorkflowName         string    `db:"workflow_name"`
	CompaniesProcessed   int       `db:"companies_processed"`
	APICallsMade         int       `db:"api_calls_made"`
	APIFailures          int       `db:"api_failures"`
	QualityErrors        []byte    `db:"data_quality_errors"`
	ExecutionTimeSeconds int       `db:"execution_time_seconds"`
	Status               RunStatus `db:"status"`
	ErrorDetails         string    `db:"error_details"`
}

// NewETLRun converts accumulated run statistics into an audit row.
func NewETLRun(stats *RunStats) (*ETLRun, error) {
	issues := stats.QualityIssues
	if issues == nil {
		issues = []QualityIssue{}
	}

	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return nil, err
	}

	return &ETLRun{
		ID:                   stats.ID,
		WorkflowName:         stats.WorkflowName,
		CompaniesProcessed:   stats.CompaniesProcessed,
		APICallsMade:         stats.APICallsMade,
		APIFailures:          stats.APIFailures,
		QualityErrors:        issuesJSON,
		ExecutionTimeSeconds: int(stats.ExecutionTime.Seconds()),
		Status:               stats.Status,
		ErrorDetails:         stats.ErrorDetails,
	}, nil
}

// SaveDB appends the audit row. Callers must not let a failure here mask
// the pipeline's own outcome.
func (run *ETLRun) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	sql := `INSERT INTO etl_runs (
		"id",
		"workflow_name",
		"companies_processed",
		"api_calls_made",
		"api_failures",
		"data_quality_errors",
		"execution_time_seconds",
		"status",
		"error_details"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	)`

	_, err := dbConn.Exec(ctx, sql,
		run.ID,
		run.WorkflowName,
		run.CompaniesProcessed,
		run.APICallsMade,
		run.APIFailures,
		run.QualityErrors,
		run.ExecutionTimeSeconds,
		run.Status,
		run.ErrorDetails,
	)

	if err != nil {
		log.Error().Err(err).Str("RunID", run.ID.String()).Msg("save etl run to DB failed")
		return err
	}

	return nil
}
