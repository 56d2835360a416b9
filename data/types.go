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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type StatementType string

const (
	IncomeStatement StatementType = "INCOME"
	BalanceSheet    StatementType = "BALANCE"
	CashFlow        StatementType = "CASHFLOW"
)

// StatementTypes lists every statement type in the order the pipeline
// fetches them.
var StatementTypes = []StatementType{IncomeStatement, BalanceSheet, CashFlow}

type MetricCategory string

const (
	Profitability MetricCategory = "PROFITABILITY"
	Liquidity     MetricCategory = "LIQUIDITY"
	Efficiency    MetricCategory = "EFFICIENCY"
	Growth        MetricCategory = "GROWTH"
)

type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

type QualityIssueKind string

const (
	NegativeRevenue      QualityIssueKind = "negative_revenue"
	BalanceSheetMismatch QualityIssueKind = "balance_sheet_mismatch"
	MissingFields        QualityIssueKind = "missing_fields"
)

// QualityIssue describes one advisory data-quality finding. Issues are
// collected into the run's audit record; they never block loading.
type QualityIssue struct {
	Symbol     string           `json:"company,omitempty"`
	Statement  StatementType    `json:"statement,omitempty"`
	FiscalYear int              `json:"year"`
	Kind       QualityIssueKind `json:"error"`

	// supporting values, populated depending on Kind
	Value      *float64 `json:"value,omitempty"`
	Difference *float64 `json:"difference,omitempty"`
	Assets     *float64 `json:"assets,omitempty"`
	LiabEquity *float64 `json:"liabilities_equity,omitempty"`
	Fields     []string `json:"fields,omitempty"`
}

// RunStats accumulates statistics over one pipeline invocation. It is owned
// exclusively by the orchestrator and becomes the etl_runs audit row.
type RunStats struct {
	ID                 uuid.UUID
	WorkflowName       string
	CompaniesProcessed int
	APICallsMade       int
	APIFailures        int
	QualityIssues      []QualityIssue
	ExecutionTime      time.Duration
	Status             RunStatus
	ErrorDetails       string
}

func (stats *RunStats) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", stats.ID.String())
	e.Str("Workflow", stats.WorkflowName)
	e.Int("CompaniesProcessed", stats.CompaniesProcessed)
	e.Int("APICallsMade", stats.APICallsMade)
	e.Int("APIFailures", stats.APIFailures)
	e.Int("QualityIssues", len(stats.QualityIssues))
	e.Dur("ExecutionTime", stats.ExecutionTime)
	e.Str("Status", string(stats.Status))
}
