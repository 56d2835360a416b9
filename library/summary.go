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
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the data library and its most recent
// pipeline run in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# finetl data library\n\n")
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n\n", myLibrary.DBUrl))

	companies, err := myLibrary.Companies(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Companies Tracked: %d\n", len(companies)))

	totalStatements, err := myLibrary.TotalStatementRecords(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Statement Records: %d\n", totalStatements))

	totalMetrics, err := myLibrary.TotalCalculatedMetrics(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Calculated Metrics: %d\n\n", totalMetrics))

	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	if lastUpdated.Equal(time.Time{}) {
		builder.WriteString("Last Updated: Never\n\n")
	} else {
		age := timeago.English.Format(lastUpdated)
		builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006")))
	}

	// last pipeline run
	builder.WriteString("## Last Run\n\n")

	lastRun, err := myLibrary.LastRun(ctx)
	if err != nil {
		return "", err
	}

	if lastRun == nil {
		builder.WriteString("No pipeline runs recorded.\n\n")
		return builder.String(), nil
	}

	builder.WriteString(fmt.Sprintf("  * Workflow: %s\n", lastRun.WorkflowName))
	builder.WriteString(fmt.Sprintf("  * Ran: %s (%s)\n", timeago.English.Format(lastRun.RunDate),
		lastRun.RunDate.Local().Format("01/02/2006 15:04")))
	builder.WriteString(p.Sprintf("  * Companies Processed: %d\n", lastRun.CompaniesProcessed))
	builder.WriteString(p.Sprintf("  * API Calls: %d (%d failed)\n", lastRun.APICallsMade, lastRun.APIFailures))
	builder.WriteString(fmt.Sprintf("  * Execution Time: %ds\n", lastRun.ExecutionTimeSeconds))
	builder.WriteString(fmt.Sprintf("  * Status: %s\n", lastRun.Status))

	if lastRun.ErrorDetails != "" {
		builder.WriteString(fmt.Sprintf("  * Error: %s\n", lastRun.ErrorDetails))
	}

	builder.WriteString("\n## Companies\n\n")

	for _, company := range companies {
		builder.WriteString(p.Sprintf("  * %s %s (%s)\n", company.Symbol, company.Name, company.Sector))
	}

	return builder.String(), nil
}
