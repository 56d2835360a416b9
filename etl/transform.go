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
package etl

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/provider"
)

const (
	fiscalPeriodAnnual = "FY"
	reportedCurrency   = "USD"
)

// Transformer maps upstream statement payloads to canonical statement
// records. Only annual reports inside the configured year window are kept.
type Transformer struct {
	YearsToFetch int

	// Now is the clock used for the year cutoff; tests pin it.
	Now func() time.Time
}

func NewTransformer(yearsToFetch int) *Transformer {
	return &Transformer{
		YearsToFetch: yearsToFetch,
		Now:          time.Now,
	}
}

// Records converts one statement payload into statement records. One record
// is emitted per mapped field per report, even when the upstream value is
// missing or unparseable (the value is null in that case, never zero).
// Reports are filtered by a hard calendar-year cutoff: fiscal years older
// than currentYear - YearsToFetch are dropped regardless of how many
// reports the payload holds.
func (transformer *Transformer) Records(ctx context.Context, companyID int64, stmtType data.StatementType, payload *provider.StatementPayload) []*data.StatementRecord {
	logger := zerolog.Ctx(ctx)

	records := make([]*data.StatementRecord, 0, len(payload.AnnualReports)*8)

	if len(payload.AnnualReports) == 0 {
		logger.Warn().Str("Statement", string(stmtType)).Msg("no annual reports in payload")
		return records
	}

	minYear := transformer.Now().Year() - transformer.YearsToFetch

	kept := 0
	for _, report := range payload.AnnualReports {
		fiscalYear := report.FiscalYear()
		if fiscalYear == 0 || fiscalYear < minYear {
			continue
		}
		kept++

		rawReport, err := json.Marshal(report)
		if err != nil {
			logger.Error().Err(err).Int("FiscalYear", fiscalYear).Msg("could not serialize raw report")
			continue
		}

		for _, mapping := range data.FieldMappings[stmtType] {
			records = append(records, &data.StatementRecord{
				CompanyID:        companyID,
				StatementType:    stmtType,
				FiscalYear:       fiscalYear,
				FiscalPeriod:     fiscalPeriodAnnual,
				MetricName:       mapping.MetricName,
				MetricValue:      data.ParseOptionalFloat(report[mapping.APIField]),
				ReportedCurrency: reportedCurrency,
				RawData:          rawReport,
			})
		}
	}

	logger.Info().Str("Statement", string(stmtType)).
		Int("TotalReports", len(payload.AnnualReports)).
		Int("KeptReports", kept).
		Int("NumRecords", len(records)).
		Msg("transformed statement payload")

	return records
}
