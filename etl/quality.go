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
	"math"
	"sort"

	"github.com/windvane/finetl/data"
)

// balanceAbsoluteTolerance applies when total assets are not positive, so
// the 1% relative tolerance has nothing to scale against.
const balanceAbsoluteTolerance = 1000.0

var requiredFields = []string{data.TotalRevenue, data.NetIncome, data.TotalAssets}

// ValidateQuality runs the per-year advisory checks over a batch of
// statement records: revenue must not be negative, the balance sheet must
// balance within tolerance, and the critical fields must be present.
// Issues are collected for the run's audit record and never block loading.
func ValidateQuality(records []*data.StatementRecord) []data.QualityIssue {
	byYear := make(map[int]map[string]*float64)
	for _, record := range records {
		year := record.FiscalYear
		if byYear[year] == nil {
			byYear[year] = make(map[string]*float64)
		}
		byYear[year][record.MetricName] = record.MetricValue
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	var issues []data.QualityIssue

	for _, year := range years {
		metrics := byYear[year]

		if revenue := metrics[data.TotalRevenue]; revenue != nil && *revenue < 0 {
			issues = append(issues, data.QualityIssue{
				FiscalYear: year,
				Kind:       data.NegativeRevenue,
				Value:      revenue,
			})
		}

		assets := metrics[data.TotalAssets]
		liabilities := metrics[data.TotalLiabilities]
		equity := metrics[data.TotalEquity]

		if assets != nil && liabilities != nil && equity != nil {
			liabEquity := *liabilities + *equity
			diff := math.Abs(*assets - liabEquity)

			tolerance := balanceAbsoluteTolerance
			if *assets > 0 {
				tolerance = *assets * 0.01
			}

			// a difference exactly at the tolerance is a violation
			if diff >= tolerance {
				issues = append(issues, data.QualityIssue{
					FiscalYear: year,
					Kind:       data.BalanceSheetMismatch,
					Difference: &diff,
					Assets:     assets,
					LiabEquity: &liabEquity,
				})
			}
		}

		var missing []string
		for _, field := range requiredFields {
			if metrics[field] == nil {
				missing = append(missing, field)
			}
		}

		if len(missing) > 0 {
			issues = append(issues, data.QualityIssue{
				FiscalYear: year,
				Kind:       data.MissingFields,
				Fields:     missing,
			})
		}
	}

	return issues
}
