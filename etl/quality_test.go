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
package etl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/etl"
)

func record(year int, name string, value *float64) *data.StatementRecord {
	return &data.StatementRecord{
		CompanyID:    1,
		FiscalYear:   year,
		FiscalPeriod: "FY",
		MetricName:   name,
		MetricValue:  value,
	}
}

func val(v float64) *float64 {
	return &v
}

// completeYear returns records that pass every check for the given year.
func completeYear(year int) []*data.StatementRecord {
	return []*data.StatementRecord{
		record(year, data.TotalRevenue, val(1000)),
		record(year, data.NetIncome, val(100)),
		record(year, data.TotalAssets, val(5000)),
		record(year, data.TotalLiabilities, val(3000)),
		record(year, data.TotalEquity, val(2000)),
	}
}

var _ = Describe("ValidateQuality", func() {
	It("reports nothing for clean statements", func() {
		Expect(etl.ValidateQuality(completeYear(2023))).To(BeEmpty())
	})

	Describe("negative revenue", func() {
		It("flags a negative revenue figure", func() {
			records := []*data.StatementRecord{
				record(2023, data.TotalRevenue, val(-500)),
				record(2023, data.NetIncome, val(10)),
				record(2023, data.TotalAssets, val(100)),
			}

			issues := etl.ValidateQuality(records)
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal(data.NegativeRevenue))
			Expect(issues[0].FiscalYear).To(Equal(2023))
			Expect(issues[0].Value).To(HaveValue(Equal(-500.0)))
		})

		It("does not flag zero or null revenue as negative", func() {
			records := []*data.StatementRecord{
				record(2022, data.TotalRevenue, val(0)),
				record(2023, data.TotalRevenue, nil),
			}

			for _, issue := range etl.ValidateQuality(records) {
				Expect(issue.Kind).NotTo(Equal(data.NegativeRevenue))
			}
		})
	})

	Describe("balance sheet identity", func() {
		balanceRecords := func(assets, liabilities, equity float64) []*data.StatementRecord {
			return []*data.StatementRecord{
				record(2023, data.TotalRevenue, val(1000)),
				record(2023, data.NetIncome, val(100)),
				record(2023, data.TotalAssets, val(assets)),
				record(2023, data.TotalLiabilities, val(liabilities)),
				record(2023, data.TotalEquity, val(equity)),
			}
		}

		It("accepts a difference inside the 1% tolerance", func() {
			// assets 1000, tolerance 10, difference 5
			Expect(etl.ValidateQuality(balanceRecords(1000, 600, 395))).To(BeEmpty())
		})

		It("flags a difference exactly at the tolerance", func() {
			// assets 1000, tolerance 10, difference 10
			issues := etl.ValidateQuality(balanceRecords(1000, 600, 390))
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal(data.BalanceSheetMismatch))
			Expect(issues[0].Difference).To(HaveValue(Equal(10.0)))
			Expect(issues[0].Assets).To(HaveValue(Equal(1000.0)))
			Expect(issues[0].LiabEquity).To(HaveValue(Equal(990.0)))
		})

		It("flags a difference above the tolerance", func() {
			issues := etl.ValidateQuality(balanceRecords(1000, 500, 300))
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal(data.BalanceSheetMismatch))
		})

		It("falls back to an absolute tolerance when assets are not positive", func() {
			Expect(etl.ValidateQuality(balanceRecords(0, 400, -401))).To(BeEmpty(), "difference 1 against absolute tolerance")

			issues := etl.ValidateQuality(balanceRecords(0, 1500, 0))
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal(data.BalanceSheetMismatch))
		})

		It("skips the check when any side of the identity is null", func() {
			records := []*data.StatementRecord{
				record(2023, data.TotalRevenue, val(1000)),
				record(2023, data.NetIncome, val(100)),
				record(2023, data.TotalAssets, val(1000)),
				record(2023, data.TotalLiabilities, nil),
				record(2023, data.TotalEquity, val(1)),
			}

			Expect(etl.ValidateQuality(records)).To(BeEmpty())
		})
	})

	Describe("required fields", func() {
		It("lists every critical field that is missing or null", func() {
			records := []*data.StatementRecord{
				record(2023, data.TotalRevenue, val(1000)),
				record(2023, data.NetIncome, nil),
			}

			issues := etl.ValidateQuality(records)
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal(data.MissingFields))
			Expect(issues[0].Fields).To(Equal([]string{data.NetIncome, data.TotalAssets}))
		})
	})

	Describe("multiple years", func() {
		It("evaluates each fiscal year independently", func() {
			records := append(completeYear(2022),
				record(2023, data.TotalRevenue, val(-1)),
				record(2023, data.NetIncome, val(5)),
				record(2023, data.TotalAssets, val(10)),
			)

			issues := etl.ValidateQuality(records)
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].FiscalYear).To(Equal(2023))
			Expect(issues[0].Kind).To(Equal(data.NegativeRevenue))
		})
	})
})
