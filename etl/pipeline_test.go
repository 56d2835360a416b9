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
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/etl"
	"github.com/windvane/finetl/provider"
)

// fullStatements builds a clean three-statement payload set for one recent
// fiscal year, chosen relative to the wall clock so the transformer's year
// window always keeps it.
func fullStatements(symbol string) map[data.StatementType]*provider.StatementPayload {
	fiscalDate := fmt.Sprintf("%d-12-31", time.Now().Year()-1)

	return map[data.StatementType]*provider.StatementPayload{
		data.IncomeStatement: {
			Symbol: symbol,
			AnnualReports: []provider.AnnualReport{{
				"fiscalDateEnding": fiscalDate,
				"totalRevenue":     "1000",
				"costOfRevenue":    "600",
				"operatingIncome":  "200",
				"netIncome":        "100",
			}},
		},
		data.BalanceSheet: {
			Symbol: symbol,
			AnnualReports: []provider.AnnualReport{{
				"fiscalDateEnding":        fiscalDate,
				"totalAssets":             "5000",
				"totalLiabilities":        "3000",
				"totalShareholderEquity":  "2000",
				"totalCurrentAssets":      "500",
				"totalCurrentLiabilities": "250",
				"inventory":               "100",
			}},
		},
		data.CashFlow: {
			Symbol: symbol,
			AnnualReports: []provider.AnnualReport{{
				"fiscalDateEnding":  fiscalDate,
				"operatingCashflow": "300",
			}},
		},
	}
}

var _ = Describe("Pipeline", func() {
	var (
		ctx     context.Context
		store   *fakeStore
		fetcher *fakeFetcher
		cfg     etl.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore(map[string]int64{"TEL": 1, "ST": 2})
		fetcher = &fakeFetcher{
			payloads: map[string]map[data.StatementType]*provider.StatementPayload{
				"TEL": fullStatements("TEL"),
				"ST":  fullStatements("ST"),
			},
		}
		cfg = etl.Config{
			WorkflowName: "finetl-test",
			Symbols:      []string{"TEL", "ST"},
			YearsToFetch: 3,
		}
	})

	It("processes every configured company and records run statistics", func() {
		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunSuccess))
		Expect(stats.WorkflowName).To(Equal("finetl-test"))
		Expect(stats.CompaniesProcessed).To(Equal(2))
		Expect(stats.APICallsMade).To(Equal(6))
		Expect(stats.APIFailures).To(BeZero())
		Expect(stats.ExecutionTime).To(BeNumerically(">", 0))

		Expect(store.rows).NotTo(BeEmpty())
		Expect(store.touched).To(ConsistOf(int64(1), int64(2)))
		Expect(store.savedMetrics).NotTo(BeEmpty())
		Expect(store.loggedRuns).To(HaveLen(1))
		Expect(store.loggedRuns[0]).To(BeIdenticalTo(stats))
	})

	It("derives metrics from the persisted rows during the run", func() {
		_, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		byCompany := make(map[int64]map[string]float64)
		for _, metric := range store.savedMetrics {
			if byCompany[metric.CompanyID] == nil {
				byCompany[metric.CompanyID] = make(map[string]float64)
			}
			byCompany[metric.CompanyID][metric.MetricName] = metric.MetricValue
		}

		Expect(byCompany[1]).To(HaveKeyWithValue(etl.GrossMarginPct, 40.00))
		Expect(byCompany[1]).To(HaveKeyWithValue(etl.CurrentRatio, 2.00))
		Expect(byCompany[2]).To(HaveKeyWithValue(etl.NetMarginPct, 10.00))
	})

	It("skips an unconfigured symbol with a counted failure and continues", func() {
		cfg.Symbols = []string{"XYZ", "TEL"}

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunSuccess))
		Expect(stats.CompaniesProcessed).To(Equal(1))
		Expect(stats.APIFailures).To(Equal(1))
		Expect(stats.APICallsMade).To(Equal(3), "no calls are spent on an unknown company")
		Expect(fetcher.fetched).To(Equal([]string{"TEL"}))
	})

	It("counts an empty fetch as failed calls and skips the company", func() {
		delete(fetcher.payloads, "ST")

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunSuccess))
		Expect(stats.CompaniesProcessed).To(Equal(1))
		Expect(stats.APICallsMade).To(Equal(6))
		Expect(stats.APIFailures).To(Equal(3))
		Expect(store.touched).To(ConsistOf(int64(1)))
	})

	It("annotates quality issues with the company and statement type", func() {
		fetcher.payloads["TEL"][data.IncomeStatement].AnnualReports[0]["totalRevenue"] = "-1000"

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		var negatives []data.QualityIssue
		for _, issue := range stats.QualityIssues {
			if issue.Kind == data.NegativeRevenue {
				negatives = append(negatives, issue)
			}
		}

		Expect(negatives).To(HaveLen(1))
		Expect(negatives[0].Symbol).To(Equal("TEL"))
		Expect(negatives[0].Statement).To(Equal(data.IncomeStatement))
	})

	It("loads records despite advisory quality issues", func() {
		fetcher.payloads["TEL"][data.IncomeStatement].AnnualReports[0]["totalRevenue"] = "-1000"

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunSuccess))
		Expect(stats.CompaniesProcessed).To(Equal(2))
		Expect(store.rows).NotTo(BeEmpty())
	})

	It("fails the run on a persistence error but still logs the audit row", func() {
		store.saveErr = errors.New("connection refused")

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)

		Expect(err).To(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunFailed))
		Expect(stats.ErrorDetails).To(ContainSubstring("connection refused"))
		Expect(stats.CompaniesProcessed).To(BeZero())
		Expect(store.loggedRuns).To(HaveLen(1))
		Expect(store.loggedRuns[0].Status).To(Equal(data.RunFailed))
	})

	It("does not let an audit logging failure override the pipeline result", func() {
		store.logErr = errors.New("audit table missing")

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Status).To(Equal(data.RunSuccess))
		Expect(stats.CompaniesProcessed).To(Equal(2))
	})

	It("yields identical rows when run twice over the same input", func() {
		pipeline := etl.NewPipeline(cfg, fetcher, store)

		_, err := pipeline.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		firstCount := len(store.rows)
		firstRevenue := *store.rows[rowKey(&data.StatementRecord{
			CompanyID:     1,
			StatementType: data.IncomeStatement,
			FiscalYear:    time.Now().Year() - 1,
			FiscalPeriod:  "FY",
			MetricName:    data.TotalRevenue,
		})].MetricValue

		_, err = pipeline.Run(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.rows).To(HaveLen(firstCount))
		secondRevenue := *store.rows[rowKey(&data.StatementRecord{
			CompanyID:     1,
			StatementType: data.IncomeStatement,
			FiscalYear:    time.Now().Year() - 1,
			FiscalPeriod:  "FY",
			MetricName:    data.TotalRevenue,
		})].MetricValue
		Expect(secondRevenue).To(Equal(firstRevenue))
	})

	It("defaults the workflow name when none is configured", func() {
		cfg.WorkflowName = ""

		stats, err := etl.NewPipeline(cfg, fetcher, store).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.WorkflowName).To(Equal("finetl"))
	})
})
