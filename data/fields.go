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

// Canonical metric names for statement fields. Calculations and quality
// checks reference these constants rather than raw strings so a renamed
// field breaks the build instead of silently producing empty metrics.
const (
	TotalRevenue           = "total_revenue"
	CostOfRevenue          = "cost_of_revenue"
	GrossProfit            = "gross_profit"
	OperatingIncome        = "operating_income"
	NetIncome              = "net_income"
	EBITDA                 = "ebitda"
	ResearchAndDevelopment = "research_and_development"
	OperatingExpenses      = "operating_expenses"

	TotalAssets        = "total_assets"
	CurrentAssets      = "current_assets"
	CashAndEquivalents = "cash_and_equivalents"
	Inventory          = "inventory"
	TotalLiabilities   = "total_liabilities"
	CurrentLiabilities = "current_liabilities"
	TotalEquity        = "total_equity"
	LongTermDebt       = "long_term_debt"
	CurrentDebt        = "current_debt"

	OperatingCashflow   = "operating_cashflow"
	InvestingCashflow   = "investing_cashflow"
	FinancingCashflow   = "financing_cashflow"
	CapitalExpenditures = "capital_expenditures"
)

// FieldMapping binds one upstream field name to its canonical metric name.
type FieldMapping struct {
	APIField   string
	MetricName string
}

// FieldMappings is the per-statement-type extraction table. One record is
// emitted per mapping for every annual report, whether or not the upstream
// value parses.
var FieldMappings = map[StatementType][]FieldMapping{
	IncomeStatement: {
		{"totalRevenue", TotalRevenue},
		{"costOfRevenue", CostOfRevenue},
		{"grossProfit", GrossProfit},
		{"operatingIncome", OperatingIncome},
		{"netIncome", NetIncome},
		{"ebitda", EBITDA},
		{"researchAndDevelopment", ResearchAndDevelopment},
		{"operatingExpenses", OperatingExpenses},
	},
	BalanceSheet: {
		{"totalAssets", TotalAssets},
		{"totalCurrentAssets", CurrentAssets},
		{"cashAndCashEquivalentsAtCarryingValue", CashAndEquivalents},
		{"inventory", Inventory},
		{"totalLiabilities", TotalLiabilities},
		{"totalCurrentLiabilities", CurrentLiabilities},
		{"totalShareholderEquity", TotalEquity},
		{"longTermDebt", LongTermDebt},
		{"currentDebt", CurrentDebt},
	},
	CashFlow: {
		{"operatingCashflow", OperatingCashflow},
		{"cashflowFromInvestment", InvestingCashflow},
		{"cashflowFromFinancing", FinancingCashflow},
		{"capitalExpenditures", CapitalExpenditures},
	},
}
