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
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/windvane/finetl/data"
)

// Derived metric names.
const (
	GrossMarginPct     = "gross_margin_pct"
	OperatingMarginPct = "operating_margin_pct"
	NetMarginPct       = "net_margin_pct"
	CurrentRatio       = "current_ratio"
	QuickRatio         = "quick_ratio"
	AssetTurnover      = "asset_turnover"
	RevenueYoYPct      = "revenue_yoy_pct"
	NetIncomeYoYPct    = "net_income_yoy_pct"
)

// StatementSource is the calculator's only view of statement data: the
// persisted rows, never the raw API response.
type StatementSource interface {
	FiscalYears(ctx context.Context, companyID int64) ([]int, error)
	StatementData(ctx context.Context, companyID int64, fiscalYear int) (map[string]float64, error)
	SaveMetrics(ctx context.Context, metrics []*data.CalculatedMetric) error
}

// Calculator derives financial ratios from persisted statement rows. For a
// fixed set of rows the output is deterministic; every metric value is a
// pure function of the current year and the next-older year with data.
type Calculator struct {
	source StatementSource
}

func NewCalculator(source StatementSource) *Calculator {
	return &Calculator{source: source}
}

// CalculateAll recomputes every derived metric for every fiscal year this
// company has statement data for. The "previous" year for growth and
// efficiency ratios is the next-older year actually present, so a gap in
// the data does not silently compare against nothing.
func (cal *Calculator) CalculateAll(ctx context.Context, companyID int64) error {
	logger := zerolog.Ctx(ctx)

	years, err := cal.source.FiscalYears(ctx, companyID)
	if err != nil {
		return fmt.Errorf("fetching fiscal years: %w", err)
	}

	logger.Info().Int64("CompanyID", companyID).Ints("Years", years).Msg("calculating metrics")

	for idx, year := range years {
		values, err := cal.source.StatementData(ctx, companyID, year)
		if err != nil {
			return fmt.Errorf("fetching statement data for %d: %w", year, err)
		}

		var prev map[string]float64
		if idx+1 < len(years) {
			prev, err = cal.source.StatementData(ctx, companyID, years[idx+1])
			if err != nil {
				return fmt.Errorf("fetching statement data for %d: %w", years[idx+1], err)
			}
		}

		metrics := ComputeMetrics(values, prev)
		for _, metric := range metrics {
			metric.CompanyID = companyID
			metric.FiscalYear = year
		}

		if err := cal.source.SaveMetrics(ctx, metrics); err != nil {
			return fmt.Errorf("saving metrics for %d: %w", year, err)
		}

		logger.Info().Int64("CompanyID", companyID).Int("FiscalYear", year).
			Int("NumMetrics", len(metrics)).Msg("calculated metrics for year")
	}

	return nil
}

// CalculateBatch recomputes metrics for a list of companies. A failure for
// one company is logged and does not abort the rest of the batch.
func (cal *Calculator) CalculateBatch(ctx context.Context, companies []*data.Company) {
	logger := zerolog.Ctx(ctx)

	for _, company := range companies {
		if err := cal.CalculateAll(ctx, company.ID); err != nil {
			logger.Error().Err(err).Str("Symbol", company.Symbol).Msg("metric calculation failed")
			continue
		}

		logger.Info().Str("Symbol", company.Symbol).Msg("metrics recomputed")
	}
}

// ComputeMetrics derives every ratio computable from one year's statement
// values and the previous year's (nil when no older year exists). Presence
// in the value maps means the underlying statement row held a non-null
// figure. Every denominator is guarded: a zero or missing denominator
// skips that specific metric, never produces NaN or infinity.
func ComputeMetrics(values, prev map[string]float64) []*data.CalculatedMetric {
	metrics := profitabilityMetrics(values)
	metrics = append(metrics, liquidityMetrics(values)...)

	if prev != nil {
		metrics = append(metrics, efficiencyMetrics(values, prev)...)
		metrics = append(metrics, growthMetrics(values, prev)...)
	}

	return metrics
}

func profitabilityMetrics(values map[string]float64) []*data.CalculatedMetric {
	var metrics []*data.CalculatedMetric

	revenue, hasRevenue := values[data.TotalRevenue]
	if !hasRevenue || revenue <= 0 {
		return metrics
	}

	cogs := values[data.CostOfRevenue] // zero when absent
	metrics = append(metrics, &data.CalculatedMetric{
		MetricName:  GrossMarginPct,
		MetricValue: round2((revenue - cogs) / revenue * 100),
		Category:    data.Profitability,
	})

	if operatingIncome, ok := values[data.OperatingIncome]; ok {
		metrics = append(metrics, &data.CalculatedMetric{
			MetricName:  OperatingMarginPct,
			MetricValue: round2(operatingIncome / revenue * 100),
			Category:    data.Profitability,
		})
	}

	if netIncome, ok := values[data.NetIncome]; ok {
		metrics = append(metrics, &data.CalculatedMetric{
			MetricName:  NetMarginPct,
			MetricValue: round2(netIncome / revenue * 100),
			Category:    data.Profitability,
		})
	}

	return metrics
}

func liquidityMetrics(values map[string]float64) []*data.CalculatedMetric {
	var metrics []*data.CalculatedMetric

	currentLiabilities, ok := values[data.CurrentLiabilities]
	if !ok || currentLiabilities <= 0 {
		return metrics
	}

	currentAssets := values[data.CurrentAssets]
	metrics = append(metrics, &data.CalculatedMetric{
		MetricName:  CurrentRatio,
		MetricValue: round2(currentAssets / currentLiabilities),
		Category:    data.Liquidity,
	})

	inventory := values[data.Inventory] // defaults to 0 if absent
	metrics = append(metrics, &data.CalculatedMetric{
		MetricName:  QuickRatio,
		MetricValue: round2((currentAssets - inventory) / currentLiabilities),
		Category:    data.Liquidity,
	})

	return metrics
}

func efficiencyMetrics(values, prev map[string]float64) []*data.CalculatedMetric {
	var metrics []*data.CalculatedMetric

	assets, hasAssets := values[data.TotalAssets]
	prevAssets, hasPrevAssets := prev[data.TotalAssets]
	revenue, hasRevenue := values[data.TotalRevenue]

	if !hasAssets || !hasPrevAssets || !hasRevenue {
		return metrics
	}

	avgAssets := (assets + prevAssets) / 2
	if avgAssets <= 0 {
		return metrics
	}

	metrics = append(metrics, &data.CalculatedMetric{
		MetricName:  AssetTurnover,
		MetricValue: round2(revenue / avgAssets),
		Category:    data.Efficiency,
	})

	return metrics
}

func growthMetrics(values, prev map[string]float64) []*data.CalculatedMetric {
	var metrics []*data.CalculatedMetric

	if prevRevenue, ok := prev[data.TotalRevenue]; ok && prevRevenue > 0 {
		revenue := values[data.TotalRevenue]
		metrics = append(metrics, &data.CalculatedMetric{
			MetricName:  RevenueYoYPct,
			MetricValue: round2((revenue - prevRevenue) / prevRevenue * 100),
			Category:    data.Growth,
		})
	}

	// the absolute-value denominator preserves the sign of the swing, so a
	// move from loss to profit reports a large positive change instead of a
	// sign-flip artifact
	if prevNetIncome, ok := prev[data.NetIncome]; ok && prevNetIncome != 0 {
		netIncome := values[data.NetIncome]
		metrics = append(metrics, &data.CalculatedMetric{
			MetricName:  NetIncomeYoYPct,
			MetricValue: round2((netIncome - prevNetIncome) / math.Abs(prevNetIncome) * 100),
			Category:    data.Growth,
		})
	}

	return metrics
}

// round2 rounds to 2 decimal places before storage
func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
