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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/library"
	"github.com/windvane/finetl/provider"
)

// StatementFetcher obtains raw statement payloads from the upstream API.
type StatementFetcher interface {
	FetchAllStatements(ctx context.Context, symbol string) (map[data.StatementType]*provider.StatementPayload, int)
}

// Store is the persistence surface the pipeline writes through.
type Store interface {
	StatementSource

	CompanyID(ctx context.Context, symbol string) (int64, error)
	BulkSaveStatements(ctx context.Context, records []*data.StatementRecord) (int, error)
	TouchCompany(ctx context.Context, companyID int64) error
	LogRun(ctx context.Context, stats *data.RunStats) error
}

// Config carries the externally supplied pipeline settings.
type Config struct {
	WorkflowName string
	Symbols      []string
	YearsToFetch int
}

// Pipeline sequences extract, transform, load, and calculate across the
// configured company list. Execution is sequential and blocking; the
// upstream quota is shared, so a fixed-cadence loop satisfies it exactly
// and nothing is processed in parallel.
type Pipeline struct {
	cfg         Config
	fetcher     StatementFetcher
	store       Store
	transformer *Transformer
	calculator  *Calculator
}

func NewPipeline(cfg Config, fetcher StatementFetcher, store Store) *Pipeline {
	if cfg.WorkflowName == "" {
		cfg.WorkflowName = "finetl"
	}

	return &Pipeline{
		cfg:         cfg,
		fetcher:     fetcher,
		store:       store,
		transformer: NewTransformer(cfg.YearsToFetch),
		calculator:  NewCalculator(store),
	}
}

// Run executes the pipeline over every configured symbol and returns the
// accumulated statistics. A company lookup miss or an empty fetch result
// is counted and skipped; any other failure stops the run with status
// FAILED. The audit row is written on every path, with whatever statistics
// accumulated before a failure and the end-to-end execution time.
func (pipeline *Pipeline) Run(ctx context.Context) (stats *data.RunStats, err error) {
	logger := zerolog.Ctx(ctx)

	stats = &data.RunStats{
		ID:           uuid.New(),
		WorkflowName: pipeline.cfg.WorkflowName,
		Status:       data.RunSuccess,
	}

	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}

		if err != nil {
			stats.Status = data.RunFailed
			stats.ErrorDetails = err.Error()
		}

		stats.ExecutionTime = time.Since(startTime)

		// the audit row is written regardless of outcome; a logging
		// failure is reported on its own and never overrides the real
		// pipeline result
		if logErr := pipeline.store.LogRun(ctx, stats); logErr != nil {
			logger.Error().Err(logErr).Msg("failed to log etl run")
		} else {
			logger.Info().Object("Stats", stats).Msg("logged etl run")
		}
	}()

	logger.Info().Strs("Symbols", pipeline.cfg.Symbols).Str("Workflow", pipeline.cfg.WorkflowName).
		Msg("starting pipeline")

	for _, symbol := range pipeline.cfg.Symbols {
		if err = pipeline.processCompany(ctx, symbol, stats); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (pipeline *Pipeline) processCompany(ctx context.Context, symbol string, stats *data.RunStats) error {
	logger := zerolog.Ctx(ctx)

	companyID, err := pipeline.store.CompanyID(ctx, symbol)
	if errors.Is(err, library.ErrCompanyNotFound) {
		logger.Error().Str("Symbol", symbol).Msg("company not configured, skipping")
		stats.APIFailures++
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up company %s: %w", symbol, err)
	}

	statements, attempted := pipeline.fetcher.FetchAllStatements(ctx, symbol)
	stats.APICallsMade += attempted
	stats.APIFailures += attempted - len(statements)

	if len(statements) == 0 {
		logger.Warn().Str("Symbol", symbol).Msg("no statements fetched, skipping")
		return nil
	}

	totalRecords := 0
	for _, stmtType := range data.StatementTypes {
		payload, ok := statements[stmtType]
		if !ok {
			continue
		}

		records := pipeline.transformer.Records(ctx, companyID, stmtType, payload)

		issues := ValidateQuality(records)
		for idx := range issues {
			issues[idx].Symbol = symbol
			issues[idx].Statement = stmtType
		}
		if len(issues) > 0 {
			logger.Warn().Str("Symbol", symbol).Str("Statement", string(stmtType)).
				Int("NumIssues", len(issues)).Msg("data quality issues found")
			stats.QualityIssues = append(stats.QualityIssues, issues...)
		}

		saved, err := pipeline.store.BulkSaveStatements(ctx, records)
		if err != nil {
			return fmt.Errorf("loading %s statements for %s: %w", stmtType, symbol, err)
		}
		totalRecords += saved
	}

	if err := pipeline.store.TouchCompany(ctx, companyID); err != nil {
		return fmt.Errorf("touching company %s: %w", symbol, err)
	}

	logger.Info().Str("Symbol", symbol).Int("NumRecords", totalRecords).Msg("statements loaded")

	if err := pipeline.calculator.CalculateAll(ctx, companyID); err != nil {
		return fmt.Errorf("calculating metrics for %s: %w", symbol, err)
	}

	stats.CompaniesProcessed++
	return nil
}
