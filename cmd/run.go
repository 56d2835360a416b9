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
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/etl"
	"github.com/windvane/finetl/healthcheck"
	"github.com/windvane/finetl/library"
	"github.com/windvane/finetl/provider"
)

var dryRun bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the statement ingestion pipeline",
	Long: `The run sub-command executes one full pipeline pass over the configured
company list: fetch statements, transform and validate, load with idempotent
upserts, recompute derived metrics, and record the run in the audit log.
The process exits non-zero when the run fails so the invoking scheduler can
tell success from failure.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := log.Logger.WithContext(context.Background())

		etlCfg, providerCfg := pipelineConfig()

		if dryRun {
			planDryRun(etlCfg)
			return
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		client := provider.NewAlphaVantage(providerCfg)
		pipeline := etl.NewPipeline(etlCfg, client, myLibrary)

		startTime := time.Now()
		stats, runErr := pipeline.Run(ctx)
		runTime := time.Since(startTime)

		log.Info().
			Str("RunTime", durafmt.Parse(runTime).LimitFirstN(2).String()).
			Object("Stats", stats).
			Msg("pipeline finished")

		if checkID := viper.GetString("healthchecks.check_id"); checkID != "" {
			if err := healthcheck.Ping(checkID, stats.Status == data.RunSuccess); err != nil {
				log.Error().Err(err).Msg("could not ping health check")
			}
		}

		if runErr != nil || stats.Status != data.RunSuccess {
			log.Error().Err(runErr).Msg("pipeline failed")
			os.Exit(1)
		}
	},
}

// planDryRun reports the planned call volume without touching the network
// or the database
func planDryRun(cfg etl.Config) {
	log.Info().Strs("Symbols", cfg.Symbols).Msg("companies configured")

	totalCalls := len(cfg.Symbols) * len(data.StatementTypes)
	estimated := time.Duration(totalCalls) * 12 * time.Second

	log.Info().
		Int("CompaniesPlanned", len(cfg.Symbols)).
		Int("APICallsPlanned", totalCalls).
		Str("EstimatedDuration", durafmt.Parse(estimated).LimitFirstN(2).String()).
		Msg("dry run summary")
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the run without network or database access")
}
