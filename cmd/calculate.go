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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/etl"
	"github.com/windvane/finetl/library"
)

// calculateCmd represents the calculate command
var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Recompute derived metrics for every company",
	Long: `The calculate sub-command recomputes all derived financial ratios from
the persisted statement rows without fetching anything from the upstream
API. One company failing does not stop the rest of the batch.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := log.Logger.WithContext(context.Background())

		if viper.GetString("db.url") == "" {
			log.Fatal().Msg("db.url is not configured")
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		companies, err := myLibrary.Companies(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list companies")
		}

		log.Info().Int("NumCompanies", len(companies)).Msg("recomputing metrics")

		calculator := etl.NewCalculator(myLibrary)
		calculator.CalculateBatch(ctx, companies)
	},
}

func init() {
	rootCmd.AddCommand(calculateCmd)
}
