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
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/library"
)

// companiesCmd represents the companies command
var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage the company universe",
}

// companiesImportCmd seeds the companies table from a CSV file with the
// columns symbol, name, sector, industry
var companiesImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Import companies from a CSV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		csvFile, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not open csv file")
		}
		defer csvFile.Close()

		var companies []*data.Company
		if err := gocsv.UnmarshalFile(csvFile, &companies); err != nil {
			log.Fatal().Err(err).Msg("could not parse companies csv")
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		if err := myLibrary.SaveCompanies(ctx, companies); err != nil {
			log.Fatal().Err(err).Msg("could not save companies")
		}

		log.Info().Int("NumCompanies", len(companies)).Msg("companies imported")
	},
}

// companiesListCmd prints the configured companies
var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured companies",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		companies, err := myLibrary.Companies(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list companies")
		}

		for _, company := range companies {
			fmt.Printf("%-8s %-40s %s\n", company.Symbol, company.Name, company.Sector)
		}
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
	companiesCmd.AddCommand(companiesImportCmd)
	companiesCmd.AddCommand(companiesListCmd)
}
