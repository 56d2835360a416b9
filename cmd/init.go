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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/windvane/finetl/db"
	"github.com/windvane/finetl/healthcheck"
)

type initSettings struct {
	DBUrl        string `toml:"db_url"`
	APIKey       string `toml:"api_key"`
	Companies    string `toml:"companies"`
	WorkflowName string `toml:"workflow_name"`
	CheckID      string `toml:"check_id,omitempty"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather configuration and setup the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		settings := initSettings{
			WorkflowName: "finetl",
		}

		registerCheck := false

		form := huh.NewForm(
			// Get details about the database and upstream API
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&settings.DBUrl).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),

				huh.NewInput().
					Title("Enter your statement API key:").
					Value(&settings.APIKey),
			),

			// Pipeline configuration
			huh.NewGroup(
				huh.NewInput().
					Title("Which ticker symbols should be ingested (comma separated)?").
					Value(&settings.Companies),

				huh.NewConfirm().
					Title("Register a healthchecks.io check for this pipeline?").
					Value(&registerCheck),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		dbURL := strings.Replace(settings.DBUrl, "postgres://", "pgx5://", -1)
		err = db.Migrate(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		if registerCheck {
			checkSlug := slug.Make(settings.WorkflowName)
			checkID, err := healthcheck.Create(settings.WorkflowName, checkSlug,
				[]string{"finetl"}, "0 6 * * *")
			if err != nil {
				log.Error().Err(err).Msg("could not register health check")
			} else {
				settings.CheckID = checkID
				log.Info().Str("CheckID", checkID).Msg("registered health check")
			}
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".finetl.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving settings to config file")

		configData, err := toml.Marshal(map[string]any{
			"db":           map[string]string{"url": settings.DBUrl},
			"alphavantage": map[string]string{"apikey": settings.APIKey},
			"etl": map[string]string{
				"companies":     settings.Companies,
				"workflow_name": settings.WorkflowName,
			},
			"healthchecks": map[string]string{"check_id": settings.CheckID},
		})
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your statement library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
