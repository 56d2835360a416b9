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
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/etl"
	"github.com/windvane/finetl/provider"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finetl",
	Short: "finetl ingests annual financial statements and derives company ratios",
	Long: `finetl is a command line utility that maintains a small relational library
of annual financial statement data for a configured set of public companies.

Each run fetches income statement, balance sheet, and cash flow data from the
upstream statement API, normalizes it into per-metric records, validates data
quality, loads everything with idempotent upserts, and recomputes derived
profitability, liquidity, efficiency, and growth ratios. Every invocation is
recorded in an append-only audit table that the reporting dashboard and the
workflow scheduler read.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.finetl.toml)")
	rootCmd.PersistentFlags().String("dbUrl", "", "database connection string")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("dbUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbUrl failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".finetl" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".finetl")
	}

	viper.SetDefault("etl.workflow_name", "finetl")
	viper.SetDefault("etl.companies", "TEL,ST,DD")
	viper.SetDefault("etl.years_to_fetch", 3)
	viper.SetDefault("alphavantage.base_url", "https://www.alphavantage.co/query")
	viper.SetDefault("alphavantage.delay_seconds", 12)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// pipelineConfig translates the viper settings into explicit configuration
// values. Business logic only ever sees these structs; missing secrets fail
// fast here, before any network call.
func pipelineConfig() (etl.Config, provider.Config) {
	if viper.GetString("db.url") == "" {
		log.Fatal().Msg("db.url is not configured")
	}

	if viper.GetString("alphavantage.apikey") == "" {
		log.Fatal().Msg("alphavantage.apikey is not configured")
	}

	symbols := []string{}
	for _, symbol := range strings.Split(viper.GetString("etl.companies"), ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		log.Fatal().Msg("etl.companies is empty")
	}

	etlCfg := etl.Config{
		WorkflowName: viper.GetString("etl.workflow_name"),
		Symbols:      symbols,
		YearsToFetch: viper.GetInt("etl.years_to_fetch"),
	}

	providerCfg := provider.Config{
		APIKey:    viper.GetString("alphavantage.apikey"),
		BaseURL:   viper.GetString("alphavantage.base_url"),
		CallDelay: time.Duration(viper.GetInt("alphavantage.delay_seconds")) * time.Second,
	}

	return etlCfg, providerCfg
}
