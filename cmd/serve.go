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
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/library"
	"github.com/windvane/finetl/trigger"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP trigger API",
	Long: `The serve sub-command exposes the thin HTTP wrapper used by the workflow
scheduler: POST /run-etl executes the pipeline as a bounded subprocess,
GET /status reports the most recent audit row, and GET /health is a liveness
probe.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		if viper.GetString("db.url") == "" {
			log.Fatal().Msg("db.url is not configured")
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		server := trigger.NewServer(myLibrary)

		addr := fmt.Sprintf(":%d", servePort)
		log.Info().Str("Addr", addr).Msg("trigger API listening")

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if err := httpServer.ListenAndServe(); err != nil {
			log.Fatal().Err(err).Msg("trigger API stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "port to listen on")
}
