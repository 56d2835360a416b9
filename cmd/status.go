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

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/library"
)

var (
	successBadge = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failedBadge  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the data library and the most recent pipeline run",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not load library info")
		}
		defer myLibrary.Close()

		summary, err := myLibrary.Summary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create library summary document")
		}

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(summary)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)

		lastRun, err := myLibrary.LastRun(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not read last run")
		}

		if lastRun != nil {
			badge := successBadge.Render(string(data.RunSuccess))
			if lastRun.Status != data.RunSuccess {
				badge = failedBadge.Render(string(data.RunFailed))
			}
			fmt.Printf("Last run status: %s\n", badge)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
