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
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/windvane/finetl/data"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidStatusCode = errors.New("invalid status code received")
	ErrAPIError          = errors.New("upstream returned an error payload")
	ErrRateLimited       = errors.New("upstream rate limit reached")
	ErrUnknownStatement  = errors.New("unknown statement type")
)

// statementFunctions maps each statement type to its upstream query kind.
var statementFunctions = map[data.StatementType]string{
	data.IncomeStatement: "INCOME_STATEMENT",
	data.BalanceSheet:    "BALANCE_SHEET",
	data.CashFlow:        "CASH_FLOW",
}

// AnnualReport is one fiscal year's report as returned by the upstream:
// a flat map of API-native field names to string values.
type AnnualReport map[string]string

// FiscalYear extracts the report's fiscal year from fiscalDateEnding
// (YYYY-MM-DD). Returns 0 when the field is missing or malformed.
func (report AnnualReport) FiscalYear() int {
	fiscalDate := report["fiscalDateEnding"]
	if len(fiscalDate) < 4 {
		return 0
	}

	year := 0
	for _, c := range fiscalDate[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}

	return year
}

// StatementPayload is the decoded upstream document for one
// (symbol, statement type) call.
type StatementPayload struct {
	Symbol        string         `json:"symbol"`
	AnnualReports []AnnualReport `json:"annualReports"`
}

type statementResponse struct {
	StatementPayload

	// two recognized failure shapes, distinct from HTTP errors
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
}

// Config carries the externally supplied client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	CallDelay time.Duration
}

// AlphaVantage fetches annual financial statements. The upstream enforces a
// shared 5 calls/min quota; a single limiter paces every call the client
// makes, across statement types and companies.
type AlphaVantage struct {
	client    *resty.Client
	limiter   *rate.Limiter
	retry     RetryPolicy
	ratePause time.Duration
}

func NewAlphaVantage(cfg Config) *AlphaVantage {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}

	if cfg.CallDelay <= 0 {
		cfg.CallDelay = 12 * time.Second
	}

	return &AlphaVantage{
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetQueryParam("apikey", cfg.APIKey).
			SetTimeout(30 * time.Second),
		limiter:   rate.NewLimiter(rate.Every(cfg.CallDelay), 1),
		retry:     DefaultRetryPolicy(),
		ratePause: 60 * time.Second,
	}
}

// FetchStatement issues one upstream call for the given symbol and
// statement type. Transport and 5xx failures are retried with backoff; an
// explicit error payload is permanent; a rate-limit notice pauses 60s and
// surfaces as a failure so the caller records it without retrying further
// in this run.
func (av *AlphaVantage) FetchStatement(ctx context.Context, symbol string, stmtType data.StatementType) (*StatementPayload, error) {
	logger := zerolog.Ctx(ctx)

	function, ok := statementFunctions[stmtType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatement, stmtType)
	}

	var payload *StatementPayload

	err := av.retry.Do(ctx, func() error {
		if err := av.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %s", ErrPermanent, err)
		}

		logger.Info().Str("Symbol", symbol).Str("Statement", string(stmtType)).Msg("fetching statement")

		resp, err := av.client.R().
			SetContext(ctx).
			SetQueryParam("function", function).
			SetQueryParam("symbol", symbol).
			Get("")
		if err != nil {
			logger.Error().Err(err).Str("Symbol", symbol).Msg("statement request failed")
			return err
		}

		if resp.StatusCode() >= 500 {
			logger.Error().Int("StatusCode", resp.StatusCode()).Str("Symbol", symbol).
				Msg("upstream returned an invalid HTTP response")
			return fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
		}

		if resp.StatusCode() >= 300 {
			logger.Error().Int("StatusCode", resp.StatusCode()).Str("Symbol", symbol).
				Msg("upstream rejected the request")
			return fmt.Errorf("%w: %w: %d", ErrPermanent, ErrInvalidStatusCode, resp.StatusCode())
		}

		var decoded statementResponse
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			logger.Error().Err(err).Str("Symbol", symbol).Msg("could not decode statement response")
			return fmt.Errorf("%w: %s", ErrPermanent, err)
		}

		if decoded.ErrorMessage != "" {
			logger.Error().Str("Symbol", symbol).Str("APIError", decoded.ErrorMessage).
				Msg("upstream returned an error payload")
			return fmt.Errorf("%w: %w: %s", ErrPermanent, ErrAPIError, decoded.ErrorMessage)
		}

		if decoded.Note != "" {
			logger.Warn().Str("Symbol", symbol).Str("Note", decoded.Note).
				Msg("upstream rate limit reached, pausing")
			av.pause(ctx)
			return fmt.Errorf("%w: %w", ErrPermanent, ErrRateLimited)
		}

		payload = &decoded.StatementPayload
		return nil
	})

	if err != nil {
		return nil, err
	}

	return payload, nil
}

// FetchAllStatements calls FetchStatement for every statement type and
// returns only the types that succeeded; failed types are absent from the
// map. Attempted reports how many calls were issued against the quota.
func (av *AlphaVantage) FetchAllStatements(ctx context.Context, symbol string) (map[data.StatementType]*StatementPayload, int) {
	logger := zerolog.Ctx(ctx)

	results := make(map[data.StatementType]*StatementPayload, len(data.StatementTypes))
	attempted := 0

	for _, stmtType := range data.StatementTypes {
		attempted++

		payload, err := av.FetchStatement(ctx, symbol, stmtType)
		if err != nil {
			logger.Warn().Err(err).Str("Symbol", symbol).Str("Statement", string(stmtType)).
				Msg("statement unavailable")
			continue
		}

		results[stmtType] = payload
	}

	return results, attempted
}

func (av *AlphaVantage) pause(ctx context.Context) {
	timer := time.NewTimer(av.ratePause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
