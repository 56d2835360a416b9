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
package etl_test

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/windvane/finetl/data"
	"github.com/windvane/finetl/library"
	"github.com/windvane/finetl/provider"
)

// fakeSource is an in-memory StatementSource keyed by fiscal year.
type fakeSource struct {
	years      []int
	statements map[int]map[string]float64
	saved      []*data.CalculatedMetric
	failYears  map[int64]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		statements: make(map[int]map[string]float64),
		failYears:  make(map[int64]bool),
	}
}

func (source *fakeSource) FiscalYears(_ context.Context, companyID int64) ([]int, error) {
	if source.failYears[companyID] {
		return nil, errors.New("fiscal years unavailable")
	}
	return source.years, nil
}

func (source *fakeSource) StatementData(_ context.Context, _ int64, fiscalYear int) (map[string]float64, error) {
	return source.statements[fiscalYear], nil
}

func (source *fakeSource) SaveMetrics(_ context.Context, metrics []*data.CalculatedMetric) error {
	source.saved = append(source.saved, metrics...)
	return nil
}

func (source *fakeSource) metricsByYear() map[int][]*data.CalculatedMetric {
	byYear := make(map[int][]*data.CalculatedMetric)
	for _, metric := range source.saved {
		byYear[metric.FiscalYear] = append(byYear[metric.FiscalYear], metric)
	}
	return byYear
}

// fakeStore is an in-memory Store. Statement rows are keyed by their
// natural key so repeated loads overwrite rather than duplicate, matching
// the database upsert.
type fakeStore struct {
	companies    map[string]int64
	rows         map[string]*data.StatementRecord
	touched      []int64
	savedMetrics []*data.CalculatedMetric
	loggedRuns   []*data.RunStats
	saveErr      error
	logErr       error
}

func newFakeStore(companies map[string]int64) *fakeStore {
	return &fakeStore{
		companies: companies,
		rows:      make(map[string]*data.StatementRecord),
	}
}

func rowKey(record *data.StatementRecord) string {
	return fmt.Sprintf("%d|%s|%d|%s|%s", record.CompanyID, record.StatementType,
		record.FiscalYear, record.FiscalPeriod, record.MetricName)
}

func (store *fakeStore) CompanyID(_ context.Context, symbol string) (int64, error) {
	id, ok := store.companies[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", library.ErrCompanyNotFound, symbol)
	}
	return id, nil
}

func (store *fakeStore) BulkSaveStatements(_ context.Context, records []*data.StatementRecord) (int, error) {
	if store.saveErr != nil {
		return 0, store.saveErr
	}

	for _, record := range records {
		store.rows[rowKey(record)] = record
	}
	return len(records), nil
}

func (store *fakeStore) TouchCompany(_ context.Context, companyID int64) error {
	store.touched = append(store.touched, companyID)
	return nil
}

func (store *fakeStore) LogRun(_ context.Context, stats *data.RunStats) error {
	if store.logErr != nil {
		return store.logErr
	}
	store.loggedRuns = append(store.loggedRuns, stats)
	return nil
}

func (store *fakeStore) FiscalYears(_ context.Context, companyID int64) ([]int, error) {
	seen := make(map[int]bool)
	for _, record := range store.rows {
		if record.CompanyID == companyID {
			seen[record.FiscalYear] = true
		}
	}

	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (store *fakeStore) StatementData(_ context.Context, companyID int64, fiscalYear int) (map[string]float64, error) {
	values := make(map[string]float64)
	for _, record := range store.rows {
		if record.CompanyID == companyID && record.FiscalYear == fiscalYear && record.MetricValue != nil {
			values[record.MetricName] = *record.MetricValue
		}
	}
	return values, nil
}

func (store *fakeStore) SaveMetrics(_ context.Context, metrics []*data.CalculatedMetric) error {
	store.savedMetrics = append(store.savedMetrics, metrics...)
	return nil
}

// fakeFetcher serves canned payloads per symbol.
type fakeFetcher struct {
	payloads map[string]map[data.StatementType]*provider.StatementPayload
	fetched  []string
}

func (fetcher *fakeFetcher) FetchAllStatements(_ context.Context, symbol string) (map[data.StatementType]*provider.StatementPayload, int) {
	fetcher.fetched = append(fetcher.fetched, symbol)
	return fetcher.payloads[symbol], len(data.StatementTypes)
}
