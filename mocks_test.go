/*
Copyright 2025 GridRank Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gridrank

import (
	"context"
	"sync"
	"time"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/model"
)

func mockScanConfig() {
	config.MockConfig(&config.Configuration{
		Scan: config.ScanConfig{
			UnitCostUSD:      "0.005",
			CostCeilingUSD:   "10",
			InterUnitDelayMs: 1,
			TopRankBucket:    3,
		},
		Queue: config.QueueConfig{
			WebhookQueue: "scan:webhook",
			SummaryQueue: "scan:summary",
			WorkerCount:  1,
		},
	})
}

type ledgerCall struct {
	accountID string
	amount    int64
	key       string
}

// fakeDataSource implements database.IDataSource with overridable hooks and
// records every ledger movement it is asked to make.
type fakeDataSource struct {
	mu sync.Mutex

	dueGrids        []*model.Grid
	dueGridsErr     error
	dueKeywords     []*model.Keyword
	dueKeywordsErr  error
	inheritKeywords map[string][]*model.Keyword
	grids           map[string]*model.Grid
	balances        map[string]int64
	scanStats       model.ScanStats

	debitErr  error
	refundErr func(attempt int) error

	debits        []ledgerCall
	refunds       []ledgerCall
	topUps        []ledgerCall
	refundTries   int
	gridMarks     []string
	keywordMarks  []string
	summaryWrites []*model.ScanSummary
	statsQueries  [][]string
}

func newFakeDataSource() *fakeDataSource {
	return &fakeDataSource{
		inheritKeywords: make(map[string][]*model.Keyword),
		grids:           make(map[string]*model.Grid),
		balances:        make(map[string]int64),
	}
}

func (f *fakeDataSource) GetDueGrids(_ context.Context, _ time.Time) ([]*model.Grid, error) {
	return f.dueGrids, f.dueGridsErr
}

func (f *fakeDataSource) GetDueCustomKeywords(_ context.Context, _ time.Time) ([]*model.Keyword, error) {
	return f.dueKeywords, f.dueKeywordsErr
}

func (f *fakeDataSource) GetInheritKeywords(_ context.Context, gridID string) ([]*model.Keyword, error) {
	return f.inheritKeywords[gridID], nil
}

func (f *fakeDataSource) GetGridKeywords(_ context.Context, gridID string) ([]*model.Keyword, error) {
	keywords := append([]*model.Keyword{}, f.inheritKeywords[gridID]...)
	for _, keyword := range f.dueKeywords {
		if keyword.GridID == gridID && keyword.Enabled {
			keywords = append(keywords, keyword)
		}
	}
	return keywords, nil
}

func (f *fakeDataSource) GetGrid(_ context.Context, gridID string) (*model.Grid, error) {
	grid, ok := f.grids[gridID]
	if !ok {
		return nil, errNotFound
	}
	return grid, nil
}

func (f *fakeDataSource) MarkGridScheduledRun(_ context.Context, gridID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gridMarks = append(f.gridMarks, gridID)
	return nil
}

func (f *fakeDataSource) MarkKeywordScheduledRun(_ context.Context, keywordID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordMarks = append(f.keywordMarks, keywordID)
	return nil
}

func (f *fakeDataSource) EnsureBalance(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.balances[accountID]; !ok {
		f.balances[accountID] = 0
	}
	return nil
}

func (f *fakeDataSource) GetBalance(_ context.Context, accountID string) (*model.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.CreditBalance{AccountID: accountID, Total: f.balances[accountID]}, nil
}

func (f *fakeDataSource) RecordDebit(_ context.Context, accountID string, amount int64, key string, _ map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return false, f.debitErr
	}
	for _, debit := range f.debits {
		if debit.accountID == accountID && debit.key == key {
			return false, nil
		}
	}
	f.debits = append(f.debits, ledgerCall{accountID: accountID, amount: amount, key: key})
	f.balances[accountID] -= amount
	return true, nil
}

func (f *fakeDataSource) RecordRefund(_ context.Context, accountID string, amount int64, key string, _ map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundTries++
	if f.refundErr != nil {
		if err := f.refundErr(f.refundTries); err != nil {
			return false, err
		}
	}
	f.refunds = append(f.refunds, ledgerCall{accountID: accountID, amount: amount, key: key})
	f.balances[accountID] += amount
	return true, nil
}

func (f *fakeDataSource) RecordTopUp(_ context.Context, accountID string, amount int64, key string, _ map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topUps = append(f.topUps, ledgerCall{accountID: accountID, amount: amount, key: key})
	f.balances[accountID] += amount
	return true, nil
}

func (f *fakeDataSource) GetScanStats(_ context.Context, _ string, keywordIDs []string, _ time.Time, _ int) (model.ScanStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsQueries = append(f.statsQueries, keywordIDs)
	return f.scanStats, nil
}

func (f *fakeDataSource) UpsertScanSummary(_ context.Context, summary *model.ScanSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryWrites = append(f.summaryWrites, summary)
	return nil
}

var errNotFound = errString("not found")

type errString string

func (e errString) Error() string { return string(e) }

type checkerCall struct {
	gridID     string
	keywordIDs []string
}

type fakeChecker struct {
	mu     sync.Mutex
	checks int
	err    error
	calls  []checkerCall
}

func (c *fakeChecker) CheckRanks(_ context.Context, grid *model.Grid, keywordIDs []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, checkerCall{gridID: grid.GridID, keywordIDs: keywordIDs})
	if c.err != nil {
		return 0, c.err
	}
	return c.checks, nil
}

type notice struct {
	accountID string
	event     string
	payload   map[string]interface{}
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(_ context.Context, accountID, event string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{accountID: accountID, event: event, payload: payload})
	return nil
}

func (n *fakeNotifier) byEvent(event string) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, note := range n.notices {
		if note.event == event {
			out = append(out, note)
		}
	}
	return out
}

type summaryRequest struct {
	gridID    string
	accountID string
	force     bool
}

type fakeSummaryScheduler struct {
	mu       sync.Mutex
	requests []summaryRequest
}

func (s *fakeSummaryScheduler) ScheduleRegeneration(_ context.Context, gridID, accountID string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, summaryRequest{gridID: gridID, accountID: accountID, force: force})
	return nil
}

func newTestEngine(ds *fakeDataSource) (*Gridrank, *fakeChecker, *fakeNotifier, *fakeSummaryScheduler) {
	mockScanConfig()
	checker := &fakeChecker{checks: 1}
	notifier := &fakeNotifier{}
	summaries := &fakeSummaryScheduler{}
	engine := &Gridrank{
		datasource: ds,
		checker:    checker,
		notifier:   notifier,
		summaries:  summaries,
	}
	return engine, checker, notifier, summaries
}
