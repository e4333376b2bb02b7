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

package database

import (
	"context"
	"time"

	"github.com/gridrank/gridrank/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	schedule // Interface for schedule selection and advancement
	billing  // Interface for credit ledger operations
	stats    // Interface for scan stats and summaries
}

// schedule defines methods for due-work selection and schedule advancement.
// Selection is read-only with respect to scheduling fields; only the Mark
// methods write, and the database trigger observing last_scheduled_run_at
// recomputes next_scheduled_at.
type schedule interface {
	GetDueGrids(ctx context.Context, asOf time.Time) ([]*model.Grid, error)                 // Grids due for a tier-1 run
	GetDueCustomKeywords(ctx context.Context, asOf time.Time) ([]*model.Keyword, error)     // Custom-mode keywords due for a tier-2 run
	GetInheritKeywords(ctx context.Context, gridID string) ([]*model.Keyword, error)        // Enabled inherit-mode keywords of a grid
	GetGridKeywords(ctx context.Context, gridID string) ([]*model.Keyword, error)           // All enabled keywords of a grid, any mode
	GetGrid(ctx context.Context, gridID string) (*model.Grid, error)                        // Retrieves a grid by ID
	MarkGridScheduledRun(ctx context.Context, gridID string, ranAt time.Time) error         // Records that a grid's scheduled run happened
	MarkKeywordScheduledRun(ctx context.Context, keywordID string, ranAt time.Time) error   // Records that a keyword's scheduled run happened
}

// billing defines methods for the credit ledger. Debit, Refund and TopUp are
// idempotent per (account, key, entry type); the bool return reports whether
// the entry was applied (false means a replay was suppressed).
type billing interface {
	EnsureBalance(ctx context.Context, accountID string) error                                                                                // Creates the balance row if absent (concurrency-safe upsert)
	GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error)                                                           // Retrieves an account's balance
	RecordDebit(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error)        // Charges credits
	RecordRefund(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error)       // Returns previously charged credits
	RecordTopUp(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error)        // Grants credits
}

// stats defines methods for reading scan result aggregates and storing
// per-period summaries.
type stats interface {
	GetScanStats(ctx context.Context, gridID string, keywordIDs []string, since time.Time, topRankBucket int) (model.ScanStats, error) // Aggregates rank results
	UpsertScanSummary(ctx context.Context, summary *model.ScanSummary) error                                                           // Writes (or force-replaces) a period summary
}
