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

package model

import "time"

const (
	EntryTypeDebit  = "DEBIT"
	EntryTypeRefund = "REFUND"
	EntryTypeTopUp  = "TOPUP"
)

// CreditBalance is one row per account. Total only ever moves through ledger
// entries; the row itself is created lazily by an upsert the first time an
// account is charged or funded.
type CreditBalance struct {
	ID        int64                  `json:"-"`
	AccountID string                 `json:"account_id"`
	Total     int64                  `json:"total"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	MetaData  map[string]interface{} `json:"meta_data"`
}

// LedgerEntry is an idempotent record of a credit movement. Entries are
// unique per (account, idempotency key, entry type): replaying a debit or a
// refund with the same key records nothing and moves no funds, and a refund
// carrying its debit's key is unambiguously paired to that debit.
type LedgerEntry struct {
	ID             int64                  `json:"-"`
	EntryID        string                 `json:"entry_id"`
	AccountID      string                 `json:"account_id"`
	EntryType      string                 `json:"entry_type"`
	Amount         int64                  `json:"amount"`
	IdempotencyKey string                 `json:"idempotency_key"`
	CreatedAt      time.Time              `json:"created_at"`
	MetaData       map[string]interface{} `json:"meta_data"`
}
