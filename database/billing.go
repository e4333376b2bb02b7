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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/gridrank/gridrank/internal/apierror"
	"github.com/gridrank/gridrank/model"
)

// EnsureBalance creates the balance row for an account if it does not exist
// yet. The upsert carries the unique constraint on account_id, so two
// concurrent runs for the same account cannot create two rows; if the row is
// already there this is a no-op.
func (d Datasource) EnsureBalance(ctx context.Context, accountID string) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO gridrank.balances (account_id, total, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`, accountID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to ensure balance", err)
	}
	return nil
}

func balanceCacheKey(accountID string) string {
	return fmt.Sprintf("balance:%s", accountID)
}

// GetBalance retrieves an account's credit balance. Reads go through the
// cache; every ledger write drops the cached row, so a hit is never older
// than the last movement.
func (d Datasource) GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error) {
	if d.Cache != nil {
		var cached model.CreditBalance
		if err := d.Cache.Get(ctx, balanceCacheKey(accountID), &cached); err == nil && cached.AccountID != "" {
			return &cached, nil
		}
	}

	balance := &model.CreditBalance{}
	var metaDataJSON []byte

	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, total, created_at, updated_at, meta_data
		FROM gridrank.balances
		WHERE account_id = $1
	`, accountID).Scan(&balance.ID, &balance.AccountID, &balance.Total,
		&balance.CreatedAt, &balance.UpdatedAt, &metaDataJSON)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Balance not found", err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve balance", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &balance.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal balance metadata", err)
		}
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, balanceCacheKey(accountID), balance, time.Minute); err != nil {
			logrus.Warnf("failed to cache balance for %s: %v", accountID, err)
		}
	}
	return balance, nil
}

// RecordDebit charges credits against an account. Entry and balance move in
// one database transaction; if the (account, key, DEBIT) entry already exists
// the insert is suppressed and the balance is left untouched, which is what
// makes a replayed debit safe.
func (d Datasource) RecordDebit(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error) {
	return d.recordEntry(ctx, accountID, model.EntryTypeDebit, amount, -amount, idempotencyKey, meta)
}

// RecordRefund returns previously charged credits. Called with the same
// idempotency key as the debit it compensates, so the pair is unambiguous and
// a replayed refund moves nothing.
func (d Datasource) RecordRefund(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error) {
	return d.recordEntry(ctx, accountID, model.EntryTypeRefund, amount, amount, idempotencyKey, meta)
}

// RecordTopUp grants credits to an account.
func (d Datasource) RecordTopUp(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error) {
	return d.recordEntry(ctx, accountID, model.EntryTypeTopUp, amount, amount, idempotencyKey, meta)
}

func (d Datasource) recordEntry(ctx context.Context, accountID, entryType string, amount, delta int64, idempotencyKey string, meta map[string]interface{}) (bool, error) {
	metaDataJSON, err := json.Marshal(meta)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal ledger metadata", err)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin ledger transaction", err)
	}

	entryID := GenerateUUIDWithSuffix("lde")
	result, err := tx.ExecContext(ctx, `
		INSERT INTO gridrank.ledger_entries (entry_id, account_id, entry_type, amount, idempotency_key, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, idempotency_key, entry_type) DO NOTHING
	`, entryID, accountID, entryType, amount, idempotencyKey, time.Now(), metaDataJSON)
	if err != nil {
		_ = tx.Rollback()
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "foreign_key_violation" {
			return false, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid account reference", err)
		}
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record ledger entry", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check ledger entry insert", err)
	}

	if inserted == 0 {
		// Replay with a known key: nothing to apply.
		if err := tx.Commit(); err != nil {
			return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ledger transaction", err)
		}
		logrus.Infof("ledger entry replay suppressed: account=%s type=%s key=%s", accountID, entryType, idempotencyKey)
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE gridrank.balances SET total = total + $2, updated_at = NOW() WHERE account_id = $1
	`, accountID, delta)
	if err != nil {
		_ = tx.Rollback()
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to apply ledger entry to balance", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ledger transaction", err)
	}

	if d.Cache != nil {
		if err := d.Cache.Delete(ctx, balanceCacheKey(accountID)); err != nil {
			logrus.Warnf("failed to invalidate balance cache for %s: %v", accountID, err)
		}
	}
	return true, nil
}
