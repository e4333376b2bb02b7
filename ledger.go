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
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/gridrank/gridrank/internal/notification"
	"github.com/gridrank/gridrank/model"
)

const refundMaxRetries = 3

// CreditCost prices a scheduled scan in credits: one credit per grid point,
// with a floor of one credit so a degenerate grid still costs something.
func CreditCost(points int) int64 {
	if points < 1 {
		return 1
	}
	return int64(points)
}

// debitCredits charges an account for a unit run. The bool mirrors the
// datasource contract: false means the debit for this key already exists and
// no funds moved.
func (g *Gridrank) debitCredits(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (bool, error) {
	if err := g.datasource.EnsureBalance(ctx, accountID); err != nil {
		return false, err
	}
	return g.datasource.RecordDebit(ctx, accountID, amount, idempotencyKey, meta)
}

// refundCredits compensates a failed execution by returning the debited
// amount under the same idempotency key. The refund is retried with backoff;
// if it still cannot be recorded the debit is left standing and the loud
// error channel is raised so an operator reconciles it by hand.
func (g *Gridrank) refundCredits(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) error {
	operation := func() error {
		_, err := g.datasource.RecordRefund(ctx, accountID, amount, idempotencyKey, meta)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), refundMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		notification.NotifyError(fmt.Errorf("unrefunded debit: account %s, amount %d, key %s: %w", accountID, amount, idempotencyKey, err))
		return err
	}
	return nil
}

// TopUp grants credits to an account and returns the updated balance. The
// balance row is created on first contact, so topping up an account nobody
// has seen before just works.
func (g *Gridrank) TopUp(ctx context.Context, accountID string, amount int64, idempotencyKey string, meta map[string]interface{}) (*model.CreditBalance, error) {
	if err := g.datasource.EnsureBalance(ctx, accountID); err != nil {
		return nil, err
	}
	applied, err := g.datasource.RecordTopUp(ctx, accountID, amount, idempotencyKey, meta)
	if err != nil {
		return nil, err
	}
	if !applied {
		logrus.Infof("top up replay suppressed for account %s key %s", accountID, idempotencyKey)
	}
	return g.datasource.GetBalance(ctx, accountID)
}

// GetBalance returns an account's credit balance, creating the zero-credit
// row if the account has never been funded or charged.
func (g *Gridrank) GetBalance(ctx context.Context, accountID string) (*model.CreditBalance, error) {
	if err := g.datasource.EnsureBalance(ctx, accountID); err != nil {
		return nil, err
	}
	return g.datasource.GetBalance(ctx, accountID)
}

// TopUpIdempotencyKey builds a deterministic key for a top-up request when
// the caller did not supply one.
func TopUpIdempotencyKey(accountID string, at time.Time) string {
	return fmt.Sprintf("topup_%s_%d", accountID, at.UTC().UnixNano())
}
