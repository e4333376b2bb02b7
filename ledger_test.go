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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditCost(t *testing.T) {
	assert.Equal(t, int64(1), CreditCost(0))
	assert.Equal(t, int64(1), CreditCost(-3))
	assert.Equal(t, int64(1), CreditCost(1))
	assert.Equal(t, int64(25), CreditCost(25))
}

func TestTopUp(t *testing.T) {
	ds := newFakeDataSource()
	engine, _, _, _ := newTestEngine(ds)

	balance, err := engine.TopUp(context.Background(), "acc_new", 500, "topup_ref_1", nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), balance.Total)
	assert.Len(t, ds.topUps, 1)
	assert.Equal(t, "topup_ref_1", ds.topUps[0].key)
}

func TestGetBalanceCreatesRowOnFirstContact(t *testing.T) {
	ds := newFakeDataSource()
	engine, _, _, _ := newTestEngine(ds)

	balance, err := engine.GetBalance(context.Background(), "acc_unseen")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), balance.Total)
}

func TestRefundCreditsRetriesTransientFailures(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 0
	ds.refundErr = func(attempt int) error {
		if attempt <= 2 {
			return errors.New("deadlock detected")
		}
		return nil
	}

	engine, _, _, _ := newTestEngine(ds)

	err := engine.refundCredits(context.Background(), "acc_1", 5, "debit_acc_1_t1_grd_1_1748768400", nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, ds.refundTries)
	assert.Len(t, ds.refunds, 1)
	assert.Equal(t, int64(5), ds.balances["acc_1"])
}

func TestRefundCreditsGivesUpAfterRetries(t *testing.T) {
	ds := newFakeDataSource()
	ds.refundErr = func(int) error { return errors.New("still down") }

	engine, _, _, _ := newTestEngine(ds)

	err := engine.refundCredits(context.Background(), "acc_1", 5, "debit_acc_1_t1_grd_1_1748768400", nil)
	assert.Error(t, err)
	assert.Equal(t, 1+refundMaxRetries, ds.refundTries)
	assert.Empty(t, ds.refunds)
}
