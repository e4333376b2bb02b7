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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestEnsureBalance(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectExec("INSERT INTO gridrank.balances").
		WithArgs("acc_1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := d.EnsureBalance(context.Background(), "acc_1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalance(t *testing.T) {
	d, mock := newTestDatasource(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "account_id", "total", "created_at", "updated_at", "meta_data"}).
		AddRow(1, "acc_1", 120, now, now, `{"tier":"starter"}`)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.balances").
		WithArgs("acc_1").
		WillReturnRows(rows)

	balance, err := d.GetBalance(context.Background(), "acc_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(120), balance.Total)
	assert.Equal(t, "starter", balance.MetaData["tier"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDebit(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gridrank.ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", "DEBIT", int64(25), "debit_acc_1_t1_grd_1_1748768400", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE gridrank.balances SET total").
		WithArgs("acc_1", int64(-25)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := d.RecordDebit(context.Background(), "acc_1", 25, "debit_acc_1_t1_grd_1_1748768400", nil)
	assert.NoError(t, err)
	assert.True(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A replayed debit hits the unique index, inserts nothing and must not touch
// the balance.
func TestRecordDebitReplaySuppressed(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gridrank.ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", "DEBIT", int64(25), "debit_acc_1_t1_grd_1_1748768400", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := d.RecordDebit(context.Background(), "acc_1", 25, "debit_acc_1_t1_grd_1_1748768400", nil)
	assert.NoError(t, err)
	assert.False(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRefundCreditsBalance(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gridrank.ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", "REFUND", int64(25), "debit_acc_1_t1_grd_1_1748768400", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE gridrank.balances SET total").
		WithArgs("acc_1", int64(25)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := d.RecordRefund(context.Background(), "acc_1", 25, "debit_acc_1_t1_grd_1_1748768400", nil)
	assert.NoError(t, err)
	assert.True(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTopUp(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gridrank.ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", "TOPUP", int64(500), "topup_ref_1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE gridrank.balances SET total").
		WithArgs("acc_1", int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := d.RecordTopUp(context.Background(), "acc_1", 500, "topup_ref_1", map[string]interface{}{"source": "stripe"})
	assert.NoError(t, err)
	assert.True(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}
