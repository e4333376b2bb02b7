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
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/gridrank/gridrank/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database Connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return Datasource{Conn: db}, mock
}

var gridRowColumns = []string{
	"id", "grid_id", "account_id", "name", "center_lat", "center_lng", "grid_points", "enabled",
	"frequency", "day", "hour", "next_scheduled_at", "last_scheduled_run_at", "created_at", "meta_data",
}

var keywordRowColumns = []string{
	"id", "keyword_id", "grid_id", "account_id", "phrase", "enabled", "schedule_mode",
	"frequency", "day", "hour", "next_scheduled_at", "last_scheduled_run_at", "created_at", "meta_data",
}

func TestGetDueGrids(t *testing.T) {
	d, mock := newTestDatasource(t)

	asOf := time.Now()
	due := asOf.Add(-time.Hour)
	rows := sqlmock.NewRows(gridRowColumns).
		AddRow(1, "grd_1", "acc_1", "Downtown", 37.77, -122.41,
			`[{"lat":37.77,"lng":-122.41},{"lat":37.78,"lng":-122.42}]`,
			true, "daily", 0, 9, due, nil, asOf.Add(-24*time.Hour), `{"plan":"pro"}`)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.grids").
		WithArgs(asOf).
		WillReturnRows(rows)

	grids, err := d.GetDueGrids(context.Background(), asOf)
	assert.NoError(t, err)
	assert.Len(t, grids, 1)
	assert.Equal(t, "grd_1", grids[0].GridID)
	assert.Equal(t, "acc_1", grids[0].AccountID)
	assert.Len(t, grids[0].Points, 2)
	assert.Equal(t, "daily", grids[0].Recurrence.Frequency)
	assert.NotNil(t, grids[0].NextScheduledAt)
	assert.Nil(t, grids[0].LastScheduledRunAt)
	assert.Equal(t, "pro", grids[0].MetaData["plan"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDueCustomKeywords(t *testing.T) {
	d, mock := newTestDatasource(t)

	asOf := time.Now()
	phrase := gofakeit.BuzzWord()
	rows := sqlmock.NewRows(keywordRowColumns).
		AddRow(7, "kw_7", "grd_1", "acc_1", phrase, true, "CUSTOM",
			"weekly", 1, 8, asOf.Add(-time.Minute), nil, asOf.Add(-48*time.Hour), nil)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.keywords").
		WithArgs(asOf).
		WillReturnRows(rows)

	keywords, err := d.GetDueCustomKeywords(context.Background(), asOf)
	assert.NoError(t, err)
	assert.Len(t, keywords, 1)
	assert.Equal(t, "kw_7", keywords[0].KeywordID)
	assert.Equal(t, phrase, keywords[0].Phrase)
	assert.Equal(t, model.ScheduleModeCustom, keywords[0].ScheduleMode)
	assert.Equal(t, "weekly", keywords[0].Recurrence.Frequency)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInheritKeywords(t *testing.T) {
	d, mock := newTestDatasource(t)

	now := time.Now()
	rows := sqlmock.NewRows(keywordRowColumns).
		AddRow(1, "kw_1", "grd_1", "acc_1", "plumber", true, "INHERIT", "", 0, 0, nil, nil, now, nil).
		AddRow(2, "kw_2", "grd_1", "acc_1", "emergency plumber", true, "INHERIT", "", 0, 0, nil, nil, now, nil)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.keywords").
		WithArgs("grd_1").
		WillReturnRows(rows)

	keywords, err := d.GetInheritKeywords(context.Background(), "grd_1")
	assert.NoError(t, err)
	assert.Len(t, keywords, 2)
	assert.Equal(t, model.ScheduleModeInherit, keywords[0].ScheduleMode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGridKeywords(t *testing.T) {
	d, mock := newTestDatasource(t)

	now := time.Now()
	rows := sqlmock.NewRows(keywordRowColumns).
		AddRow(1, "kw_1", "grd_1", "acc_1", "plumber", true, "INHERIT", "", 0, 0, nil, nil, now, nil).
		AddRow(2, "kw_2", "grd_1", "acc_1", "24h plumber", true, "CUSTOM", "weekly", 1, 8, nil, nil, now, nil)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.keywords").
		WithArgs("grd_1").
		WillReturnRows(rows)

	keywords, err := d.GetGridKeywords(context.Background(), "grd_1")
	assert.NoError(t, err)
	assert.Len(t, keywords, 2)
	assert.Equal(t, model.ScheduleModeInherit, keywords[0].ScheduleMode)
	assert.Equal(t, model.ScheduleModeCustom, keywords[1].ScheduleMode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGridNotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT(.|\\n)+FROM gridrank.grids").
		WithArgs("grd_missing").
		WillReturnRows(sqlmock.NewRows(gridRowColumns))

	_, err := d.GetGrid(context.Background(), "grd_missing")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkGridScheduledRun(t *testing.T) {
	d, mock := newTestDatasource(t)

	ranAt := time.Now()
	mock.ExpectExec("UPDATE gridrank.grids SET last_scheduled_run_at").
		WithArgs("grd_1", ranAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.MarkGridScheduledRun(context.Background(), "grd_1", ranAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkGridScheduledRunNotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	ranAt := time.Now()
	mock.ExpectExec("UPDATE gridrank.grids SET last_scheduled_run_at").
		WithArgs("grd_missing", ranAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.MarkGridScheduledRun(context.Background(), "grd_missing", ranAt)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkKeywordScheduledRun(t *testing.T) {
	d, mock := newTestDatasource(t)

	ranAt := time.Now()
	mock.ExpectExec("UPDATE gridrank.keywords SET last_scheduled_run_at").
		WithArgs("kw_1", ranAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.MarkKeywordScheduledRun(context.Background(), "kw_1", ranAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
