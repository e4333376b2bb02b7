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
	"log"
	"time"

	"github.com/gridrank/gridrank/internal/apierror"
	"github.com/gridrank/gridrank/model"
)

const gridColumns = `
	id, grid_id, account_id, name, center_lat, center_lng, grid_points, enabled,
	COALESCE(frequency, ''), day, hour, next_scheduled_at, last_scheduled_run_at, created_at, meta_data`

const keywordColumns = `
	id, keyword_id, grid_id, account_id, phrase, enabled, schedule_mode,
	COALESCE(frequency, ''), day, hour, next_scheduled_at, last_scheduled_run_at, created_at, meta_data`

func scanGridRow(scanner interface{ Scan(...interface{}) error }) (*model.Grid, error) {
	grid := &model.Grid{}
	var pointsJSON, metaDataJSON []byte
	var nextAt, lastAt sql.NullTime

	err := scanner.Scan(&grid.ID, &grid.GridID, &grid.AccountID, &grid.Name,
		&grid.CenterLat, &grid.CenterLng, &pointsJSON, &grid.Enabled,
		&grid.Recurrence.Frequency, &grid.Recurrence.Day, &grid.Recurrence.Hour,
		&nextAt, &lastAt, &grid.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pointsJSON, &grid.Points); err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &grid.MetaData); err != nil {
			return nil, err
		}
	}
	if nextAt.Valid {
		grid.NextScheduledAt = &nextAt.Time
	}
	if lastAt.Valid {
		grid.LastScheduledRunAt = &lastAt.Time
	}
	return grid, nil
}

func scanKeywordRow(scanner interface{ Scan(...interface{}) error }) (*model.Keyword, error) {
	keyword := &model.Keyword{}
	var mode string
	var metaDataJSON []byte
	var nextAt, lastAt sql.NullTime

	err := scanner.Scan(&keyword.ID, &keyword.KeywordID, &keyword.GridID, &keyword.AccountID,
		&keyword.Phrase, &keyword.Enabled, &mode,
		&keyword.Recurrence.Frequency, &keyword.Recurrence.Day, &keyword.Recurrence.Hour,
		&nextAt, &lastAt, &keyword.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}

	keyword.ScheduleMode, err = model.ParseScheduleMode(mode)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &keyword.MetaData); err != nil {
			return nil, err
		}
	}
	if nextAt.Valid {
		keyword.NextScheduledAt = &nextAt.Time
	}
	if lastAt.Valid {
		keyword.LastScheduledRunAt = &lastAt.Time
	}
	return keyword, nil
}

// GetDueGrids returns every enabled grid with a configured recurrence whose
// next scheduled time is at or before asOf. A null next_scheduled_at means
// the grid has never run and is therefore due. Selection never touches the
// scheduling fields.
func (d Datasource) GetDueGrids(ctx context.Context, asOf time.Time) ([]*model.Grid, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+gridColumns+`
		FROM gridrank.grids
		WHERE enabled = true
		  AND frequency IS NOT NULL AND frequency <> ''
		  AND (next_scheduled_at IS NULL OR next_scheduled_at <= $1)
		ORDER BY account_id, grid_id
	`, asOf)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to select due grids", err)
	}
	defer rows.Close()

	var grids []*model.Grid
	for rows.Next() {
		grid, err := scanGridRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan grid row", err)
		}
		grids = append(grids, grid)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating due grids", err)
	}
	return grids, nil
}

// GetDueCustomKeywords returns every enabled custom-mode keyword with a
// configured recurrence that is due as of asOf. Inherit-mode keywords are
// never selected here; they belong to their grid's tier-1 run.
func (d Datasource) GetDueCustomKeywords(ctx context.Context, asOf time.Time) ([]*model.Keyword, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+keywordColumns+`
		FROM gridrank.keywords
		WHERE enabled = true
		  AND schedule_mode = 'CUSTOM'
		  AND frequency IS NOT NULL AND frequency <> ''
		  AND (next_scheduled_at IS NULL OR next_scheduled_at <= $1)
		ORDER BY account_id, keyword_id
	`, asOf)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to select due keywords", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		keyword, err := scanKeywordRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan keyword row", err)
		}
		keywords = append(keywords, keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating due keywords", err)
	}
	return keywords, nil
}

// GetInheritKeywords returns the enabled inherit-mode keywords of a grid,
// i.e. the units covered by the grid's own schedule.
func (d Datasource) GetInheritKeywords(ctx context.Context, gridID string) ([]*model.Keyword, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+keywordColumns+`
		FROM gridrank.keywords
		WHERE grid_id = $1
		  AND enabled = true
		  AND schedule_mode = 'INHERIT'
		ORDER BY keyword_id
	`, gridID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to select inherit keywords", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		keyword, err := scanKeywordRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan keyword row", err)
		}
		keywords = append(keywords, keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating inherit keywords", err)
	}
	return keywords, nil
}

// GetGridKeywords returns every enabled keyword of a grid regardless of
// schedule mode. Summary rollups read through here so a custom-scheduled
// keyword's results land in the same grid summary as its siblings.
func (d Datasource) GetGridKeywords(ctx context.Context, gridID string) ([]*model.Keyword, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+keywordColumns+`
		FROM gridrank.keywords
		WHERE grid_id = $1
		  AND enabled = true
		ORDER BY keyword_id
	`, gridID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to select grid keywords", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		keyword, err := scanKeywordRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan keyword row", err)
		}
		keywords = append(keywords, keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating grid keywords", err)
	}
	return keywords, nil
}

// GetGrid retrieves a single grid by its ID, serving from the cache when a
// fresh copy is there.
func (d Datasource) GetGrid(ctx context.Context, gridID string) (*model.Grid, error) {
	cacheKey := fmt.Sprintf("grid:%s", gridID)
	if d.Cache != nil {
		var cached model.Grid
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && cached.GridID != "" {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+gridColumns+`
		FROM gridrank.grids
		WHERE grid_id = $1
	`, gridID)

	grid, err := scanGridRow(row)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Grid not found", err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve grid", err)
	}

	if d.Cache != nil {
		if err := d.Cache.Set(ctx, cacheKey, grid, 5*time.Minute); err != nil {
			log.Printf("Failed to cache grid %s: %v", gridID, err)
		}
	}
	return grid, nil
}

// MarkGridScheduledRun sets last_scheduled_run_at for a grid. The recurrence
// trigger picks the write up and moves next_scheduled_at to the next period,
// which is what keeps an hourly trigger from reprocessing the same grid.
func (d Datasource) MarkGridScheduledRun(ctx context.Context, gridID string, ranAt time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE gridrank.grids SET last_scheduled_run_at = $2 WHERE grid_id = $1
	`, gridID, ranAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to advance grid schedule", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check grid schedule advance", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Grid not found", nil)
	}
	return nil
}

// MarkKeywordScheduledRun sets last_scheduled_run_at for a custom keyword.
func (d Datasource) MarkKeywordScheduledRun(ctx context.Context, keywordID string, ranAt time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE gridrank.keywords SET last_scheduled_run_at = $2 WHERE keyword_id = $1
	`, keywordID, ranAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to advance keyword schedule", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check keyword schedule advance", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Keyword not found", nil)
	}
	return nil
}
