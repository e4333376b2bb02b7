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
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/gridrank/gridrank/internal/apierror"
	"github.com/gridrank/gridrank/model"
)

// GetScanStats aggregates the rank results the external checker wrote for a
// grid's keywords since the given time. Rank 0 rows are probes that found no
// listing and never count toward the top bucket or best rank.
func (d Datasource) GetScanStats(ctx context.Context, gridID string, keywordIDs []string, since time.Time, topRankBucket int) (model.ScanStats, error) {
	var stats model.ScanStats

	err := d.Conn.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT keyword_id),
			COUNT(*),
			COUNT(*) FILTER (WHERE rank > 0 AND rank <= $4),
			COALESCE(MIN(rank) FILTER (WHERE rank > 0), 0)
		FROM gridrank.rank_results
		WHERE grid_id = $1
		  AND keyword_id = ANY($2)
		  AND checked_at >= $3
	`, gridID, pq.Array(keywordIDs), since, topRankBucket).Scan(
		&stats.KeywordsScanned, &stats.PointsChecked, &stats.TopRankPoints, &stats.BestRank)
	if err != nil {
		return model.ScanStats{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to aggregate scan stats", err)
	}
	return stats, nil
}

// UpsertScanSummary writes a grid's per-period summary, replacing any
// existing row for the same period. Scheduled runs always force a fresh
// summary, so the replace path is the normal one.
func (d Datasource) UpsertScanSummary(ctx context.Context, summary *model.ScanSummary) error {
	statsJSON, err := json.Marshal(summary.Stats)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal summary stats", err)
	}

	summary.SummaryID = GenerateUUIDWithSuffix("sum")
	summary.GeneratedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO gridrank.scan_summaries (summary_id, grid_id, account_id, period_start, stats, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (grid_id, period_start)
		DO UPDATE SET stats = EXCLUDED.stats, generated_at = EXCLUDED.generated_at
	`, summary.SummaryID, summary.GridID, summary.AccountID, summary.PeriodStart, statsJSON, summary.GeneratedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert scan summary", err)
	}
	return nil
}
