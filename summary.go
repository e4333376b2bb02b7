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
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/model"
)

// SummaryScheduler hands summary regeneration off to the worker process so
// the scan loop never waits on aggregation queries.
type SummaryScheduler interface {
	ScheduleRegeneration(ctx context.Context, gridID, accountID string, force bool) error
}

type queueSummaryScheduler struct {
	queue *Queue
}

func (s *queueSummaryScheduler) ScheduleRegeneration(_ context.Context, gridID, accountID string, force bool) error {
	return s.queue.queueSummaryGeneration(SummaryTaskPayload{
		GridID:    gridID,
		AccountID: accountID,
		Force:     force,
	})
}

// summaryPeriodStart pins a summary to its calendar day in UTC.
func summaryPeriodStart(at time.Time) time.Time {
	return at.UTC().Truncate(24 * time.Hour)
}

// GenerateSummary recomputes and stores the current-period summary for a
// grid, covering every enabled keyword of the grid whatever its schedule
// mode. Scheduled runs pass force so the stored row is always replaced; a
// non-forced call skips the write when the period produced nothing, leaving
// any earlier summary for the period intact.
func (g *Gridrank) GenerateSummary(ctx context.Context, gridID, accountID string, force bool) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	keywords, err := g.datasource.GetGridKeywords(ctx, gridID)
	if err != nil {
		return err
	}

	periodStart := summaryPeriodStart(time.Now())
	stats, err := g.datasource.GetScanStats(ctx, gridID, model.KeywordIDs(keywords), periodStart, cfg.Scan.TopRankBucket)
	if err != nil {
		return err
	}

	if stats.Empty() && !force {
		return nil
	}

	return g.datasource.UpsertScanSummary(ctx, &model.ScanSummary{
		GridID:      gridID,
		AccountID:   accountID,
		PeriodStart: periodStart,
		Stats:       stats,
	})
}

// ProcessSummary handles a summary regeneration task from the queue.
func (g *Gridrank) ProcessSummary(ctx context.Context, task *asynq.Task) error {
	var payload SummaryTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling task payload: %v", err)
		return err
	}
	log.Printf("Processing summary generation for grid: %s", payload.GridID)
	return g.GenerateSummary(ctx, payload.GridID, payload.AccountID, payload.Force)
}
