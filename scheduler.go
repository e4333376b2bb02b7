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
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/internal/notification"
	"github.com/gridrank/gridrank/model"
)

var tracer = otel.Tracer("scan.scheduler")

// RunDueScans executes one batch run: every grid whose group schedule is due,
// then every custom-mode keyword whose own schedule is due. Each unit runs
// the full debit, execute, refund-on-failure sequence and has its schedule
// advanced exactly once no matter how it ends. A selector failure aborts its
// tier but the other tier still runs; the error is returned alongside the
// partial summary.
func (g *Gridrank) RunDueScans(ctx context.Context) (model.RunSummary, error) {
	asOf := time.Now()
	ctx, span := tracer.Start(ctx, "RunDueScans",
		trace.WithAttributes(attribute.String("run.as_of", asOf.UTC().Format(time.RFC3339))))
	defer span.End()

	acc := newAccountAccumulator()
	var summary model.RunSummary
	var selectorErrs []error

	grids, err := g.datasource.GetDueGrids(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		logrus.Errorf("due grid selection failed: %v", err)
		selectorErrs = append(selectorErrs, pkgerrors.Wrap(err, "tier 1 selection"))
	} else {
		for _, grid := range grids {
			res := g.attemptGrid(ctx, grid, asOf, acc)
			summary.Tier1.Record(res)
			g.advanceGrid(ctx, grid.GridID, asOf)
			if res.Status == model.ResultSuccess {
				g.pauseBetweenUnits(ctx)
			}
		}
	}

	keywords, err := g.datasource.GetDueCustomKeywords(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		logrus.Errorf("due keyword selection failed: %v", err)
		selectorErrs = append(selectorErrs, pkgerrors.Wrap(err, "tier 2 selection"))
	} else {
		for _, keyword := range keywords {
			res := g.attemptKeyword(ctx, keyword, asOf, acc)
			summary.Tier2.Record(res)
			g.advanceKeyword(ctx, keyword.KeywordID, asOf)
			if res.Status == model.ResultSuccess {
				g.pauseBetweenUnits(ctx)
			}
		}
	}

	g.flushBatchNotices(ctx, acc)

	span.SetAttributes(
		attribute.Int("run.tier1.total", summary.Tier1.Total),
		attribute.Int("run.tier2.total", summary.Tier2.Total),
	)
	return summary, errors.Join(selectorErrs...)
}

// attemptGrid runs one grid-level unit covering all of its enabled
// inherit-mode keywords. Any outcome it returns is terminal; the caller
// advances the schedule regardless.
func (g *Gridrank) attemptGrid(ctx context.Context, grid *model.Grid, asOf time.Time, acc *accountAccumulator) model.ProcessResult {
	ctx, span := tracer.Start(ctx, "ProcessGridRun")
	defer span.End()
	span.SetAttributes(attribute.String("grid.id", grid.GridID))

	res := model.ProcessResult{
		Tier:      model.TierGrid,
		GridID:    grid.GridID,
		AccountID: grid.AccountID,
	}

	keywords, err := g.datasource.GetInheritKeywords(ctx, grid.GridID)
	if err != nil {
		span.RecordError(err)
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}
	if len(keywords) == 0 {
		res.Status = model.ResultSkipped
		res.Reason = "no enabled inherit keywords"
		return res
	}

	decision, err := g.evaluateBudget(ctx, grid.AccountID, len(grid.Points), len(keywords))
	if err != nil {
		span.RecordError(err)
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}
	switch decision.action {
	case budgetCeiling:
		res.Status = model.ResultSkipped
		res.Reason = fmt.Sprintf("estimated external cost %s exceeds ceiling", decision.estimatedUSD.String())
		return res
	case budgetInsufficient:
		g.notifyLowBalance(ctx, grid.AccountID, grid.GridID, decision.creditCost, decision.available, decision.deficit)
		res.Status = model.ResultInsufficientCredits
		res.Reason = fmt.Sprintf("short %d credits", decision.deficit)
		return res
	}

	keywordIDs := model.KeywordIDs(keywords)
	idempotencyKey := model.DebitIdempotencyKey(grid.AccountID, model.TierGrid, grid.GridID, grid.NextScheduledAt)
	res = g.executeCharged(ctx, res, grid, keywordIDs, decision.creditCost, idempotencyKey)
	if res.Status == model.ResultSuccess {
		g.collectStats(ctx, acc, res, keywordIDs, asOf)
		// a run that performed no checks wrote no results; nothing to regenerate
		if res.ChecksPerformed > 0 {
			if err := g.summaries.ScheduleRegeneration(ctx, grid.GridID, grid.AccountID, true); err != nil {
				logrus.Warnf("summary regeneration enqueue failed for grid %s: %v", grid.GridID, err)
			}
		}
	}
	return res
}

// attemptKeyword runs one custom-scheduled keyword against its grid's
// geometry.
func (g *Gridrank) attemptKeyword(ctx context.Context, keyword *model.Keyword, asOf time.Time, acc *accountAccumulator) model.ProcessResult {
	ctx, span := tracer.Start(ctx, "ProcessKeywordRun")
	defer span.End()
	span.SetAttributes(attribute.String("keyword.id", keyword.KeywordID))

	res := model.ProcessResult{
		Tier:      model.TierKeyword,
		GridID:    keyword.GridID,
		KeywordID: keyword.KeywordID,
		AccountID: keyword.AccountID,
	}

	grid, err := g.datasource.GetGrid(ctx, keyword.GridID)
	if err != nil {
		span.RecordError(err)
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}
	if !grid.Enabled {
		res.Status = model.ResultSkipped
		res.Reason = "grid disabled"
		return res
	}

	decision, err := g.evaluateBudget(ctx, keyword.AccountID, len(grid.Points), 1)
	if err != nil {
		span.RecordError(err)
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}
	switch decision.action {
	case budgetCeiling:
		res.Status = model.ResultSkipped
		res.Reason = fmt.Sprintf("estimated external cost %s exceeds ceiling", decision.estimatedUSD.String())
		return res
	case budgetInsufficient:
		res.Status = model.ResultInsufficientCredits
		res.Reason = fmt.Sprintf("short %d credits", decision.deficit)
		return res
	}

	keywordIDs := []string{keyword.KeywordID}
	idempotencyKey := model.DebitIdempotencyKey(keyword.AccountID, model.TierKeyword, keyword.KeywordID, keyword.NextScheduledAt)
	res = g.executeCharged(ctx, res, grid, keywordIDs, decision.creditCost, idempotencyKey)
	if res.Status == model.ResultSuccess {
		g.collectStats(ctx, acc, res, keywordIDs, asOf)
		if res.ChecksPerformed > 0 {
			if err := g.summaries.ScheduleRegeneration(ctx, grid.GridID, keyword.AccountID, true); err != nil {
				logrus.Warnf("summary regeneration enqueue failed for grid %s: %v", grid.GridID, err)
			}
		}
	}
	return res
}

// executeCharged runs the charged middle of a unit: debit, execute, refund on
// failure. The refund reuses the debit's idempotency key, so compensating a
// replayed debit is itself replay-safe.
func (g *Gridrank) executeCharged(ctx context.Context, res model.ProcessResult, grid *model.Grid, keywordIDs []string, creditCost int64, idempotencyKey string) model.ProcessResult {
	meta := map[string]interface{}{
		"grid_id": grid.GridID,
		"tier":    res.Tier,
	}
	if res.KeywordID != "" {
		meta["keyword_id"] = res.KeywordID
	}

	applied, err := g.debitCredits(ctx, res.AccountID, creditCost, idempotencyKey, meta)
	if err != nil {
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}
	if !applied {
		logrus.Infof("debit replay suppressed for key %s, proceeding with execution", idempotencyKey)
	}

	checks, err := g.checker.CheckRanks(ctx, grid, keywordIDs)
	if err != nil {
		if refundErr := g.refundCredits(ctx, res.AccountID, creditCost, idempotencyKey, meta); refundErr != nil {
			logrus.Errorf("refund failed for key %s: %v", idempotencyKey, refundErr)
		}
		res.Status = model.ResultError
		res.ErrorMessage = err.Error()
		return res
	}

	res.Status = model.ResultSuccess
	res.CreditsCharged = creditCost
	res.ChecksPerformed = checks
	return res
}

// advanceGrid records that the grid's scheduled run happened. The database
// trigger observing this write computes the next occurrence, so the unit can
// never be picked up twice for the same period even when its run failed.
func (g *Gridrank) advanceGrid(ctx context.Context, gridID string, ranAt time.Time) {
	if err := g.datasource.MarkGridScheduledRun(ctx, gridID, ranAt); err != nil {
		notification.NotifyError(fmt.Errorf("schedule advance failed for grid %s: %w", gridID, err))
	}
}

func (g *Gridrank) advanceKeyword(ctx context.Context, keywordID string, ranAt time.Time) {
	if err := g.datasource.MarkKeywordScheduledRun(ctx, keywordID, ranAt); err != nil {
		notification.NotifyError(fmt.Errorf("schedule advance failed for keyword %s: %w", keywordID, err))
	}
}

// pauseBetweenUnits applies the configured pacing delay after a successful
// unit so the external checker is not hammered.
func (g *Gridrank) pauseBetweenUnits(ctx context.Context) {
	cfg, err := config.Fetch()
	if err != nil {
		return
	}
	delay := time.Duration(cfg.Scan.InterUnitDelayMs) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
