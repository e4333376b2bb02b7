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
	TierGrid    = 1 // grid-level runs covering inherit-mode keywords
	TierKeyword = 2 // individually scheduled custom keywords
)

const (
	ResultSuccess             = "success"
	ResultSkipped             = "skipped"
	ResultInsufficientCredits = "insufficient_credits"
	ResultError               = "error"
)

// ProcessResult is the terminal outcome of one scheduled unit within a run.
// It exists only for the duration of the run and is folded into the run
// summary and the per-account accumulators.
type ProcessResult struct {
	Tier            int    `json:"tier"`
	GridID          string `json:"grid_id"`
	KeywordID       string `json:"keyword_id,omitempty"`
	AccountID       string `json:"account_id"`
	CreditsCharged  int64  `json:"credits_charged"`
	ChecksPerformed int    `json:"checks_performed"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	ErrorMessage    string `json:"error,omitempty"`
}

// TierSummary counts outcomes for one scheduling tier.
type TierSummary struct {
	Total               int `json:"total"`
	Processed           int `json:"processed"`
	Skipped             int `json:"skipped"`
	InsufficientCredits int `json:"insufficientCredits"`
	Errors              int `json:"errors"`
}

// Record folds one terminal result into the tier counts.
func (s *TierSummary) Record(res ProcessResult) {
	s.Total++
	switch res.Status {
	case ResultSuccess:
		s.Processed++
	case ResultSkipped:
		s.Skipped++
	case ResultInsufficientCredits:
		s.InsufficientCredits++
	case ResultError:
		s.Errors++
	}
}

// RunSummary is the JSON body returned by the trigger endpoint.
type RunSummary struct {
	Tier1 TierSummary `json:"tier1"`
	Tier2 TierSummary `json:"tier2"`
}

// ScanStats aggregates the outcome of successful scans for one account.
// All fields are sums or minima so Merge stays associative and commutative:
// accumulating results in any order yields the same totals.
type ScanStats struct {
	KeywordsScanned int   `json:"keywords_scanned"`
	PointsChecked   int   `json:"points_checked"`
	TopRankPoints   int   `json:"top_rank_points"`
	CreditsSpent    int64 `json:"credits_spent"`
	BestRank        int   `json:"best_rank"` // 0 means no ranked point seen
}

// Merge combines two stats objects. Zero BestRank means "unseen" and loses to
// any ranked value, otherwise the smaller (better) rank wins.
func (s ScanStats) Merge(other ScanStats) ScanStats {
	merged := ScanStats{
		KeywordsScanned: s.KeywordsScanned + other.KeywordsScanned,
		PointsChecked:   s.PointsChecked + other.PointsChecked,
		TopRankPoints:   s.TopRankPoints + other.TopRankPoints,
		CreditsSpent:    s.CreditsSpent + other.CreditsSpent,
		BestRank:        s.BestRank,
	}
	if merged.BestRank == 0 || (other.BestRank != 0 && other.BestRank < merged.BestRank) {
		merged.BestRank = other.BestRank
	}
	return merged
}

// Empty reports whether any scan contributed to the stats.
func (s ScanStats) Empty() bool {
	return s == ScanStats{}
}

// ScanSummary is the stored, per-period rollup of a grid's scan results.
// Scheduled runs force-regenerate it so a run never leaves a stale summary.
type ScanSummary struct {
	ID          int64     `json:"-"`
	SummaryID   string    `json:"summary_id"`
	GridID      string    `json:"grid_id"`
	AccountID   string    `json:"account_id"`
	PeriodStart time.Time `json:"period_start"`
	Stats       ScanStats `json:"stats"`
	GeneratedAt time.Time `json:"generated_at"`
}
