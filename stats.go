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
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/model"
)

// accountAccumulator merges scan stats per account over one run. It lives
// from run start to the notifier flush and is then discarded. Merge order
// does not matter, so tier-1 and tier-2 contributions can land in any order.
type accountAccumulator struct {
	stats map[string]model.ScanStats
}

func newAccountAccumulator() *accountAccumulator {
	return &accountAccumulator{stats: make(map[string]model.ScanStats)}
}

func (a *accountAccumulator) add(accountID string, s model.ScanStats) {
	a.stats[accountID] = a.stats[accountID].Merge(s)
}

func (a *accountAccumulator) get(accountID string) model.ScanStats {
	return a.stats[accountID]
}

// accounts returns the account ids with at least one contribution, in a
// stable order.
func (a *accountAccumulator) accounts() []string {
	ids := make([]string, 0, len(a.stats))
	for id := range a.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// collectStats computes the stats object for one successful unit and merges
// it into the account's accumulator. A stats failure must not discard what
// other units already contributed, so errors are logged and the unit's
// ledger-side outcome stands.
func (g *Gridrank) collectStats(ctx context.Context, acc *accountAccumulator, res model.ProcessResult, keywordIDs []string, since time.Time) {
	cfg, err := config.Fetch()
	if err != nil {
		logrus.Warnf("stats collection skipped for grid %s: %v", res.GridID, err)
		return
	}

	stats, err := g.datasource.GetScanStats(ctx, res.GridID, keywordIDs, since, cfg.Scan.TopRankBucket)
	if err != nil {
		logrus.Warnf("stats collection failed for grid %s: %v", res.GridID, err)
		return
	}
	stats.CreditsSpent = res.CreditsCharged
	acc.add(res.AccountID, stats)
}
