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

	"github.com/sirupsen/logrus"
)

const (
	EventLowBalance     = "scan.low_balance"
	EventBatchCompleted = "scan.batch_completed"
)

// Notifier delivers account-facing notices. Immediate notices fired during a
// run are best-effort; the consolidated batch notice fires once per account
// at the end of the run.
type Notifier interface {
	Notify(ctx context.Context, accountID, event string, payload map[string]interface{}) error
}

// webhookNotifier delivers notices through the asynq webhook queue.
type webhookNotifier struct {
	queue *Queue
}

func (n *webhookNotifier) Notify(_ context.Context, accountID, event string, payload map[string]interface{}) error {
	body := map[string]interface{}{"account_id": accountID}
	for k, v := range payload {
		body[k] = v
	}
	return n.queue.SendWebhook(NewWebhook{Event: event, Payload: body})
}

// notifyLowBalance fires the immediate low-balance notice for a grid run.
// Failures are logged and swallowed; a notice must never fail a unit.
func (g *Gridrank) notifyLowBalance(ctx context.Context, accountID, gridID string, needed, available, deficit int64) {
	err := g.notifier.Notify(ctx, accountID, EventLowBalance, map[string]interface{}{
		"grid_id":   gridID,
		"needed":    needed,
		"available": available,
		"deficit":   deficit,
	})
	if err != nil {
		logrus.Warnf("low balance notice failed for account %s: %v", accountID, err)
	}
}

// flushBatchNotices sends the single consolidated run notice per account
// that accumulated any stats this run. Per-unit sends are deliberately not
// done here; an account with fifty keywords still gets one notice.
func (g *Gridrank) flushBatchNotices(ctx context.Context, acc *accountAccumulator) {
	for _, accountID := range acc.accounts() {
		stats := acc.get(accountID)
		err := g.notifier.Notify(ctx, accountID, EventBatchCompleted, map[string]interface{}{
			"stats": stats,
		})
		if err != nil {
			logrus.Warnf("batch completion notice failed for account %s: %v", accountID, err)
		}
	}
}
