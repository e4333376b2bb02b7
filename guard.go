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

	"github.com/shopspring/decimal"

	"github.com/gridrank/gridrank/config"
)

type budgetAction int

const (
	budgetProceed budgetAction = iota
	budgetInsufficient
	budgetCeiling
)

// budgetDecision is the outcome of the pre-debit checks for one unit run:
// whether to proceed, the credit price if we do, and the shortfall if the
// account cannot afford it.
type budgetDecision struct {
	action       budgetAction
	creditCost   int64
	available    int64
	deficit      int64
	estimatedUSD decimal.Decimal
}

// evaluateBudget runs the pre-debit gates for one unit run: price it, check
// the account can afford it, then check the estimated provider spend against
// the run ceiling. An account that cannot afford the run reports the
// shortfall even when the run would also exceed the ceiling, so the owner is
// told about the balance first.
func (g *Gridrank) evaluateBudget(ctx context.Context, accountID string, points, keywords int) (budgetDecision, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return budgetDecision{}, err
	}

	unitCost, err := decimal.NewFromString(cfg.Scan.UnitCostUSD)
	if err != nil {
		return budgetDecision{}, err
	}
	ceiling, err := decimal.NewFromString(cfg.Scan.CostCeilingUSD)
	if err != nil {
		return budgetDecision{}, err
	}

	decision := budgetDecision{
		creditCost:   CreditCost(points),
		estimatedUSD: unitCost.Mul(decimal.NewFromInt(int64(points))).Mul(decimal.NewFromInt(int64(keywords))),
	}

	if err := g.datasource.EnsureBalance(ctx, accountID); err != nil {
		return budgetDecision{}, err
	}
	balance, err := g.datasource.GetBalance(ctx, accountID)
	if err != nil {
		return budgetDecision{}, err
	}

	decision.available = balance.Total
	if balance.Total < decision.creditCost {
		decision.action = budgetInsufficient
		decision.deficit = decision.creditCost - balance.Total
		return decision, nil
	}

	if decision.estimatedUSD.GreaterThan(ceiling) {
		decision.action = budgetCeiling
		return decision, nil
	}

	decision.action = budgetProceed
	return decision, nil
}
