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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridrank/gridrank/config"
)

func TestEvaluateBudgetProceeds(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 100
	engine, _, _, _ := newTestEngine(ds)

	decision, err := engine.evaluateBudget(context.Background(), "acc_1", 5, 3)
	assert.NoError(t, err)
	assert.Equal(t, budgetProceed, decision.action)
	assert.Equal(t, int64(5), decision.creditCost)
	assert.Equal(t, "0.075", decision.estimatedUSD.String())
}

func TestEvaluateBudgetInsufficient(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 2
	engine, _, _, _ := newTestEngine(ds)

	decision, err := engine.evaluateBudget(context.Background(), "acc_1", 5, 3)
	assert.NoError(t, err)
	assert.Equal(t, budgetInsufficient, decision.action)
	assert.Equal(t, int64(2), decision.available)
	assert.Equal(t, int64(3), decision.deficit)
}

// A run costing exactly the ceiling may proceed; only exceeding it is
// refused.
func TestEvaluateBudgetCeilingBoundary(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 100
	engine, _, _, _ := newTestEngine(ds)
	config.MockConfig(&config.Configuration{
		Scan: config.ScanConfig{UnitCostUSD: "0.005", CostCeilingUSD: "0.075", TopRankBucket: 3},
	})

	decision, err := engine.evaluateBudget(context.Background(), "acc_1", 5, 3)
	assert.NoError(t, err)
	assert.Equal(t, budgetProceed, decision.action)

	config.MockConfig(&config.Configuration{
		Scan: config.ScanConfig{UnitCostUSD: "0.005", CostCeilingUSD: "0.074", TopRankBucket: 3},
	})
	decision, err = engine.evaluateBudget(context.Background(), "acc_1", 5, 3)
	assert.NoError(t, err)
	assert.Equal(t, budgetCeiling, decision.action)
}

func TestEvaluateBudgetInsufficientReportedBeforeCeiling(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 2
	engine, _, _, _ := newTestEngine(ds)
	config.MockConfig(&config.Configuration{
		Scan: config.ScanConfig{UnitCostUSD: "0.005", CostCeilingUSD: "0.01", TopRankBucket: 3},
	})

	decision, err := engine.evaluateBudget(context.Background(), "acc_1", 5, 3)
	assert.NoError(t, err)
	assert.Equal(t, budgetInsufficient, decision.action)
	assert.Equal(t, int64(3), decision.deficit)
}

func TestEvaluateBudgetDegenerateGridStillCosts(t *testing.T) {
	ds := newFakeDataSource()
	ds.balances["acc_1"] = 0
	engine, _, _, _ := newTestEngine(ds)

	decision, err := engine.evaluateBudget(context.Background(), "acc_1", 0, 1)
	assert.NoError(t, err)
	assert.Equal(t, budgetInsufficient, decision.action)
	assert.Equal(t, int64(1), decision.creditCost)
	assert.Equal(t, int64(1), decision.deficit)
}
