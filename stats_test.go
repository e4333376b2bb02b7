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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridrank/gridrank/model"
)

func TestAccountAccumulatorMergesPerAccount(t *testing.T) {
	acc := newAccountAccumulator()
	acc.add("acc_a", model.ScanStats{KeywordsScanned: 2, PointsChecked: 10, CreditsSpent: 5, BestRank: 4})
	acc.add("acc_b", model.ScanStats{KeywordsScanned: 1, PointsChecked: 3, CreditsSpent: 3})
	acc.add("acc_a", model.ScanStats{KeywordsScanned: 1, PointsChecked: 5, CreditsSpent: 5, BestRank: 2})

	a := acc.get("acc_a")
	assert.Equal(t, 3, a.KeywordsScanned)
	assert.Equal(t, 15, a.PointsChecked)
	assert.Equal(t, int64(10), a.CreditsSpent)
	assert.Equal(t, 2, a.BestRank)

	assert.Equal(t, []string{"acc_a", "acc_b"}, acc.accounts())
}

func TestAccountAccumulatorEmpty(t *testing.T) {
	acc := newAccountAccumulator()
	assert.Empty(t, acc.accounts())
	assert.True(t, acc.get("acc_missing").Empty())
}
