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
	"fmt"
	"net/http"
	"time"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/internal/request"
	"github.com/gridrank/gridrank/model"
)

// RankChecker performs the external geo-grid rank lookups for a set of
// keywords and reports how many checks it actually ran. It is a paid,
// rate-limited black box as far as the engine is concerned.
type RankChecker interface {
	CheckRanks(ctx context.Context, grid *model.Grid, keywordIDs []string) (int, error)
}

// HTTPRankChecker calls the configured rank-check service over HTTP.
type HTTPRankChecker struct {
	url           string
	authorization string
	timeout       time.Duration
}

type rankCheckRequest struct {
	GridID    string           `json:"grid_id"`
	AccountID string           `json:"account_id"`
	Center    model.GeoPoint   `json:"center"`
	Points    []model.GeoPoint `json:"points"`
	Keywords  []string         `json:"keyword_ids"`
}

type rankCheckResponse struct {
	ChecksPerformed int    `json:"checks_performed"`
	Error           string `json:"error"`
}

func NewHTTPRankChecker(cfg config.RankCheckHttpService) *HTTPRankChecker {
	return &HTTPRankChecker{
		url:           cfg.Url,
		authorization: cfg.Headers.Authorization,
		timeout:       time.Duration(cfg.Timeout) * time.Second,
	}
}

// CheckRanks posts the grid geometry and keyword ids to the rank-check
// service and returns the number of checks performed. Any non-2xx response
// is an execution failure the saga will compensate for.
func (c *HTTPRankChecker) CheckRanks(ctx context.Context, grid *model.Grid, keywordIDs []string) (int, error) {
	payload, err := request.ToJsonReq(rankCheckRequest{
		GridID:    grid.GridID,
		AccountID: grid.AccountID,
		Center:    model.GeoPoint{Lat: grid.CenterLat, Lng: grid.CenterLng},
		Points:    grid.Points,
		Keywords:  keywordIDs,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, payload)
	if err != nil {
		return 0, err
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	var response rankCheckResponse
	resp, err := request.CallWithTimeout(req, &response, c.timeout)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if response.Error != "" {
			return 0, fmt.Errorf("rank check failed with status %d: %s", resp.StatusCode, response.Error)
		}
		return 0, fmt.Errorf("rank check failed with status %d", resp.StatusCode)
	}

	return response.ChecksPerformed, nil
}
