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
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/database"
	redis_db "github.com/gridrank/gridrank/internal/redis-db"
	"github.com/gridrank/gridrank/model"
)

// Gridrank represents the main struct for the GridRank application: the
// scheduled scan engine plus its collaborators.
type Gridrank struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	checker    RankChecker
	notifier   Notifier
	summaries  SummaryScheduler
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewGridrank initializes a new instance of Gridrank with the provided
// database datasource. It fetches the configuration and wires the Redis
// client, task queue, HTTP rank checker and the queue-backed notifier and
// summary scheduler.
func NewGridrank(db database.IDataSource) (*Gridrank, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	g := &Gridrank{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		checker:    NewHTTPRankChecker(configuration.RankCheck),
	}
	g.notifier = &webhookNotifier{queue: newQueue}
	g.summaries = &queueSummaryScheduler{queue: newQueue}
	return g, nil
}

// GetGrid retrieves a grid configuration by its public id.
func (g *Gridrank) GetGrid(ctx context.Context, gridID string) (*model.Grid, error) {
	return g.datasource.GetGrid(ctx, gridID)
}
