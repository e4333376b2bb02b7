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
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/gridrank/gridrank/config"
	redis_db "github.com/gridrank/gridrank/internal/redis-db"
)

// Queue wraps the asynq client used to hand work to the worker process:
// webhook deliveries and summary regenerations.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// SummaryTaskPayload is the payload of a summary regeneration task.
type SummaryTaskPayload struct {
	GridID    string `json:"grid_id"`
	AccountID string `json:"account_id"`
	Force     bool   `json:"force"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// queueSummaryGeneration enqueues a summary regeneration task for a grid.
func (q *Queue) queueSummaryGeneration(payload SummaryTaskPayload) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	IPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.SummaryQueue)}
	task := asynq.NewTask(cfg.Queue.SummaryQueue, IPayload, taskOptions...)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued summary generation: %+v", payload.GridID)
	return nil
}
