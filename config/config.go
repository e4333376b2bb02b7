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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"GRIDRANK_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"GRIDRANK_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"GRIDRANK_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"GRIDRANK_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"GRIDRANK_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"GRIDRANK_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"GRIDRANK_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"GRIDRANK_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"GRIDRANK_REDIS_SKIP_TLS_VERIFY"`
}

// RankCheckHttpService describes the external service that performs the
// actual geo-grid rank lookups. The engine treats it as a black box that
// returns a count of checks performed.
type RankCheckHttpService struct {
	Url     string `json:"url" envconfig:"GRIDRANK_RANK_CHECK_URL"`
	Timeout int    `json:"timeout" envconfig:"GRIDRANK_RANK_CHECK_TIMEOUT"`
	Headers struct {
		Authorization string `json:"Authorization" envconfig:"GRIDRANK_RANK_CHECK_AUTHORIZATION"`
	} `json:"headers"`
}

// ScanConfig carries the billing and throttling policy for scheduled scans.
// UnitCostUSD and CostCeilingUSD are decimal strings so the USD math never
// goes through floats.
type ScanConfig struct {
	UnitCostUSD      string `json:"unit_cost_usd" envconfig:"GRIDRANK_SCAN_UNIT_COST_USD"`
	CostCeilingUSD   string `json:"cost_ceiling_usd" envconfig:"GRIDRANK_SCAN_COST_CEILING_USD"`
	InterUnitDelayMs int    `json:"inter_unit_delay_ms" envconfig:"GRIDRANK_SCAN_INTER_UNIT_DELAY_MS"`
	TopRankBucket    int    `json:"top_rank_bucket" envconfig:"GRIDRANK_SCAN_TOP_RANK_BUCKET"`
}

type QueueConfig struct {
	WebhookQueue string `json:"webhook_queue" envconfig:"GRIDRANK_QUEUE_WEBHOOK"`
	SummaryQueue string `json:"summary_queue" envconfig:"GRIDRANK_QUEUE_SUMMARY"`
	WorkerCount  int    `json:"worker_count" envconfig:"GRIDRANK_QUEUE_WORKER_COUNT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"GRIDRANK_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"GRIDRANK_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"GRIDRANK_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string               `json:"project_name" envconfig:"GRIDRANK_PROJECT_NAME"`
	Server       ServerConfig         `json:"server"`
	DataSource   DataSourceConfig     `json:"data_source"`
	Redis        RedisConfig          `json:"redis"`
	RankCheck    RankCheckHttpService `json:"rank_check"`
	Scan         ScanConfig           `json:"scan"`
	Queue        QueueConfig          `json:"queue"`
	Notification Notification         `json:"notification"`
	RateLimit    RateLimitConfig      `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("gridrank", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called gridrank.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "GridRank Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Scan.UnitCostUSD == "" {
		cnf.Scan.UnitCostUSD = "0.005"
	}
	if cnf.Scan.CostCeilingUSD == "" {
		cnf.Scan.CostCeilingUSD = "10"
	}
	if _, err := decimal.NewFromString(cnf.Scan.UnitCostUSD); err != nil {
		log.Printf("Error: scan unit cost %q is not a valid decimal.", cnf.Scan.UnitCostUSD)
		return errors.New("scan unit cost must be a decimal string")
	}
	if _, err := decimal.NewFromString(cnf.Scan.CostCeilingUSD); err != nil {
		log.Printf("Error: scan cost ceiling %q is not a valid decimal.", cnf.Scan.CostCeilingUSD)
		return errors.New("scan cost ceiling must be a decimal string")
	}
	if cnf.Scan.InterUnitDelayMs <= 0 {
		cnf.Scan.InterUnitDelayMs = 400
	}
	if cnf.Scan.TopRankBucket <= 0 {
		cnf.Scan.TopRankBucket = 3
	}

	if cnf.RankCheck.Timeout <= 0 {
		cnf.RankCheck.Timeout = 60
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "scan:webhook"
	}
	if cnf.Queue.SummaryQueue == "" {
		cnf.Queue.SummaryQueue = "scan:summary"
	}
	if cnf.Queue.WorkerCount <= 0 {
		cnf.Queue.WorkerCount = 5
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
