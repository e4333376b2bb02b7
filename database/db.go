package database

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/gridrank/gridrank/cache"
	"github.com/gridrank/gridrank/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		// a missing cache degrades reads to Postgres, it never blocks startup
		cacheInstance, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("cache unavailable, reads fall back to the database: %v", errCache)
		}
		instance = &Datasource{Conn: con, Cache: cacheInstance}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS gridrank`); err != nil {
		return nil, err
	}
	err = createGridTable(db)
	if err != nil {
		return nil, err
	}
	err = createKeywordTable(db)
	if err != nil {
		return nil, err
	}
	err = createBalanceTable(db)
	if err != nil {
		return nil, err
	}
	err = createLedgerEntryTable(db)
	if err != nil {
		return nil, err
	}
	err = createRankResultTable(db)
	if err != nil {
		return nil, err
	}
	err = createScanSummaryTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// createGridTable creates a PostgreSQL table for the Grid struct
func createGridTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.grids (
			id SERIAL PRIMARY KEY,
			grid_id TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			center_lat DOUBLE PRECISION NOT NULL,
			center_lng DOUBLE PRECISION NOT NULL,
			grid_points JSONB NOT NULL DEFAULT '[]',
			enabled BOOLEAN NOT NULL DEFAULT true,
			frequency TEXT,
			day INT NOT NULL DEFAULT 0,
			hour INT NOT NULL DEFAULT 0,
			next_scheduled_at TIMESTAMP,
			last_scheduled_run_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	log.Println(err)
	return err
}

// createKeywordTable creates a PostgreSQL table for the Keyword struct.
// schedule_mode is a closed enum; there is no null third state.
func createKeywordTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.keywords (
			id SERIAL PRIMARY KEY,
			keyword_id TEXT NOT NULL UNIQUE,
			grid_id TEXT NOT NULL REFERENCES gridrank.grids(grid_id),
			account_id TEXT NOT NULL,
			phrase TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			schedule_mode TEXT NOT NULL DEFAULT 'INHERIT' CHECK (schedule_mode IN ('INHERIT', 'CUSTOM')),
			frequency TEXT,
			day INT NOT NULL DEFAULT 0,
			hour INT NOT NULL DEFAULT 0,
			next_scheduled_at TIMESTAMP,
			last_scheduled_run_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	log.Println(err)
	return err
}

// createBalanceTable creates a PostgreSQL table for the CreditBalance struct
func createBalanceTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.balances (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			total BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	log.Println(err)
	return err
}

// createLedgerEntryTable creates a PostgreSQL table for the LedgerEntry
// struct. The unique index on (account_id, idempotency_key, entry_type) is
// what makes debit and refund replays no-ops.
func createLedgerEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.ledger_entries (
			id SERIAL PRIMARY KEY,
			entry_id TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			entry_type TEXT NOT NULL CHECK (entry_type IN ('DEBIT', 'REFUND', 'TOPUP')),
			amount BIGINT NOT NULL,
			idempotency_key TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB,
			UNIQUE (account_id, idempotency_key, entry_type)
		)
	`)
	log.Println(err)
	return err
}

// createRankResultTable creates the table the external rank checker writes
// its per-point results into. The engine only ever reads aggregates from it.
func createRankResultTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.rank_results (
			id SERIAL PRIMARY KEY,
			grid_id TEXT NOT NULL REFERENCES gridrank.grids(grid_id),
			keyword_id TEXT NOT NULL REFERENCES gridrank.keywords(keyword_id),
			account_id TEXT NOT NULL,
			point JSONB NOT NULL,
			rank INT NOT NULL DEFAULT 0,
			checked_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	log.Println(err)
	return err
}

// createScanSummaryTable creates the per-period summary rollup table
func createScanSummaryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gridrank.scan_summaries (
			id SERIAL PRIMARY KEY,
			summary_id TEXT NOT NULL UNIQUE,
			grid_id TEXT NOT NULL REFERENCES gridrank.grids(grid_id),
			account_id TEXT NOT NULL,
			period_start TIMESTAMP NOT NULL,
			stats JSONB NOT NULL,
			generated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (grid_id, period_start)
		)
	`)
	log.Println(err)
	return err
}
