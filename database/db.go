package database

import (
	"context"
	"log"
	"time"

	"faredown/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB is the global Postgres handle.
var DB *sqlx.DB

// InitDB initializes the Postgres connection and ensures the schema exists.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlx.Open("postgres", config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open Postgres connection: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	DB = db
	log.Println("Connected to Postgres successfully!")
}

// EnsureSchema creates the bargain tables if they are missing and seeds
// the default per-module settings rows.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bargain_settings (
			module TEXT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			attempts INT NOT NULL DEFAULT 3,
			r1_timer_sec INT NOT NULL DEFAULT 30,
			r2_timer_sec INT NOT NULL DEFAULT 30,
			current_fare_min_pct NUMERIC NOT NULL DEFAULT 10.0,
			current_fare_max_pct NUMERIC NOT NULL DEFAULT 15.0,
			bargain_fare_min_pct NUMERIC NOT NULL DEFAULT 5.0,
			bargain_fare_max_pct NUMERIC NOT NULL DEFAULT 15.0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS bargain_market_rules (
			id BIGSERIAL PRIMARY KEY,
			module TEXT NOT NULL REFERENCES bargain_settings(module),
			country_code TEXT,
			city TEXT,
			attempts INT,
			r1_timer_sec INT,
			r2_timer_sec INT,
			current_fare_min_pct NUMERIC,
			current_fare_max_pct NUMERIC,
			bargain_fare_min_pct NUMERIC,
			bargain_fare_max_pct NUMERIC
		)`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
			code TEXT PRIMARY KEY,
			discount_amount NUMERIC NOT NULL DEFAULT 0,
			discount_percent NUMERIC NOT NULL DEFAULT 0,
			module TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS bargain_events_raw (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bargain_events_session
			ON bargain_events_raw (session_id, created_at)`,
		`INSERT INTO bargain_settings (module) VALUES
			('flight'), ('hotel'), ('sightseeing'), ('transfer')
			ON CONFLICT (module) DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
