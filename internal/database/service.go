/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy both storage contracts.
var (
	_ store.GardenStore = (*Service)(nil)
	_ store.SecretStore = (*Service)(nil)
)

type Service struct {
	db *sql.DB

	plants  *hub
	streaks *hub
	journal *hub
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		plants:  newHub(),
		streaks: newHub(),
		journal: newHub(),
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- One plant per (wallet, mint)
	CREATE TABLE IF NOT EXISTS plants (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		token_mint TEXT NOT NULL,
		species TEXT NOT NULL,
		growth_stage TEXT NOT NULL DEFAULT 'SEED',
		health_score INTEGER NOT NULL DEFAULT 100 CHECK (health_score BETWEEN 0 AND 100),
		growth_points REAL NOT NULL DEFAULT 0,
		planted_at TIMESTAMP NOT NULL,
		last_watered_at TIMESTAMP NOT NULL,
		total_deposits INTEGER NOT NULL DEFAULT 0,
		total_deposited_amount INTEGER NOT NULL DEFAULT 0,
		grid_x INTEGER NOT NULL DEFAULT 0,
		grid_y INTEGER NOT NULL DEFAULT 0,
		is_staked BOOLEAN NOT NULL DEFAULT 0,
		staked_amount INTEGER NOT NULL DEFAULT 0,
		earned_yield REAL NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		UNIQUE(wallet_address, token_mint)
	);

	CREATE INDEX IF NOT EXISTS idx_plants_wallet ON plants(wallet_address);

	-- One streak per wallet
	CREATE TABLE IF NOT EXISTS streaks (
		wallet_address TEXT PRIMARY KEY,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_active_date TEXT NOT NULL,
		total_active_days INTEGER NOT NULL DEFAULT 0
	);

	-- Append-only garden journal
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL,
		garden_snapshot INTEGER NOT NULL DEFAULT 0,
		source_signature TEXT UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_journal_wallet_timestamp ON journal_entries(wallet_address, timestamp);

	-- Newest processed signature per wallet
	CREATE TABLE IF NOT EXISTS sync_cursors (
		wallet_address TEXT PRIMARY KEY,
		signature TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Opaque encrypted blobs
	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		zap.L().Warn("Failed to roll back transaction", zap.Error(err))
	}
}
