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

const (
	plantColumns = `
		id, wallet_address, token_mint, species, growth_stage, health_score, growth_points,
		planted_at, last_watered_at, total_deposits, total_deposited_amount, grid_x, grid_y,
		is_staked, staked_amount, earned_yield, version`

	// Plant queries
	queryGetPlants = `
		SELECT ` + plantColumns + `
		FROM plants
		WHERE wallet_address = ?
		ORDER BY planted_at, grid_y, grid_x`

	queryGetPlantByMint = `
		SELECT ` + plantColumns + `
		FROM plants
		WHERE wallet_address = ? AND token_mint = ?`

	queryGetPlantById = `
		SELECT ` + plantColumns + `
		FROM plants
		WHERE id = ?`

	queryInsertPlant = `
		INSERT OR IGNORE INTO plants (
			id, wallet_address, token_mint, species, growth_stage, health_score,
			planted_at, last_watered_at, total_deposits, total_deposited_amount,
			grid_x, grid_y, is_staked, staked_amount, version)
		VALUES (?, ?, ?, ?, ?, 100, ?, ?, 1, ?, ?, ?, ?, ?, 1)`

	queryWaterPlant = `
		UPDATE plants
		SET total_deposits = total_deposits + 1,
			total_deposited_amount = total_deposited_amount + ?,
			last_watered_at = ?,
			health_score = 100,
			is_staked = (is_staked OR ?),
			staked_amount = staked_amount + ?,
			version = version + 1
		WHERE id = ?`

	queryUpdatePlantVitals = `
		UPDATE plants
		SET health_score = ?, growth_stage = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryPlantExists = `
		SELECT 1 FROM plants WHERE id = ?`

	queryCountPlants = `
		SELECT COUNT(*) FROM plants WHERE wallet_address = ?`

	// Streak queries
	queryGetStreak = `
		SELECT wallet_address, current_streak, longest_streak, last_active_date, total_active_days
		FROM streaks
		WHERE wallet_address = ?`

	// The WHERE clause keeps last_active_date from moving backwards.
	queryUpsertStreak = `
		INSERT INTO streaks (wallet_address, current_streak, longest_streak, last_active_date, total_active_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_active_date = excluded.last_active_date,
			total_active_days = excluded.total_active_days
		WHERE excluded.last_active_date >= streaks.last_active_date`

	// Journal queries
	queryInsertJournalEntry = `
		INSERT OR IGNORE INTO journal_entries (id, wallet_address, timestamp, action, details, garden_snapshot, source_signature)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetJournalEntries = `
		SELECT id, wallet_address, timestamp, action, details, garden_snapshot, source_signature
		FROM journal_entries
		WHERE wallet_address = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`

	queryGetJournalEntriesSince = `
		SELECT id, wallet_address, timestamp, action, details, garden_snapshot, source_signature
		FROM journal_entries
		WHERE wallet_address = ? AND timestamp >= ?
		ORDER BY timestamp DESC, rowid DESC`

	// Sync cursor queries
	queryGetSyncCursor = `
		SELECT signature FROM sync_cursors WHERE wallet_address = ?`

	queryUpsertSyncCursor = `
		INSERT INTO sync_cursors (wallet_address, signature, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(wallet_address) DO UPDATE SET
			signature = excluded.signature,
			updated_at = CURRENT_TIMESTAMP`

	queryGetKnownWallets = `
		SELECT wallet_address FROM plants
		UNION
		SELECT wallet_address FROM streaks
		UNION
		SELECT wallet_address FROM sync_cursors
		ORDER BY wallet_address`

	// Secret queries
	queryGetSecret = `
		SELECT value FROM secrets WHERE key = ?`

	queryUpsertSecret = `
		INSERT INTO secrets (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`

	queryDeleteSecret = `
		DELETE FROM secrets WHERE key = ?`
)
