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
	"time"

	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppendJournalEntry writes one journal row. The garden snapshot records how
// many plants the wallet had at the time. A repeated SourceSignature returns
// store.ErrDuplicateJournalEntry and writes nothing.
func (s *Service) AppendJournalEntry(ctx context.Context, params store.AppendJournalParams) (*models.JournalEntry, error) {
	timestamp := params.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var snapshot int
	if err := tx.QueryRowContext(ctx, queryCountPlants, params.WalletAddress).Scan(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to count plants: %w", err)
	}

	var source sql.NullString
	if params.SourceSignature != "" {
		source = sql.NullString{String: params.SourceSignature, Valid: true}
	}

	entry := &models.JournalEntry{
		Id:              uuid.New().String(),
		WalletAddress:   params.WalletAddress,
		Timestamp:       timestamp.UTC(),
		Action:          params.Action,
		Details:         params.Details,
		GardenSnapshot:  snapshot,
		SourceSignature: params.SourceSignature,
	}

	result, err := tx.ExecContext(ctx, queryInsertJournalEntry,
		entry.Id, entry.WalletAddress, entry.Timestamp, string(entry.Action), entry.Details, entry.GardenSnapshot, source)
	if err != nil {
		return nil, fmt.Errorf("failed to insert journal entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrDuplicateJournalEntry, params.SourceSignature)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Journal entry appended",
		zap.String("wallet", entry.WalletAddress),
		zap.String("action", string(entry.Action)),
		zap.String("details", entry.Details),
		zap.String("source_signature", entry.SourceSignature))

	s.journal.notify(entry.WalletAddress)
	return entry, nil
}

func (s *Service) GetJournalEntries(ctx context.Context, wallet string, limit int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, queryGetJournalEntries, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query journal entries: %w", err)
	}
	return scanJournalRows(rows)
}

func (s *Service) GetJournalEntriesSince(ctx context.Context, wallet string, since time.Time) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetJournalEntriesSince, wallet, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("unable to query journal entries: %w", err)
	}
	return scanJournalRows(rows)
}

func (s *Service) ObserveJournal(ctx context.Context, wallet string, limit int) (<-chan []models.JournalEntry, error) {
	return observe(ctx, s.journal, wallet, func(ctx context.Context) ([]models.JournalEntry, error) {
		return s.GetJournalEntries(ctx, wallet, limit)
	})
}

func scanJournalRows(rows *sql.Rows) ([]models.JournalEntry, error) {
	defer closeRows(rows)

	entries := []models.JournalEntry{}
	for rows.Next() {
		var entry models.JournalEntry
		var action string
		var source sql.NullString
		err := rows.Scan(&entry.Id, &entry.WalletAddress, &entry.Timestamp, &action,
			&entry.Details, &entry.GardenSnapshot, &source)
		if err != nil {
			return nil, fmt.Errorf("unable to scan journal row: %w", err)
		}
		entry.Action = models.JournalAction(action)
		entry.SourceSignature = source.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}
