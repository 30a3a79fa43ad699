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
	"errors"
	"fmt"

	"gro-garden-sync/internal/models"

	"go.uber.org/zap"
)

// GetStreak returns nil when the wallet has never been active.
func (s *Service) GetStreak(ctx context.Context, wallet string) (*models.Streak, error) {
	var streak models.Streak
	err := s.db.QueryRowContext(ctx, queryGetStreak, wallet).Scan(
		&streak.WalletAddress, &streak.CurrentStreak, &streak.LongestStreak,
		&streak.LastActiveDate, &streak.TotalActiveDays)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to query streak: %w", err)
	}
	return &streak, nil
}

// SaveStreak upserts the wallet's streak. A streak dated before the stored
// last active date is ignored.
func (s *Service) SaveStreak(ctx context.Context, streak models.Streak) error {
	result, err := s.db.ExecContext(ctx, queryUpsertStreak,
		streak.WalletAddress, streak.CurrentStreak, streak.LongestStreak,
		streak.LastActiveDate, streak.TotalActiveDays)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		zap.L().Warn("Ignoring streak older than stored last active date",
			zap.String("wallet", streak.WalletAddress),
			zap.String("last_active_date", streak.LastActiveDate))
		return nil
	}

	zap.L().Debug("Streak saved",
		zap.String("wallet", streak.WalletAddress),
		zap.Int("current_streak", streak.CurrentStreak),
		zap.Int("longest_streak", streak.LongestStreak))

	s.streaks.notify(streak.WalletAddress)
	return nil
}

func (s *Service) ObserveStreak(ctx context.Context, wallet string) (<-chan *models.Streak, error) {
	return observe(ctx, s.streaks, wallet, func(ctx context.Context) (*models.Streak, error) {
		return s.GetStreak(ctx, wallet)
	})
}
