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
)

// GetSyncCursor returns the newest processed signature, or "" before the
// first sync.
func (s *Service) GetSyncCursor(ctx context.Context, wallet string) (string, error) {
	var signature string
	err := s.db.QueryRowContext(ctx, queryGetSyncCursor, wallet).Scan(&signature)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("unable to query sync cursor: %w", err)
	}
	return signature, nil
}

func (s *Service) SetSyncCursor(ctx context.Context, wallet, signature string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertSyncCursor, wallet, signature); err != nil {
		return fmt.Errorf("failed to save sync cursor: %w", err)
	}
	return nil
}
