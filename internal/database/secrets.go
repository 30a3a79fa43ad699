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

	"gro-garden-sync/internal/store"
)

func (s *Service) GetSecret(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, queryGetSecret, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query secret: %w", err)
	}
	return value, nil
}

func (s *Service) PutSecret(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertSecret, key, value); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

// DeleteSecret is a no-op for a missing key.
func (s *Service) DeleteSecret(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteSecret, key); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
