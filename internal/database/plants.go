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
	"time"

	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (models.Plant, error) {
	var p models.Plant
	var species, stage string
	err := row.Scan(
		&p.Id, &p.WalletAddress, &p.TokenMint, &species, &stage, &p.HealthScore, &p.GrowthPoints,
		&p.PlantedAt, &p.LastWateredAt, &p.TotalDeposits, &p.TotalDepositedAmount, &p.GridX, &p.GridY,
		&p.IsStaked, &p.StakedAmount, &p.EarnedYield, &p.Version)
	if err != nil {
		return models.Plant{}, err
	}
	p.Species = models.Species(species)
	p.GrowthStage = models.ParseGrowthStage(stage)
	return p, nil
}

func (s *Service) GetPlants(ctx context.Context, wallet string) ([]models.Plant, error) {
	zap.L().Debug("Querying plants", zap.String("wallet", wallet))

	rows, err := s.db.QueryContext(ctx, queryGetPlants, wallet)
	if err != nil {
		return nil, fmt.Errorf("unable to query plants: %w", err)
	}
	defer closeRows(rows)

	plants := []models.Plant{}
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan plant row: %w", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plant rows: %w", err)
	}
	return plants, nil
}

func (s *Service) GetPlantByMint(ctx context.Context, wallet, mint string) (*models.Plant, error) {
	p, err := scanPlant(s.db.QueryRowContext(ctx, queryGetPlantByMint, wallet, mint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlantNotFound
		}
		return nil, fmt.Errorf("unable to query plant by mint: %w", err)
	}
	return &p, nil
}

func (s *Service) GetPlantById(ctx context.Context, plantId string) (*models.Plant, error) {
	p, err := scanPlant(s.db.QueryRowContext(ctx, queryGetPlantById, plantId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlantNotFound
		}
		return nil, fmt.Errorf("unable to query plant by id: %w", err)
	}
	return &p, nil
}

// CreatePlant inserts a seed for (wallet, mint). When the pair already has a
// plant the existing row is returned with created=false.
func (s *Service) CreatePlant(ctx context.Context, params store.CreatePlantParams) (*models.Plant, bool, error) {
	plantedAt := params.PlantedAt
	if plantedAt.IsZero() {
		plantedAt = time.Now()
	}
	plantedAt = plantedAt.UTC()

	var stakedAmount uint64
	if params.Staked {
		stakedAmount = params.Lamports
	}

	id := uuid.New().String()
	result, err := s.db.ExecContext(ctx, queryInsertPlant,
		id, params.WalletAddress, params.TokenMint, string(params.Species), models.StageSeed.String(),
		plantedAt, plantedAt, params.Lamports, params.GridX, params.GridY, params.Staked, stakedAmount)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert plant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	created := rowsAffected > 0
	plant, err := s.GetPlantByMint(ctx, params.WalletAddress, params.TokenMint)
	if err != nil {
		return nil, false, err
	}

	if created {
		zap.L().Info("Plant created",
			zap.String("plant_id", plant.Id),
			zap.String("wallet", params.WalletAddress),
			zap.String("species", string(params.Species)),
			zap.Int("grid_x", params.GridX),
			zap.Int("grid_y", params.GridY))
		s.plants.notify(params.WalletAddress)
	} else {
		zap.L().Debug("Plant already exists for mint",
			zap.String("plant_id", plant.Id),
			zap.String("wallet", params.WalletAddress),
			zap.String("mint", params.TokenMint))
	}
	return plant, created, nil
}

func (s *Service) WaterPlant(ctx context.Context, params store.WaterPlantParams) (*models.Plant, error) {
	wateredAt := params.WateredAt
	if wateredAt.IsZero() {
		wateredAt = time.Now()
	}

	var stakedDelta uint64
	if params.Staked {
		stakedDelta = params.Lamports
	}

	result, err := s.db.ExecContext(ctx, queryWaterPlant,
		params.Lamports, wateredAt.UTC(), params.Staked, stakedDelta, params.PlantId)
	if err != nil {
		return nil, fmt.Errorf("failed to water plant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, store.ErrPlantNotFound
	}

	plant, err := s.GetPlantById(ctx, params.PlantId)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Plant watered",
		zap.String("plant_id", plant.Id),
		zap.String("wallet", plant.WalletAddress),
		zap.Int("total_deposits", plant.TotalDeposits),
		zap.Uint64("total_deposited_amount", plant.TotalDepositedAmount))

	s.plants.notify(plant.WalletAddress)
	return plant, nil
}

// UpdatePlantVitals writes health and stage only if the row is still at
// ExpectedVersion.
func (s *Service) UpdatePlantVitals(ctx context.Context, params store.UpdateVitalsParams) error {
	result, err := s.db.ExecContext(ctx, queryUpdatePlantVitals,
		params.HealthScore, params.GrowthStage.String(), params.PlantId, params.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update plant vitals: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, queryPlantExists, params.PlantId).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrPlantNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check plant existence: %w", err)
		}
		return fmt.Errorf("plant vitals update failed - %w", store.ErrConcurrentModification)
	}

	plant, err := s.GetPlantById(ctx, params.PlantId)
	if err != nil {
		return err
	}
	s.plants.notify(plant.WalletAddress)
	return nil
}

func (s *Service) ObservePlants(ctx context.Context, wallet string) (<-chan []models.Plant, error) {
	return observe(ctx, s.plants, wallet, func(ctx context.Context) ([]models.Plant, error) {
		return s.GetPlants(ctx, wallet)
	})
}

func (s *Service) GetKnownWallets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryGetKnownWallets)
	if err != nil {
		return nil, fmt.Errorf("unable to query known wallets: %w", err)
	}
	defer closeRows(rows)

	var wallets []string
	for rows.Next() {
		var wallet string
		if err := rows.Scan(&wallet); err != nil {
			return nil, fmt.Errorf("unable to scan wallet row: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}
	return wallets, nil
}
