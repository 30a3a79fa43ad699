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

package garden

import (
	"context"
	"errors"
	"fmt"

	"gro-garden-sync/internal/growth"
	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/journal"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/pipeline"
	"gro-garden-sync/internal/store"

	"go.uber.org/zap"
)

// Deposit validates the request, sends the deposit through the wallet and, on
// success, plants or waters the species' plant, advances the streak and
// journals the deposit. NoWalletAvailable and Failure write nothing. The
// returned error covers validation and persistence only.
func (s *Service) Deposit(ctx context.Context, wallet string, species models.Species, lamports uint64) (pipeline.Outcome, *models.DepositResult, error) {
	if s.submitter == nil {
		return nil, nil, ErrReadOnly
	}
	key, err := parseWallet(wallet)
	if err != nil {
		return nil, nil, err
	}
	if !instruction.IsValidDepositAmount(lamports) {
		return nil, nil, fmt.Errorf("%w: %d lamports", ErrInvalidAmount, lamports)
	}
	info, ok := models.LookupSpecies(species)
	if !ok {
		return nil, nil, fmt.Errorf("unknown species: %q", species)
	}

	zap.L().Info("Starting deposit",
		zap.String("wallet", wallet),
		zap.String("species", string(species)),
		zap.Uint64("lamports", lamports))

	outcome := s.submitter.Deposit(ctx, key, species, lamports)
	success, ok := outcome.(pipeline.Success)
	if !ok {
		return outcome, nil, nil
	}

	// The wallet already submitted; persistence must not be abandoned halfway
	// because the caller went away.
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	plant, created, err := s.plantOrWater(ctx, wallet, info, lamports)
	if err != nil {
		return outcome, nil, err
	}

	result := &models.DepositResult{Signature: success.Signature, Plant: plant, NewPlant: created}

	streak, advanced, err := s.RecordActivity(ctx, wallet, now)
	if err != nil {
		return outcome, result, err
	}
	result.Streak = streak

	source := success.Signature
	if source == pipeline.UnknownSignature {
		source = ""
	}
	if err := s.appendJournal(ctx, store.AppendJournalParams{
		WalletAddress:   wallet,
		Timestamp:       now,
		Action:          models.ActionDeposit,
		Details:         journal.DepositDetails(species, lamports),
		SourceSignature: source,
	}); err != nil && !errors.Is(err, store.ErrDuplicateJournalEntry) {
		return outcome, result, fmt.Errorf("failed to journal deposit: %w", err)
	}
	if advanced {
		s.journalStreak(ctx, streak, now)
	}

	zap.L().Info("Deposit recorded",
		zap.String("wallet", wallet),
		zap.String("signature", success.Signature),
		zap.String("plant_id", plant.Id),
		zap.Bool("new_plant", created))
	return outcome, result, nil
}

func (s *Service) plantOrWater(ctx context.Context, wallet string, info models.SpeciesInfo, lamports uint64) (*models.Plant, bool, error) {
	staked := s.submitter.Staked()

	existing, err := s.store.GetPlantByMint(ctx, wallet, info.Mint)
	if err != nil && !errors.Is(err, store.ErrPlantNotFound) {
		return nil, false, fmt.Errorf("failed to look up plant: %w", err)
	}

	if existing == nil {
		plants, err := s.store.GetPlants(ctx, wallet)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load plants: %w", err)
		}
		x, y := growth.NextGridPosition(plants)

		plant, created, err := s.store.CreatePlant(ctx, store.CreatePlantParams{
			WalletAddress: wallet,
			TokenMint:     info.Mint,
			Species:       info.Species,
			Lamports:      lamports,
			GridX:         x,
			GridY:         y,
			Staked:        staked,
			PlantedAt:     s.now(),
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to create plant: %w", err)
		}
		if created {
			return plant, true, nil
		}
		// Lost a race with another writer; water the plant it created.
		existing = plant
	}

	plant, err := s.store.WaterPlant(ctx, store.WaterPlantParams{
		PlantId:   existing.Id,
		Lamports:  lamports,
		Staked:    staked,
		WateredAt: s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to water plant: %w", err)
	}
	return s.advanceStage(ctx, plant), false, nil
}

// advanceStage writes the stage a watered plant has grown into and journals
// the transition. A concurrent vitals writer wins; it journals for itself.
func (s *Service) advanceStage(ctx context.Context, plant *models.Plant) *models.Plant {
	now := s.now()
	next, changed := growth.Recompute(*plant, now)
	if !changed {
		return plant
	}

	err := s.store.UpdatePlantVitals(ctx, store.UpdateVitalsParams{
		PlantId:         plant.Id,
		HealthScore:     next.HealthScore,
		GrowthStage:     next.GrowthStage,
		ExpectedVersion: plant.Version,
	})
	if err != nil {
		zap.L().Warn("Failed to update plant vitals after deposit", zap.String("plant_id", plant.Id), zap.Error(err))
		return plant
	}

	for _, entry := range journal.StageEntries(*plant, next.GrowthStage, now) {
		_ = s.appendJournal(ctx, entry)
	}
	next.Version++
	return &next
}

// SendSunflower gifts a sunflower to a friend's garden and journals the visit.
func (s *Service) SendSunflower(ctx context.Context, wallet, friend string) (pipeline.Outcome, error) {
	if s.submitter == nil {
		return nil, ErrReadOnly
	}
	from, err := parseWallet(wallet)
	if err != nil {
		return nil, err
	}
	to, err := parseWallet(friend)
	if err != nil {
		return nil, err
	}
	if from.Equals(to) {
		return nil, ErrSelfVisit
	}

	outcome := s.submitter.SendSunflower(ctx, from, to)
	success, ok := outcome.(pipeline.Success)
	if !ok {
		return outcome, nil
	}

	source := success.Signature
	if source == pipeline.UnknownSignature {
		source = ""
	}
	err = s.appendJournal(context.WithoutCancel(ctx), store.AppendJournalParams{
		WalletAddress:   wallet,
		Timestamp:       s.now(),
		Action:          models.ActionVisit,
		Details:         journal.VisitDetails(friend),
		SourceSignature: source,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateJournalEntry) {
		return outcome, fmt.Errorf("failed to journal visit: %w", err)
	}
	return outcome, nil
}
