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

package store

import (
	"context"
	"errors"
	"time"

	"gro-garden-sync/internal/models"
)

var (
	ErrPlantNotFound          = errors.New("plant not found")
	ErrDuplicateJournalEntry  = errors.New("journal entry already recorded for signature")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrSecretNotFound         = errors.New("secret not found")
)

// CreatePlantParams contains the values of a newly planted seed.
type CreatePlantParams struct {
	WalletAddress string
	TokenMint     string
	Species       models.Species
	Lamports      uint64
	GridX         int
	GridY         int
	Staked        bool
	PlantedAt     time.Time
}

// WaterPlantParams records a follow-up deposit into an existing plant.
type WaterPlantParams struct {
	PlantId   string
	Lamports  uint64
	Staked    bool
	WateredAt time.Time
}

// UpdateVitalsParams writes recomputed health and stage. ExpectedVersion
// guards against a concurrent writer having changed the row first.
type UpdateVitalsParams struct {
	PlantId         string
	HealthScore     int
	GrowthStage     models.GrowthStage
	ExpectedVersion int
}

// AppendJournalParams describes one journal row. SourceSignature, when set,
// makes the append idempotent per on-chain transaction.
type AppendJournalParams struct {
	WalletAddress   string
	Timestamp       time.Time
	Action          models.JournalAction
	Details         string
	SourceSignature string
}

// GardenStore is the storage collaborator for plants, streaks, the journal
// and the chain sync watermark. Observe methods emit the current snapshot
// first, then a new snapshot after every write for that wallet, until ctx ends.
type GardenStore interface {
	// --- Plants ---
	GetPlants(ctx context.Context, wallet string) ([]models.Plant, error)
	GetPlantByMint(ctx context.Context, wallet, mint string) (*models.Plant, error)
	GetPlantById(ctx context.Context, plantId string) (*models.Plant, error)
	CreatePlant(ctx context.Context, params CreatePlantParams) (*models.Plant, bool, error)
	WaterPlant(ctx context.Context, params WaterPlantParams) (*models.Plant, error)
	UpdatePlantVitals(ctx context.Context, params UpdateVitalsParams) error
	ObservePlants(ctx context.Context, wallet string) (<-chan []models.Plant, error)

	// --- Streaks ---
	GetStreak(ctx context.Context, wallet string) (*models.Streak, error)
	SaveStreak(ctx context.Context, streak models.Streak) error
	ObserveStreak(ctx context.Context, wallet string) (<-chan *models.Streak, error)

	// --- Journal ---
	AppendJournalEntry(ctx context.Context, params AppendJournalParams) (*models.JournalEntry, error)
	GetJournalEntries(ctx context.Context, wallet string, limit int) ([]models.JournalEntry, error)
	GetJournalEntriesSince(ctx context.Context, wallet string, since time.Time) ([]models.JournalEntry, error)
	ObserveJournal(ctx context.Context, wallet string, limit int) (<-chan []models.JournalEntry, error)

	// --- Sync watermark ---
	GetSyncCursor(ctx context.Context, wallet string) (string, error)
	SetSyncCursor(ctx context.Context, wallet, signature string) error

	// --- Wallets ---
	GetKnownWallets(ctx context.Context) ([]string, error)

	// --- Lifecycle ---
	Close()
}

// SecretStore persists opaque encrypted blobs by key.
type SecretStore interface {
	GetSecret(ctx context.Context, key string) ([]byte, error)
	PutSecret(ctx context.Context, key string, value []byte) error
	DeleteSecret(ctx context.Context, key string) error
}
