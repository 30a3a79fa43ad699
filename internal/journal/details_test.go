package journal

import (
	"testing"
	"time"

	"gro-garden-sync/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatSol(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0.0000"},
		{50_000_000, "0.0500"},
		{1_000_000_000, "1.0000"},
		{1_234_567_890, "1.2346"},
		{18_000_000_000_000_000_000, "18000000000.0000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSol(tt.lamports))
	}
}

func TestDetails(t *testing.T) {
	assert.Equal(t, "Deposited 0.0500 Solana to grow Solana Fern", DepositDetails(models.SpeciesSol, 50_000_000))
	assert.Equal(t, "Bonk Cactus grew into a Sapling", GrowthDetails(models.SpeciesBonk, models.StageSapling))
	assert.Equal(t, "Ocean Lily is in full bloom", BloomDetails(models.SpeciesOrca))
	assert.Equal(t, "3-day streak!", StreakDetails(3))
	assert.Equal(t, "Left a sunflower in 9WzD...AWWM's garden", VisitDetails("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"))
}

func TestStageEntries(t *testing.T) {
	at := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	plant := models.Plant{WalletAddress: "wallet", Species: models.SpeciesSol, GrowthStage: models.StageMature}

	assert.Empty(t, StageEntries(plant, models.StageMature, at))
	assert.Empty(t, StageEntries(plant, models.StageSprout, at))

	entries := StageEntries(plant, models.StageBlooming, at)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, models.ActionGrowth, entries[0].Action)
		assert.Equal(t, "Solana Fern grew into a Blooming", entries[0].Details)
		assert.Equal(t, models.ActionBloom, entries[1].Action)
		assert.Equal(t, "wallet", entries[1].WalletAddress)
		assert.True(t, entries[1].Timestamp.Equal(at))
	}

	plant.GrowthStage = models.StageSeed
	entries = StageEntries(plant, models.StageSprout, at)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "Solana Fern grew into a Sprout", entries[0].Details)
	}
}
