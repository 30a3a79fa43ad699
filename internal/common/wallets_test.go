package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gro-garden-sync/internal/database"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	walletB = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWalletConfig(t *testing.T) {
	path := writeFile(t, `
wallets:
  - address: `+walletA+`
    label: main
  - address: `+walletB+`
  - address: `+walletA+`
`)

	wallets, err := LoadWalletConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []models.WalletInfo{{Address: walletA, Label: "main"}, {Address: walletB}}, wallets)
}

func TestLoadWalletConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing address", "wallets:\n  - label: nobody\n"},
		{"bad address", "wallets:\n  - address: not-base58!\n"},
		{"bad yaml", "wallets: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWalletConfig(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestWalletSource_FallsBackToKnownWallets(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewService(ctx, models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, PingTimeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.AppendJournalEntry(ctx, store.AppendJournalParams{WalletAddress: walletB, Action: models.ActionVisit, Details: "visit"})
	require.NoError(t, err)
	require.NoError(t, db.SetSyncCursor(ctx, walletA, "sig"))

	services := &Services{DbService: db, WalletsFile: filepath.Join(t.TempDir(), "missing.yaml")}
	wallets, err := services.WalletSource()(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.WalletInfo{{Address: walletA}}, wallets)

	services.WalletsFile = writeFile(t, "wallets:\n  - address: "+walletB+"\n")
	wallets, err = services.WalletSource()(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.WalletInfo{{Address: walletB}}, wallets)
}
