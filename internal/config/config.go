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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/pricefeed"
	"gro-garden-sync/internal/reminder"
	"gro-garden-sync/internal/walletbridge"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DATABASE_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	rpcTimeout, err := getEnvDuration("RPC_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	initialBackoff, err := getEnvDuration("RPC_INITIAL_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	maxBackoff, err := getEnvDuration("RPC_MAX_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvFloat("RPC_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	priceTtl, err := getEnvDuration("PRICE_CACHE_TTL", pricefeed.DefaultPriceTtl)
	if err != nil {
		return nil, err
	}

	apyTtl, err := getEnvDuration("STAKING_APY_CACHE_TTL", pricefeed.DefaultApyTtl)
	if err != nil {
		return nil, err
	}

	priceTimeout, err := getEnvDuration("PRICE_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	wakeLockTimeout, err := getEnvDuration("WAKE_LOCK_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}

	bridgeTimeout, err := getEnvDuration("WALLET_BRIDGE_TIMEOUT", 150*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("SYNC_POLLING_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "gro_garden.db"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Rpc: models.RpcConfig{
			Url:                  getEnvString("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			Cluster:              getEnvString("SOLANA_CLUSTER", "devnet"),
			Timeout:              rpcTimeout,
			MaxAttempts:          getEnvInt("RPC_MAX_ATTEMPTS", 3),
			InitialBackoff:       initialBackoff,
			MaxBackoff:           maxBackoff,
			RateLimit:            rateLimit,
			RateBurst:            getEnvInt("RPC_RATE_BURST", 5),
			TransactionCacheSize: getEnvInt("RPC_TRANSACTION_CACHE_SIZE", 256),
		},
		PriceFeed: models.PriceFeedConfig{
			PriceUrl:    getEnvString("PRICE_API_URL", pricefeed.DefaultPriceUrl),
			ApyUrl:      getEnvString("STAKING_APY_URL", pricefeed.DefaultApyUrl),
			PriceTtl:    priceTtl,
			ApyTtl:      apyTtl,
			HttpTimeout: priceTimeout,
		},
		Deposit: models.DepositConfig{
			Mode:             models.DepositMode(getEnvString("DEPOSIT_MODE", string(models.DepositModeSelfTransfer))),
			WakeLockTimeout:  wakeLockTimeout,
			TokenStoreSecret: os.Getenv("TOKEN_STORE_SECRET"),
		},
		Wallet: models.WalletBridgeConfig{
			Url:     getEnvString("WALLET_BRIDGE_URL", walletbridge.DefaultUrl),
			Timeout: bridgeTimeout,
		},
		Sync: models.SyncConfig{
			PollingInterval: pollingInterval,
			SignatureWindow: getEnvInt("SYNC_SIGNATURE_WINDOW", 30),
			WalletsFile:     getEnvString("WALLETS_FILE", "wallets.yaml"),
		},
		Api: models.ApiConfig{
			ListenAddr:      getEnvString("API_LISTEN_ADDR", ":8080"),
			ShutdownTimeout: shutdownTimeout,
		},
		Reminder: models.ReminderConfig{
			Enabled:         getEnvBool("REMINDER_ENABLED", true),
			Schedule:        getEnvString("REMINDER_SCHEDULE", reminder.DefaultSchedule),
			MorningEnabled:  getEnvBool("REMINDER_MORNING_ENABLED", true),
			MorningSchedule: getEnvString("REMINDER_MORNING_SCHEDULE", reminder.DefaultMorningSchedule),
		},
	}

	// The deposit path is never defaulted on mainnet.
	if os.Getenv("DEPOSIT_MODE") == "" && isMainnet(cfg.Rpc.Cluster) {
		return nil, fmt.Errorf("DEPOSIT_MODE must be set explicitly when SOLANA_CLUSTER is %q", cfg.Rpc.Cluster)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if !cfg.Deposit.Mode.Valid() {
		return fmt.Errorf("invalid DEPOSIT_MODE %q: must be %q or %q",
			cfg.Deposit.Mode, models.DepositModeSelfTransfer, models.DepositModeLiquidStaking)
	}
	if cfg.Rpc.Url == "" {
		return fmt.Errorf("SOLANA_RPC_URL must not be empty")
	}
	if cfg.Rpc.MaxAttempts < 1 {
		return fmt.Errorf("RPC_MAX_ATTEMPTS must be positive, got %d", cfg.Rpc.MaxAttempts)
	}
	if cfg.Rpc.RateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative, got %v", cfg.Rpc.RateLimit)
	}
	if cfg.Sync.PollingInterval <= 0 {
		return fmt.Errorf("SYNC_POLLING_INTERVAL must be positive, got %v", cfg.Sync.PollingInterval)
	}
	if cfg.Sync.SignatureWindow < 1 || cfg.Sync.SignatureWindow > 1000 {
		return fmt.Errorf("SYNC_SIGNATURE_WINDOW must be between 1 and 1000, got %d", cfg.Sync.SignatureWindow)
	}
	return nil
}

func isMainnet(cluster string) bool {
	switch strings.ToLower(cluster) {
	case "mainnet", "mainnet-beta":
		return true
	}
	return false
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
