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

package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/database"
	"gro-garden-sync/internal/garden"
	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/pipeline"
	"gro-garden-sync/internal/pricefeed"
	"gro-garden-sync/internal/retry"
	"gro-garden-sync/internal/rpc"
	"gro-garden-sync/internal/secure"
	"gro-garden-sync/internal/transport"
	"gro-garden-sync/internal/walletbridge"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	RpcClient   *rpc.Client
	PriceFeed   *pricefeed.Client
	Garden      *garden.Service
	SyncEngine  *chainsync.Engine
	TokenStore  *secure.TokenStore
	Pipeline    *pipeline.Pipeline
	WalletsFile string
}

func InitializeLogger(level string) (*zap.Logger, func()) {
	zapCfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			log.Printf("Unknown LOG_LEVEL %q, using info\n", level)
		} else {
			zapCfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires storage, chain access and the garden service. The
// deposit pipeline is only built when a token store secret is configured;
// without it the garden service is read-only.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rpcClient, err := newRpcClient(cfg.Rpc)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	priceClient, err := newPriceFeed(cfg.PriceFeed)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	services := &Services{
		DbService:   dbService,
		RpcClient:   rpcClient,
		PriceFeed:   priceClient,
		WalletsFile: cfg.Sync.WalletsFile,
	}

	gardenCfg := garden.Config{
		Store:  dbService,
		Chain:  rpcClient,
		Prices: priceClient,
	}

	if cfg.Deposit.TokenStoreSecret != "" {
		if err := services.initializePipeline(cfg, rpcClient); err != nil {
			dbService.Close()
			return nil, err
		}
		gardenCfg.Submitter = services.Pipeline
		zap.L().Info("Deposit pipeline ready",
			zap.String("mode", string(cfg.Deposit.Mode)),
			zap.String("wallet_bridge", cfg.Wallet.Url))
	} else {
		zap.L().Info("TOKEN_STORE_SECRET not set, deposits are disabled")
	}

	services.Garden = garden.NewService(gardenCfg)
	services.SyncEngine = chainsync.NewEngine(
		chainsync.Config{SignatureWindow: cfg.Sync.SignatureWindow},
		rpcClient,
		dbService,
		services.Garden,
	)

	zap.L().Info("Services initialized",
		zap.String("rpc_url", cfg.Rpc.Url),
		zap.String("cluster", cfg.Rpc.Cluster),
		zap.String("database", cfg.Database.Path))
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like printing the journal
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) initializePipeline(cfg *models.Config, blockhashes pipeline.BlockhashSource) error {
	tokens, err := secure.NewTokenStore(cs.DbService, []byte(cfg.Deposit.TokenStoreSecret))
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}

	bridgeHttp, err := transport.NewHttpClient(cfg.Wallet.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create wallet bridge http client: %w", err)
	}
	bridge, err := walletbridge.NewClient(walletbridge.Config{
		Url:        cfg.Wallet.Url,
		HttpClient: bridgeHttp,
		Tokens:     tokens,
	})
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Config{
		Mode:            cfg.Deposit.Mode,
		WakeLockTimeout: cfg.Deposit.WakeLockTimeout,
	}, blockhashes, bridge, pipeline.NopWakeLock{})
	if err != nil {
		return fmt.Errorf("failed to create transaction pipeline: %w", err)
	}

	cs.TokenStore = tokens
	cs.Pipeline = p
	return nil
}

// WalletSource lists the wallets file when present, otherwise every wallet
// the store has seen.
func (cs *Services) WalletSource() chainsync.WalletListFunc {
	return func(ctx context.Context) ([]models.WalletInfo, error) {
		wallets, err := LoadWalletConfig(cs.WalletsFile)
		if err == nil {
			return wallets, nil
		}
		if !isMissingFile(err) {
			return nil, err
		}

		known, err := cs.DbService.GetKnownWallets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list known wallets: %w", err)
		}
		wallets = make([]models.WalletInfo, len(known))
		for i, address := range known {
			wallets[i] = models.WalletInfo{Address: address}
		}
		return wallets, nil
	}
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func newRpcClient(cfg models.RpcConfig) (*rpc.Client, error) {
	httpClient, err := transport.NewHttpClient(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc http client: %w", err)
	}

	policy := retry.DefaultPolicy("rpc")
	policy.MaxAttempts = cfg.MaxAttempts
	if cfg.InitialBackoff > 0 {
		policy.InitialDelay = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		policy.MaxDelay = cfg.MaxBackoff
	}
	policy.OnRetry = func(attempt int, err error) {
		zap.L().Debug("Retrying rpc request", zap.Int("attempt", attempt), zap.Error(err))
	}

	return rpc.NewClient(rpc.Config{
		Endpoint:             cfg.Url,
		HttpClient:           httpClient,
		Retry:                policy,
		RateLimit:            cfg.RateLimit,
		RateBurst:            cfg.RateBurst,
		TransactionCacheSize: cfg.TransactionCacheSize,
	})
}

func newPriceFeed(cfg models.PriceFeedConfig) (*pricefeed.Client, error) {
	httpClient, err := transport.NewHttpClient(cfg.HttpTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create price feed http client: %w", err)
	}
	return pricefeed.NewClient(pricefeed.Config{
		PriceUrl:   cfg.PriceUrl,
		ApyUrl:     cfg.ApyUrl,
		PriceTtl:   cfg.PriceTtl,
		ApyTtl:     cfg.ApyTtl,
		HttpClient: httpClient,
	}), nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
