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

package models

import "time"

// Config holds all application configuration
type Config struct {
	LogLevel  string
	Database  DatabaseConfig
	Rpc       RpcConfig
	PriceFeed PriceFeedConfig
	Deposit   DepositConfig
	Wallet    WalletBridgeConfig
	Sync      SyncConfig
	Api       ApiConfig
	Reminder  ReminderConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// RpcConfig holds ledger JSON-RPC endpoint settings
type RpcConfig struct {
	Url                  string
	Cluster              string
	Timeout              time.Duration
	MaxAttempts          int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	RateLimit            float64
	RateBurst            int
	TransactionCacheSize int
}

// PriceFeedConfig holds price and staking yield endpoint settings
type PriceFeedConfig struct {
	PriceUrl    string
	ApyUrl      string
	PriceTtl    time.Duration
	ApyTtl      time.Duration
	HttpTimeout time.Duration
}

// DepositMode selects which instruction set a deposit transaction carries
type DepositMode string

const (
	DepositModeSelfTransfer  DepositMode = "self-transfer"
	DepositModeLiquidStaking DepositMode = "liquid-staking"
)

func (m DepositMode) Valid() bool {
	return m == DepositModeSelfTransfer || m == DepositModeLiquidStaking
}

// DepositConfig holds transaction pipeline settings
type DepositConfig struct {
	Mode             DepositMode
	WakeLockTimeout  time.Duration
	TokenStoreSecret string
}

// WalletBridgeConfig holds wallet authorization bridge settings
type WalletBridgeConfig struct {
	Url     string
	Timeout time.Duration
}

// SyncConfig holds chain sync poller settings
type SyncConfig struct {
	PollingInterval time.Duration
	SignatureWindow int
	WalletsFile     string
}

// ApiConfig holds HTTP API settings
type ApiConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// ReminderConfig holds reminder schedule settings
type ReminderConfig struct {
	Enabled         bool
	Schedule        string
	MorningEnabled  bool
	MorningSchedule string
}
