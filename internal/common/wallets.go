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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gro-garden-sync/internal/instruction"
	"gro-garden-sync/internal/models"

	"gopkg.in/yaml.v2"
)

type WalletsConfig struct {
	Wallets []models.WalletInfo `yaml:"wallets"`
}

func LoadWalletConfig(walletsFile string) ([]models.WalletInfo, error) {
	var walletsPath string
	if filepath.IsAbs(walletsFile) {
		walletsPath = walletsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		walletsPath = filepath.Join(wd, walletsFile)
	}

	data, err := os.ReadFile(walletsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", walletsFile, err)
	}

	var config WalletsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", walletsFile, err)
	}

	seen := make(map[string]bool, len(config.Wallets))
	wallets := make([]models.WalletInfo, 0, len(config.Wallets))
	for i, wallet := range config.Wallets {
		if wallet.Address == "" {
			return nil, fmt.Errorf("wallet at index %d missing address", i)
		}
		if !instruction.IsValidAddress(wallet.Address) {
			return nil, fmt.Errorf("wallet at index %d has invalid address %q", i, wallet.Address)
		}
		if seen[wallet.Address] {
			continue
		}
		seen[wallet.Address] = true
		wallets = append(wallets, wallet)
	}

	return wallets, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
