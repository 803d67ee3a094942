// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "dolos.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// RunMode represents the operational mode of the dolos node
type RunMode string

const (
	RunModeServe RunMode = "serve" // Full node driven by an upstream block feed (default)
	RunModeLoad  RunMode = "load"  // Batch import from a directory of one file per block (internal/immutable)
	RunModeDev   RunMode = "dev"   // Development mode (isolated, in-memory stores)
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeLoad, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode enables development behaviors
// (in-memory stores, no historical validation).
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

// StorageMode selects which role this process plays against the entity
// store: Core derives state from raw blocks, API only ever reads it.
type StorageMode string

const (
	StorageModeCore StorageMode = "core"
	StorageModeAPI  StorageMode = "api"
)

func (m StorageMode) Valid() bool {
	switch m {
	case StorageModeCore, StorageModeAPI:
		return true
	default:
		return false
	}
}

func (m StorageMode) IsAPI() bool {
	return m == StorageModeAPI
}

type Config struct {
	CardanoConfig      string      `yaml:"cardanoConfig"      envconfig:"config"`
	DatabasePath       string      `yaml:"databasePath"                                                  split_words:"true"`
	Network            string      `yaml:"network"`
	RunMode            RunMode     `yaml:"runMode"         envconfig:"DOLOS_RUN_MODE"`
	StorageMode        StorageMode `yaml:"storageMode"     envconfig:"DOLOS_STORAGE_MODE"`
	ImmutableDbPath    string      `yaml:"immutableDbPath" envconfig:"DOLOS_IMMUTABLE_DB_PATH"`
	ShutdownTimeout    string      `yaml:"shutdownTimeout"                                               split_words:"true"`
	MetricsPort        uint        `yaml:"metricsPort"                                                   split_words:"true"`
	ValidateHistorical bool        `yaml:"validateHistorical"                                            split_words:"true"`
	// InitialReserves seeds the reserves pot at genesis (lovelace). Only
	// consulted when the entity store has never seen an epoch 0.
	InitialReserves uint64 `yaml:"initialReserves" envconfig:"DOLOS_INITIAL_RESERVES"`
	// Reward parameters: the Shelley genesis/protocol-params accessors
	// available from config/cardano don't expose a0/rho/tau/d, so these
	// are taken from config instead, defaulted to their current mainnet
	// values.
	PoolPledgeInfluence float64 `yaml:"poolPledgeInfluence" envconfig:"DOLOS_POOL_PLEDGE_INFLUENCE"`
	MonetaryExpansion   float64 `yaml:"monetaryExpansion"   envconfig:"DOLOS_MONETARY_EXPANSION"`
	TreasuryCut         float64 `yaml:"treasuryCut"         envconfig:"DOLOS_TREASURY_CUT"`
	Decentralisation    float64 `yaml:"decentralisation"    envconfig:"DOLOS_DECENTRALISATION"`
	ProtocolVersion     uint    `yaml:"protocolVersion"     envconfig:"DOLOS_PROTOCOL_VERSION"`
	PoolDeposit         uint64  `yaml:"poolDeposit"         envconfig:"DOLOS_POOL_DEPOSIT"`
}

var globalConfig = &Config{
	DatabasePath:        ".dolos",
	Network:             "preview",
	RunMode:             RunModeServe,
	StorageMode:         StorageModeCore,
	ImmutableDbPath:     "",
	ShutdownTimeout:     DefaultShutdownTimeout,
	MetricsPort:         12798,
	PoolPledgeInfluence: 0.3,
	MonetaryExpansion:   0.003,
	TreasuryCut:         0.2,
	Decentralisation:    0,
	ProtocolVersion:     9,
	PoolDeposit:         500000000,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.dolos/dolos.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".dolos", "dolos.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/dolos/dolos.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/dolos/dolos.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process environment variables
	if err := envconfig.Process("cardano", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Validate and default RunMode
	if !globalConfig.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve', 'load', or 'dev')",
			globalConfig.RunMode,
		)
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}
	if globalConfig.StorageMode == "" {
		globalConfig.StorageMode = StorageModeCore
	}
	if !globalConfig.StorageMode.Valid() {
		return nil, fmt.Errorf(
			"invalid storageMode: %q (must be 'core' or 'api')",
			globalConfig.StorageMode,
		)
	}

	// Set default CardanoConfig path based on network if not provided by user
	if globalConfig.CardanoConfig == "" {
		if globalConfig.Network == "preview" {
			globalConfig.CardanoConfig = "preview/config.json"
		} else {
			globalConfig.CardanoConfig = "/opt/cardano/" + globalConfig.Network + "/config.json"
		}
	}

	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
