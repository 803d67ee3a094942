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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		CardanoConfig:       "./config/cardano/preview/config.json",
		DatabasePath:        ".dolos",
		Network:             "preview",
		RunMode:             RunModeServe,
		StorageMode:         StorageModeCore,
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsPort:         12798,
		PoolPledgeInfluence: 0.3,
		MonetaryExpansion:   0.003,
		TreasuryCut:         0.2,
		ProtocolVersion:     9,
		PoolDeposit:         500000000,
	}
}

func TestLoad_YamlFieldsOverrideDefaults(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
cardanoConfig: "./cardano/preview/config.json"
databasePath: ".dolos"
network: "preview"
runMode: "dev"
storageMode: "api"
metricsPort: 8088
validateHistorical: true
initialReserves: 13888022237780000
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-dolos.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(yamlContent), 0644))

	actual, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "./cardano/preview/config.json", actual.CardanoConfig)
	assert.Equal(t, RunMode("dev"), actual.RunMode)
	assert.Equal(t, StorageMode("api"), actual.StorageMode)
	assert.Equal(t, uint(8088), actual.MetricsPort)
	assert.True(t, actual.ValidateHistorical)
	assert.Equal(t, uint64(13888022237780000), actual.InitialReserves)
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ".dolos", cfg.DatabasePath)
	assert.Equal(t, "preview", cfg.Network)
	assert.Equal(t, RunModeServe, cfg.RunMode)
	assert.Equal(t, StorageModeCore, cfg.StorageMode)
	assert.Equal(t, uint(12798), cfg.MetricsPort)
}

func TestLoad_WithDevRunMode(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
runMode: "dev"
network: "preview"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-dev-mode.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(yamlContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.True(t, cfg.RunMode.IsDevMode())
}

func TestLoad_InvalidRunModeRejected(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
runMode: "bogus"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-bad-mode.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(yamlContent), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
}

func TestStorageModeIsAPI(t *testing.T) {
	assert.False(t, StorageModeCore.IsAPI())
	assert.True(t, StorageModeAPI.IsAPI())
}

func TestLoad_RewardParamDefaults(t *testing.T) {
	resetGlobalConfig()

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.InDelta(t, 0.3, cfg.PoolPledgeInfluence, 0.0001)
	assert.InDelta(t, 0.003, cfg.MonetaryExpansion, 0.0001)
	assert.InDelta(t, 0.2, cfg.TreasuryCut, 0.0001)
	assert.Equal(t, uint(9), cfg.ProtocolVersion)
	assert.Equal(t, uint64(500000000), cfg.PoolDeposit)
}
