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

package main

import (
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/txpipe/dolos"
	"github.com/txpipe/dolos/cardano/epoch"
	dcardano "github.com/txpipe/dolos/config/cardano"
	"github.com/txpipe/dolos/internal/config"
	"github.com/txpipe/dolos/workbuffer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func ratFromFloat(f float64) *big.Rat {
	r := new(big.Rat)
	r.SetFloat64(f)
	return r
}

// buildEpochParams assembles the genesis/reward constants the domain's
// RUPD/EWRAP/ESTART boundaries need. Shelley genesis supplies EpochLength
// and the active slot coefficient; Byron genesis supplies the security
// parameter k. a0/rho/tau/d aren't exposed by config/cardano's genesis
// accessors, so those come from cfg instead (see internal/config).
func buildEpochParams(
	cfg *config.Config,
	nodeCfg *dcardano.CardanoNodeConfig,
) (dolos.EpochParams, error) {
	shelleyGenesis := nodeCfg.ShelleyGenesis()
	if shelleyGenesis == nil {
		return dolos.EpochParams{}, fmt.Errorf("cardano node config missing Shelley genesis")
	}
	byronGenesis := nodeCfg.ByronGenesis()
	k := uint64(2160)
	if byronGenesis != nil {
		k = uint64(byronGenesis.ProtocolConsts.K)
	}
	activeSlotCoeff, _ := shelleyGenesis.ActiveSlotsCoeff.Rat.Float64()

	genesisParams := workbuffer.GenesisParams{
		EpochLength:     uint64(shelleyGenesis.EpochLength),
		SystemStartSlot: 0,
		K:               k,
		F:               activeSlotCoeff,
	}

	return dolos.EpochParams{
		Reward: epoch.Params{
			A0:              ratFromFloat(cfg.PoolPledgeInfluence),
			K:               uint32(k),
			D:               ratFromFloat(cfg.Decentralisation),
			Rho:             ratFromFloat(cfg.MonetaryExpansion),
			Tau:             ratFromFloat(cfg.TreasuryCut),
			EpochLength:     genesisParams.EpochLength,
			ActiveSlotCoeff: activeSlotCoeff,
			ProtocolVersion: cfg.ProtocolVersion,
		},
		PoolDeposit:     cfg.PoolDeposit,
		Genesis:         genesisParams,
		InitialReserves: cfg.InitialReserves,
	}, nil
}

func loadCardanoNodeConfig(cfg *config.Config) (*dcardano.CardanoNodeConfig, error) {
	cardanoConfigPath := cfg.CardanoConfig
	if cardanoConfigPath == "" {
		network := cfg.Network
		if network == "" {
			network = "preview"
		}
		cardanoConfigPath = network + "/config.json"
	}
	return dcardano.LoadCardanoNodeConfigWithFallback(
		cardanoConfigPath,
		cfg.Network,
		dcardano.EmbeddedConfigPreviewNetworkFS,
	)
}

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()

	nodeCfg, err := loadCardanoNodeConfig(cfg)
	if err != nil {
		slog.Error(fmt.Sprintf("loading cardano node config: %s", err))
		os.Exit(1)
	}

	epochParams, err := buildEpochParams(cfg, nodeCfg)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}

	n, err := dolos.New(
		dolos.NewConfig(
			dolos.WithCardanoNodeConfig(nodeCfg),
			dolos.WithDatabasePath(cfg.DatabasePath),
			dolos.WithStorageMode(dolos.StorageMode(cfg.StorageMode)),
			dolos.WithNetwork(cfg.Network),
			dolos.WithLogger(logger),
			dolos.WithPrometheusRegistry(prometheus.DefaultRegisterer),
			dolos.WithRunMode(string(cfg.RunMode)),
			dolos.WithValidateHistorical(cfg.ValidateHistorical),
			dolos.WithShutdownTimeout(shutdownTimeout),
			dolos.WithInitialReserves(cfg.InitialReserves),
		),
	)
	if err != nil {
		slog.Error(fmt.Sprintf("creating node: %s", err))
		os.Exit(1)
	}
	n.WithEpochParams(epochParams)

	if cfg.MetricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
				logger.Error(fmt.Sprintf("metrics server: %s", err))
			}
		}()
	}

	if err := n.Run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as a node",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			serveRun(cmd, args, cfg)
		},
	}
	return cmd
}
