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
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/txpipe/dolos"
	"github.com/txpipe/dolos/internal/config"
	"github.com/txpipe/dolos/internal/immutable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// loadRun replays every block under immutablePath through a Node running
// in dev mode, pushing each BlockMeta and draining ready work units as it
// goes. Unlike serve, there is no upstream BlockSource collaborator
// feeding the node live -- source below plays that role, reading the flat
// directory internal/immutable writes.
func loadRun(ctx context.Context, args []string, cfg *config.Config) {
	var immutablePath string

	// CLI argument takes priority over config
	if len(args) >= 1 {
		immutablePath = args[0]
	} else if cfg.ImmutableDbPath != "" {
		immutablePath = cfg.ImmutableDbPath
	} else {
		slog.Error(
			"path to block directory required (via argument or immutableDbPath config)",
		)
		os.Exit(1)
	}

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

	source := immutable.NewSource(immutablePath)
	metas, err := immutable.ListMetas(immutablePath)
	if err != nil {
		slog.Error(fmt.Sprintf("listing blocks under %s: %s", immutablePath, err))
		os.Exit(1)
	}
	if len(metas) == 0 {
		slog.Error(fmt.Sprintf("no blocks found under %s", immutablePath))
		os.Exit(1)
	}

	n, err := dolos.New(
		dolos.NewConfig(
			dolos.WithCardanoNodeConfig(nodeCfg),
			dolos.WithDatabasePath(cfg.DatabasePath),
			dolos.WithStorageMode(dolos.StorageMode(cfg.StorageMode)),
			dolos.WithNetwork(cfg.Network),
			dolos.WithLogger(logger),
			dolos.WithPrometheusRegistry(prometheus.DefaultRegisterer),
			dolos.WithRunMode("dev"),
			dolos.WithValidateHistorical(cfg.ValidateHistorical),
			dolos.WithShutdownTimeout(30*time.Second),
			dolos.WithInitialReserves(cfg.InitialReserves),
		),
	)
	if err != nil {
		slog.Error(fmt.Sprintf("creating node: %s", err))
		os.Exit(1)
	}
	n.WithBlockSource(source)
	n.WithEpochParams(epochParams)

	go func() {
		if err := n.Run(); err != nil {
			slog.Error(fmt.Sprintf("node run: %s", err))
			os.Exit(1)
		}
	}()
	<-n.Ready()

	for _, meta := range metas {
		if err := n.PushBlock(meta); err != nil {
			slog.Error(fmt.Sprintf("pushing block at slot %d: %s", meta.Slot, err))
			os.Exit(1)
		}
		if err := n.Drain(ctx); err != nil {
			slog.Error(fmt.Sprintf("draining work units: %s", err))
			os.Exit(1)
		}
	}
	if err := n.Drain(ctx); err != nil {
		slog.Error(fmt.Sprintf("draining work units: %s", err))
		os.Exit(1)
	}

	logger.Info(fmt.Sprintf("loaded %d blocks", len(metas)), "component", "load")

	if err := n.Stop(); err != nil {
		slog.Error(fmt.Sprintf("shutdown: %s", err))
		os.Exit(1)
	}
}

func loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [block-dir]",
		Short: "Load blocks from a flat block directory (path via arg or immutableDbPath config)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			loadRun(cmd.Context(), args, cfg)
		},
	}
	return cmd
}
