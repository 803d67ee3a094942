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

package workunit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
)

// Mode selects which phases an Executor runs.
type Mode int

const (
	// ModeSync runs all six phases plus tip emission; used for live
	// chain-follow, where durability and subscriber notification both
	// matter.
	ModeSync Mode = iota
	// ModeImport skips commit_wal and tip emission; used for Mithril
	// snapshot import and other bulk paths where input data is assumed
	// immutable and recovery means re-running the import.
	ModeImport
)

// Executor runs WorkUnits against the four stores in the fixed order the
// WAL protocol requires: commit_wal must be durable before state,
// archive, or indexes are touched.
type Executor struct {
	Stores *storage.Stores
	Mode   Mode
	Logger *slog.Logger
	Bus    *event.EventBus

	needsCacheRefresh bool
}

func NewExecutor(stores *storage.Stores, mode Mode, logger *slog.Logger, bus *event.EventBus) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{Stores: stores, Mode: mode, Logger: logger, Bus: bus}
}

// NeedsCacheRefresh reports whether the era-summary cache should be
// reloaded before the next unit is processed, and clears the flag.
func (e *Executor) NeedsCacheRefresh() bool {
	v := e.needsCacheRefresh
	e.needsCacheRefresh = false
	return v
}

// Run drives one WorkUnit through its full lifecycle. A nil error means
// every phase succeeded and (in ModeSync) tip events were published.
// ErrStopEpochReached is returned verbatim so the caller's loop can shut
// down cleanly instead of treating it as a failure.
func (e *Executor) Run(ctx context.Context, unit WorkUnit) error {
	if err := unit.Load(ctx); err != nil {
		return fmt.Errorf("workunit: load: %w", err)
	}
	if err := unit.Compute(ctx); err != nil {
		return fmt.Errorf("workunit: compute: %w", err)
	}

	if e.Mode == ModeSync {
		walWriter, err := e.Stores.Wal.StartWriter()
		if err != nil {
			return fmt.Errorf("workunit: open wal writer: %w", err)
		}
		if err := unit.CommitWal(walWriter); err != nil {
			walWriter.Rollback()
			return fmt.Errorf("workunit: commit_wal: %w", err)
		}
		if err := walWriter.Commit(); err != nil {
			return fmt.Errorf("workunit: commit_wal durability: %w", err)
		}
	}

	stateWriter, err := e.Stores.State.StartWriter()
	if err != nil {
		return fmt.Errorf("workunit: open state writer: %w", err)
	}
	if err := unit.CommitState(stateWriter); err != nil {
		stateWriter.Rollback()
		if errors.Is(err, ErrStopEpochReached) {
			return err
		}
		return fmt.Errorf("workunit: commit_state: %w", err)
	}
	if err := stateWriter.Commit(); err != nil {
		return fmt.Errorf("workunit: commit_state durability: %w", err)
	}

	archiveWriter, err := e.Stores.Archive.StartWriter()
	if err != nil {
		return fmt.Errorf("workunit: open archive writer: %w", err)
	}
	if err := unit.CommitArchive(archiveWriter); err != nil {
		archiveWriter.Rollback()
		return fmt.Errorf("workunit: commit_archive: %w", err)
	}
	if err := archiveWriter.Commit(); err != nil {
		return fmt.Errorf("workunit: commit_archive durability: %w", err)
	}

	indexWriter, err := e.Stores.Index.StartWriter()
	if err != nil {
		return fmt.Errorf("workunit: open index writer: %w", err)
	}
	if err := unit.CommitIndexes(indexWriter); err != nil {
		indexWriter.Rollback()
		return fmt.Errorf("workunit: commit_indexes: %w", err)
	}
	if err := indexWriter.Commit(); err != nil {
		return fmt.Errorf("workunit: commit_indexes durability: %w", err)
	}

	if unit.Kind() == KindGenesis || unit.Kind() == KindEstart {
		e.needsCacheRefresh = true
	}

	if e.Mode == ModeSync {
		for _, ev := range unit.TipEvents() {
			if e.Bus != nil {
				e.Bus.Publish(event.TipEventType, event.NewEvent(event.TipEventType, ev))
			}
		}
	}

	return nil
}
