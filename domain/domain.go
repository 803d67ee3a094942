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

// Package domain ties the four storage backends, the WAL rollback
// protocol, the workbuffer batching state machine, the workunit executor,
// and the Cardano-specific roll/epoch engines into the one entry point
// upstream block delivery and read-side query collaborators both talk to.
package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/cardano/epoch"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/wal"
	"github.com/txpipe/dolos/workbuffer"
	"github.com/txpipe/dolos/workunit"
)

// EpochParams carries the genesis/protocol constants RUPD, EWRAP, and
// ESTART need for the era currently active. Domain holds exactly one
// instance and applies it to every boundary it builds; a protocol-version
// change that alters these values takes effect the next time the caller
// reconstructs Domain's config (outside this package's scope -- the core
// engine doesn't decode pparam-update certificates into new EpochParams
// itself, see DESIGN.md).
type EpochParams struct {
	Reward          epoch.Params
	PoolDeposit     uint64
	Genesis         workbuffer.GenesisParams
	InitialReserves uint64
}

// Domain is the read/write hub QueryHelpers, the block ingestion loop,
// and administrative tooling all share.
type Domain struct {
	Stores   *storage.Stores
	Buffer   *workbuffer.Buffer
	Executor *workunit.Executor
	Protocol *wal.Protocol
	Source   cardano.BlockSource
	// Resolver sources governance proposal outcomes (see package
	// governance); nil disables EwrapUnit's governance step entirely, so
	// no proposal is enacted, expired or refunded.
	Resolver epoch.ProposalResolver
	Params   EpochParams
	Logger   *slog.Logger

	nextCandidateNonce []byte
}

// New builds a Domain over already-open stores. mode selects the
// executor's phase set (ModeSync for live chain-follow, ModeImport for
// bulk/snapshot ingestion); bus may be nil to disable tip-event
// publishing.
func New(
	stores *storage.Stores,
	source cardano.BlockSource,
	resolver epoch.ProposalResolver,
	params EpochParams,
	mode workunit.Mode,
	bus *event.EventBus,
	logger *slog.Logger,
) *Domain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Domain{
		Stores:   stores,
		Buffer:   workbuffer.New(params.Genesis),
		Executor: workunit.NewExecutor(stores, mode, logger, bus),
		Protocol: wal.New(stores),
		Source:   source,
		Resolver: resolver,
		Params:   params,
		Logger:   logger,
	}
}

// PushBlock feeds one block header into the batching state machine. It
// does not itself run any work unit -- call Drain afterward to run
// whatever batches/boundaries the push made ready.
func (d *Domain) PushBlock(meta workbuffer.BlockMeta) error {
	return d.Buffer.PushBlock(meta)
}

// Drain pops and runs every event the buffer currently has ready,
// stopping cleanly (nil error) once the buffer reports it has nothing
// left, or surfacing workunit.ErrStopEpochReached/workunit errors
// otherwise.
func (d *Domain) Drain(ctx context.Context) error {
	for {
		ev, ok, err := d.Buffer.Pop()
		if err != nil {
			return fmt.Errorf("domain: pop event: %w", err)
		}
		if !ok {
			return nil
		}
		if err := d.runEvent(ctx, ev); err != nil {
			return err
		}
		if d.Executor.NeedsCacheRefresh() {
			d.Logger.Debug("domain: era cache refresh requested after boundary unit")
		}
	}
}

func (d *Domain) runEvent(ctx context.Context, ev workbuffer.Event) error {
	unit, err := d.buildUnit(ev)
	if err != nil {
		return err
	}
	if unit == nil {
		return nil
	}
	return d.Executor.Run(ctx, unit)
}

func (d *Domain) buildUnit(ev workbuffer.Event) (workunit.WorkUnit, error) {
	point := batchPoint(ev.Batch)
	switch ev.Kind {
	case workbuffer.EventGenesis:
		return cardano.NewGenesisUnit(d.Stores.State, d.Source, ev.Batch, d.Params.InitialReserves, point), nil
	case workbuffer.EventRollBatch:
		builder := cardano.NewDeltaBuilder(cardano.NewBuildContext(
			d.Stores.State, false, d.Params.Reward.ProtocolVersion, d.currentEpoch(), nil, d.Logger,
		))
		return cardano.NewRollUnit(d.Source, builder, ev.Batch), nil
	case workbuffer.EventRupd:
		return epoch.NewRupdUnit(d.Stores.State, d.Stores.Index, d.Params.Reward, d.currentEpoch(), point), nil
	case workbuffer.EventEwrap:
		return epoch.NewEwrapUnit(d.Stores.State, d.Params.Reward, d.Params.PoolDeposit, d.Resolver, d.currentEpoch(), point), nil
	case workbuffer.EventEstart:
		unit := epoch.NewEstartUnit(d.Stores.State, d.Params.Reward, d.Params.PoolDeposit, d.currentEpoch(), d.nextCandidateNonce, point)
		d.nextCandidateNonce = nil
		return unit, nil
	default:
		return nil, fmt.Errorf("domain: unrecognized event kind %q", ev.Kind)
	}
}

// currentEpoch derives the epoch number from the chain cursor using the
// same genesis constants the workbuffer was seeded with, rather than
// tracking it as separate mutable Domain state.
func (d *Domain) currentEpoch() uint64 {
	cursor, ok, err := d.Stores.State.Cursor()
	if err != nil || !ok {
		return 0
	}
	return d.Params.Genesis.Epoch(cursor.Slot)
}

// SetNextCandidateNonce sets the candidate nonce the next ESTART unit
// stores on the opening epoch. Nothing in this module derives one from
// block VRF outputs; the value comes from the caller (see DESIGN.md's
// epoch-package nonce-evolution gap).
func (d *Domain) SetNextCandidateNonce(nonce []byte) {
	d.nextCandidateNonce = nonce
}

// RollbackTo restores all four stores to target, delegating to the WAL
// protocol, and resets the workbuffer to StateRestart so ingestion can
// resume cleanly from the rolled-back tip.
func (d *Domain) RollbackTo(target chainpoint.Point) error {
	if err := d.Protocol.RollbackTo(target); err != nil {
		return fmt.Errorf("domain: rollback: %w", err)
	}
	d.Buffer = workbuffer.New(d.Params.Genesis)
	return nil
}

func batchPoint(batch []workbuffer.BlockMeta) chainpoint.Point {
	if len(batch) == 0 {
		return chainpoint.Point{}
	}
	last := batch[len(batch)-1]
	return chainpoint.New(last.Slot, last.Hash[:])
}
