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

package cardano

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/gouroboros/ledger"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/workbuffer"
	"github.com/txpipe/dolos/workunit"
)

// GenesisUnit is the workunit.WorkUnit for workunit.KindGenesis: the
// workbuffer's synthetic first event, fired once for the genesis block
// before any roll batch runs. It writes the archive's genesis block and
// seeds Epoch 0 with the starting reserves -- the initial-UTxO and
// initial-pot breakdown a real Byron/Shelley genesis document carries is
// parsed by the caller and folded into InitialReserves, not by this unit
// (genesis config parsing is a collaborator concern, not core -- see
// spec's scope note and DESIGN.md).
type GenesisUnit struct {
	State           storage.StateStore
	Source          BlockSource
	Meta            []workbuffer.BlockMeta
	InitialReserves uint64
	Point           chainpoint.Point

	raw   RawBlock
	block ledger.Block
}

func NewGenesisUnit(state storage.StateStore, source BlockSource, meta []workbuffer.BlockMeta, initialReserves uint64, point chainpoint.Point) *GenesisUnit {
	return &GenesisUnit{State: state, Source: source, Meta: meta, InitialReserves: initialReserves, Point: point}
}

func (u *GenesisUnit) Kind() workunit.Kind { return workunit.KindGenesis }

func (u *GenesisUnit) Load(ctx context.Context) error {
	raws, err := u.Source.FetchBlocks(u.Meta)
	if err != nil {
		return fmt.Errorf("cardano: genesis: fetch block: %w", err)
	}
	if len(raws) != 1 {
		return fmt.Errorf("cardano: genesis: expected exactly one block, got %d", len(raws))
	}
	u.raw = raws[0]
	blk, err := ledger.NewBlockFromCbor(u.raw.Type, u.raw.Cbor)
	if err != nil {
		return fmt.Errorf("cardano: genesis: decode block: %w", err)
	}
	u.block = blk
	return nil
}

func (u *GenesisUnit) Compute(ctx context.Context) error { return nil }

func (u *GenesisUnit) buildEpochDelta() *EpochWriteDelta {
	return &EpochWriteDelta{
		EpochKey: EpochKey(0),
		New:      Epoch{Number: 0, StartSlot: u.Point.Slot, Reserves: u.InitialReserves},
		Prev:     nil,
	}
}

func (u *GenesisUnit) CommitWal(w storage.WalWriter) error {
	return w.Append(u.Point, storage.LogEntry{Deltas: []entity.Delta{u.buildEpochDelta()}})
}

func (u *GenesisUnit) CommitState(w storage.StateWriter) error {
	d := u.buildEpochDelta()
	post, err := d.Apply(nil)
	if err != nil {
		return err
	}
	key := d.Key()
	if err := w.WriteEntity(key.Namespace, key.Key, post); err != nil {
		return err
	}
	return w.SetCursor(u.Point)
}

func (u *GenesisUnit) CommitArchive(w storage.ArchiveWriter) error {
	var hash [32]byte
	copy(hash[:], u.Point.Hash)
	b := storage.Block{
		BlockHeader: storage.BlockHeader{
			Slot:   u.Point.Slot,
			Hash:   hash,
			Height: u.block.BlockNumber(),
			Era:    uint16(u.block.Era().Id),
		},
		Raw: u.raw.Cbor,
	}
	if err := w.WriteBlock(b); err != nil {
		return fmt.Errorf("cardano: genesis: write block: %w", err)
	}
	return w.SetCursor(u.Point)
}

func (u *GenesisUnit) CommitIndexes(w storage.IndexWriter) error {
	if err := w.PutExact(storage.IndexKindBlockHash, u.Point.Hash, u.Point.Slot); err != nil {
		return err
	}
	return w.SetCursor(u.Point)
}

func (u *GenesisUnit) TipEvents() []event.TipEvent {
	return []event.TipEvent{
		{Kind: event.TipEventRollForward, Slot: u.Point.Slot, Hash: u.Point.Hash, Height: u.block.BlockNumber()},
	}
}

func (u *GenesisUnit) MempoolUpdates() []workunit.MempoolUpdate { return nil }
