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
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/workbuffer"
	"github.com/txpipe/dolos/workunit"
)

// RawBlock is one block as fetched from whatever upstream source feeds
// the roll batch: its gouroboros block type tag and raw CBOR, the same
// shape persisted by the archive store.
type RawBlock struct {
	Type uint
	Cbor []byte
}

// BlockSource fetches the raw bytes for a batch of blocks the workbuffer
// has already decided belong together. It returns blocks in the same
// order as metas.
type BlockSource interface {
	FetchBlocks(metas []workbuffer.BlockMeta) ([]RawBlock, error)
}

// RollUnit is the workunit.WorkUnit for workunit.KindRoll: one
// workbuffer.EventRollBatch's worth of blocks, visited in order and
// committed to all four stores.
type RollUnit struct {
	Source  BlockSource
	Builder *DeltaBuilder
	Metas   []workbuffer.BlockMeta

	blocks  []ledger.Block
	raw     []RawBlock
	results []BlockResult
}

func NewRollUnit(source BlockSource, builder *DeltaBuilder, metas []workbuffer.BlockMeta) *RollUnit {
	return &RollUnit{Source: source, Builder: builder, Metas: metas}
}

func (u *RollUnit) Kind() workunit.Kind { return workunit.KindRoll }

// Load fetches and decodes every block in the batch, in order.
func (u *RollUnit) Load(ctx context.Context) error {
	raw, err := u.Source.FetchBlocks(u.Metas)
	if err != nil {
		return fmt.Errorf("cardano: fetch blocks: %w", err)
	}
	if len(raw) != len(u.Metas) {
		return fmt.Errorf("cardano: fetched %d blocks, expected %d", len(raw), len(u.Metas))
	}
	u.raw = raw
	u.blocks = make([]ledger.Block, len(raw))
	for i, r := range raw {
		blk, err := ledger.NewBlockFromCbor(r.Type, r.Cbor)
		if err != nil {
			return fmt.Errorf("cardano: decode block %d: %w", i, err)
		}
		u.blocks[i] = blk
	}
	return nil
}

// Compute visits every block, in order, building its deltas, UTxO
// changes, and slot tags. The builder's BuildContext carries its own
// in-batch produced-output map, so an output produced by block N and
// consumed by block N+1 in the same batch resolves correctly.
func (u *RollUnit) Compute(ctx context.Context) error {
	u.results = make([]BlockResult, len(u.blocks))
	for i, blk := range u.blocks {
		res, err := u.Builder.BuildBlock(blk)
		if err != nil {
			return fmt.Errorf("cardano: build block %d: %w", i, err)
		}
		u.results[i] = res
	}
	return nil
}

// CommitWal appends one log entry per block, in order, each carrying
// everything package wal needs to undo it later without touching
// archive.
func (u *RollUnit) CommitWal(w storage.WalWriter) error {
	for i, res := range u.results {
		point := chainpoint.New(res.Slot, res.Hash)
		entry := storage.LogEntry{
			Deltas:         res.Deltas,
			ConsumedInputs: res.Consumed,
			ProducedRefs:   producedRefs(res.Produced),
			Tags:           res.Tags,
		}
		if err := w.Append(point, entry); err != nil {
			return fmt.Errorf("cardano: wal append block %d: %w", i, err)
		}
	}
	return nil
}

// CommitState writes every block's UTxO delta and entity deltas, then
// leaves the cursor on the batch's last block.
func (u *RollUnit) CommitState(w storage.StateWriter) error {
	for i, res := range u.results {
		if err := w.ApplyUtxoDelta(res.Produced, consumedRefs(res.Consumed)); err != nil {
			return fmt.Errorf("cardano: apply utxo delta block %d: %w", i, err)
		}
		for _, d := range res.Deltas {
			key := d.Key()
			// Every cardano delta captured its own pre-image as a Prev
			// field when the visitor built it (see deltas.go); Apply
			// ignores the argument passed here.
			post, err := d.Apply(nil)
			if err != nil {
				return fmt.Errorf("cardano: apply delta %s block %d: %w", d.Tag(), i, err)
			}
			if post == nil {
				if err := w.DeleteEntity(key.Namespace, key.Key); err != nil {
					return fmt.Errorf("cardano: delete entity block %d: %w", i, err)
				}
				continue
			}
			if err := w.WriteEntity(key.Namespace, key.Key, post); err != nil {
				return fmt.Errorf("cardano: write entity block %d: %w", i, err)
			}
		}
	}
	last := u.results[len(u.results)-1]
	return w.SetCursor(chainpoint.New(last.Slot, last.Hash))
}

// CommitArchive writes every block's raw CBOR and advances the archive
// cursor. Log entities (asset/governance history, etc.) are written here
// too once the corresponding visitor hooks populate them; none do yet.
func (u *RollUnit) CommitArchive(w storage.ArchiveWriter) error {
	for i, blk := range u.blocks {
		res := u.results[i]
		var hash, prevHash [32]byte
		copy(hash[:], res.Hash)
		copy(prevHash[:], blk.PrevHash().Bytes())
		b := storage.Block{
			BlockHeader: storage.BlockHeader{
				Slot:     res.Slot,
				Hash:     hash,
				PrevHash: prevHash,
				Height:   blk.BlockNumber(),
				Era:      uint16(blk.Era().Id),
			},
			Raw: u.raw[i].Cbor,
		}
		if err := w.WriteBlock(b); err != nil {
			return fmt.Errorf("cardano: write block %d: %w", i, err)
		}
	}
	last := u.results[len(u.results)-1]
	return w.SetCursor(chainpoint.New(last.Slot, last.Hash))
}

// CommitIndexes applies every block's UTxO filter tags and archive slot
// tags, plus the exact tx-hash/block-hash/block-number lookups, and
// advances the index cursor.
func (u *RollUnit) CommitIndexes(w storage.IndexWriter) error {
	for i, res := range u.results {
		for _, tag := range res.Tags.UtxoTags {
			if err := w.ApplyUtxoTagAdd(tag.Dimension, tag.Key, tag.Ref); err != nil {
				return fmt.Errorf("cardano: add utxo tag block %d: %w", i, err)
			}
		}
		for ref, body := range res.Consumed {
			if err := removeUtxoTagsFor(w, ref, body); err != nil {
				return fmt.Errorf("cardano: remove utxo tags block %d: %w", i, err)
			}
		}
		for _, tag := range res.Tags.ArchiveTags {
			if err := w.ApplySlotTag(tag.Dimension, tag.Key, res.Slot); err != nil {
				return fmt.Errorf("cardano: apply slot tag block %d: %w", i, err)
			}
			if tag.Dimension == DimTxHash {
				if err := w.PutExact(storage.IndexKindTxHash, tag.Key, res.Slot); err != nil {
					return fmt.Errorf("cardano: put tx hash index block %d: %w", i, err)
				}
			}
		}
		if err := w.PutExact(storage.IndexKindBlockHash, res.Hash, res.Slot); err != nil {
			return fmt.Errorf("cardano: put block hash index block %d: %w", i, err)
		}
		if err := w.PutExact(storage.IndexKindBlockNum, blockNumKey(u.blocks[i].BlockNumber()), res.Slot); err != nil {
			return fmt.Errorf("cardano: put block number index block %d: %w", i, err)
		}
	}
	last := u.results[len(u.results)-1]
	return w.SetCursor(chainpoint.New(last.Slot, last.Hash))
}

// removeUtxoTagsFor reverses the three dimension tags visitOutputAddress
// attaches when a UTxO is produced. The consumed body may have been
// produced many batches ago, so its tags are re-derived from its address
// rather than looked up -- the index store has no "tags for this ref"
// read path, and address-derived tags are deterministic from the output
// alone.
func removeUtxoTagsFor(w storage.IndexWriter, ref storage.UtxoRef, body storage.UtxoBody) error {
	output, err := ledger.NewTransactionOutputFromCbor(body.Cbor)
	if err != nil {
		return fmt.Errorf("decode consumed output: %w", err)
	}
	addr := output.Address()
	if addrBytes, err := addr.Bytes(); err == nil {
		if err := w.ApplyUtxoTagRemove(DimAddress, addrBytes, ref); err != nil {
			return err
		}
	}
	if err := w.ApplyUtxoTagRemove(DimPaymentCred, addr.PaymentKeyHash().Bytes(), ref); err != nil {
		return err
	}
	return w.ApplyUtxoTagRemove(DimStakeCred, addr.StakeKeyHash().Bytes(), ref)
}

// TipEvents reports one roll-forward event per block in the batch.
func (u *RollUnit) TipEvents() []event.TipEvent {
	evs := make([]event.TipEvent, 0, len(u.results))
	for i, res := range u.results {
		evs = append(evs, event.TipEvent{
			Kind:   event.TipEventRollForward,
			Slot:   res.Slot,
			Hash:   res.Hash,
			Height: u.blocks[i].BlockNumber(),
		})
	}
	return evs
}

func (u *RollUnit) MempoolUpdates() []workunit.MempoolUpdate {
	updates := make([]workunit.MempoolUpdate, 0, len(u.results))
	for _, res := range u.results {
		var seen [][32]byte
		for _, tag := range res.Tags.ArchiveTags {
			if tag.Dimension != DimTxHash {
				continue
			}
			var h [32]byte
			copy(h[:], tag.Key)
			seen = append(seen, h)
		}
		updates = append(updates, workunit.MempoolUpdate{
			Point:   chainpoint.New(res.Slot, res.Hash),
			SeenTxs: seen,
		})
	}
	return updates
}

func producedRefs(produced map[storage.UtxoRef]storage.UtxoBody) []storage.UtxoRef {
	refs := make([]storage.UtxoRef, 0, len(produced))
	for ref := range produced {
		refs = append(refs, ref)
	}
	return refs
}

func consumedRefs(consumed map[storage.UtxoRef]storage.UtxoBody) []storage.UtxoRef {
	refs := make([]storage.UtxoRef, 0, len(consumed))
	for ref := range consumed {
		refs = append(refs, ref)
	}
	return refs
}

func blockNumKey(n uint64) []byte {
	return []byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	}
}
